package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/clipstage/share-access-service/internal/ports"
)

const otpPrefix = "share:otp:"

// KVCodeStore holds hashed one-time codes in the shared key-value store.
// The record TTL is the single source of code expiry; DecrementAttempts
// rewrites the record with its remaining lifetime so a wrong guess never
// extends it.
type KVCodeStore struct {
	kv ports.KeyValueStore
}

func NewKVCodeStore(kv ports.KeyValueStore) *KVCodeStore {
	return &KVCodeStore{kv: kv}
}

func (s *KVCodeStore) Put(ctx context.Context, key string, code ports.StoredCode, ttl time.Duration) error {
	raw, err := json.Marshal(code)
	if err != nil {
		return err
	}
	return s.kv.SetEx(ctx, otpPrefix+key, string(raw), ttl)
}

func (s *KVCodeStore) Get(ctx context.Context, key string) (*ports.StoredCode, error) {
	raw, ok, err := s.kv.Get(ctx, otpPrefix+key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var out ports.StoredCode
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *KVCodeStore) DecrementAttempts(ctx context.Context, key string, code ports.StoredCode, now time.Time) (*ports.StoredCode, error) {
	code.AttemptsRemaining--
	if code.AttemptsRemaining <= 0 {
		code.AttemptsRemaining = 0
		if err := s.Consume(ctx, key); err != nil {
			return nil, err
		}
		return &code, nil
	}

	remaining := code.ExpiresAt.Sub(now)
	if remaining <= 0 {
		if err := s.Consume(ctx, key); err != nil {
			return nil, err
		}
		code.AttemptsRemaining = 0
		return &code, nil
	}

	raw, err := json.Marshal(code)
	if err != nil {
		return nil, err
	}
	if err := s.kv.SetEx(ctx, otpPrefix+key, string(raw), remaining); err != nil {
		return nil, err
	}
	return &code, nil
}

func (s *KVCodeStore) Consume(ctx context.Context, key string) error {
	return s.kv.Del(ctx, otpPrefix+key)
}
