package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/clipstage/share-access-service/internal/domain"
	"github.com/clipstage/share-access-service/internal/ports"
)

const (
	sessionSetPrefix  = "share:sess:"
	sessionMetaPrefix = "share:sess:meta:"
)

type sessionMeta struct {
	CreatedAt time.Time `json:"created_at"`
}

// KVSessionStore keeps the share-id membership set and creation metadata for
// each session. The membership set carries the sliding TTL; the metadata key
// carries the absolute cap, so a session cannot outlive either no matter how
// often it is refreshed.
type KVSessionStore struct {
	kv          ports.KeyValueStore
	idleTTL     time.Duration
	absoluteTTL time.Duration
}

func NewKVSessionStore(kv ports.KeyValueStore, idleTTL, absoluteTTL time.Duration) *KVSessionStore {
	if idleTTL <= 0 {
		idleTTL = time.Hour
	}
	if absoluteTTL <= 0 {
		absoluteTTL = 24 * time.Hour
	}
	return &KVSessionStore{kv: kv, idleTTL: idleTTL, absoluteTTL: absoluteTTL}
}

func (s *KVSessionStore) Authorize(ctx context.Context, sessionID, shareID string, now time.Time) error {
	createdAt, err := s.ensureMeta(ctx, sessionID, now)
	if err != nil {
		return err
	}
	remaining := s.remainingTTL(createdAt, now)
	if remaining <= 0 {
		_ = s.Revoke(ctx, sessionID)
		return domain.ErrSessionExpired
	}

	if err := s.kv.SAdd(ctx, sessionSetPrefix+sessionID, shareID); err != nil {
		return err
	}
	return s.kv.Expire(ctx, sessionSetPrefix+sessionID, remaining)
}

func (s *KVSessionStore) IsAuthorized(ctx context.Context, sessionID, shareID string) (bool, error) {
	return s.kv.SIsMember(ctx, sessionSetPrefix+sessionID, shareID)
}

func (s *KVSessionStore) Refresh(ctx context.Context, sessionID string, now time.Time) error {
	raw, ok, err := s.kv.Get(ctx, sessionMetaPrefix+sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrSessionExpired
	}
	var meta sessionMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return err
	}

	remaining := s.remainingTTL(meta.CreatedAt, now)
	if remaining <= 0 {
		_ = s.Revoke(ctx, sessionID)
		return domain.ErrSessionExpired
	}
	return s.kv.Expire(ctx, sessionSetPrefix+sessionID, remaining)
}

func (s *KVSessionStore) Revoke(ctx context.Context, sessionID string) error {
	return s.kv.Del(ctx, sessionSetPrefix+sessionID, sessionMetaPrefix+sessionID)
}

func (s *KVSessionStore) ensureMeta(ctx context.Context, sessionID string, now time.Time) (time.Time, error) {
	raw, ok, err := s.kv.Get(ctx, sessionMetaPrefix+sessionID)
	if err != nil {
		return time.Time{}, err
	}
	if ok {
		var meta sessionMeta
		if err := json.Unmarshal([]byte(raw), &meta); err == nil && !meta.CreatedAt.IsZero() {
			return meta.CreatedAt, nil
		}
	}

	meta := sessionMeta{CreatedAt: now}
	encoded, err := json.Marshal(meta)
	if err != nil {
		return time.Time{}, err
	}
	if err := s.kv.SetEx(ctx, sessionMetaPrefix+sessionID, string(encoded), s.absoluteTTL); err != nil {
		return time.Time{}, err
	}
	return now, nil
}

// remainingTTL is the sliding window clamped by the absolute session age cap.
func (s *KVSessionStore) remainingTTL(createdAt, now time.Time) time.Duration {
	remaining := s.idleTTL
	if cap := createdAt.Add(s.absoluteTTL).Sub(now); cap < remaining {
		remaining = cap
	}
	return remaining
}
