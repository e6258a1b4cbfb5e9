package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/clipstage/share-access-service/internal/ports"
)

const (
	rateLimitCountPrefix = "share:rl:cnt:"
	rateLimitMetaPrefix  = "share:rl:meta:"
	rateLimitLockPrefix  = "share:rl:lock:"

	// Counter keys outlive the lockout slightly so the final count is still
	// visible to operators while the lockout is active.
	rateLimitRetention = 30 * time.Minute
)

type rateLimitMeta struct {
	FirstAttemptAt time.Time `json:"first_attempt_at"`
	LastAttemptAt  time.Time `json:"last_attempt_at"`
}

// KVRateLimitStore keeps failure counters and lockout markers in the shared
// key-value store. The counter is an atomic INCR with the window applied as
// TTL on the first failure, so window expiry resets the count to one on the
// next failure without a read-modify-write.
type KVRateLimitStore struct {
	kv ports.KeyValueStore
}

func NewKVRateLimitStore(kv ports.KeyValueStore) *KVRateLimitStore {
	return &KVRateLimitStore{kv: kv}
}

func (s *KVRateLimitStore) CheckLockout(ctx context.Context, identifierHash string, now time.Time) (ports.RateLimitEntry, error) {
	entry := ports.RateLimitEntry{IdentifierHash: identifierHash}

	raw, ok, err := s.kv.Get(ctx, rateLimitLockPrefix+identifierHash)
	if err != nil {
		return entry, err
	}
	if ok {
		if until, parseErr := time.Parse(time.RFC3339Nano, raw); parseErr == nil && until.After(now) {
			entry.LockoutUntil = &until
		}
	}

	if raw, ok, err = s.kv.Get(ctx, rateLimitCountPrefix+identifierHash); err == nil && ok {
		if n, convErr := strconv.ParseInt(raw, 10, 64); convErr == nil {
			entry.Count = n
		}
	} else if err != nil {
		return entry, err
	}

	if raw, ok, err = s.kv.Get(ctx, rateLimitMetaPrefix+identifierHash); err == nil && ok {
		var meta rateLimitMeta
		if unmarshalErr := json.Unmarshal([]byte(raw), &meta); unmarshalErr == nil {
			entry.FirstAttemptAt = meta.FirstAttemptAt
			entry.LastAttemptAt = meta.LastAttemptAt
		}
	} else if err != nil {
		return entry, err
	}

	return entry, nil
}

func (s *KVRateLimitStore) RecordFailure(ctx context.Context, identifierHash string, now time.Time, maxAttempts int, window time.Duration) (ports.RateLimitEntry, error) {
	countKey := rateLimitCountPrefix + identifierHash

	count, err := s.kv.Incr(ctx, countKey)
	if err != nil {
		return ports.RateLimitEntry{}, err
	}
	if count == 1 {
		if err := s.kv.Expire(ctx, countKey, window); err != nil {
			return ports.RateLimitEntry{}, err
		}
	}

	entry := ports.RateLimitEntry{
		IdentifierHash: identifierHash,
		Count:          count,
		FirstAttemptAt: now,
		LastAttemptAt:  now,
	}

	meta := rateLimitMeta{FirstAttemptAt: now, LastAttemptAt: now}
	if count > 1 {
		if raw, ok, getErr := s.kv.Get(ctx, rateLimitMetaPrefix+identifierHash); getErr == nil && ok {
			var prev rateLimitMeta
			if json.Unmarshal([]byte(raw), &prev) == nil && !prev.FirstAttemptAt.IsZero() {
				meta.FirstAttemptAt = prev.FirstAttemptAt
				entry.FirstAttemptAt = prev.FirstAttemptAt
			}
		}
	}
	if raw, marshalErr := json.Marshal(meta); marshalErr == nil {
		_ = s.kv.SetEx(ctx, rateLimitMetaPrefix+identifierHash, string(raw), window+rateLimitRetention)
	}

	if int(count) >= maxAttempts {
		lockedUntil := now.Add(window).UTC()
		if err := s.kv.SetEx(ctx, rateLimitLockPrefix+identifierHash, lockedUntil.Format(time.RFC3339Nano), window); err != nil {
			return ports.RateLimitEntry{}, err
		}
		_ = s.kv.Expire(ctx, countKey, window+rateLimitRetention)
		entry.LockoutUntil = &lockedUntil
	}

	return entry, nil
}

func (s *KVRateLimitStore) Clear(ctx context.Context, identifierHash string) error {
	return s.kv.Del(ctx,
		rateLimitCountPrefix+identifierHash,
		rateLimitMetaPrefix+identifierHash,
		rateLimitLockPrefix+identifierHash,
	)
}
