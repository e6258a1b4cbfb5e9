package ports

import (
	"context"
	"time"
)

// KeyValueStore is the injected cache contract this service runs on.
// The operation set is deliberately small (string values, counters, sets,
// per-key TTL) so a Redis client and the in-memory test store stay
// interchangeable. Implementations own their connection lifecycle; Close is
// called once at shutdown.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	SAdd(ctx context.Context, key string, members ...string) error
	SIsMember(ctx context.Context, key, member string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Close() error
}

// RateLimitEntry is the failure-counter envelope for one lockout identifier.
type RateLimitEntry struct {
	IdentifierHash string
	Count          int64
	FirstAttemptAt time.Time
	LastAttemptAt  time.Time
	LockoutUntil   *time.Time
}

// Limited reports whether the entry is in an active lockout at the given time.
func (e RateLimitEntry) Limited(now time.Time) bool {
	return e.LockoutUntil != nil && e.LockoutUntil.After(now)
}

// RetryAfterSeconds is the remaining lockout interval, zero when not limited.
func (e RateLimitEntry) RetryAfterSeconds(now time.Time) int64 {
	if !e.Limited(now) {
		return 0
	}
	return int64(e.LockoutUntil.Sub(now).Round(time.Second) / time.Second)
}

// RateLimitStore tracks credential failures per salted identifier hash.
// Counting must use atomic increments; racing requests may under-count but
// never over-count.
type RateLimitStore interface {
	CheckLockout(ctx context.Context, identifierHash string, now time.Time) (RateLimitEntry, error)
	RecordFailure(ctx context.Context, identifierHash string, now time.Time, maxAttempts int, window time.Duration) (RateLimitEntry, error)
	Clear(ctx context.Context, identifierHash string) error
}

// StoredCode is the at-rest form of a one-time code. Only the SHA-256 hash of
// the code is kept.
type StoredCode struct {
	CodeHash          string    `json:"code_hash"`
	AttemptsRemaining int       `json:"attempts_remaining"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// CodeStore persists short-lived one-time codes keyed by (recipient, share).
// Consume deletes the record; a consumed or exhausted code can never verify
// again.
type CodeStore interface {
	Put(ctx context.Context, key string, code StoredCode, ttl time.Duration) error
	Get(ctx context.Context, key string) (*StoredCode, error)
	DecrementAttempts(ctx context.Context, key string, code StoredCode, now time.Time) (*StoredCode, error)
	Consume(ctx context.Context, key string) error
}

// SessionStore maps opaque session ids to the set of share ids they are
// authorized for. Membership uses atomic set operations; TTL refresh slides up
// to the absolute session age cap.
type SessionStore interface {
	Authorize(ctx context.Context, sessionID, shareID string, now time.Time) error
	IsAuthorized(ctx context.Context, sessionID, shareID string) (bool, error)
	Refresh(ctx context.Context, sessionID string, now time.Time) error
	Revoke(ctx context.Context, sessionID string) error
}
