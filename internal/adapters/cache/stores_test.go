package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clipstage/share-access-service/internal/domain"
	"github.com/clipstage/share-access-service/internal/ports"
)

// testClock drives the memory store's lazy expiry in lockstep with the
// time arguments handed to the stores under test.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClockedStore() (*MemoryStore, *testClock) {
	clock := &testClock{now: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)}
	mem := NewMemoryStore()
	mem.nowFn = clock.Now
	return mem, clock
}

func TestMemoryStoreExpiryAndCounters(t *testing.T) {
	t.Parallel()

	mem, clock := newClockedStore()
	ctx := context.Background()

	if err := mem.SetEx(ctx, "k1", "v1", 10*time.Minute); err != nil {
		t.Fatalf("setex failed: %v", err)
	}
	if _, ok, _ := mem.Get(ctx, "k1"); !ok {
		t.Fatalf("expected k1 before expiry")
	}
	clock.Advance(10 * time.Minute)
	if _, ok, _ := mem.Get(ctx, "k1"); ok {
		t.Fatalf("expected k1 reaped at ttl boundary")
	}

	if err := mem.Set(ctx, "k2", "forever"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	clock.Advance(1000 * time.Hour)
	if v, ok, _ := mem.Get(ctx, "k2"); !ok || v != "forever" {
		t.Fatalf("keys without ttl must persist, got ok=%v v=%q", ok, v)
	}

	if n, err := mem.Incr(ctx, "counter"); err != nil || n != 1 {
		t.Fatalf("first incr = %d, %v", n, err)
	}
	if n, err := mem.Incr(ctx, "counter"); err != nil || n != 2 {
		t.Fatalf("second incr = %d, %v", n, err)
	}
	if err := mem.Set(ctx, "text", "abc"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, err := mem.Incr(ctx, "text"); err == nil {
		t.Fatalf("incr on non-integer value must fail")
	}

	if err := mem.SAdd(ctx, "set1", "a", "b"); err != nil {
		t.Fatalf("sadd failed: %v", err)
	}
	if ok, _ := mem.SIsMember(ctx, "set1", "a"); !ok {
		t.Fatalf("expected member a")
	}
	if ok, _ := mem.SIsMember(ctx, "set1", "z"); ok {
		t.Fatalf("unexpected member z")
	}
	if err := mem.Expire(ctx, "set1", time.Minute); err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	clock.Advance(2 * time.Minute)
	if ok, _ := mem.SIsMember(ctx, "set1", "a"); ok {
		t.Fatalf("expected set reaped after expire")
	}

	if err := mem.Del(ctx, "counter", "text"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, ok, _ := mem.Get(ctx, "counter"); ok {
		t.Fatalf("expected counter deleted")
	}
}

func TestKVRateLimitStoreLockoutLifecycle(t *testing.T) {
	t.Parallel()

	mem, clock := newClockedStore()
	store := NewKVRateLimitStore(mem)
	ctx := context.Background()
	window := 15 * time.Minute
	hash := "viewer-hash-1"

	for i := 1; i <= 4; i++ {
		entry, err := store.RecordFailure(ctx, hash, clock.Now(), 5, window)
		if err != nil {
			t.Fatalf("record failure %d: %v", i, err)
		}
		if entry.Count != int64(i) {
			t.Fatalf("failure %d: count = %d", i, entry.Count)
		}
		if entry.LockoutUntil != nil {
			t.Fatalf("failure %d: lockout before threshold", i)
		}
	}

	entry, err := store.RecordFailure(ctx, hash, clock.Now(), 5, window)
	if err != nil {
		t.Fatalf("threshold failure: %v", err)
	}
	if entry.LockoutUntil == nil {
		t.Fatalf("expected lockout at threshold")
	}
	if got := entry.RetryAfterSeconds(clock.Now()); got != 900 {
		t.Fatalf("retry after = %d, want 900", got)
	}

	checked, err := store.CheckLockout(ctx, hash, clock.Now())
	if err != nil {
		t.Fatalf("check lockout: %v", err)
	}
	if !checked.Limited(clock.Now()) || checked.Count != 5 {
		t.Fatalf("expected active lockout with count 5, got %+v", checked)
	}
	if checked.FirstAttemptAt.IsZero() {
		t.Fatalf("expected first-attempt metadata to survive the round trip")
	}

	// The lock key dies with the window but the counter lingers, so the
	// next failure from the same identifier re-locks immediately.
	clock.Advance(window)
	checked, err = store.CheckLockout(ctx, hash, clock.Now())
	if err != nil {
		t.Fatalf("check after window: %v", err)
	}
	if checked.Limited(clock.Now()) {
		t.Fatalf("lockout must lapse with the window")
	}
	if checked.Count != 5 {
		t.Fatalf("counter should persist through the lockout, got %d", checked.Count)
	}

	entry, err = store.RecordFailure(ctx, hash, clock.Now(), 5, window)
	if err != nil {
		t.Fatalf("post-window failure: %v", err)
	}
	if entry.Count != 6 || entry.LockoutUntil == nil {
		t.Fatalf("repeat offender should re-lock, got %+v", entry)
	}

	if err := store.Clear(ctx, hash); err != nil {
		t.Fatalf("clear: %v", err)
	}
	checked, err = store.CheckLockout(ctx, hash, clock.Now())
	if err != nil {
		t.Fatalf("check after clear: %v", err)
	}
	if checked.Count != 0 || checked.Limited(clock.Now()) {
		t.Fatalf("expected clean slate after clear, got %+v", checked)
	}
}

func TestKVRateLimitStoreWindowExpiryResetsCount(t *testing.T) {
	t.Parallel()

	mem, clock := newClockedStore()
	store := NewKVRateLimitStore(mem)
	ctx := context.Background()
	window := 15 * time.Minute
	hash := "viewer-hash-2"

	if _, err := store.RecordFailure(ctx, hash, clock.Now(), 5, window); err != nil {
		t.Fatalf("first failure: %v", err)
	}
	if _, err := store.RecordFailure(ctx, hash, clock.Now(), 5, window); err != nil {
		t.Fatalf("second failure: %v", err)
	}

	clock.Advance(window + time.Minute)

	entry, err := store.RecordFailure(ctx, hash, clock.Now(), 5, window)
	if err != nil {
		t.Fatalf("failure after window: %v", err)
	}
	if entry.Count != 1 {
		t.Fatalf("count should restart after the window lapses, got %d", entry.Count)
	}
}

func TestKVCodeStoreAttemptBudgetAndExpiry(t *testing.T) {
	t.Parallel()

	mem, clock := newClockedStore()
	store := NewKVCodeStore(mem)
	ctx := context.Background()
	key := "code-key-1"
	ttl := 10 * time.Minute

	code := ports.StoredCode{
		CodeHash:          "hash-of-042917",
		AttemptsRemaining: 3,
		ExpiresAt:         clock.Now().Add(ttl),
	}
	if err := store.Put(ctx, key, code, ttl); err != nil {
		t.Fatalf("put: %v", err)
	}

	stored, err := store.Get(ctx, key)
	if err != nil || stored == nil {
		t.Fatalf("get after put: stored=%v err=%v", stored, err)
	}
	if stored.AttemptsRemaining != 3 {
		t.Fatalf("attempts = %d, want 3", stored.AttemptsRemaining)
	}

	// A wrong guess halfway through the lifetime keeps the original expiry.
	clock.Advance(5 * time.Minute)
	updated, err := store.DecrementAttempts(ctx, key, *stored, clock.Now())
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if updated.AttemptsRemaining != 2 {
		t.Fatalf("attempts after decrement = %d, want 2", updated.AttemptsRemaining)
	}
	clock.Advance(5 * time.Minute)
	if stored, err = store.Get(ctx, key); err != nil || stored != nil {
		t.Fatalf("record must still die at the original expiry, stored=%v err=%v", stored, err)
	}

	// Exhausting the budget deletes the record outright.
	code = ports.StoredCode{CodeHash: "h2", AttemptsRemaining: 1, ExpiresAt: clock.Now().Add(ttl)}
	if err := store.Put(ctx, key, code, ttl); err != nil {
		t.Fatalf("put: %v", err)
	}
	updated, err = store.DecrementAttempts(ctx, key, code, clock.Now())
	if err != nil {
		t.Fatalf("final decrement: %v", err)
	}
	if updated.AttemptsRemaining != 0 {
		t.Fatalf("attempts after exhaustion = %d, want 0", updated.AttemptsRemaining)
	}
	if stored, _ = store.Get(ctx, key); stored != nil {
		t.Fatalf("exhausted code must be gone")
	}

	// A record already past its own expiry is consumed on the next guess.
	code = ports.StoredCode{CodeHash: "h3", AttemptsRemaining: 3, ExpiresAt: clock.Now()}
	if err := store.Put(ctx, key, code, ttl); err != nil {
		t.Fatalf("put: %v", err)
	}
	updated, err = store.DecrementAttempts(ctx, key, code, clock.Now())
	if err != nil {
		t.Fatalf("decrement expired: %v", err)
	}
	if updated.AttemptsRemaining != 0 {
		t.Fatalf("expired decrement should zero the budget, got %d", updated.AttemptsRemaining)
	}
	if stored, _ = store.Get(ctx, key); stored != nil {
		t.Fatalf("expired code must be consumed")
	}

	if err := store.Consume(ctx, key); err != nil {
		t.Fatalf("consume on absent key should be a no-op, got %v", err)
	}
}

func TestKVSessionStoreSlidingAndAbsoluteTTL(t *testing.T) {
	t.Parallel()

	mem, clock := newClockedStore()
	store := NewKVSessionStore(mem, time.Hour, 4*time.Hour)
	ctx := context.Background()
	session := "sess-abc"
	share := "share-1"

	if err := store.Authorize(ctx, session, share, clock.Now()); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if ok, _ := store.IsAuthorized(ctx, session, share); !ok {
		t.Fatalf("expected membership after authorize")
	}

	// Idle past the sliding window: membership lapses but the session can
	// be re-authorized under the same id while the absolute cap allows.
	clock.Advance(61 * time.Minute)
	if ok, _ := store.IsAuthorized(ctx, session, share); ok {
		t.Fatalf("expected idle expiry after the sliding window")
	}
	if err := store.Authorize(ctx, session, share, clock.Now()); err != nil {
		t.Fatalf("re-authorize: %v", err)
	}
	if ok, _ := store.IsAuthorized(ctx, session, share); !ok {
		t.Fatalf("expected membership after re-authorize")
	}

	// Regular refreshes keep the session alive up to the absolute cap.
	for _, step := range []time.Duration{59 * time.Minute, 59 * time.Minute, 52 * time.Minute} {
		clock.Advance(step)
		if err := store.Refresh(ctx, session, clock.Now()); err != nil {
			t.Fatalf("refresh at %v: %v", clock.Now(), err)
		}
		if ok, _ := store.IsAuthorized(ctx, session, share); !ok {
			t.Fatalf("expected membership after refresh at %v", clock.Now())
		}
	}

	// The last refresh landed 3h51m into a 4h cap, so the sliding window
	// was clamped to the 9 minutes left. Ten minutes later the session is
	// gone even though it was just refreshed.
	clock.Advance(10 * time.Minute)
	if ok, _ := store.IsAuthorized(ctx, session, share); ok {
		t.Fatalf("absolute cap must clamp the sliding window")
	}
	if err := store.Refresh(ctx, session, clock.Now()); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("refresh past the cap = %v, want session expired", err)
	}

	// Once the metadata is reaped the id behaves like a brand new session.
	if err := store.Authorize(ctx, session, share, clock.Now()); err != nil {
		t.Fatalf("authorize after cap: %v", err)
	}
	if ok, _ := store.IsAuthorized(ctx, session, share); !ok {
		t.Fatalf("expected fresh session under the old id")
	}
}

func TestKVSessionStoreRevoke(t *testing.T) {
	t.Parallel()

	mem, clock := newClockedStore()
	store := NewKVSessionStore(mem, time.Hour, 24*time.Hour)
	ctx := context.Background()

	if err := store.Authorize(ctx, "sess-1", "share-a", clock.Now()); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if err := store.Authorize(ctx, "sess-1", "share-b", clock.Now()); err != nil {
		t.Fatalf("authorize second share: %v", err)
	}
	if ok, _ := store.IsAuthorized(ctx, "sess-1", "share-b"); !ok {
		t.Fatalf("expected multi-share membership")
	}

	if err := store.Revoke(ctx, "sess-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if ok, _ := store.IsAuthorized(ctx, "sess-1", "share-a"); ok {
		t.Fatalf("membership must not survive revoke")
	}
	if err := store.Refresh(ctx, "sess-1", clock.Now()); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("refresh after revoke = %v, want session expired", err)
	}

	// Revoking twice is harmless.
	if err := store.Revoke(ctx, "sess-1"); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
}
