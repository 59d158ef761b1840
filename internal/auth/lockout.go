package auth

import (
	"context"
	"strconv"
	"time"

	"popreg/internal/kv"
)

// Lockout tracks consecutive authentication failures per identity in the
// shared key-value store and converts them into a time-boxed lock once the
// threshold is reached.
type Lockout struct {
	store     kv.Store
	threshold int
	lockTTL   time.Duration
}

func NewLockout(store kv.Store, threshold int, lockTTL time.Duration) *Lockout {
	return &Lockout{store: store, threshold: threshold, lockTTL: lockTTL}
}

func failKey(username string) string {
	return "auth:fail:" + username
}

// Status reports whether the identity is locked and, if so, for how much
// longer. A store error is returned as-is; the caller decides whether an
// unverifiable lockout state blocks the login.
func (l *Lockout) Status(ctx context.Context, username string) (bool, time.Duration, error) {
	res := l.store.Get(ctx, failKey(username))
	switch res.Status {
	case kv.StatusMiss:
		return false, 0, nil
	case kv.StatusUnavailable:
		return false, 0, res.Err
	}
	count, err := strconv.Atoi(string(res.Value))
	if err != nil {
		// Unparseable counter: treat as absent; the next failure rewrites it.
		return false, 0, nil
	}
	if count < l.threshold {
		return false, 0, nil
	}
	remaining, err := l.store.TTL(ctx, failKey(username))
	if err != nil {
		return true, l.lockTTL, nil
	}
	return true, remaining, nil
}

// Fail records one more consecutive failure and returns the new count. Each
// failure restarts the window, so the lock TTL measures from the most recent
// attempt.
func (l *Lockout) Fail(ctx context.Context, username string) (int64, error) {
	key := failKey(username)
	count, err := l.store.Increment(ctx, key, l.lockTTL)
	if err != nil {
		return 0, err
	}
	if count > 1 {
		if err := l.store.Expire(ctx, key, l.lockTTL); err != nil {
			return count, err
		}
	}
	return count, nil
}

// Clear resets the counter on successful authentication.
func (l *Lockout) Clear(ctx context.Context, username string) error {
	return l.store.Delete(ctx, failKey(username))
}
