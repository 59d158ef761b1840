// Package session stores the single active session record per identity in
// the shared key-value store.
package session

import (
	"context"
	"fmt"
	"time"

	"popreg/internal/kv"
)

// Store keeps one record per user: the currently valid token string. Writes
// overwrite unconditionally (last writer wins), which is what enforces "at
// most one valid session per identity": logging in from a second device
// invalidates the first device's token, and two concurrent logins each
// invalidate the other. This is intentional, not an oversight.
type Store struct {
	store kv.Store
	ttl   time.Duration
}

func New(store kv.Store, ttl time.Duration) *Store {
	return &Store{store: store, ttl: ttl}
}

// Key returns the session record key for a user.
func Key(userID int64) string {
	return fmt.Sprintf("auth:token:%d", userID)
}

// Put records token as the user's only valid session, superseding any
// previous one.
func (s *Store) Put(ctx context.Context, userID int64, token string) error {
	return s.store.Set(ctx, Key(userID), []byte(token), s.ttl)
}

// Get returns the stored token for the user as a typed KV result; the caller
// decides how to treat Unavailable.
func (s *Store) Get(ctx context.Context, userID int64) kv.Result {
	return s.store.Get(ctx, Key(userID))
}

// Delete revokes the user's session immediately, even though the token's own
// embedded expiry has not elapsed.
func (s *Store) Delete(ctx context.Context, userID int64) error {
	return s.store.Delete(ctx, Key(userID))
}
