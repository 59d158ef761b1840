// Package kv is the narrow client interface to the shared, TTL-capable
// key-value store that holds all cross-instance state (cache entries, session
// records, lockout and rate-limit counters). No process-local singleton holds
// authoritative state; every operation is a network call.
package kv

import (
	"context"
	"time"
)

// Status classifies the outcome of a read so each caller's fallback policy
// (fail-open vs. fail-closed) is an explicit branch rather than an implicit
// catch-all.
type Status int

const (
	// StatusHit means the key exists and Value holds its payload.
	StatusHit Status = iota
	// StatusMiss means the store answered and the key does not exist.
	StatusMiss
	// StatusUnavailable means the store could not be reached or answered
	// with a transport error. Err carries the cause for logging.
	StatusUnavailable
)

// Result is a typed degraded read result.
type Result struct {
	Status Status
	Value  []byte
	Err    error
}

func Hit(value []byte) Result     { return Result{Status: StatusHit, Value: value} }
func Miss() Result                { return Result{Status: StatusMiss} }
func Unavailable(err error) Result { return Result{Status: StatusUnavailable, Err: err} }

// Store is the shared key-value store abstraction. Get/Set/Delete/Increment
// are each individually atomic; multi-key sequences built on top of them are
// not, and callers must tolerate interleaving (bounded staleness).
type Store interface {
	// Get never returns an error; transport failures surface as
	// StatusUnavailable so the caller decides the degradation policy.
	Get(ctx context.Context, key string) Result
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Increment atomically increments the counter at key and starts the ttl
	// window when the counter is created (count == 1).
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Expire resets the key's TTL.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// TTL returns the remaining lifetime of key, 0 if the key is absent.
	TTL(ctx context.Context, key string) (time.Duration, error)
}
