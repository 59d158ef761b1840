// Package ratelimit bounds request rate per originating client with a fixed
// one-minute window counter in the shared key-value store, so the limit
// applies across all service instances.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"popreg/internal/kv"
	"popreg/internal/platform/metrics"
)

const keyPrefix = "rate_limit:"

// Limiter is fail-open: if the store cannot be reached the request is
// allowed, so the limiter can never become an outage cause itself.
type Limiter struct {
	store   kv.Store
	limit   int
	window  time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) { l.metrics = m }
}

func New(store kv.Store, limit int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow counts this request against the client's current window and reports
// whether it is within the limit. The counter is a single atomic increment;
// the window starts when the counter is created and expires on its own.
func (l *Limiter) Allow(ctx context.Context, clientKey string) bool {
	key := keyPrefix + clientKey
	count, err := l.store.Increment(ctx, key, l.window)
	if err != nil {
		l.record(metrics.DecisionFailOpen)
		l.logger.Warn("rate limit store unavailable, allowing request",
			"client", clientKey, "operation", "incr", "error", err)
		return true
	}
	if count > int64(l.limit) {
		l.record(metrics.DecisionRejected)
		l.logger.Warn("client rate limited", "client", clientKey, "count", count)
		return false
	}
	l.record(metrics.DecisionAllowed)
	return true
}

func (l *Limiter) record(decision string) {
	if l.metrics != nil {
		l.metrics.RecordRateLimitDecision(decision)
	}
}
