// Package cache implements the cache-aside read path shared by all entity
// services: one primary-id key plus zero or more secondary alias keys per
// entity, populated together on load and invalidated together on write.
//
// Any error talking to the key-value store is degraded to a miss. The system
// stays correct with the cache fully unavailable; it just reads the
// system-of-record on every call.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"popreg/internal/kv"
	"popreg/internal/platform/metrics"
)

var tracer = otel.Tracer("popreg/cache")

// Entity is implemented by cacheable domain types (on the value receiver).
// CacheKeys returns the primary-id key first, then one key per secondary
// unique attribute that is non-empty on the instance. Keys are namespaced
// "{entity-type}:{index-name}:{index-value}".
type Entity interface {
	CacheKeys() []string
}

// Loader fetches the entity from the system-of-record. A nil entity with a
// nil error means "does not exist"; absence is never cached, so a
// not-yet-created entity becomes visible as soon as it is written.
type Loader[T any] func(ctx context.Context) (*T, error)

// Cache is the per-entity-type cache-aside logic. It holds no entity state
// itself; everything lives in the shared key-value store.
type Cache[T Entity] struct {
	name    string
	store   kv.Store
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option[T Entity] func(*Cache[T])

func WithLogger[T Entity](logger *slog.Logger) Option[T] {
	return func(c *Cache[T]) { c.logger = logger }
}

func WithMetrics[T Entity](m *metrics.Metrics) Option[T] {
	return func(c *Cache[T]) { c.metrics = m }
}

// New builds a cache for one entity type. name labels logs, spans and
// metrics; ttl applies to every key written.
func New[T Entity](name string, store kv.Store, ttl time.Duration, opts ...Option[T]) *Cache[T] {
	c := &Cache[T]{
		name:   name,
		store:  store,
		ttl:    ttl,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get probes the primary-id key and falls back to the loader on miss. A
// loaded entity is repopulated under its full alias set so a later lookup by
// any secondary key hits.
func (c *Cache[T]) Get(ctx context.Context, key string, load Loader[T]) (*T, error) {
	return c.lookup(ctx, key, load, false)
}

// GetByAlias is Get keyed by a secondary alias. On a hit the primary-id key
// and remaining aliases are re-warmed as a side effect, since a different
// caller may next query by primary id.
func (c *Cache[T]) GetByAlias(ctx context.Context, aliasKey string, load Loader[T]) (*T, error) {
	return c.lookup(ctx, aliasKey, load, true)
}

func (c *Cache[T]) lookup(ctx context.Context, key string, load Loader[T], warmOnHit bool) (*T, error) {
	ctx, span := tracer.Start(ctx, "cache.lookup",
		trace.WithAttributes(
			attribute.String("cache.entity", c.name),
			attribute.String("cache.key", key),
		))
	defer span.End()

	res := c.store.Get(ctx, key)
	switch res.Status {
	case kv.StatusHit:
		var entity T
		if err := json.Unmarshal(res.Value, &entity); err != nil {
			// Unparseable payload is a data error; treat as a miss and
			// let the reload overwrite it.
			c.logger.Warn("cache entry undecodable, treating as miss",
				"entity", c.name, "key", key, "error", err)
		} else {
			c.record(metrics.OutcomeHit)
			span.SetAttributes(attribute.String("cache.outcome", "hit"))
			if warmOnHit {
				// Alias hit: warm the primary-id key and remaining
				// aliases so a follow-up lookup by another index hits.
				c.populate(ctx, &entity)
			}
			return &entity, nil
		}
	case kv.StatusUnavailable:
		c.record(metrics.OutcomeUnavailable)
		span.SetAttributes(attribute.String("cache.outcome", "unavailable"))
		c.logger.Warn("cache unavailable, falling back to system-of-record",
			"entity", c.name, "key", key, "operation", "get", "error", res.Err)
	}

	if res.Status == kv.StatusMiss {
		c.record(metrics.OutcomeMiss)
		span.SetAttributes(attribute.String("cache.outcome", "miss"))
	}

	entity, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, nil
	}
	c.populate(ctx, entity)
	return entity, nil
}

// populate writes the entity under every key in its alias set, all with the
// same TTL. Failures are logged and swallowed; the next read reloads.
func (c *Cache[T]) populate(ctx context.Context, entity *T) {
	payload, err := json.Marshal(entity)
	if err != nil {
		c.logger.Error("cache entry not serializable",
			"entity", c.name, "error", err)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, key := range (*entity).CacheKeys() {
		key := key
		g.Go(func() error {
			if err := c.store.Set(gctx, key, payload, c.ttl); err != nil {
				c.logger.Warn("cache populate failed",
					"entity", c.name, "key", key, "operation", "set", "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Invalidate deletes the union of the alias sets of the given images. Callers
// on the update path pass both the pre-image and the post-image, because an
// update that changes a secondary attribute must also drop the old alias.
func (c *Cache[T]) Invalidate(ctx context.Context, images ...*T) {
	seen := make(map[string]struct{})
	var keys []string
	for _, img := range images {
		if img == nil {
			continue
		}
		for _, key := range (*img).CacheKeys() {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return
	}
	if c.metrics != nil {
		c.metrics.RecordCacheInvalidation(c.name)
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		// Stale entries survive at most one TTL; the next write retries.
		c.logger.Warn("cache invalidation failed",
			"entity", c.name, "keys", keys, "operation", "delete", "error", err)
	}
}

func (c *Cache[T]) record(outcome string) {
	if c.metrics != nil {
		c.metrics.RecordCacheRequest(c.name, outcome)
	}
}
