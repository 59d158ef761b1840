package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. Construct it once
// in main; components that receive a nil *Metrics skip recording, which keeps
// tests free of the default-registry duplicate registration panic.
type Metrics struct {
	CacheRequests      *prometheus.CounterVec
	CacheInvalidations *prometheus.CounterVec
	EventsPublished    *prometheus.CounterVec
	Logins             prometheus.Counter
	LoginFailures      prometheus.Counter
	Lockouts           prometheus.Counter
	RateLimitDecisions *prometheus.CounterVec
}

// Cache lookup outcomes. Unavailable is the degraded fail-open path; watch it
// to catch silent cache outages.
const (
	OutcomeHit         = "hit"
	OutcomeMiss        = "miss"
	OutcomeUnavailable = "unavailable"
)

// Rate limiter decisions.
const (
	DecisionAllowed  = "allowed"
	DecisionRejected = "rejected"
	DecisionFailOpen = "fail_open"
)

// Publish outcomes.
const (
	PublishOK     = "ok"
	PublishFailed = "failed"
)

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		CacheRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "popreg_cache_requests_total",
			Help: "Entity cache lookups by entity type and outcome",
		}, []string{"entity", "outcome"}),
		CacheInvalidations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "popreg_cache_invalidations_total",
			Help: "Alias-set invalidations by entity type",
		}, []string{"entity"}),
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "popreg_change_events_total",
			Help: "Change events handed to the search feed by topic and outcome",
		}, []string{"topic", "outcome"}),
		Logins: promauto.NewCounter(prometheus.CounterOpts{
			Name: "popreg_logins_total",
			Help: "Successful logins",
		}),
		LoginFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "popreg_login_failures_total",
			Help: "Failed credential checks",
		}),
		Lockouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "popreg_lockouts_total",
			Help: "Accounts locked after repeated login failures",
		}),
		RateLimitDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "popreg_rate_limit_decisions_total",
			Help: "Request limiter decisions",
		}, []string{"decision"}),
	}
}

func (m *Metrics) RecordCacheRequest(entity, outcome string) {
	m.CacheRequests.WithLabelValues(entity, outcome).Inc()
}

func (m *Metrics) RecordCacheInvalidation(entity string) {
	m.CacheInvalidations.WithLabelValues(entity).Inc()
}

func (m *Metrics) RecordEventPublished(topic, outcome string) {
	m.EventsPublished.WithLabelValues(topic, outcome).Inc()
}

func (m *Metrics) RecordRateLimitDecision(decision string) {
	m.RateLimitDecisions.WithLabelValues(decision).Inc()
}
