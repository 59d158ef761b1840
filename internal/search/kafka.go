package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"

	"popreg/internal/platform/metrics"
)

// KafkaPublisher produces change events to one Kafka topic per feed. Records
// are keyed by entity id, so events for the same entity land on the same
// partition and keep same-producer ordering; ordering across entities is not
// guaranteed and consumers must not rely on it.
type KafkaPublisher struct {
	client  *kgo.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type KafkaOption func(*KafkaPublisher)

func WithKafkaLogger(logger *slog.Logger) KafkaOption {
	return func(p *KafkaPublisher) { p.logger = logger }
}

func WithKafkaMetrics(m *metrics.Metrics) KafkaOption {
	return func(p *KafkaPublisher) { p.metrics = m }
}

func NewKafkaPublisher(brokers []string, opts ...KafkaOption) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, err
	}
	p := &KafkaPublisher{
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Publish enqueues the event and returns immediately. Delivery errors are
// reported in the produce callback, logged, counted, and dropped; the
// triggering write has already committed and must not be rolled back.
func (p *KafkaPublisher) Publish(ctx context.Context, topic string, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("change event not serializable",
			"topic", topic, "index", event.Index, "id", event.ID, "error", err)
		p.count(topic, metrics.PublishFailed)
		return
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(strconv.FormatInt(event.ID, 10)),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("change event publish failed",
				"topic", topic, "index", event.Index, "id", event.ID,
				"operation", string(event.Operation), "error", err)
			p.count(topic, metrics.PublishFailed)
			return
		}
		p.count(topic, metrics.PublishOK)
	})
}

// Close flushes buffered records and releases the client.
func (p *KafkaPublisher) Close(ctx context.Context) {
	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("change feed flush on shutdown failed", "error", err)
	}
	p.client.Close()
}

func (p *KafkaPublisher) count(topic, outcome string) {
	if p.metrics != nil {
		p.metrics.RecordEventPublished(topic, outcome)
	}
}
