package search

import "context"

// Feed topics, one logical document-change feed per index.
const (
	TopicUserSync     = "user.sync"
	TopicResidentSync = "resident.sync"
)

// Publisher hands change events to the message channel. Implementations are
// fire-and-forget: a failed publish is logged and swallowed, never surfaced
// to the write path that triggered it. The store write and the index update
// are not transactional with each other.
type Publisher interface {
	Publish(ctx context.Context, topic string, event Event)
}

// NopPublisher is used when no message channel is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) {}
