// Package search carries entity mutations to the external full-text index.
// Delivery is asynchronous and at-least-once; consumers apply events
// idempotently, treating Document as the authoritative full state (not a
// diff) and resolving replays/reorders by the Timestamp field.
package search

import "time"

type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Event describes one create/update/delete of an entity. Document is absent
// for deletes.
type Event struct {
	Operation Operation      `json:"operation"`
	Index     string         `json:"index"`
	ID        int64          `json:"id"`
	Document  map[string]any `json:"document,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func Create(index string, id int64, doc map[string]any) Event {
	return Event{Operation: OpCreate, Index: index, ID: id, Document: doc, Timestamp: time.Now()}
}

func Update(index string, id int64, doc map[string]any) Event {
	return Event{Operation: OpUpdate, Index: index, ID: id, Document: doc, Timestamp: time.Now()}
}

func Delete(index string, id int64) Event {
	return Event{Operation: OpDelete, Index: index, ID: id, Timestamp: time.Now()}
}

// Index documents mirror the entity's flattened attributes with date and
// datetime fields rendered as strings in these layouts.
const (
	DateTimeLayout = "2006-01-02 15:04:05"
	DateLayout     = "2006-01-02"
)

// FormatDateTime renders t for an index document; zero times become "".
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateTimeLayout)
}

// FormatDate renders a date-only field; zero times become "".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
