// Package outbox implements the transactional outbox for analysis lifecycle
// events. The request path only appends rows keyed by aggregate identifier;
// a separate dispatcher drains unpublished rows to Kafka, so event delivery
// never sits on the request path.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one append-only outbox row.
type Entry struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// Store persists and drains outbox entries.
type Store interface {
	// Append inserts a new unpublished entry.
	Append(ctx context.Context, aggregateID, eventType string, payload []byte) error

	// FetchUnpublished returns up to limit unpublished entries, oldest first.
	FetchUnpublished(ctx context.Context, limit int) ([]*Entry, error)

	// MarkPublished stamps entries as delivered. Idempotent.
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Publisher delivers one entry to the event bus.
type Publisher interface {
	Publish(ctx context.Context, entry *Entry) error
}
