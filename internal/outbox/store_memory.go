package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is the outbox store for tests and single-process runs.
type InMemoryStore struct {
	mu      sync.Mutex
	entries []*Entry
}

// NewInMemory creates an empty in-memory outbox store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(ctx context.Context, aggregateID, eventType string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, &Entry{
		ID:          uuid.New(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     append([]byte(nil), payload...),
		CreatedAt:   time.Now().UTC(),
	})
	return nil
}

func (s *InMemoryStore) FetchUnpublished(ctx context.Context, limit int) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Entry, 0, limit)
	for _, entry := range s.entries {
		if entry.PublishedAt == nil {
			clone := *entry
			out = append(out, &clone)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, entryID := range ids {
		wanted[entryID] = true
	}
	for _, entry := range s.entries {
		if wanted[entry.ID] && entry.PublishedAt == nil {
			t := now
			entry.PublishedAt = &t
		}
	}
	return nil
}

// All returns every entry, published or not. Test helper.
func (s *InMemoryStore) All() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		clone := *entry
		out = append(out, &clone)
	}
	return out
}
