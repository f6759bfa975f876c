package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"nurture/internal/analysis/ports"
)

// Sink adapts the outbox store to the analysis event sink interface.
type Sink struct {
	store Store
}

// NewSink wraps an outbox store as an event sink.
func NewSink(store Store) *Sink {
	return &Sink{store: store}
}

// Append serializes the event payload and appends it to the outbox.
func (s *Sink) Append(ctx context.Context, event ports.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	return s.store.Append(ctx, event.AggregateID, event.Type, payload)
}
