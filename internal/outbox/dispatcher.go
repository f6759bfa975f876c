package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Dispatcher drains unpublished outbox entries to the publisher on a fixed
// interval. Entries are marked published only after the publisher accepts
// them, so a crash mid-batch re-delivers rather than drops (at-least-once).
type Dispatcher struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

type DispatcherOption func(*Dispatcher)

func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithInterval(interval time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.interval = interval
	}
}

func WithBatchSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		d.batchSize = n
	}
}

func NewDispatcher(store Store, publisher Publisher, opts ...DispatcherOption) (*Dispatcher, error) {
	if store == nil {
		return nil, fmt.Errorf("outbox store is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}

	d := &Dispatcher{
		store:     store,
		publisher: publisher,
		logger:    slog.Default(),
		interval:  time.Second,
		batchSize: 100,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Run drains the outbox until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := d.DrainOnce(ctx); err != nil {
				d.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// DrainOnce publishes one batch of unpublished entries. Exported so tests
// and shutdown paths can flush without the ticker.
func (d *Dispatcher) DrainOnce(ctx context.Context) error {
	entries, err := d.store.FetchUnpublished(ctx, d.batchSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	published := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		if err := d.publisher.Publish(ctx, entry); err != nil {
			// Stop at the first failure to preserve per-aggregate order;
			// the remainder is retried next tick.
			d.logger.WarnContext(ctx, "outbox publish failed",
				"entry_id", entry.ID,
				"event_type", entry.EventType,
				"error", err,
			)
			break
		}
		published = append(published, entry.ID)
	}

	if len(published) == 0 {
		return nil
	}
	return d.store.MarkPublished(ctx, published)
}
