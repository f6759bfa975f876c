package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"nurture/pkg/sentinel"
)

// PostgresStore persists outbox entries in the outbox table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed outbox store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append inserts a new unpublished entry.
func (s *PostgresStore) Append(ctx context.Context, aggregateID, eventType string, payload []byte) error {
	query := `
		INSERT INTO outbox (id, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(), aggregateID, eventType, payload, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: append outbox entry: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

// FetchUnpublished returns up to limit unpublished entries, oldest first.
func (s *PostgresStore) FetchUnpublished(ctx context.Context, limit int) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch outbox entries: %v", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	entries := make([]*Entry, 0, limit)
	for rows.Next() {
		entry := &Entry{}
		if err := rows.Scan(&entry.ID, &entry.AggregateID, &entry.EventType, &entry.Payload, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan outbox entry: %v", sentinel.ErrUnavailable, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: fetch outbox entries: %v", sentinel.ErrUnavailable, err)
	}
	return entries, nil
}

// MarkPublished stamps entries as delivered.
func (s *PostgresStore) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE outbox SET published_at = $1
		WHERE id = ANY($2) AND published_at IS NULL
	`, time.Now().UTC(), pq.Array(ids))
	if err != nil {
		return fmt.Errorf("%w: mark outbox entries published: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}
