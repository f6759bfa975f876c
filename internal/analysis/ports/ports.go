// Package ports defines the interfaces the analysis service depends on.
// Interfaces live here, away from their implementations, so the service can
// be exercised with a test double per dependency.
package ports

import (
	"context"

	"nurture/internal/analysis/models"
	id "nurture/pkg/domain"
)

// Analyzer mediates calls to the external reasoning service.
type Analyzer interface {
	// Analyze builds a prompt from the situation and child details and
	// returns the structured recommendation. Malformed responses are
	// downgraded to a generic fallback recommendation, never an error;
	// the only error returns are timeout or transport failure after the
	// configured retries are exhausted.
	Analyze(ctx context.Context, situation string, childAge int, childGender, extraContext string) (*models.Recommendation, error)
}

// UsageLimiter enforces the per-user daily and hourly request ceilings.
type UsageLimiter interface {
	// CheckLimit reports whether the user is under both ceilings. Read-only.
	CheckLimit(ctx context.Context, userID id.UserID) (bool, error)

	// IncrementUsage atomically charges one request against both windows.
	IncrementUsage(ctx context.Context, userID id.UserID) error
}

// AnalysisStore persists analysis records.
type AnalysisStore interface {
	// Save upserts the record by identifier.
	Save(ctx context.Context, analysis *models.Analysis) error

	// Get returns the record, or sentinel.ErrNotFound.
	Get(ctx context.Context, analysisID id.AnalysisID) (*models.Analysis, error)

	// GetUserAnalyses lists a user's records newest first.
	GetUserAnalyses(ctx context.Context, userID id.UserID, limit, offset int) ([]*models.Analysis, error)

	// CountUserAnalysesToday counts records created at or after the current
	// UTC midnight.
	CountUserAnalysesToday(ctx context.Context, userID id.UserID) (int, error)
}

// EventSink receives domain events for asynchronous delivery. Implemented by
// the outbox; appends happen in the request path, delivery happens elsewhere.
type EventSink interface {
	Append(ctx context.Context, event Event) error
}

// Event is one append-only outbox entry keyed by aggregate identifier.
type Event struct {
	AggregateID string
	Type        string
	Payload     any
}
