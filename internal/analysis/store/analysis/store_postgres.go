// Package analysis provides durable persistence for analysis records.
package analysis

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"nurture/internal/analysis/models"
	id "nurture/pkg/domain"
	"nurture/pkg/sentinel"
)

// PostgresStore persists analysis records in PostgreSQL. It only stores and
// reconstructs state; all invariants are enforced by the record itself.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed analysis store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Save upserts the record by identifier. Saving the same record twice is a
// no-op beyond refreshing its mutable columns.
func (s *PostgresStore) Save(ctx context.Context, analysis *models.Analysis) error {
	if analysis == nil {
		return fmt.Errorf("analysis record is required")
	}

	var (
		hiddenMeaning sql.NullString
		confidence    sql.NullFloat64
		tone          sql.NullString
		immediate     []string
		longTerm      []string
		avoid         []string
	)
	if rec := analysis.Recommendation; rec != nil {
		hiddenMeaning = sql.NullString{String: rec.HiddenMeaning, Valid: true}
		confidence = sql.NullFloat64{Float64: rec.ConfidenceScore, Valid: true}
		tone = sql.NullString{String: string(rec.EmotionalTone), Valid: true}
		immediate = rec.ImmediateActions
		longTerm = rec.LongTermRecommendations
		avoid = rec.WhatNotToDo
	}

	query := `
		INSERT INTO analyses (
			id, user_id, child_id, situation, context, status,
			hidden_meaning, immediate_actions, long_term_recommendations,
			what_not_to_do, emotional_tone, confidence_score,
			error_message, created_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			hidden_meaning = EXCLUDED.hidden_meaning,
			immediate_actions = EXCLUDED.immediate_actions,
			long_term_recommendations = EXCLUDED.long_term_recommendations,
			what_not_to_do = EXCLUDED.what_not_to_do,
			emotional_tone = EXCLUDED.emotional_tone,
			confidence_score = EXCLUDED.confidence_score,
			error_message = EXCLUDED.error_message,
			completed_at = EXCLUDED.completed_at
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(analysis.ID),
		uuid.UUID(analysis.UserID),
		uuid.UUID(analysis.ChildID),
		analysis.Situation,
		nullString(analysis.Context),
		string(analysis.Status),
		hiddenMeaning,
		pq.Array(immediate),
		pq.Array(longTerm),
		pq.Array(avoid),
		tone,
		confidence,
		nullString(analysis.ErrorMessage),
		analysis.CreatedAt,
		nullTime(analysis.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("%w: save analysis: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

// Get returns the record, or sentinel.ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, analysisID id.AnalysisID) (*models.Analysis, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` FROM analyses WHERE id = $1`, uuid.UUID(analysisID))
	record, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: analysis %s", sentinel.ErrNotFound, analysisID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get analysis: %v", sentinel.ErrUnavailable, err)
	}
	return record, nil
}

// GetUserAnalyses lists a user's records, newest first. The secondary sort
// on id keeps pagination stable when creation timestamps collide.
func (s *PostgresStore) GetUserAnalyses(ctx context.Context, userID id.UserID, limit, offset int) ([]*models.Analysis, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` FROM analyses WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		uuid.UUID(userID), limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list analyses: %v", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	records := make([]*models.Analysis, 0, limit)
	for rows.Next() {
		record, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan analysis: %v", sentinel.ErrUnavailable, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list analyses: %v", sentinel.ErrUnavailable, err)
	}
	return records, nil
}

// CountUserAnalysesToday counts records created at or after the current UTC
// midnight.
func (s *PostgresStore) CountUserAnalysesToday(ctx context.Context, userID id.UserID) (int, error) {
	midnight := time.Now().UTC().Truncate(24 * time.Hour)

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(id) FROM analyses WHERE user_id = $1 AND created_at >= $2`,
		uuid.UUID(userID), midnight,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count analyses: %v", sentinel.ErrUnavailable, err)
	}
	return count, nil
}

const selectColumns = `
	SELECT id, user_id, child_id, situation, context, status,
	       hidden_meaning, immediate_actions, long_term_recommendations,
	       what_not_to_do, emotional_tone, confidence_score,
	       error_message, created_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*models.Analysis, error) {
	var (
		analysisID    uuid.UUID
		userID        uuid.UUID
		childID       uuid.UUID
		situation     string
		contextText   sql.NullString
		status        string
		hiddenMeaning sql.NullString
		immediate     pq.StringArray
		longTerm      pq.StringArray
		avoid         pq.StringArray
		tone          sql.NullString
		confidence    sql.NullFloat64
		errorMessage  sql.NullString
		createdAt     time.Time
		completedAt   sql.NullTime
	)

	err := row.Scan(
		&analysisID, &userID, &childID, &situation, &contextText, &status,
		&hiddenMeaning, &immediate, &longTerm, &avoid, &tone, &confidence,
		&errorMessage, &createdAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	record := &models.Analysis{
		ID:           id.AnalysisID(analysisID),
		UserID:       id.UserID(userID),
		ChildID:      id.ChildID(childID),
		Situation:    situation,
		Context:      contextText.String,
		Status:       models.Status(status),
		ErrorMessage: errorMessage.String,
		CreatedAt:    createdAt,
	}
	if completedAt.Valid {
		t := completedAt.Time
		record.CompletedAt = &t
	}
	if hiddenMeaning.Valid {
		record.Recommendation = &models.Recommendation{
			HiddenMeaning:           hiddenMeaning.String,
			ImmediateActions:        immediate,
			LongTermRecommendations: longTerm,
			WhatNotToDo:             avoid,
			EmotionalTone:           models.EmotionalTone(tone.String),
			ConfidenceScore:         confidence.Float64,
		}
	}
	return record, nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}
