package analysis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"nurture/internal/analysis/models"
	id "nurture/pkg/domain"
	"nurture/pkg/sentinel"
)

// InMemoryStore implements the analysis store with a mutex-guarded map.
// Records are deep-copied on the way in and out so callers cannot mutate
// stored state behind the store's back.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.AnalysisID]*models.Analysis
}

// NewInMemory creates an empty in-memory analysis store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[id.AnalysisID]*models.Analysis),
	}
}

// Save upserts the record by identifier.
func (s *InMemoryStore) Save(ctx context.Context, analysis *models.Analysis) error {
	if analysis == nil {
		return fmt.Errorf("analysis record is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[analysis.ID] = copyRecord(analysis)
	return nil
}

// Get returns the record, or sentinel.ErrNotFound.
func (s *InMemoryStore) Get(ctx context.Context, analysisID id.AnalysisID) (*models.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[analysisID]
	if !ok {
		return nil, fmt.Errorf("%w: analysis %s", sentinel.ErrNotFound, analysisID)
	}
	return copyRecord(record), nil
}

// GetUserAnalyses lists a user's records newest first with stable pagination.
func (s *InMemoryStore) GetUserAnalyses(ctx context.Context, userID id.UserID, limit, offset int) ([]*models.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Analysis, 0)
	for _, record := range s.records {
		if record.UserID == userID {
			matched = append(matched, record)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() > matched[j].ID.String()
	})

	if offset >= len(matched) {
		return []*models.Analysis{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	page := make([]*models.Analysis, 0, end-offset)
	for _, record := range matched[offset:end] {
		page = append(page, copyRecord(record))
	}
	return page, nil
}

// CountUserAnalysesToday counts records created at or after the current UTC
// midnight.
func (s *InMemoryStore) CountUserAnalysesToday(ctx context.Context, userID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	count := 0
	for _, record := range s.records {
		if record.UserID == userID && !record.CreatedAt.Before(midnight) {
			count++
		}
	}
	return count, nil
}

func copyRecord(record *models.Analysis) *models.Analysis {
	clone := *record
	if record.CompletedAt != nil {
		t := *record.CompletedAt
		clone.CompletedAt = &t
	}
	if record.Recommendation != nil {
		rec := *record.Recommendation
		rec.ImmediateActions = append([]string(nil), record.Recommendation.ImmediateActions...)
		rec.LongTermRecommendations = append([]string(nil), record.Recommendation.LongTermRecommendations...)
		rec.WhatNotToDo = append([]string(nil), record.Recommendation.WhatNotToDo...)
		clone.Recommendation = &rec
	}
	return &clone
}
