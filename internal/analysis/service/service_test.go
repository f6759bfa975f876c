package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"nurture/internal/analysis/models"
	analysisstore "nurture/internal/analysis/store/analysis"
	"nurture/internal/outbox"
	id "nurture/pkg/domain"
	"nurture/pkg/sentinel"
)

type fakeAnalyzer struct {
	rec   *models.Recommendation
	err   error
	calls int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ string, _ int, _, _ string) (*models.Recommendation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rec, nil
}

type fakeLimiter struct {
	allowed    bool
	checkErr   error
	incErr     error
	increments int
}

func (f *fakeLimiter) CheckLimit(_ context.Context, _ id.UserID) (bool, error) {
	return f.allowed, f.checkErr
}

func (f *fakeLimiter) IncrementUsage(_ context.Context, _ id.UserID) error {
	if f.incErr != nil {
		return f.incErr
	}
	f.increments++
	return nil
}

// failingSaver wraps a store and fails Save after a number of successful calls.
type failingSaver struct {
	*analysisstore.InMemoryStore
	failAfter int
	saves     int
	err       error
}

func (f *failingSaver) Save(ctx context.Context, analysis *models.Analysis) error {
	f.saves++
	if f.saves > f.failAfter {
		return f.err
	}
	return f.InMemoryStore.Save(ctx, analysis)
}

type OrchestratorSuite struct {
	suite.Suite
	ctx      context.Context
	store    *analysisstore.InMemoryStore
	analyzer *fakeAnalyzer
	limiter  *fakeLimiter
	events   *outbox.InMemoryStore
	svc      *Orchestrator
	cmd      models.RequestAnalysisCommand
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}

func (s *OrchestratorSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = analysisstore.NewInMemory()

	rec, err := models.NewRecommendation(
		"the child is testing boundaries",
		[]string{"stay calm"},
		[]string{"keep routines predictable"},
		[]string{"do not shout"},
		models.ToneNeutral,
		0.85,
	)
	s.Require().NoError(err)
	s.analyzer = &fakeAnalyzer{rec: rec}
	s.limiter = &fakeLimiter{allowed: true}
	s.events = outbox.NewInMemory()

	svc, err := New(s.store, s.analyzer, s.limiter, WithEventSink(outbox.NewSink(s.events)))
	s.Require().NoError(err)
	s.svc = svc

	s.cmd = models.RequestAnalysisCommand{
		UserID:      id.UserID(uuid.New()),
		ChildID:     id.ChildID(uuid.New()),
		Situation:   "refuses to put on shoes every single morning",
		ChildAge:    4,
		ChildGender: "female",
	}
}

func (s *OrchestratorSuite) eventTypes() []string {
	var types []string
	for _, entry := range s.events.All() {
		types = append(types, entry.EventType)
	}
	return types
}

// assertEventsCarry checks that every appended entry is keyed by the record's
// identifier and that the payload names the same record, user, and child.
func (s *OrchestratorSuite) assertEventsCarry(analysisID id.AnalysisID, status models.Status) {
	entries := s.events.All()
	s.Require().NotEmpty(entries)

	var payload struct {
		AnalysisID string `json:"analysis_id"`
		UserID     string `json:"user_id"`
		ChildID    string `json:"child_id"`
		Status     string `json:"status"`
	}
	for _, entry := range entries {
		s.Equal(analysisID.String(), entry.AggregateID)

		s.Require().NoError(json.Unmarshal(entry.Payload, &payload))
		s.Equal(analysisID.String(), payload.AnalysisID)
		s.Equal(s.cmd.UserID.String(), payload.UserID)
		s.Equal(s.cmd.ChildID.String(), payload.ChildID)
	}
	s.Equal(string(status), payload.Status, "final event reflects the terminal status")
}

func (s *OrchestratorSuite) TestNewValidatesDependencies() {
	_, err := New(nil, s.analyzer, s.limiter)
	s.Error(err)
	_, err = New(s.store, nil, s.limiter)
	s.Error(err)
	_, err = New(s.store, s.analyzer, nil)
	s.Error(err)
}

func (s *OrchestratorSuite) TestSuccessfulAnalysis() {
	analysis, err := s.svc.RequestAnalysis(s.ctx, s.cmd)
	s.Require().NoError(err)

	s.Equal(models.StatusCompleted, analysis.Status)
	s.Require().NotNil(analysis.Recommendation)
	s.Equal("the child is testing boundaries", analysis.Recommendation.HiddenMeaning)
	s.NotNil(analysis.CompletedAt)
	s.Empty(analysis.ErrorMessage)

	s.Equal(1, s.limiter.increments, "usage charged exactly once")

	stored, err := s.store.Get(s.ctx, analysis.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, stored.Status)

	s.Equal([]string{"analysis.requested", "analysis.completed"}, s.eventTypes())
	s.assertEventsCarry(analysis.ID, models.StatusCompleted)
}

func (s *OrchestratorSuite) TestQuotaExceeded() {
	s.limiter.allowed = false

	_, err := s.svc.RequestAnalysis(s.ctx, s.cmd)
	s.Require().ErrorIs(err, sentinel.ErrQuotaExceeded)

	s.Zero(s.analyzer.calls, "reasoning service never called")
	s.Zero(s.limiter.increments)
	s.Empty(s.events.All(), "rejection leaves no trace")

	history, err := s.svc.GetUserAnalyses(s.ctx, s.cmd.UserID, 10, 0)
	s.Require().NoError(err)
	s.Empty(history)
}

func (s *OrchestratorSuite) TestLimiterErrorFailsClosed() {
	s.limiter.checkErr = errors.New("counter store down")

	_, err := s.svc.RequestAnalysis(s.ctx, s.cmd)
	s.Require().ErrorContains(err, "check usage limit")
	s.Zero(s.analyzer.calls)
}

func (s *OrchestratorSuite) TestGatewayFailure() {
	cause := fmt.Errorf("%w after 3 attempts: boom", sentinel.ErrGatewayFailure)
	s.analyzer.err = cause

	_, err := s.svc.RequestAnalysis(s.ctx, s.cmd)
	s.Require().ErrorIs(err, sentinel.ErrAnalysisFailed)
	s.Require().ErrorIs(err, sentinel.ErrGatewayFailure, "the cause stays inspectable")

	s.Zero(s.limiter.increments, "failure costs no quota")

	history, err := s.svc.GetUserAnalyses(s.ctx, s.cmd.UserID, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(models.StatusFailed, history[0].Status)
	s.Nil(history[0].Recommendation)
	s.NotEmpty(history[0].ErrorMessage)
	s.NotNil(history[0].CompletedAt)

	s.Equal([]string{"analysis.requested", "analysis.failed"}, s.eventTypes())
	s.assertEventsCarry(history[0].ID, models.StatusFailed)
}

func (s *OrchestratorSuite) TestInvalidSituationRejectedBeforePersist() {
	s.cmd.Situation = "too short"

	_, err := s.svc.RequestAnalysis(s.ctx, s.cmd)
	s.Require().ErrorIs(err, sentinel.ErrInvalidSituation)

	history, err := s.svc.GetUserAnalyses(s.ctx, s.cmd.UserID, 10, 0)
	s.Require().NoError(err)
	s.Empty(history)
	s.Empty(s.events.All())
}

func (s *OrchestratorSuite) TestStoreFailureAborts() {
	storeErr := errors.New("database gone")
	store := &failingSaver{InMemoryStore: analysisstore.NewInMemory(), failAfter: 1, err: storeErr}

	svc, err := New(store, s.analyzer, s.limiter)
	s.Require().NoError(err)

	_, err = svc.RequestAnalysis(s.ctx, s.cmd)
	s.Require().ErrorIs(err, storeErr)
	s.Zero(s.analyzer.calls, "reasoning call never happens without a persisted processing record")
	s.Zero(s.limiter.increments)
}

func (s *OrchestratorSuite) TestChargeFailureDoesNotFailRequest() {
	s.limiter.incErr = errors.New("counter store down")

	analysis, err := s.svc.RequestAnalysis(s.ctx, s.cmd)
	s.Require().NoError(err, "a completed analysis is returned even if charging fails")
	s.Equal(models.StatusCompleted, analysis.Status)
}

func (s *OrchestratorSuite) TestGetAndHistoryPassthrough() {
	first, err := s.svc.RequestAnalysis(s.ctx, s.cmd)
	s.Require().NoError(err)

	s.Run("get by id", func() {
		got, err := s.svc.Get(s.ctx, first.ID)
		s.Require().NoError(err)
		s.Equal(first.ID, got.ID)
	})

	s.Run("get unknown id", func() {
		_, err := s.svc.Get(s.ctx, id.NewAnalysisID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("history defaults applied", func() {
		history, err := s.svc.GetUserAnalyses(s.ctx, s.cmd.UserID, 0, -5)
		s.Require().NoError(err)
		s.Len(history, 1)
	})

	s.Run("count today", func() {
		count, err := s.svc.CountUserAnalysesToday(s.ctx, s.cmd.UserID)
		s.Require().NoError(err)
		s.Equal(1, count)
	})
}
