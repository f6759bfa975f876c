// Package service implements the analysis orchestrator: the single writer
// that drives an analysis record from intake to a terminal state.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nurture/internal/analysis/metrics"
	"nurture/internal/analysis/models"
	"nurture/internal/analysis/ports"
	id "nurture/pkg/domain"
	"nurture/pkg/sentinel"
)

// Type aliases for the consumed interfaces.
type (
	Analyzer = ports.Analyzer
	Limiter  = ports.UsageLimiter
	Store    = ports.AnalysisStore
)

// Orchestrator coordinates one analysis request per call: quota check,
// record lifecycle, reasoning call, persistence at every transition.
// Transitions for one record are strictly ordered within a single call;
// records are never shared between in-flight calls.
type Orchestrator struct {
	store    Store
	analyzer Analyzer
	limiter  Limiter
	events   ports.EventSink
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithEventSink attaches an outbox for analysis lifecycle events.
func WithEventSink(sink ports.EventSink) Option {
	return func(o *Orchestrator) {
		o.events = sink
	}
}

func New(store Store, analyzer Analyzer, limiter Limiter, opts ...Option) (*Orchestrator, error) {
	if store == nil {
		return nil, fmt.Errorf("analysis store is required")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("usage limiter is required")
	}

	o := &Orchestrator{
		store:    store,
		analyzer: analyzer,
		limiter:  limiter,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o, nil
}

// RequestAnalysis runs one analysis request to a terminal state.
//
// The sequence is: limiter check, create Pending and persist, move to
// Processing and persist, call the reasoning service, then persist the
// terminal state. Usage is charged only after a successful completion, so
// transient reasoning failures never cost the user quota. A quota rejection
// happens before the record exists and leaves no persisted trace.
//
// Every persistence call must succeed before the next step proceeds; a store
// error aborts immediately, so a Completed record can never exist in memory
// without its store write.
func (o *Orchestrator) RequestAnalysis(ctx context.Context, cmd models.RequestAnalysisCommand) (*models.Analysis, error) {
	start := time.Now()

	allowed, err := o.limiter.CheckLimit(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("check usage limit: %w", err)
	}
	if !allowed {
		if o.metrics != nil {
			o.metrics.QuotaRejected.Inc()
		}
		return nil, fmt.Errorf("%w: user %s", sentinel.ErrQuotaExceeded, cmd.UserID)
	}

	analysis, err := models.NewAnalysis(cmd.UserID, cmd.ChildID, cmd.Situation, cmd.Context)
	if err != nil {
		return nil, err
	}
	if err := o.store.Save(ctx, analysis); err != nil {
		return nil, fmt.Errorf("persist pending analysis: %w", err)
	}
	o.emit(ctx, "analysis.requested", analysis)

	if err := analysis.StartProcessing(); err != nil {
		return nil, err
	}
	if err := o.store.Save(ctx, analysis); err != nil {
		return nil, fmt.Errorf("persist processing analysis: %w", err)
	}

	recommendation, err := o.analyzer.Analyze(ctx, analysis.Situation, cmd.ChildAge, cmd.ChildGender, analysis.Context)
	if err != nil {
		return nil, o.failAnalysis(ctx, analysis, err)
	}

	if err := analysis.Complete(recommendation); err != nil {
		return nil, err
	}
	if err := o.store.Save(ctx, analysis); err != nil {
		return nil, fmt.Errorf("persist completed analysis: %w", err)
	}
	o.emit(ctx, "analysis.completed", analysis)

	if err := o.limiter.IncrementUsage(ctx, cmd.UserID); err != nil {
		// The analysis itself succeeded and is persisted; an uncharged
		// request is preferable to failing the user here.
		o.logger.ErrorContext(ctx, "failed to charge usage after completion",
			"analysis_id", analysis.ID,
			"user_id", cmd.UserID,
			"error", err,
		)
	}

	if o.metrics != nil {
		o.metrics.Completed.Inc()
		o.metrics.Duration.Observe(time.Since(start).Seconds())
	}
	o.logger.InfoContext(ctx, "analysis completed",
		"analysis_id", analysis.ID,
		"user_id", cmd.UserID,
		"confidence", recommendation.ConfidenceScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return analysis, nil
}

// failAnalysis records the terminal Failed state and returns the error the
// caller sees: ErrAnalysisFailed wrapping the gateway cause.
func (o *Orchestrator) failAnalysis(ctx context.Context, analysis *models.Analysis, cause error) error {
	if err := analysis.Fail(cause.Error()); err != nil {
		return err
	}
	if err := o.store.Save(ctx, analysis); err != nil {
		return fmt.Errorf("persist failed analysis: %w", err)
	}
	o.emit(ctx, "analysis.failed", analysis)

	if o.metrics != nil {
		o.metrics.Failed.Inc()
	}
	o.logger.ErrorContext(ctx, "analysis failed",
		"analysis_id", analysis.ID,
		"user_id", analysis.UserID,
		"error", cause,
	)
	return fmt.Errorf("%w: %w", sentinel.ErrAnalysisFailed, cause)
}

// emit appends a lifecycle event to the outbox when one is configured.
// Delivery is asynchronous and best-effort; an append failure is logged and
// never fails the request.
func (o *Orchestrator) emit(ctx context.Context, eventType string, analysis *models.Analysis) {
	if o.events == nil {
		return
	}
	event := ports.Event{
		AggregateID: analysis.ID.String(),
		Type:        eventType,
		Payload: map[string]any{
			"analysis_id": analysis.ID.String(),
			"user_id":     analysis.UserID.String(),
			"child_id":    analysis.ChildID.String(),
			"status":      string(analysis.Status),
		},
	}
	if err := o.events.Append(ctx, event); err != nil {
		o.logger.WarnContext(ctx, "failed to append outbox event",
			"analysis_id", analysis.ID,
			"event_type", eventType,
			"error", err,
		)
	}
}

// Get returns one analysis record by identifier.
func (o *Orchestrator) Get(ctx context.Context, analysisID id.AnalysisID) (*models.Analysis, error) {
	return o.store.Get(ctx, analysisID)
}

// GetUserAnalyses returns a page of the user's history, newest first.
func (o *Orchestrator) GetUserAnalyses(ctx context.Context, userID id.UserID, limit, offset int) ([]*models.Analysis, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	return o.store.GetUserAnalyses(ctx, userID, limit, offset)
}

// CountUserAnalysesToday returns the number of records the user created
// since UTC midnight.
func (o *Orchestrator) CountUserAnalysesToday(ctx context.Context, userID id.UserID) (int, error) {
	return o.store.CountUserAnalysesToday(ctx, userID)
}
