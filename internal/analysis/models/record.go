// Package models holds the analysis domain types: the record state machine,
// the recommendation value object, and the request command.
package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	id "nurture/pkg/domain"
	"nurture/pkg/sentinel"
)

// Status is the lifecycle state of one analysis request.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further transitions are permitted.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Situation text bounds in characters, counted after trimming surrounding
// whitespace.
const (
	MinSituationLength = 10
	MaxSituationLength = 2000
)

// Analysis is one analysis request. All transitions go through the methods
// below; the orchestrator is the only caller. The struct does no I/O.
//
// Invariants: Completed implies a recommendation and no error message; Failed
// implies an error message and no recommendation; Pending and Processing have
// neither. CompletedAt is set exactly once, on the transition into a terminal
// state.
type Analysis struct {
	ID             id.AnalysisID
	UserID         id.UserID
	ChildID        id.ChildID
	Situation      string
	Context        string
	Status         Status
	Recommendation *Recommendation
	ErrorMessage   string
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

// NewAnalysis validates the situation text and creates a Pending record with
// a fresh identifier.
func NewAnalysis(userID id.UserID, childID id.ChildID, situation, context string) (*Analysis, error) {
	trimmed := strings.TrimSpace(situation)
	// Bounds count characters, not bytes; much of the input is Cyrillic.
	length := utf8.RuneCountInString(trimmed)
	if length < MinSituationLength {
		return nil, fmt.Errorf("%w: situation must be at least %d characters", sentinel.ErrInvalidSituation, MinSituationLength)
	}
	if length > MaxSituationLength {
		return nil, fmt.Errorf("%w: situation must not exceed %d characters", sentinel.ErrInvalidSituation, MaxSituationLength)
	}

	return &Analysis{
		ID:        id.NewAnalysisID(),
		UserID:    userID,
		ChildID:   childID,
		Situation: trimmed,
		Context:   context,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// StartProcessing moves the record from Pending to Processing.
func (a *Analysis) StartProcessing() error {
	if a.Status != StatusPending {
		return fmt.Errorf("%w: cannot start processing from %s", sentinel.ErrIllegalTransition, a.Status)
	}
	a.Status = StatusProcessing
	return nil
}

// Complete moves the record from Processing to Completed and records the
// recommendation and completion time.
func (a *Analysis) Complete(rec *Recommendation) error {
	if a.Status != StatusProcessing {
		return fmt.Errorf("%w: cannot complete from %s", sentinel.ErrIllegalTransition, a.Status)
	}
	if rec == nil {
		return fmt.Errorf("%w: completion requires a recommendation", sentinel.ErrIllegalTransition)
	}
	now := time.Now().UTC()
	a.Status = StatusCompleted
	a.Recommendation = rec
	a.CompletedAt = &now
	return nil
}

// Fail moves the record into Failed from either Pending or Processing.
// Pending is deliberately accepted so that failure paths that never reach
// processing can still leave a terminal, persisted record.
func (a *Analysis) Fail(message string) error {
	if a.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot fail from %s", sentinel.ErrIllegalTransition, a.Status)
	}
	now := time.Now().UTC()
	a.Status = StatusFailed
	a.ErrorMessage = message
	a.Recommendation = nil
	a.CompletedAt = &now
	return nil
}
