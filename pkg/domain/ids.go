// Package domain holds the typed identifiers shared across modules.
// Wrapping uuid.UUID keeps store and service signatures honest: a ChildID
// cannot be passed where a UserID is expected.
package domain

import "github.com/google/uuid"

// UserID identifies a registered parent account.
type UserID uuid.UUID

// ChildID identifies a child belonging to a user.
type ChildID uuid.UUID

// AnalysisID identifies one analysis request.
type AnalysisID uuid.UUID

// NewAnalysisID returns a fresh random analysis identifier.
func NewAnalysisID() AnalysisID {
	return AnalysisID(uuid.New())
}

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id ChildID) String() string    { return uuid.UUID(id).String() }
func (id AnalysisID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ChildID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id AnalysisID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// ParseUserID parses a UserID from its string form.
func ParseUserID(s string) (UserID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseChildID parses a ChildID from its string form.
func ParseChildID(s string) (ChildID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ChildID{}, err
	}
	return ChildID(u), nil
}

// ParseAnalysisID parses an AnalysisID from its string form.
func ParseAnalysisID(s string) (AnalysisID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return AnalysisID{}, err
	}
	return AnalysisID(u), nil
}
