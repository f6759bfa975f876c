package models

import id "nurture/pkg/domain"

// RequestAnalysisCommand is the validated input handed over by the transport
// layer after identity and onboarding checks are done upstream.
type RequestAnalysisCommand struct {
	UserID      id.UserID
	ChildID     id.ChildID
	Situation   string
	ChildAge    int
	ChildGender string
	Context     string
}
