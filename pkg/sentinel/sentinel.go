// Package sentinel defines the error values shared across modules. Stores and
// infrastructure layers return these (optionally wrapped) so services can
// translate them without string matching, and the transport layer can map
// them to responses.
//
// Infrastructure facts:
//   - ErrNotFound: entity does not exist in a store
//   - ErrUnavailable: a backing store or remote service is unreachable
//
// Domain outcomes:
//   - ErrInvalidSituation: situation text fails validation
//   - ErrQuotaExceeded: the user is over a usage ceiling
//   - ErrIllegalTransition: an analysis state transition was attempted out of
//     order; this indicates a programming defect, not a runtime condition
//   - ErrGatewayTimeout: the reasoning service timed out on every attempt
//   - ErrGatewayFailure: the reasoning service failed on every attempt
//   - ErrAnalysisFailed: a request reached a Failed terminal state; wraps one
//     of the gateway errors as its cause
package sentinel

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")

	ErrInvalidSituation  = errors.New("invalid situation")
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrIllegalTransition = errors.New("illegal state transition")
	ErrGatewayTimeout    = errors.New("gateway timeout")
	ErrGatewayFailure    = errors.New("gateway failure")
	ErrAnalysisFailed    = errors.New("analysis failed")
)
