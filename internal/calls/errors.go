package calls

import (
	"errors"
	"net/http"

	"voice-orchestrator/internal/calllog"
)

var (
	ErrAuthentication = errors.New("calls: invalid signature")
	ErrValidation     = errors.New("calls: invalid request")
	ErrBlocked        = errors.New("calls: caller blocked")
	ErrSessionCreate  = errors.New("calls: room creation failed")
	ErrDispatch       = errors.New("calls: agent dispatch failed")
	ErrCredential     = errors.New("calls: credential signing failed")
)

// Rejection is the caller-visible form of a failed call.
// Outcome is empty when the failure is not a call-log outcome.
type Rejection struct {
	Reason     string
	StatusCode int
	Outcome    calllog.Outcome
}

// Classify maps an error from the call path onto its rejection. Anything
// unrecognised is an internal error and never echoes err's text.
func Classify(err error) Rejection {
	switch {
	case errors.Is(err, ErrAuthentication):
		return Rejection{Reason: "Invalid signature", StatusCode: http.StatusUnauthorized}
	case errors.Is(err, ErrValidation):
		return Rejection{Reason: "Invalid request", StatusCode: http.StatusBadRequest}
	case errors.Is(err, ErrBlocked):
		return Rejection{Reason: "Number not in service", StatusCode: http.StatusServiceUnavailable, Outcome: calllog.OutcomeBlocked}
	case errors.Is(err, ErrSessionCreate):
		return Rejection{Reason: "Room creation failed", StatusCode: http.StatusServiceUnavailable, Outcome: calllog.OutcomeRoomCreationFailed}
	case errors.Is(err, ErrDispatch):
		return Rejection{Reason: "Agent dispatch failed", StatusCode: http.StatusServiceUnavailable, Outcome: calllog.OutcomeAgentDispatchFailed}
	default:
		return Rejection{Reason: "Internal error", StatusCode: http.StatusInternalServerError}
	}
}

// Result is the metrics label for a terminal call result.
func (r Rejection) Result() string {
	if r.Outcome != "" {
		return string(r.Outcome)
	}
	switch r.StatusCode {
	case http.StatusUnauthorized:
		return "invalid_signature"
	case http.StatusBadRequest:
		return "invalid_request"
	}
	return "internal_error"
}
