package livekit

import (
	"context"
	"errors"
	"fmt"

	"github.com/twitchtv/twirp"
)

// Twirp error codes we branch on.
const (
	CodeAlreadyExists = twirp.AlreadyExists
	CodeNotFound      = twirp.NotFound
	CodeUnauthorized  = twirp.Unauthenticated
	CodeUnavailable   = twirp.Unavailable
)

// Error is a non-200 answer from the platform. Non-Twirp bodies from a
// proxy in front of it carry a code derived from the HTTP status.
type Error struct {
	Method string
	Status int
	Code   twirp.ErrorCode
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("livekit: %s: %s (%d): %s", e.Method, e.Code, e.Status, e.Msg)
}

func hasCode(err error, code twirp.ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsAlreadyExists reports a name collision on create.
func IsAlreadyExists(err error) bool { return hasCode(err, CodeAlreadyExists) }

// IsNotFound reports a missing room, e.g. one that already expired.
func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }

// Answered reports whether err is the platform's own reply. When it is not
// (transport failure, deadline) the call may still have taken effect.
func Answered(err error) bool {
	var e *Error
	return errors.As(err, &e) && !errors.Is(err, context.DeadlineExceeded)
}
