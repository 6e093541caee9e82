package telephony

import (
	"context"

	"voice-orchestrator/internal/calls"
)

// CallHandler runs a validated call through screening and provisioning.
// Implemented by *calls.Service.
type CallHandler interface {
	Handle(ctx context.Context, req calls.CallRequest) (calls.Accepted, error)
}

// PlatformHealth reports whether the room platform answers, and how many
// rooms it currently holds. Implemented by *livekit.Client.
type PlatformHealth interface {
	HealthCheck(ctx context.Context) (int, error)
}
