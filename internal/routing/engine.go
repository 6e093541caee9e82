package routing

import (
	"context"
	"log/slog"

	"voice-orchestrator/pkg/logger"
)

// Engine decides whether an inbound call may proceed.
//
// Decisions have no side effects besides logging: no platform calls and no
// call-log writes. The caller owns what happens next.
type Engine interface {
	Screen(ctx context.Context, caller, callee string) Decision
}

// NewNoopEngine returns an engine that allows everything.
func NewNoopEngine() Engine { return noopEngine{} }

type noopEngine struct{}

func (noopEngine) Screen(context.Context, string, string) Decision {
	return Decision{Action: ActionAllow}
}

// Screen rejects callers matching the blocklist.
type Screen struct {
	blocklist *Blocklist
}

func NewScreen(bl *Blocklist) *Screen {
	if bl == nil {
		bl = NewBlocklist()
	}
	return &Screen{blocklist: bl}
}

func (s *Screen) Screen(ctx context.Context, caller, callee string) Decision {
	entry, hit := s.blocklist.Match(caller)
	if !hit {
		return Decision{Action: ActionAllow}
	}

	// The matched entry is logged here and nowhere else.
	logger.From(ctx).LogAttrs(ctx, slog.LevelInfo, "call blocked",
		slog.String("caller", caller),
		slog.String("callee", callee),
		slog.String("matched", entry),
		slog.String("client_ip", ClientIPFromContext(ctx)),
	)
	return Decision{Action: ActionReject, Reason: ReasonNotInService, Matched: entry}
}
