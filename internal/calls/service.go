package calls

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"voice-orchestrator/internal/calllog"
	"voice-orchestrator/internal/metrics"
	"voice-orchestrator/internal/routing"
	"voice-orchestrator/pkg/logger"
)

// Provisioning is implemented by *Provisioner.
type Provisioning interface {
	Provision(ctx context.Context, req CallRequest) (Accepted, error)
}

// Service runs one validated call through screening and provisioning and
// records the outcome. Every call reaching Handle produces exactly one
// call-log entry, except credential signing failures which are operator
// errors rather than call outcomes.
type Service struct {
	screen routing.Engine
	prov   Provisioning
	calls  calllog.Recorder
	clock  func() time.Time
}

func NewService(screen routing.Engine, prov Provisioning, rec calllog.Recorder) (*Service, error) {
	if prov == nil {
		return nil, errors.New("calls: provisioner is nil")
	}
	if rec == nil {
		return nil, errors.New("calls: call log is nil")
	}
	if screen == nil {
		screen = routing.NewNoopEngine()
	}
	return &Service{screen: screen, prov: prov, calls: rec, clock: time.Now}, nil
}

// Handle screens then provisions. A blocked caller never reaches the
// platform.
func (s *Service) Handle(ctx context.Context, req CallRequest) (Accepted, error) {
	start := s.clock()
	log := logger.From(ctx).With(slog.String("call_id", req.CallID))
	ctx = logger.With(ctx, log)

	entry := calllog.Entry{Caller: req.From, Callee: req.To, CallID: req.CallID}

	if d := s.screen.Screen(ctx, req.From, req.To); !d.Allowed() {
		entry.Outcome = calllog.OutcomeBlocked
		s.calls.Record(entry)
		s.observe(start, string(calllog.OutcomeBlocked))
		return Accepted{}, ErrBlocked
	}

	acc, err := s.prov.Provision(ctx, req)
	if err != nil {
		rej := Classify(err)
		if rej.Outcome != "" {
			entry.Room = acc.Room
			entry.Outcome = rej.Outcome
			s.calls.Record(entry)
		}
		s.observe(start, rej.Result())
		return Accepted{}, err
	}

	entry.Room = acc.Room
	entry.Outcome = calllog.OutcomeConnected
	s.calls.Record(entry)
	s.observe(start, string(calllog.OutcomeConnected))

	log.Info("call connected",
		slog.String("room", acc.Room),
		slog.String("participant_identity", acc.ParticipantIdentity),
	)
	return acc, nil
}

func (s *Service) observe(start time.Time, result string) {
	metrics.ProvisionDuration.WithLabelValues(result).Observe(s.clock().Sub(start).Seconds())
}
