package calls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"voice-orchestrator/internal/auth"
	"voice-orchestrator/internal/livekit"
	"voice-orchestrator/internal/metrics"
	"voice-orchestrator/pkg/logger"
)

// Platform is the subset of the room platform the provisioner drives.
type Platform interface {
	CreateRoom(ctx context.Context, req *livekit.CreateRoomRequest) (*livekit.Room, error)
	DeleteRoom(ctx context.Context, name string) error
	CreateDispatch(ctx context.Context, req *livekit.CreateDispatchRequest) (*livekit.AgentDispatch, error)
}

// CredentialIssuer signs caller credentials locally.
type CredentialIssuer interface {
	IssueParticipant(now time.Time, p auth.ParticipantGrant) (string, error)
}

const maxParticipants = 2

type ProvisionerConfig struct {
	AgentName       string
	EmptyTimeout    time.Duration
	RollbackTimeout time.Duration
	CredentialTTL   time.Duration
}

func (c ProvisionerConfig) withDefaults() ProvisionerConfig {
	out := c
	if out.AgentName == "" {
		out.AgentName = "voice-agent"
	}
	if out.EmptyTimeout <= 0 {
		out.EmptyTimeout = 300 * time.Second
	}
	if out.RollbackTimeout <= 0 {
		out.RollbackTimeout = 5 * time.Second
	}
	if out.CredentialTTL <= 0 {
		out.CredentialTTL = auth.DefaultParticipantTTL
	}
	return out
}

// Provisioner stands up a room, its agent and the caller's credential as
// one unit. Either all three exist when Provision returns nil, or the room
// has been (best-effort) deleted and no credential was handed out.
//
// It holds no per-call state and is safe for concurrent use.
type Provisioner struct {
	platform Platform
	issuer   CredentialIssuer
	cfg      ProvisionerConfig

	Tracer   trace.Tracer
	Now      func() time.Time
	RoomName func(now time.Time) string
}

func NewProvisioner(platform Platform, issuer CredentialIssuer, cfg ProvisionerConfig) (*Provisioner, error) {
	if platform == nil {
		return nil, errors.New("calls: platform is nil")
	}
	if issuer == nil {
		return nil, errors.New("calls: credential issuer is nil")
	}
	return &Provisioner{
		platform: platform,
		issuer:   issuer,
		cfg:      cfg.withDefaults(),
		Tracer:   otel.Tracer("voice-orchestrator/calls"),
		Now:      time.Now,
		RoomName: NewRoomName,
	}, nil
}

// Provision runs create room, dispatch agent, sign credential in order.
// Errors wrap ErrSessionCreate, ErrDispatch or ErrCredential. When a room
// may exist on the platform, the returned Accepted carries only Room so
// the caller can log which room was rolled back.
func (p *Provisioner) Provision(ctx context.Context, req CallRequest) (Accepted, error) {
	ctx, span := p.Tracer.Start(ctx, "calls.provision")
	defer span.End()

	log := logger.From(ctx)
	now := p.Now().UTC()
	room := p.RoomName(now)
	span.SetAttributes(attribute.String("room", room), attribute.String("call_id", req.CallID))

	if err := p.createRoom(ctx, room, now, req); err != nil {
		failSpan(span, err)
		log.Warn("room creation failed", slog.String("room", room), slog.Any("err", err))
		if livekit.Answered(err) {
			return Accepted{}, fmt.Errorf("%w: %w", ErrSessionCreate, err)
		}
		// No answer: the platform may have created the room after we gave up.
		p.rollback(ctx, room)
		return Accepted{Room: room}, fmt.Errorf("%w: %w", ErrSessionCreate, err)
	}

	if err := p.dispatch(ctx, room, req); err != nil {
		failSpan(span, err)
		log.Warn("agent dispatch failed", slog.String("room", room), slog.String("agent", p.cfg.AgentName), slog.Any("err", err))
		p.rollback(ctx, room)
		return Accepted{Room: room}, fmt.Errorf("%w: %w", ErrDispatch, err)
	}

	identity := ParticipantIdentity(req.From)
	name := FormatPhone(req.From)
	meta := encodeMetadata(req.Metadata)

	token, err := p.issuer.IssueParticipant(now, auth.ParticipantGrant{
		Identity: identity,
		Name:     name,
		Metadata: meta,
		Room:     room,
		TTL:      p.cfg.CredentialTTL,
	})
	if err != nil {
		failSpan(span, err)
		// Signing only fails on bad configuration; the operator needs to see it.
		log.Error("credential signing failed", slog.String("room", room), slog.Any("err", err))
		p.rollback(ctx, room)
		return Accepted{Room: room}, fmt.Errorf("%w: %w", ErrCredential, err)
	}

	span.SetStatus(codes.Ok, "")
	return Accepted{
		Room:                room,
		Token:               token,
		ParticipantIdentity: identity,
		ParticipantName:     name,
		ParticipantMetadata: meta,
	}, nil
}

func (p *Provisioner) createRoom(ctx context.Context, room string, now time.Time, req CallRequest) error {
	ctx, span := p.Tracer.Start(ctx, "livekit.create_room", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	meta, err := json.Marshal(roomMetadata{
		Caller:    req.From,
		Callee:    req.To,
		CallID:    req.CallID,
		TrunkID:   req.TrunkID,
		StartedAt: now.Format(time.RFC3339Nano),
		Metadata:  req.Metadata,
	})
	if err != nil {
		return err
	}

	_, err = p.platform.CreateRoom(ctx, &livekit.CreateRoomRequest{
		Name:            room,
		EmptyTimeout:    livekit.EmptyTimeoutSeconds(p.cfg.EmptyTimeout),
		MaxParticipants: maxParticipants,
		Metadata:        string(meta),
	})
	if err != nil {
		failSpan(span, err)
		return err
	}
	return nil
}

func (p *Provisioner) dispatch(ctx context.Context, room string, req CallRequest) error {
	ctx, span := p.Tracer.Start(ctx, "livekit.create_dispatch", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("agent", p.cfg.AgentName))

	meta, err := json.Marshal(dispatchMetadata{
		IsPhoneCall: true,
		Caller:      FormatPhone(req.From),
		CallID:      req.CallID,
	})
	if err != nil {
		return err
	}

	_, err = p.platform.CreateDispatch(ctx, &livekit.CreateDispatchRequest{
		AgentName: p.cfg.AgentName,
		Room:      room,
		Metadata:  string(meta),
	})
	if err != nil {
		failSpan(span, err)
		return err
	}
	return nil
}

// rollback deletes a room whose provisioning did not complete. It runs on
// a context detached from the request so an expired call deadline does not
// also cancel the cleanup. Failure is logged only; the room's empty
// timeout reclaims it eventually.
func (p *Provisioner) rollback(ctx context.Context, room string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.RollbackTimeout)
	defer cancel()

	rctx, span := p.Tracer.Start(rctx, "livekit.delete_room", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	err := p.platform.DeleteRoom(rctx, room)
	switch {
	case err == nil:
	case livekit.IsNotFound(err):
		metrics.RollbacksTotal.WithLabelValues("not_found").Inc()
		logger.From(ctx).Info("room already gone", slog.String("room", room))
		return
	default:
		failSpan(span, err)
		metrics.RollbacksTotal.WithLabelValues("failed").Inc()
		logger.From(ctx).Error("room rollback failed", slog.String("room", room), slog.Any("err", err))
		return
	}
	metrics.RollbacksTotal.WithLabelValues("ok").Inc()
	logger.From(ctx).Info("room rolled back", slog.String("room", room))
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// encodeMetadata renders passthrough metadata as a JSON object string.
func encodeMetadata(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
