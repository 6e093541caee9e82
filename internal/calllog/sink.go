package calllog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"voice-orchestrator/internal/metrics"
)

// Repository is the persistence contract for call-log entries.
// It MUST be append-only.
type Repository interface {
	Append(ctx context.Context, e Entry) error
}

// Recorder is what the call path depends on.
type Recorder interface {
	Record(e Entry)
}

var (
	ErrInvalidEntry = errors.New("calllog: invalid entry")
	ErrClosed       = errors.New("calllog: sink closed")
)

const (
	DefaultQueueSize    = 256
	DefaultWriteTimeout = 3 * time.Second
)

// Sink decouples the call path from storage. Record never blocks: entries
// go into a bounded queue drained by Run. A full queue drops the entry.
//
// Storage errors are logged and counted, never returned to the caller.
type Sink struct {
	repo         Repository
	log          *slog.Logger
	queue        chan Entry
	clock        func() time.Time
	writeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewSink(repo Repository, log *slog.Logger, queueSize int) *Sink {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sink{
		repo:         repo,
		log:          log,
		queue:        make(chan Entry, queueSize),
		clock:        time.Now,
		writeTimeout: DefaultWriteTimeout,
		done:         make(chan struct{}),
	}
}

// Record enqueues an entry, stamping its id and timestamp when unset.
func (s *Sink) Record(e Entry) {
	if !e.Outcome.Valid() || e.Caller == "" {
		s.log.Warn("call log entry rejected", slog.String("outcome", string(e.Outcome)), slog.Any("err", ErrInvalidEntry))
		metrics.CallLogDroppedTotal.WithLabelValues("invalid").Inc()
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.clock().UTC()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		metrics.CallLogDroppedTotal.WithLabelValues("closed").Inc()
		s.log.Warn("call log entry dropped", slog.String("reason", "closed"), slog.String("outcome", string(e.Outcome)))
		return
	}
	select {
	case s.queue <- e:
		metrics.CallLogQueueDepth.Inc()
	default:
		metrics.CallLogDroppedTotal.WithLabelValues("queue_full").Inc()
		s.log.Warn("call log entry dropped",
			slog.String("reason", "queue_full"),
			slog.String("outcome", string(e.Outcome)),
			slog.String("call_id", e.CallID),
		)
	}
}

// Run drains the queue until Close is called and everything queued has
// been written. Writes use ctx's values but not its cancellation, so a
// shutdown still flushes what was accepted.
func (s *Sink) Run(ctx context.Context) error {
	defer close(s.done)
	base := context.WithoutCancel(ctx)
	for e := range s.queue {
		metrics.CallLogQueueDepth.Dec()
		s.write(base, e)
	}
	return nil
}

func (s *Sink) write(ctx context.Context, e Entry) {
	if s.repo == nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	if err := s.repo.Append(wctx, e); err != nil {
		metrics.CallLogDroppedTotal.WithLabelValues("backend_error").Inc()
		s.log.Error("call log write failed",
			slog.String("id", e.ID),
			slog.String("outcome", string(e.Outcome)),
			slog.Any("err", err),
		)
	}
}

// Close stops accepting entries and waits for Run to flush the queue, or
// for ctx to expire. Close is idempotent.
func (s *Sink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
