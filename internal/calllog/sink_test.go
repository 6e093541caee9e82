package calllog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"voice-orchestrator/pkg/logger"
)

// startSink runs the drain goroutine and checks it is gone once the test ends.
func startSink(t *testing.T, repo Repository, size int) *Sink {
	t.Helper()
	t.Cleanup(func() { goleak.VerifyNone(t) })
	s := NewSink(repo, logger.Discard(), size)
	go func() { _ = s.Run(context.Background()) }()
	return s
}

func closeSink(t *testing.T, s *Sink) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Close(ctx))
}

func TestSink_RecordsAndStamps(t *testing.T) {
	repo := NewMemoryRepo()
	s := startSink(t, repo, 8)

	s.Record(Entry{Caller: "+15551234567", Callee: "+18005550000", Room: "call-1-abc", CallID: "c1", Outcome: OutcomeConnected})
	s.Record(Entry{Caller: "+15555555555", Callee: "+18005550000", Outcome: OutcomeBlocked})
	closeSink(t, s)

	got := repo.Entries()
	require.Len(t, got, 2)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Timestamp.IsZero())
	assert.Equal(t, OutcomeConnected, got[0].Outcome)
	assert.Equal(t, "", got[1].Room)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestSink_RejectsUnknownOutcome(t *testing.T) {
	repo := NewMemoryRepo()
	s := startSink(t, repo, 8)
	s.Record(Entry{Caller: "+1", Outcome: "invalid_request"})
	s.Record(Entry{Outcome: OutcomeBlocked})
	closeSink(t, s)
	assert.Empty(t, repo.Entries())
}

// blockingRepo holds every write until released.
type blockingRepo struct {
	release chan struct{}
	mu      sync.Mutex
	n       int
}

func (r *blockingRepo) Append(ctx context.Context, e Entry) error {
	<-r.release
	r.mu.Lock()
	r.n++
	r.mu.Unlock()
	return nil
}

func TestSink_RecordNeverBlocksWhenFull(t *testing.T) {
	repo := &blockingRepo{release: make(chan struct{})}
	s := startSink(t, repo, 2)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			s.Record(Entry{Caller: "+1", Outcome: OutcomeConnected})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Record blocked on a full queue")
	}

	close(repo.release)
	closeSink(t, s)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	// One entry in flight plus a queue of two.
	assert.LessOrEqual(t, repo.n, 3)
	assert.GreaterOrEqual(t, repo.n, 1)
}

type failingRepo struct{}

func (failingRepo) Append(context.Context, Entry) error { return errors.New("disk full") }

func TestSink_SwallowsBackendErrors(t *testing.T) {
	s := startSink(t, failingRepo{}, 4)
	s.Record(Entry{Caller: "+1", Outcome: OutcomeRoomCreationFailed})
	closeSink(t, s)
}

func TestSink_CloseIsIdempotentAndDropsLateEntries(t *testing.T) {
	repo := NewMemoryRepo()
	s := startSink(t, repo, 4)
	closeSink(t, s)
	closeSink(t, s)

	s.Record(Entry{Caller: "+1", Outcome: OutcomeConnected})
	assert.Empty(t, repo.Entries())
}

func TestSink_CloseHonorsContext(t *testing.T) {
	repo := &blockingRepo{release: make(chan struct{})}
	s := startSink(t, repo, 4)
	s.Record(Entry{Caller: "+1", Outcome: OutcomeConnected})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Close(ctx), context.DeadlineExceeded)

	close(repo.release)
	closeSink(t, s)
}

func TestSink_ConcurrentRecord(t *testing.T) {
	repo := NewMemoryRepo()
	s := startSink(t, repo, 64)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Record(Entry{Caller: "+15551234567", Outcome: OutcomeConnected})
		}()
	}
	wg.Wait()
	closeSink(t, s)
	assert.Len(t, repo.Entries(), 20)
}
