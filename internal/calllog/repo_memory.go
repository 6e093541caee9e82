package calllog

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory append-only repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *MemoryRepo) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
