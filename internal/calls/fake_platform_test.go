package calls

import (
	"context"
	"sync"

	"voice-orchestrator/internal/livekit"
)

// fakePlatform records every platform operation in order.
type fakePlatform struct {
	mu  sync.Mutex
	ops []string

	rooms      map[string]*livekit.CreateRoomRequest
	dispatches map[string]*livekit.CreateDispatchRequest

	createErr   error
	dispatchErr error
	deleteErr   error

	// blockCreate stores the room, then holds CreateRoom until ctx is done,
	// like a platform that finishes the work after the caller gave up.
	blockCreate bool
	// blockDispatch holds CreateDispatch until ctx is done.
	blockDispatch bool
	// deleteCtxErr captures the rollback context's state when DeleteRoom runs.
	deleteCtxErr error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		rooms:      map[string]*livekit.CreateRoomRequest{},
		dispatches: map[string]*livekit.CreateDispatchRequest{},
	}
}

func (f *fakePlatform) record(op string) {
	f.mu.Lock()
	f.ops = append(f.ops, op)
	f.mu.Unlock()
}

func (f *fakePlatform) CreateRoom(ctx context.Context, req *livekit.CreateRoomRequest) (*livekit.Room, error) {
	f.record("create:" + req.GetName())
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	f.rooms[req.GetName()] = req
	f.mu.Unlock()
	if f.blockCreate {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &livekit.Room{Sid: "RM_" + req.GetName(), Name: req.GetName()}, nil
}

func (f *fakePlatform) CreateDispatch(ctx context.Context, req *livekit.CreateDispatchRequest) (*livekit.AgentDispatch, error) {
	f.record("dispatch:" + req.GetRoom())
	if f.blockDispatch {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.dispatchErr != nil {
		return nil, f.dispatchErr
	}
	f.mu.Lock()
	f.dispatches[req.GetRoom()] = req
	f.mu.Unlock()
	return &livekit.AgentDispatch{Id: "AD_" + req.GetRoom(), AgentName: req.GetAgentName(), Room: req.GetRoom()}, nil
}

func (f *fakePlatform) DeleteRoom(ctx context.Context, name string) error {
	f.record("delete:" + name)
	f.mu.Lock()
	f.deleteCtxErr = ctx.Err()
	f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	delete(f.rooms, name)
	f.mu.Unlock()
	return nil
}

func (f *fakePlatform) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

func (f *fakePlatform) RoomCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rooms)
}
