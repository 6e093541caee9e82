package livekit

import (
	"context"
	"errors"
	"math"
	"time"

	"voice-orchestrator/internal/auth"

	lkpb "github.com/livekit/protocol/livekit"
)

type (
	CreateRoomRequest = lkpb.CreateRoomRequest
	Room              = lkpb.Room
)

// EmptyTimeoutSeconds converts a duration to the wire unit, rounding up
// so a sub-second value never turns into "no timeout". Values past the
// wire range saturate.
func EmptyTimeoutSeconds(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	secs := d / time.Second
	if d%time.Second != 0 {
		secs++
	}
	if secs > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(secs)
}

func (c *Client) CreateRoom(ctx context.Context, req *CreateRoomRequest) (*Room, error) {
	if req.GetName() == "" {
		return nil, errors.New("livekit: room name required")
	}
	var room *Room
	err := c.invoke(ctx, "CreateRoom", auth.VideoGrant{RoomCreate: true}, func(ctx context.Context) error {
		var err error
		room, err = c.rooms.CreateRoom(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	if room.GetName() == "" {
		room.Name = req.GetName()
	}
	return room, nil
}

// DeleteRoom removes a room and disconnects anyone in it.
func (c *Client) DeleteRoom(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("livekit: room name required")
	}
	return c.invoke(ctx, "DeleteRoom", auth.VideoGrant{RoomCreate: true}, func(ctx context.Context) error {
		_, err := c.rooms.DeleteRoom(ctx, &lkpb.DeleteRoomRequest{Room: name})
		return err
	})
}

func (c *Client) ListRooms(ctx context.Context) ([]*Room, error) {
	var resp *lkpb.ListRoomsResponse
	err := c.invoke(ctx, "ListRooms", auth.VideoGrant{RoomList: true}, func(ctx context.Context) error {
		var err error
		resp, err = c.rooms.ListRooms(ctx, &lkpb.ListRoomsRequest{})
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp.GetRooms(), nil
}

// HealthCheck is the platform liveness check: the API answers a room listing.
func (c *Client) HealthCheck(ctx context.Context) (int, error) {
	rooms, err := c.ListRooms(ctx)
	if err != nil {
		return 0, err
	}
	return len(rooms), nil
}
