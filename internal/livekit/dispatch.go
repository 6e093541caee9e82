package livekit

import (
	"context"
	"errors"

	"voice-orchestrator/internal/auth"

	lkpb "github.com/livekit/protocol/livekit"
)

type (
	CreateDispatchRequest = lkpb.CreateAgentDispatchRequest
	AgentDispatch         = lkpb.AgentDispatch
)

// CreateDispatch asks the platform to place the named agent into a room.
func (c *Client) CreateDispatch(ctx context.Context, req *CreateDispatchRequest) (*AgentDispatch, error) {
	if req.GetAgentName() == "" || req.GetRoom() == "" {
		return nil, errors.New("livekit: agent name and room required")
	}
	grant := auth.VideoGrant{RoomAdmin: true, Room: req.GetRoom()}

	var d *AgentDispatch
	err := c.invoke(ctx, "CreateDispatch", grant, func(ctx context.Context) error {
		var err error
		d, err = c.dispatch.CreateDispatch(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}
