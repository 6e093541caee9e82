package telephony

import "voice-orchestrator/internal/calls"

// JoinRoomResponse tells the trunk to bridge the caller into the room.
type JoinRoomResponse struct {
	JoinRoom calls.Accepted `json:"join_room"`
}

// RejectResponse tells the trunk to refuse the call. The HTTP status
// mirrors StatusCode.
type RejectResponse struct {
	Reject Reject `json:"reject"`
}

type Reject struct {
	Reason     string `json:"reason"`
	StatusCode int    `json:"status_code"`
}

func newReject(rej calls.Rejection) RejectResponse {
	return RejectResponse{Reject: Reject{Reason: rej.Reason, StatusCode: rej.StatusCode}}
}

// HealthResponse is returned by GET on the webhook path.
type HealthResponse struct {
	Status     string       `json:"status"`
	Timestamp  string       `json:"timestamp"`
	LiveKit    LiveKitState `json:"livekit"`
	RoomsCount int          `json:"rooms_count"`
	Error      string       `json:"error,omitempty"`
}

type LiveKitState struct {
	Connected bool   `json:"connected"`
	URL       string `json:"url"`
	Agent     string `json:"agent"`
}
