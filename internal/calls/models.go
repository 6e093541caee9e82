package calls

// CallRequest is an inbound call notification after validation.
// From and To are always non-empty.
type CallRequest struct {
	From     string            `json:"from"`
	To       string            `json:"to"`
	CallID   string            `json:"callId,omitempty"`
	TrunkID  string            `json:"trunkId,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Accepted is everything the caller side needs to join the room.
type Accepted struct {
	Room                string `json:"room"`
	Token               string `json:"token"`
	ParticipantIdentity string `json:"participant_identity"`
	ParticipantName     string `json:"participant_name"`
	ParticipantMetadata string `json:"participant_metadata"`
}

// roomMetadata is attached to the room so the agent can read the call
// context on join.
type roomMetadata struct {
	Caller    string            `json:"caller"`
	Callee    string            `json:"callee"`
	CallID    string            `json:"call_id,omitempty"`
	TrunkID   string            `json:"trunk_id,omitempty"`
	StartedAt string            `json:"started_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type dispatchMetadata struct {
	IsPhoneCall bool   `json:"is_phone_call"`
	Caller      string `json:"caller"`
	CallID      string `json:"call_id,omitempty"`
}
