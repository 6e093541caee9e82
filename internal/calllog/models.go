package calllog

import "time"

// Entry is an immutable, append-only record of a screened call.
//
// Room is empty unless a room was created. Entries are never updated or
// deleted, and nothing on the request path waits for one to be stored.
type Entry struct {
	ID        string    `json:"id" db:"id"`
	Timestamp time.Time `json:"timestamp" db:"created_at"`
	Caller    string    `json:"caller" db:"caller"`
	Callee    string    `json:"callee" db:"callee"`
	Room      string    `json:"room,omitempty" db:"room"`
	CallID    string    `json:"call_id,omitempty" db:"call_id"`
	Outcome   Outcome   `json:"outcome" db:"outcome"`
}

type Outcome string

const (
	OutcomeConnected           Outcome = "connected"
	OutcomeBlocked             Outcome = "blocked"
	OutcomeRoomCreationFailed  Outcome = "room_creation_failed"
	OutcomeAgentDispatchFailed Outcome = "agent_dispatch_failed"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeConnected, OutcomeBlocked, OutcomeRoomCreationFailed, OutcomeAgentDispatchFailed:
		return true
	}
	return false
}
