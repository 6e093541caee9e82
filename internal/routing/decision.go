package routing

// Decision is the output of the policy screen.
//
// Reason is the caller-facing rejection text. Matched is internal only:
// it names the blocklist entry that fired and must never reach a response.
type Decision struct {
	Action  Action `json:"action"`
	Reason  string `json:"reason,omitempty"`
	Matched string `json:"-"`
}

type Action string

const (
	ActionAllow  Action = "allow"
	ActionReject Action = "reject"
)

// ReasonNotInService is what a blocked caller is told.
const ReasonNotInService = "Number not in service"

func (d Decision) Allowed() bool { return d.Action == ActionAllow }
