package assistant

import "time"

// Role tags a transcript turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the transcript.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// State is a point-in-time copy of a widget's conversation state.
type State struct {
	Transcript       []Turn `json:"transcript"`
	PendingInput     string `json:"pending_input"`
	AwaitingResponse bool   `json:"awaiting_response"`
	Visible          bool   `json:"visible"`
}

// Outcome classifies how a dispatched submit settled.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	// OutcomeEmpty means the endpoint answered without text and the
	// placeholder reply was used.
	OutcomeEmpty   Outcome = "empty"
	OutcomeFailure Outcome = "failure"
)

// Settlement is reported to the observer once per dispatched submit. It
// carries no message text.
type Settlement struct {
	Outcome  Outcome
	Duration time.Duration
	Err      error
}

// Result describes what a Submit call did. Dispatched is false for the
// empty-input no-op; Reply is the assistant turn appended otherwise.
type Result struct {
	Dispatched bool
	Reply      Turn
	Outcome    Outcome
}

func (s State) clone() State {
	cp := s
	cp.Transcript = make([]Turn, len(s.Transcript))
	copy(cp.Transcript, s.Transcript)
	return cp
}
