package bot

import "fmt"

// State is the conversation state of one chat.
type State uint8

const (
	// StateNew is the implicit state of a chat never seen before.
	StateNew State = iota
	StateAwaitingChoice
	StateAwaitingCity
	StateDone
	StatePaused
)

var stateNames = [...]string{
	StateNew:            "new",
	StateAwaitingChoice: "awaiting_choice",
	StateAwaitingCity:   "awaiting_city",
	StateDone:           "done",
	StatePaused:         "paused",
}

// String returns the stable tag of the state.
func (s State) String() string {
	if s.Valid() {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Valid reports whether s is one of the declared states.
func (s State) Valid() bool {
	return int(s) < len(stateNames)
}

// ParseState maps a stored tag back to a State. Unknown tags normalize to
// StateNew and are reported as an error so callers can log them.
func ParseState(tag string) (State, error) {
	for i, name := range stateNames {
		if name == tag {
			return State(i), nil
		}
	}
	return StateNew, fmt.Errorf("unknown conversation state %q", tag)
}
