package pipeline

import "fmt"

// State is the lifecycle position of a Pipeline.
type State int32

const (
	StateCreated State = iota
	StateStarted
	StateCompleted
	StateErrored
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarted:
		return "started"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateErrored || s == StateCancelled
}
