package socket

import "fmt"

// State is the lifecycle state of a session socket.
type State int32

const (
	// StateHandshaking is the state between creation and the first
	// transport taking ownership of the session.
	StateHandshaking State = iota

	// StatePollingActive means the session is served by long-polling.
	StatePollingActive

	// StateUpgradeInProgress means a WebSocket probe is running while
	// polling still carries traffic.
	StateUpgradeInProgress

	// StateConnected means the session is served by a WebSocket.
	StateConnected

	// StateClosed is terminal.
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "Handshaking"
	case StatePollingActive:
		return "PollingActive"
	case StateUpgradeInProgress:
		return "UpgradeInProgress"
	case StateConnected:
		return "Connected"
	case StateClosed:
		return "Closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

var transitions = map[State][]State{
	StateHandshaking:       {StatePollingActive, StateConnected, StateClosed},
	StatePollingActive:     {StateUpgradeInProgress, StateClosed},
	StateUpgradeInProgress: {StateConnected, StatePollingActive, StateClosed},
	StateConnected:         {StateClosed},
}

// CanTransition reports whether the FSM allows moving from s to to.
func (s State) CanTransition(to State) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}
