// Package connection tracks live peer connections: which side initiated each
// one, how many transport connections back it, and the dial state around it.
package connection

import "fmt"

// ConnectionState represents the state of a peer connection.
type ConnectionState int

const (
	// StateDisconnected indicates no connection exists.
	StateDisconnected ConnectionState = iota

	// StateDialing indicates an outbound dial is in progress.
	StateDialing

	// StateConnected indicates at least one transport connection is open.
	StateConnected
)

// String returns a human-readable representation of the connection state.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateDialing:
		return "Dialing"
	case StateConnected:
		return "Connected"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// IsActive returns true if the connection is open or being opened.
func (s ConnectionState) IsActive() bool {
	return s == StateDialing || s == StateConnected
}

// CanTransitionTo checks if a transition from the current state to
// the target state is valid.
func (s ConnectionState) CanTransitionTo(target ConnectionState) bool {
	validTransitions := map[ConnectionState][]ConnectionState{
		// Inbound connections skip Dialing.
		StateDisconnected: {StateDialing, StateConnected},
		StateDialing:      {StateConnected, StateDisconnected},
		StateConnected:    {StateDisconnected},
	}

	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// ValidateTransition returns an error if the transition is invalid.
func (s ConnectionState) ValidateTransition(target ConnectionState) error {
	if !s.CanTransitionTo(target) {
		return fmt.Errorf("invalid state transition: %s -> %s", s, target)
	}
	return nil
}
