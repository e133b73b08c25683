package connection

import (
	"testing"
)

func TestConnectionState_String(t *testing.T) {
	tests := []struct {
		state    ConnectionState
		expected string
	}{
		{StateDisconnected, "Disconnected"},
		{StateDialing, "Dialing"},
		{StateConnected, "Connected"},
		{ConnectionState(999), "Unknown(999)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			got := tt.state.String()
			if got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestConnectionState_IsActive(t *testing.T) {
	tests := []struct {
		state    ConnectionState
		isActive bool
	}{
		{StateDisconnected, false},
		{StateDialing, true},
		{StateConnected, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			got := tt.state.IsActive()
			if got != tt.isActive {
				t.Errorf("IsActive() = %v, want %v", got, tt.isActive)
			}
		})
	}
}

func TestConnectionState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name          string
		from          ConnectionState
		to            ConnectionState
		canTransition bool
	}{
		{"disconnected -> dialing", StateDisconnected, StateDialing, true},
		{"disconnected -> connected", StateDisconnected, StateConnected, true},
		{"disconnected -> disconnected", StateDisconnected, StateDisconnected, false},

		{"dialing -> connected", StateDialing, StateConnected, true},
		{"dialing -> disconnected", StateDialing, StateDisconnected, true},
		{"dialing -> dialing", StateDialing, StateDialing, false},

		{"connected -> disconnected", StateConnected, StateDisconnected, true},
		{"connected -> dialing", StateConnected, StateDialing, false},

		{"unknown -> connected", ConnectionState(42), StateConnected, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.from.CanTransitionTo(tt.to)
			if got != tt.canTransition {
				t.Errorf("CanTransitionTo() = %v, want %v", got, tt.canTransition)
			}
		})
	}
}

func TestConnectionState_ValidateTransition(t *testing.T) {
	if err := StateDialing.ValidateTransition(StateConnected); err != nil {
		t.Errorf("ValidateTransition() should succeed, got error: %v", err)
	}
	if err := StateConnected.ValidateTransition(StateDialing); err == nil {
		t.Error("ValidateTransition() should fail for invalid transition")
	}
}
