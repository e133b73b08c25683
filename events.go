package gooseberry

import (
	"github.com/blockberries/gooseberry/internal/eventdispatch"
	"github.com/blockberries/gooseberry/pkg/behaviour"
	"github.com/blockberries/gooseberry/pkg/connection"
)

// Event is a notification delivered on Node.Events.
//
// For EventBehaviour, Payload holds one of GreetingReceived,
// GreetingFailed, AddressDiscovered, QueryFailed or ReconnectAbandoned and
// Source names the behaviour that emitted it. For EventDialFailed, Payload
// holds the dialed multiaddr and Err the failure. Both Err and
// GreetingFailed.Err are *Error values from ClassifyError.
type Event = eventdispatch.Event

// EventKind identifies the type of an Event.
type EventKind = eventdispatch.Kind

// Event kinds.
const (
	EventConnected    = eventdispatch.KindConnected
	EventDisconnected = eventdispatch.KindDisconnected
	EventBehaviour    = eventdispatch.KindBehaviour
	EventDialFailed   = eventdispatch.KindDialFailed
)

// Behaviour event payloads.
type (
	GreetingReceived   = behaviour.GreetingReceived
	GreetingFailed     = behaviour.GreetingFailed
	AddressDiscovered  = behaviour.AddressDiscovered
	QueryFailed        = behaviour.QueryFailed
	ReconnectAbandoned = behaviour.ReconnectAbandoned
)

// ConnectionState represents the state of a peer connection.
// This is re-exported from the connection package for public API.
type ConnectionState int

const (
	// StateDisconnected indicates no connection exists.
	StateDisconnected ConnectionState = ConnectionState(connection.StateDisconnected)

	// StateDialing indicates an outbound dial is in progress.
	StateDialing ConnectionState = ConnectionState(connection.StateDialing)

	// StateConnected indicates at least one live connection.
	StateConnected ConnectionState = ConnectionState(connection.StateConnected)
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
		return "Unknown"
	}
}
