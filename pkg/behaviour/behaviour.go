// Package behaviour defines network behaviours: components that observe
// connection lifecycle events and queue actions for the driver to execute.
//
// All Behaviour methods are called from a single driver goroutine. They must
// not block; a behaviour that has nothing to do reports so from Poll and is
// polled again when a new event arrives or on the driver's next tick.
package behaviour

import (
	"fmt"
	"time"

	"github.com/blockberries/gooseberry/pkg/connection"
	"github.com/blockberries/gooseberry/pkg/protocol"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
)

// PollParameters is the context passed to every Poll call.
type PollParameters struct {
	// LocalPeer is the local node's identity.
	LocalPeer peer.ID

	// Now is the driver's current time. Behaviours with timers compare
	// against it instead of reading the clock.
	Now time.Time
}

// Behaviour reacts to connection events and produces actions.
type Behaviour interface {
	// Name identifies the behaviour in emitted events and logs.
	Name() string

	// OnConnected is called when the first connection to a peer opens.
	OnConnected(peerID peer.ID, ep connection.Endpoint)

	// OnDisconnected is called when the last connection to a peer closes.
	// ep is the endpoint that was passed to OnConnected.
	OnDisconnected(peerID peer.ID, ep connection.Endpoint)

	// OnNodeEvent delivers an event about a peer, for example the outcome
	// of a protocol exchange or a discovery result.
	OnNodeEvent(peerID peer.ID, event any)

	// Poll returns the next ready action, or false if none is ready.
	Poll(params PollParameters) (Action, bool)
}

// ActionKind identifies the type of an Action.
type ActionKind int

const (
	// ActionDialAddress asks the driver to dial an address.
	ActionDialAddress ActionKind = iota

	// ActionSendMessage asks the driver to send a protocol message.
	ActionSendMessage

	// ActionEmitEvent asks the driver to surface an application event.
	ActionEmitEvent
)

// String returns a human-readable name for the action kind.
func (k ActionKind) String() string {
	switch k {
	case ActionDialAddress:
		return "DialAddress"
	case ActionSendMessage:
		return "SendMessage"
	case ActionEmitEvent:
		return "EmitEvent"
	default:
		return fmt.Sprintf("ActionKind(%d)", k)
	}
}

// Action is one thing a behaviour wants the driver to do.
type Action interface {
	Kind() ActionKind
}

// DialAddress asks the driver to dial Address. The address carries the
// target's /p2p component.
type DialAddress struct {
	Address multiaddr.Multiaddr
}

// Kind implements Action.
func (DialAddress) Kind() ActionKind { return ActionDialAddress }

// SendMessage asks the driver to run an outbound one-shot exchange.
// The outcome comes back as a protocol.Event node event for Peer.
type SendMessage struct {
	Peer    peer.ID
	Message protocol.Message
}

// Kind implements Action.
func (SendMessage) Kind() ActionKind { return ActionSendMessage }

// EmitEvent surfaces Payload to the application.
type EmitEvent struct {
	// Source is the name of the emitting behaviour. The composer fills it
	// in when empty.
	Source string

	Payload any
}

// Kind implements Action.
func (EmitEvent) Kind() ActionKind { return ActionEmitEvent }

// Logger is the logging interface behaviours write to.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func orNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}
