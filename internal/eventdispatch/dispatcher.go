// Package eventdispatch delivers node events to the application.
package eventdispatch

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blockberries/gooseberry/pkg/connection"
	"github.com/libp2p/go-libp2p/core/peer"
)

// Kind identifies the type of an Event.
type Kind int

const (
	// KindConnected reports the first connection to a peer.
	KindConnected Kind = iota

	// KindDisconnected reports the last connection to a peer closing.
	KindDisconnected

	// KindBehaviour carries a payload emitted by a behaviour.
	KindBehaviour

	// KindDialFailed reports a dial that did not produce a connection.
	KindDialFailed
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindConnected:
		return "Connected"
	case KindDisconnected:
		return "Disconnected"
	case KindBehaviour:
		return "Behaviour"
	case KindDialFailed:
		return "DialFailed"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Event is one notification for the application.
type Event struct {
	Kind   Kind
	PeerID peer.ID

	// Endpoint is set for Connected and Disconnected events.
	Endpoint connection.Endpoint

	// Source names the behaviour that emitted a Behaviour event.
	Source string

	// Payload is the behaviour's event value.
	Payload any

	// Err is set for DialFailed events.
	Err error

	Timestamp time.Time
}

// IsError returns true if this event represents an error condition.
func (e Event) IsError() bool {
	return e.Err != nil
}

// Dispatcher manages event emission to a buffered channel.
// Sends never block: when the channel is full the event is dropped.
type Dispatcher struct {
	events    chan Event
	onDropped func(Event)
	dropped   atomic.Uint64
	mu        sync.Mutex
	closed    bool
}

// NewDispatcher creates a new event dispatcher with the given buffer size.
// onDropped, if not nil, is called for every event that did not fit.
func NewDispatcher(bufferSize int, onDropped func(Event)) *Dispatcher {
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &Dispatcher{
		events:    make(chan Event, bufferSize),
		onDropped: onDropped,
	}
}

// Emit sends an event. It stamps a zero Timestamp with the current time
// and returns false if the event was dropped.
func (d *Dispatcher) Emit(event Event) bool {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}

	select {
	case d.events <- event:
		d.mu.Unlock()
		return true
	default:
	}
	d.mu.Unlock()

	d.dropped.Add(1)
	if d.onDropped != nil {
		d.onDropped(event)
	}
	return false
}

// Events returns the events channel for the application to consume.
// The channel is closed when the dispatcher is closed.
func (d *Dispatcher) Events() <-chan Event {
	return d.events
}

// Dropped returns the number of events dropped because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Close closes the events channel.
// It is safe to call Close multiple times.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.closed {
		d.closed = true
		close(d.events)
	}
}

// IsClosed returns true if the dispatcher has been closed.
func (d *Dispatcher) IsClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
