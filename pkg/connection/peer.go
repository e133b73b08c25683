package connection

import (
	"fmt"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
)

// PeerConnection tracks the connection state for a single peer.
// A peer may have several transport connections open at once; the endpoint
// recorded by the first one classifies the peer until the last one closes.
type PeerConnection struct {
	// PeerID is the libp2p peer identifier.
	PeerID peer.ID

	// State is the current connection state.
	State ConnectionState

	// Endpoint is the classification fixed by the first live connection.
	// Only meaningful while State == StateConnected.
	Endpoint Endpoint

	// Conns is the number of open transport connections.
	Conns int

	// ConnectedAt is when the peer last entered StateConnected.
	ConnectedAt time.Time

	// LastError stores the last dial error.
	LastError error

	// LastStateChange is when the state last changed.
	LastStateChange time.Time

	mu sync.RWMutex
}

// NewPeerConnection creates a new peer connection in the Disconnected state.
func NewPeerConnection(peerID peer.ID) *PeerConnection {
	return &PeerConnection{
		PeerID:          peerID,
		State:           StateDisconnected,
		LastStateChange: time.Now(),
	}
}

// TransitionTo transitions the connection to a new state.
// Returns an error if the transition is invalid.
func (pc *PeerConnection) TransitionTo(newState ConnectionState) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.transitionLocked(newState)
}

func (pc *PeerConnection) transitionLocked(newState ConnectionState) error {
	if err := pc.State.ValidateTransition(newState); err != nil {
		return fmt.Errorf("peer %s: %w", pc.PeerID, err)
	}

	pc.State = newState
	pc.LastStateChange = time.Now()
	if newState == StateConnected {
		pc.ConnectedAt = pc.LastStateChange
	}
	return nil
}

// GetState returns the current state (thread-safe).
func (pc *PeerConnection) GetState() ConnectionState {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.State
}

// GetEndpoint returns the recorded endpoint and whether the peer is connected.
func (pc *PeerConnection) GetEndpoint() (Endpoint, bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.Endpoint, pc.State == StateConnected
}

// SetError stores an error associated with this connection.
func (pc *PeerConnection) SetError(err error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.LastError = err
}

// GetError returns the last error.
func (pc *PeerConnection) GetError() error {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.LastError
}

// Info is a point-in-time copy of a PeerConnection.
type Info struct {
	PeerID      peer.ID
	State       ConnectionState
	Endpoint    Endpoint
	Conns       int
	ConnectedAt time.Time
	LastError   error
}

// Info returns a snapshot of the connection.
func (pc *PeerConnection) Info() Info {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return Info{
		PeerID:      pc.PeerID,
		State:       pc.State,
		Endpoint:    pc.Endpoint,
		Conns:       pc.Conns,
		ConnectedAt: pc.ConnectedAt,
		LastError:   pc.LastError,
	}
}
