package connection

import (
	"fmt"
	"sort"
	"sync"

	"github.com/libp2p/go-libp2p/core/peer"
)

// Manager tracks live connections per peer.
// All public methods are thread-safe.
type Manager struct {
	connections map[peer.ID]*PeerConnection
	mu          sync.RWMutex
}

// NewManager creates an empty connection manager.
func NewManager() *Manager {
	return &Manager{
		connections: make(map[peer.ID]*PeerConnection),
	}
}

func (m *Manager) getOrCreate(peerID peer.ID) *PeerConnection {
	conn, ok := m.connections[peerID]
	if !ok {
		conn = NewPeerConnection(peerID)
		m.connections[peerID] = conn
	}
	return conn
}

// MarkDialing records that an outbound dial to the peer is in progress.
// It fails if the peer is already connected or being dialed.
func (m *Manager) MarkDialing(peerID peer.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn := m.getOrCreate(peerID)
	if state := conn.GetState(); state.IsActive() {
		return fmt.Errorf("peer %s already active (state: %s)", peerID, state)
	}
	return conn.TransitionTo(StateDialing)
}

// DialFailed records a failed dial. The peer returns to Disconnected unless
// a connection was established through another path in the meantime.
func (m *Manager) DialFailed(peerID peer.ID, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn := m.getOrCreate(peerID)
	conn.SetError(err)
	if conn.GetState() == StateDialing {
		_ = conn.TransitionTo(StateDisconnected) // Dialing -> Disconnected is always valid
	}
}

// AddConn registers a newly opened transport connection. It returns true
// when this is the first live connection to the peer, in which case ep
// becomes the peer's endpoint classification.
func (m *Manager) AddConn(peerID peer.ID, ep Endpoint) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn := m.getOrCreate(peerID)
	conn.mu.Lock()
	defer conn.mu.Unlock()

	conn.Conns++
	if conn.Conns > 1 {
		return false
	}

	conn.Endpoint = ep
	conn.LastError = nil
	_ = conn.transitionLocked(StateConnected) // Disconnected and Dialing both lead to Connected
	return true
}

// RemoveConn unregisters a closed transport connection. When the last live
// connection to the peer closes, it returns the endpoint recorded by the
// first connection and true.
func (m *Manager) RemoveConn(peerID peer.ID) (Endpoint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.connections[peerID]
	if !ok {
		return Endpoint{}, false
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()

	if conn.Conns == 0 {
		return Endpoint{}, false
	}
	conn.Conns--
	if conn.Conns > 0 {
		return Endpoint{}, false
	}

	ep := conn.Endpoint
	conn.Endpoint = Endpoint{}
	_ = conn.transitionLocked(StateDisconnected)
	return ep, true
}

// GetState returns the connection state for a peer.
// Unknown peers are Disconnected.
func (m *Manager) GetState(peerID peer.ID) ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conn, ok := m.connections[peerID]
	if !ok {
		return StateDisconnected
	}
	return conn.GetState()
}

// IsConnected returns true if at least one connection to the peer is open.
func (m *Manager) IsConnected(peerID peer.ID) bool {
	return m.GetState(peerID) == StateConnected
}

// Endpoint returns the endpoint of a connected peer.
func (m *Manager) Endpoint(peerID peer.ID) (Endpoint, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conn, ok := m.connections[peerID]
	if !ok {
		return Endpoint{}, false
	}
	return conn.GetEndpoint()
}

// Info returns a snapshot of the peer's connection record.
func (m *Manager) Info(peerID peer.ID) (Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conn, ok := m.connections[peerID]
	if !ok {
		return Info{}, false
	}
	return conn.Info(), true
}

// ConnectedPeers returns the connected peers in a stable order.
func (m *Manager) ConnectedPeers() []peer.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	peers := make([]peer.ID, 0, len(m.connections))
	for id, conn := range m.connections {
		if conn.GetState() == StateConnected {
			peers = append(peers, id)
		}
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i] < peers[j] })
	return peers
}
