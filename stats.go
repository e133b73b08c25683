package gooseberry

import (
	"sync"
	"time"

	"github.com/blockberries/gooseberry/pkg/swarm"
	"github.com/libp2p/go-libp2p/core/peer"
)

// PeerStats contains statistics for a peer.
// All fields are safe to read without synchronization once returned
// from the API, as they are snapshot copies.
type PeerStats struct {
	// PeerID is the peer identifier.
	PeerID peer.ID

	// Connected indicates whether the peer is currently connected.
	Connected bool

	// IsOutbound indicates whether we initiated the current (or last)
	// connection.
	IsOutbound bool

	// ConnectedAt is when the current connection was established.
	// Zero value if not connected.
	ConnectedAt time.Time

	// TotalConnectTime is the cumulative duration of all connections.
	TotalConnectTime time.Duration

	// MessagesSent is the number of greetings sent to this peer.
	MessagesSent int64

	// MessagesReceived is the number of greetings received from this peer.
	MessagesReceived int64

	// BytesSent is the total payload bytes sent to this peer.
	BytesSent int64

	// BytesReceived is the total payload bytes received from this peer.
	BytesReceived int64

	// LastMessageAt is when a message was last sent or received.
	LastMessageAt time.Time

	// ConnectionCount is the total number of connections (including reconnects).
	ConnectionCount int

	// FailureCount is the number of failed dials and exchanges.
	FailureCount int
}

// PeerStatsTracker is the mutable stats tracker for one peer.
type PeerStatsTracker struct {
	mu sync.RWMutex

	outbound         bool
	connectedAt      time.Time
	totalConnectTime time.Duration

	messagesSent     int64
	messagesReceived int64
	bytesSent        int64
	bytesReceived    int64

	lastMessageAt   time.Time
	connectionCount int
	failureCount    int
}

// NewPeerStatsTracker creates a new stats tracker for a peer.
func NewPeerStatsTracker() *PeerStatsTracker {
	return &PeerStatsTracker{}
}

// RecordConnectionStart records that a connection started.
func (s *PeerStatsTracker) RecordConnectionStart(outbound bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outbound = outbound
	s.connectedAt = time.Now()
	s.connectionCount++
}

// RecordConnectionEnd records that a connection ended.
func (s *PeerStatsTracker) RecordConnectionEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connectedAt.IsZero() {
		s.totalConnectTime += time.Since(s.connectedAt)
		s.connectedAt = time.Time{}
	}
}

// RecordFailure records a failed dial or exchange.
func (s *PeerStatsTracker) RecordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failureCount++
}

// RecordMessageSent records a message being sent.
func (s *PeerStatsTracker) RecordMessageSent(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messagesSent++
	s.bytesSent += int64(size)
	s.lastMessageAt = time.Now()
}

// RecordMessageReceived records a message being received.
func (s *PeerStatsTracker) RecordMessageReceived(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messagesReceived++
	s.bytesReceived += int64(size)
	s.lastMessageAt = time.Now()
}

// Snapshot returns a copy of the stats for external consumption.
func (s *PeerStatsTracker) Snapshot(peerID peer.ID) *PeerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	connected := !s.connectedAt.IsZero()
	stats := &PeerStats{
		PeerID:           peerID,
		Connected:        connected,
		IsOutbound:       s.outbound,
		ConnectedAt:      s.connectedAt,
		TotalConnectTime: s.totalConnectTime,
		MessagesSent:     s.messagesSent,
		MessagesReceived: s.messagesReceived,
		BytesSent:        s.bytesSent,
		BytesReceived:    s.bytesReceived,
		LastMessageAt:    s.lastMessageAt,
		ConnectionCount:  s.connectionCount,
		FailureCount:     s.failureCount,
	}

	// If currently connected, add the current session duration
	if connected {
		stats.TotalConnectTime += time.Since(s.connectedAt)
	}
	return stats
}

// statsRegistry keeps one tracker per peer and feeds them from the swarm.
type statsRegistry struct {
	mu    sync.RWMutex
	peers map[peer.ID]*PeerStatsTracker
}

var _ swarm.StatsRecorder = (*statsRegistry)(nil)

func newStatsRegistry() *statsRegistry {
	return &statsRegistry{peers: make(map[peer.ID]*PeerStatsTracker)}
}

func (r *statsRegistry) tracker(peerID peer.ID) *PeerStatsTracker {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.peers[peerID]
	if !ok {
		t = NewPeerStatsTracker()
		r.peers[peerID] = t
	}
	return t
}

func (r *statsRegistry) ConnectionStarted(peerID peer.ID, outbound bool) {
	r.tracker(peerID).RecordConnectionStart(outbound)
}

func (r *statsRegistry) ConnectionEnded(peerID peer.ID) {
	r.tracker(peerID).RecordConnectionEnd()
}

func (r *statsRegistry) Failure(peerID peer.ID) {
	r.tracker(peerID).RecordFailure()
}

func (r *statsRegistry) MessageSent(peerID peer.ID, bytes int) {
	r.tracker(peerID).RecordMessageSent(bytes)
}

func (r *statsRegistry) MessageReceived(peerID peer.ID, bytes int) {
	r.tracker(peerID).RecordMessageReceived(bytes)
}

func (r *statsRegistry) snapshot(peerID peer.ID) *PeerStats {
	r.mu.RLock()
	t, ok := r.peers[peerID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return t.Snapshot(peerID)
}

func (r *statsRegistry) all() map[peer.ID]*PeerStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[peer.ID]*PeerStats, len(r.peers))
	for id, t := range r.peers {
		out[id] = t.Snapshot(id)
	}
	return out
}
