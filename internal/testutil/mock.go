// Package testutil provides an in-memory network for testing the swarm
// and node without real sockets.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/blockberries/gooseberry/pkg/connection"
	"github.com/blockberries/gooseberry/pkg/protocol"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
)

// Sentinel errors for mock operations.
var (
	ErrPeerNotFound = errors.New("peer not found")
	ErrNotConnected = errors.New("not connected to peer")
	ErrSelfDial     = errors.New("cannot dial self")
)

// Node receives the notifications a transport produces. *swarm.Swarm
// implements it.
type Node interface {
	Connected(peerID peer.ID, ep connection.Endpoint)
	Disconnected(peerID peer.ID, ep connection.Endpoint)
	HandleStream(peerID peer.ID, s protocol.Stream)
}

type link struct {
	dialer   *MockTransport
	listener *MockTransport
}

func (l *link) other(id peer.ID) *MockTransport {
	if l.dialer.id == id {
		return l.listener
	}
	return l.dialer
}

// endpointFor returns the endpoint t sees for the link.
func (l *link) endpointFor(t *MockTransport) connection.Endpoint {
	if l.dialer == t {
		return connection.DialerEndpoint(l.listener.Addr())
	}
	return connection.ListenerEndpoint(l.dialer.Addr())
}

func linkKey(a, b peer.ID) [2]peer.ID {
	if a > b {
		a, b = b, a
	}
	return [2]peer.ID{a, b}
}

// MockNetwork connects MockTransports in memory.
type MockNetwork struct {
	mu         sync.Mutex
	transports map[peer.ID]*MockTransport
	links      map[[2]peer.ID]*link
	nextPort   int
}

// NewMockNetwork creates an empty network.
func NewMockNetwork() *MockNetwork {
	return &MockNetwork{
		transports: make(map[peer.ID]*MockTransport),
		links:      make(map[[2]peer.ID]*link),
		nextPort:   4001,
	}
}

// NewTransport adds a transport with the given identity. Each transport
// gets a distinct loopback TCP address.
func (n *MockNetwork) NewTransport(id peer.ID) *MockTransport {
	n.mu.Lock()
	defer n.mu.Unlock()

	addr, err := multiaddr.NewMultiaddr(fmt.Sprintf("/ip4/127.0.0.1/tcp/%d", n.nextPort))
	if err != nil {
		panic(err)
	}
	n.nextPort++

	t := &MockTransport{network: n, id: id, addr: addr}
	n.transports[id] = t
	return t
}

// MockTransport is an in-memory transport. Streams are net.Pipe pairs.
type MockTransport struct {
	network *MockNetwork
	id      peer.ID
	addr    multiaddr.Multiaddr

	mu      sync.Mutex
	node    Node
	dialErr error
	dials   []multiaddr.Multiaddr
}

// Bind sets the node that receives this transport's notifications.
func (t *MockTransport) Bind(node Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.node = node
}

func (t *MockTransport) getNode() Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.node
}

// ID returns the transport's peer ID.
func (t *MockTransport) ID() peer.ID {
	return t.id
}

// Addr returns the transport's dialable address, /p2p component included.
func (t *MockTransport) Addr() multiaddr.Multiaddr {
	return t.addr.Encapsulate(multiaddr.StringCast("/p2p/" + t.id.String()))
}

// SetDialError makes every following Dial fail with err. Nil clears it.
func (t *MockTransport) SetDialError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dialErr = err
}

// Dials returns every address passed to Dial.
func (t *MockTransport) Dials() []multiaddr.Multiaddr {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]multiaddr.Multiaddr, len(t.dials))
	copy(out, t.dials)
	return out
}

// Dial connects to the transport addressed by addr and notifies both sides.
// Dialing an already connected peer succeeds without a new connection.
func (t *MockTransport) Dial(ctx context.Context, addr multiaddr.Multiaddr) (peer.ID, error) {
	t.mu.Lock()
	t.dials = append(t.dials, addr)
	dialErr := t.dialErr
	t.mu.Unlock()

	info, err := peer.AddrInfoFromP2pAddr(addr)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if dialErr != nil {
		return "", dialErr
	}
	if info.ID == t.id {
		return "", ErrSelfDial
	}

	n := t.network
	n.mu.Lock()
	remote, ok := n.transports[info.ID]
	if !ok {
		n.mu.Unlock()
		return "", ErrPeerNotFound
	}
	key := linkKey(t.id, remote.id)
	if _, connected := n.links[key]; connected {
		n.mu.Unlock()
		return remote.id, nil
	}
	l := &link{dialer: t, listener: remote}
	n.links[key] = l
	n.mu.Unlock()

	if node := t.getNode(); node != nil {
		node.Connected(remote.id, l.endpointFor(t))
	}
	if node := remote.getNode(); node != nil {
		node.Connected(t.id, l.endpointFor(remote))
	}
	return remote.id, nil
}

// Disconnect closes the connection to peerID and notifies both sides.
func (t *MockTransport) Disconnect(peerID peer.ID) error {
	n := t.network
	n.mu.Lock()
	key := linkKey(t.id, peerID)
	l, ok := n.links[key]
	if !ok {
		n.mu.Unlock()
		return ErrNotConnected
	}
	delete(n.links, key)
	n.mu.Unlock()

	remote := l.other(t.id)
	if node := t.getNode(); node != nil {
		node.Disconnected(remote.id, l.endpointFor(t))
	}
	if node := remote.getNode(); node != nil {
		node.Disconnected(t.id, l.endpointFor(remote))
	}
	return nil
}

// IsConnected reports whether a link to peerID exists.
func (t *MockTransport) IsConnected(peerID peer.ID) bool {
	n := t.network
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.links[linkKey(t.id, peerID)]
	return ok
}

// NewStream opens a stream to a connected peer. The remote side's node
// handles the other end in its own goroutine.
func (t *MockTransport) NewStream(ctx context.Context, peerID peer.ID) (protocol.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := t.network
	n.mu.Lock()
	l, ok := n.links[linkKey(t.id, peerID)]
	n.mu.Unlock()
	if !ok {
		return nil, ErrNotConnected
	}

	remote := l.other(t.id)
	node := remote.getNode()
	if node == nil {
		return nil, fmt.Errorf("peer %s has no stream handler", peerID)
	}

	local, far := net.Pipe()
	go node.HandleStream(t.id, far)
	return local, nil
}

// MockRouter records the peers offered to it and the find-node queries
// issued against it.
type MockRouter struct {
	mu      sync.Mutex
	added   []peer.ID
	queries []peer.ID
}

// AddPeer records the peer.
func (r *MockRouter) AddPeer(peerID peer.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.added = append(r.added, peerID)
}

// Added returns the peers offered so far.
func (r *MockRouter) Added() []peer.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]peer.ID, len(r.added))
	copy(out, r.added)
	return out
}

// FindNode records the query.
func (r *MockRouter) FindNode(target peer.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, target)
}

// Queries returns the targets queried so far.
func (r *MockRouter) Queries() []peer.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]peer.ID, len(r.queries))
	copy(out, r.queries)
	return out
}
