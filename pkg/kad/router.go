// Package kad runs find-node queries against a Kademlia DHT on behalf of the
// discovery behaviour.
package kad

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blockberries/gooseberry/otel"
	"github.com/blockberries/gooseberry/pkg/behaviour"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
	libp2pprotocol "github.com/libp2p/go-libp2p/core/protocol"
	"github.com/multiformats/go-multiaddr"
)

const (
	// DefaultProtocolPrefix keeps the DHT separate from the public IPFS one.
	DefaultProtocolPrefix = "/golem"

	// DefaultQueryTimeout bounds a single find-node query.
	DefaultQueryTimeout = 30 * time.Second
)

var (
	// ErrRouterClosed is reported for queries issued after Close.
	ErrRouterClosed = errors.New("kad router closed")

	// ErrNoAddresses is reported when a query finds no dialable peers.
	ErrNoAddresses = errors.New("no peer addresses found")
)

// Sink receives query results as node events.
type Sink func(peerID peer.ID, event any)

// Config configures a Router.
type Config struct {
	// ProtocolPrefix namespaces the DHT protocol IDs.
	ProtocolPrefix string

	// QueryTimeout bounds each find-node query.
	QueryTimeout time.Duration

	// Client runs the DHT in client mode instead of server mode.
	Client bool

	// Tracer records a span per query. Nil disables tracing.
	Tracer *otel.Tracer
}

// Router implements behaviour.Router on top of go-libp2p-kad-dht.
// Each FindNode runs in its own goroutine and reports through the sink.
type Router struct {
	dht     *dht.IpfsDHT
	host    host.Host
	timeout time.Duration
	tracer  *otel.Tracer

	mu     sync.RWMutex
	sink   Sink
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ behaviour.Router = (*Router)(nil)

// New starts a DHT on h.
func New(ctx context.Context, h host.Host, cfg Config) (*Router, error) {
	if cfg.ProtocolPrefix == "" {
		cfg.ProtocolPrefix = DefaultProtocolPrefix
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultQueryTimeout
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.NewTracer(nil)
	}

	mode := dht.ModeServer
	if cfg.Client {
		mode = dht.ModeClient
	}

	kdht, err := dht.New(ctx, h,
		dht.Mode(mode),
		dht.ProtocolPrefix(libp2pprotocol.ID(cfg.ProtocolPrefix)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create DHT: %w", err)
	}

	rctx, cancel := context.WithCancel(context.Background())
	return &Router{
		dht:     kdht,
		host:    h,
		timeout: cfg.QueryTimeout,
		tracer:  cfg.Tracer,
		ctx:     rctx,
		cancel:  cancel,
	}, nil
}

// Attach sets the sink that receives query results.
func (r *Router) Attach(sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = sink
}

// AddPeer puts a connected peer into the DHT routing table. The DHT adds
// peers on its own only after identify confirms the DHT protocol, which
// races with the bootstrap query issued on connect. A full bucket leaves
// the table as it is.
func (r *Router) AddPeer(peerID peer.ID) {
	if peerID == r.host.ID() {
		return
	}
	_, _ = r.dht.RoutingTable().TryAddPeer(peerID, true, false)
}

// FindNode starts a query for the peers closest to target.
func (r *Router) FindNode(target peer.ID) {
	r.mu.RLock()
	closed := r.closed
	if !closed {
		r.wg.Add(1)
	}
	r.mu.RUnlock()

	if closed {
		r.emit(target, behaviour.QueryFailed{Target: target, Err: ErrRouterClosed})
		return
	}

	go func() {
		defer r.wg.Done()
		r.query(target)
	}()
}

func (r *Router) query(target peer.ID) {
	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	ctx, span := r.tracer.StartFindNode(ctx, target)
	closest, err := r.dht.GetClosestPeers(ctx, string(target))
	r.tracer.RecordFound(span, len(closest))
	r.tracer.EndSpan(span, err)
	if err != nil {
		r.emit(target, behaviour.QueryFailed{Target: target, Err: err})
		return
	}

	found := 0
	for _, id := range closest {
		addrs := P2PAddrs(r.host.Peerstore(), id)
		if len(addrs) == 0 {
			continue
		}
		found++
		r.emit(id, behaviour.PeerDiscovered{Peer: id, Addrs: addrs})
	}
	if found == 0 {
		r.emit(target, behaviour.QueryFailed{Target: target, Err: ErrNoAddresses})
	}
}

func (r *Router) emit(peerID peer.ID, event any) {
	r.mu.RLock()
	sink := r.sink
	r.mu.RUnlock()

	if sink != nil {
		sink(peerID, event)
	}
}

// DHT returns the underlying DHT.
func (r *Router) DHT() *dht.IpfsDHT {
	return r.dht
}

// Close cancels running queries, waits for them, and stops the DHT.
func (r *Router) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
	return r.dht.Close()
}

// P2PAddrs returns the peerstore addresses of id with its /p2p component
// appended.
func P2PAddrs(ps peerstore.Peerstore, id peer.ID) []multiaddr.Multiaddr {
	known := ps.Addrs(id)
	if len(known) == 0 {
		return nil
	}
	addrs, err := peer.AddrInfoToP2pAddrs(&peer.AddrInfo{ID: id, Addrs: known})
	if err != nil {
		return nil
	}
	return addrs
}
