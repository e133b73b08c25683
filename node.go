package gooseberry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/blockberries/gooseberry/otel"
	"github.com/blockberries/gooseberry/pkg/addressbook"
	"github.com/blockberries/gooseberry/pkg/behaviour"
	"github.com/blockberries/gooseberry/pkg/kad"
	"github.com/blockberries/gooseberry/pkg/protocol"
	"github.com/blockberries/gooseberry/pkg/swarm"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
)

// PeerEntry is one row of the node's address table.
type PeerEntry = addressbook.Entry

// Exchange is the record of one greeting exchange with a peer.
type Exchange = protocol.Exchange

// Node is the main entry point for gooseberry. It runs the welcome,
// reconnect and discovery behaviours over a libp2p host.
//
// All public methods are thread-safe.
type Node struct {
	config *Config

	host      *protocol.Host
	router    *kad.Router
	table     *addressbook.Table
	discovery *behaviour.Discovery
	composer  *behaviour.Composer
	swarm     *swarm.Swarm
	stats     *statsRegistry

	// Lifecycle
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
	stopped bool
	startMu sync.Mutex
}

// New creates a new node with the given configuration.
// The node is not started until Start() is called.
func New(cfg *Config) (*Node, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.applyDefaults()

	greeting, err := protocol.NewMessage(cfg.Greeting)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGreeting, err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	table := addressbook.New()
	if cfg.AddressTablePath != "" {
		table, err = addressbook.Open(cfg.AddressTablePath)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to open address table: %w", err)
		}
	}

	host, err := protocol.NewHost(ctx, protocol.HostConfig{
		PrivateKey:       cfg.PrivateKey,
		ListenAddrs:      cfg.ListenAddrs,
		ConnMgrLowWater:  100,
		ConnMgrHighWater: 400,
		EnableNAT:        cfg.EnableNAT,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create libp2p host: %w", err)
	}

	tracer := otel.NewTracer(cfg.TracerProvider)

	var router *kad.Router
	var finder behaviour.Router
	if !cfg.DisableDiscovery {
		router, err = kad.New(ctx, host.LibP2PHost(), kad.Config{
			ProtocolPrefix: cfg.DHTProtocolPrefix,
			QueryTimeout:   cfg.DiscoveryTimeout,
			Client:         cfg.DHTClientMode,
			Tracer:         tracer,
		})
		if err != nil {
			cancel()
			host.Close()
			return nil, fmt.Errorf("failed to create DHT router: %w", err)
		}
		finder = router
	}

	discovery := behaviour.NewDiscovery(host.ID(), finder, table, cfg.Logger)
	composer := behaviour.NewComposer(
		behaviour.NewWelcome(greeting, cfg.Logger),
		behaviour.NewReconnect(behaviour.ReconnectConfig{
			BaseDelay:   cfg.ReconnectBaseDelay,
			MaxDelay:    cfg.ReconnectMaxDelay,
			MaxAttempts: cfg.ReconnectMaxAttempts,
		}, cfg.Logger),
		discovery,
	)

	stats := newStatsRegistry()
	sw := swarm.New(host, composer, swarm.Config{
		TickInterval:    cfg.TickInterval,
		EventBufferSize: cfg.EventBufferSize,
		Handler:         protocol.HandlerConfig{Timeout: cfg.ExchangeTimeout},
		Logger:          cfg.Logger,
		Metrics:         cfg.Metrics,
		Stats:           stats,
		Tracer:          tracer,
		MapError:        classifyEventError,
	})

	return &Node{
		config:    cfg,
		host:      host,
		router:    router,
		table:     table,
		discovery: discovery,
		composer:  composer,
		swarm:     sw,
		stats:     stats,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}, nil
}

// Start registers the node with its host and starts the event loop.
// A stopped node cannot be started again.
func (n *Node) Start() error {
	n.startMu.Lock()
	defer n.startMu.Unlock()

	if n.stopped {
		return ErrNodeStopped
	}
	if n.started {
		return ErrNodeAlreadyStarted
	}

	n.host.Notify(n.swarm)
	n.host.SetMessageHandler(n.swarm.HandleStream)
	if n.router != nil {
		n.router.Attach(n.swarm.InjectNodeEvent)
	}

	go func() {
		defer close(n.done)
		if err := n.swarm.Run(n.ctx); err != nil && !errors.Is(err, context.Canceled) {
			n.config.Logger.Error("event loop stopped", "error", err)
		}
	}()

	n.started = true
	n.config.Logger.Info("node started",
		"peer", n.host.ID(),
		"addrs", n.host.Addrs(),
		"discovery", n.router != nil,
	)
	return nil
}

// Stop shuts down the node and releases all resources. The address table
// is saved if it is backed by a file.
func (n *Node) Stop() error {
	n.startMu.Lock()
	defer n.startMu.Unlock()

	if !n.started {
		return ErrNodeNotStarted
	}

	n.cancel()
	<-n.done

	var errs []error
	if n.router != nil {
		if err := n.router.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close DHT router: %w", err))
		}
	}
	n.host.RemoveMessageHandler()
	if err := n.host.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close host: %w", err))
	}
	if err := n.table.Save(); err != nil {
		errs = append(errs, fmt.Errorf("failed to save address table: %w", err))
	}

	n.started = false
	n.stopped = true
	n.config.Logger.Info("node stopped", "peer", n.host.ID())

	return errors.Join(errs...)
}

func (n *Node) isStarted() bool {
	n.startMu.Lock()
	defer n.startMu.Unlock()
	return n.started
}

// PeerID returns the local peer ID.
func (n *Node) PeerID() peer.ID {
	return n.host.ID()
}

// Addrs returns the multiaddresses the node is listening on.
func (n *Node) Addrs() []multiaddr.Multiaddr {
	return n.host.Addrs()
}

// P2PAddrs returns the listen addresses with the local /p2p component, in
// the form other nodes pass to Dial.
func (n *Node) P2PAddrs() []multiaddr.Multiaddr {
	return n.host.P2PAddrs()
}

// Dial connects to the peer named by the /p2p component of addr. The dial
// runs in the background; its outcome arrives on Events as EventConnected
// or EventDialFailed.
func (n *Node) Dial(addr multiaddr.Multiaddr) error {
	if !n.isStarted() {
		return ErrNodeNotStarted
	}

	peerID, err := ValidateDialAddr(addr)
	if err != nil {
		return err
	}
	if peerID == n.host.ID() {
		return fmt.Errorf("%w: cannot dial self", ErrInvalidDialAddr)
	}

	if err := n.swarm.Dial(addr); err != nil {
		if errors.Is(err, swarm.ErrStopped) {
			return ErrNodeStopped
		}
		return err
	}
	return nil
}

// Disconnect closes all connections to a peer. A peer this node dialed is
// redialed by the reconnect behaviour.
func (n *Node) Disconnect(peerID peer.ID) error {
	if !n.isStarted() {
		return ErrNodeNotStarted
	}
	if err := n.host.Disconnect(peerID); err != nil {
		return NewErrorWithCause(ErrCodeNotConnected, "disconnect failed", err)
	}
	return nil
}

// Events returns the channel of node events. The channel is closed after
// Stop.
func (n *Node) Events() <-chan Event {
	return n.swarm.Events()
}

// LookupPeer returns the known address of a peer. For an unknown peer it
// returns ErrUnknownPeer and, when discovery is enabled, starts a find-node
// query whose result arrives later as an AddressDiscovered event.
func (n *Node) LookupPeer(peerID peer.ID) (multiaddr.Multiaddr, error) {
	if addr, ok := n.discovery.Lookup(peerID); ok {
		return addr, nil
	}
	return nil, ErrUnknownPeer
}

// KnownPeers returns every entry in the address table, oldest first.
func (n *Node) KnownPeers() []PeerEntry {
	return n.table.List()
}

// ConnectedPeers returns the peers with at least one live connection.
func (n *Node) ConnectedPeers() []peer.ID {
	return n.swarm.Connections().ConnectedPeers()
}

// ConnectionState returns the current connection state for a peer.
func (n *Node) ConnectionState(peerID peer.ID) ConnectionState {
	return ConnectionState(n.swarm.Connections().GetState(peerID))
}

// Exchanges returns the recent greeting exchanges with a peer.
func (n *Node) Exchanges(peerID peer.ID) []Exchange {
	return n.swarm.Exchanges(peerID)
}

// PeerStats returns statistics for a peer, or nil if the node has never
// seen it.
func (n *Node) PeerStats(peerID peer.ID) *PeerStats {
	return n.stats.snapshot(peerID)
}

// AllPeerStats returns statistics for every peer the node has seen.
func (n *Node) AllPeerStats() map[peer.ID]*PeerStats {
	return n.stats.all()
}
