package protocol

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/blockberries/gooseberry/pkg/connection"
	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/libp2p/go-libp2p/p2p/net/connmgr"
	"github.com/multiformats/go-multiaddr"
)

// HostConfig contains configuration for creating a libp2p host.
type HostConfig struct {
	// PrivateKey is the Ed25519 private key for the host identity.
	PrivateKey ed25519.PrivateKey

	// ListenAddrs are the multiaddresses to listen on.
	ListenAddrs []multiaddr.Multiaddr

	// ConnMgrLowWater is the low watermark for the connection manager.
	// Connections will be trimmed when above high watermark.
	ConnMgrLowWater int

	// ConnMgrHighWater is the high watermark for the connection manager.
	ConnMgrHighWater int

	// EnableNAT turns on port mapping and hole punching.
	EnableNAT bool
}

// DefaultHostConfig returns a HostConfig with sensible defaults.
func DefaultHostConfig() HostConfig {
	return HostConfig{
		ConnMgrLowWater:  100,
		ConnMgrHighWater: 400,
	}
}

// ConnectionNotifiee receives connection lifecycle notifications from a Host.
type ConnectionNotifiee interface {
	Connected(peerID peer.ID, ep connection.Endpoint)
	Disconnected(peerID peer.ID, ep connection.Endpoint)
}

// Host wraps a libp2p host.
type Host struct {
	host   host.Host
	config HostConfig
}

// NewHost creates a new libp2p host with the given configuration.
func NewHost(ctx context.Context, cfg HostConfig) (*Host, error) {
	libp2pPriv, err := crypto.UnmarshalEd25519PrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to convert private key: %w", err)
	}

	listenAddrs := make([]string, len(cfg.ListenAddrs))
	for i, ma := range cfg.ListenAddrs {
		listenAddrs[i] = ma.String()
	}

	defaults := DefaultHostConfig()
	if cfg.ConnMgrLowWater <= 0 {
		cfg.ConnMgrLowWater = defaults.ConnMgrLowWater
	}
	if cfg.ConnMgrHighWater <= 0 {
		cfg.ConnMgrHighWater = defaults.ConnMgrHighWater
	}

	connMgr, err := connmgr.NewConnManager(
		cfg.ConnMgrLowWater,
		cfg.ConnMgrHighWater,
		connmgr.WithGracePeriod(0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection manager: %w", err)
	}

	opts := []libp2p.Option{
		libp2p.Identity(libp2pPriv),
		libp2p.ListenAddrStrings(listenAddrs...),
		libp2p.ConnectionManager(connMgr),
	}
	if cfg.EnableNAT {
		opts = append(opts, libp2p.NATPortMap(), libp2p.EnableHolePunching())
	}

	h, err := libp2p.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create libp2p host: %w", err)
	}

	return &Host{
		host:   h,
		config: cfg,
	}, nil
}

// ID returns the peer ID of this host.
func (h *Host) ID() peer.ID {
	return h.host.ID()
}

// Addrs returns the addresses this host is listening on.
func (h *Host) Addrs() []multiaddr.Multiaddr {
	return h.host.Addrs()
}

// P2PAddrs returns the listen addresses with the local /p2p component
// appended, ready to hand to another node's Dial.
func (h *Host) P2PAddrs() []multiaddr.Multiaddr {
	info := peer.AddrInfo{ID: h.host.ID(), Addrs: h.host.Addrs()}
	addrs, err := peer.AddrInfoToP2pAddrs(&info)
	if err != nil {
		return nil
	}
	return addrs
}

// Dial connects to the peer named by the trailing /p2p component of addr.
func (h *Host) Dial(ctx context.Context, addr multiaddr.Multiaddr) (peer.ID, error) {
	info, err := peer.AddrInfoFromP2pAddr(addr)
	if err != nil {
		return "", fmt.Errorf("invalid dial address %s: %w", addr, err)
	}
	if info.ID == h.host.ID() {
		return "", fmt.Errorf("refusing to dial self at %s", addr)
	}

	h.host.Peerstore().AddAddrs(info.ID, info.Addrs, peerstore.PermanentAddrTTL)

	if err := h.host.Connect(ctx, *info); err != nil {
		return info.ID, fmt.Errorf("failed to connect to peer %s: %w", info.ID, err)
	}
	return info.ID, nil
}

// Disconnect closes all connections to a peer.
func (h *Host) Disconnect(peerID peer.ID) error {
	return h.host.Network().ClosePeer(peerID)
}

// IsConnected checks if there is an active connection to a peer.
func (h *Host) IsConnected(peerID peer.ID) bool {
	return h.host.Network().Connectedness(peerID) == network.Connected
}

// NewStream opens a greeting protocol stream to a peer.
func (h *Host) NewStream(ctx context.Context, peerID peer.ID) (Stream, error) {
	s, err := h.host.NewStream(ctx, peerID, ProtocolID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SetMessageHandler registers fn for inbound greeting protocol streams.
func (h *Host) SetMessageHandler(fn func(peerID peer.ID, s Stream)) {
	h.host.SetStreamHandler(ProtocolID, NewStreamHandler(fn))
}

// RemoveMessageHandler removes the greeting protocol stream handler.
func (h *Host) RemoveMessageHandler() {
	h.host.RemoveStreamHandler(ProtocolID)
}

// Notify registers n for connection open and close notifications.
func (h *Host) Notify(n ConnectionNotifiee) {
	h.host.Network().Notify(&network.NotifyBundle{
		ConnectedF: func(_ network.Network, c network.Conn) {
			n.Connected(c.RemotePeer(), EndpointFor(c))
		},
		DisconnectedF: func(_ network.Network, c network.Conn) {
			n.Disconnected(c.RemotePeer(), EndpointFor(c))
		},
	})
}

// EndpointFor classifies a libp2p connection. The address carries the
// remote /p2p component so that a Dialer endpoint can be redialed as is.
func EndpointFor(c network.Conn) connection.Endpoint {
	addr := c.RemoteMultiaddr()
	info := peer.AddrInfo{ID: c.RemotePeer(), Addrs: []multiaddr.Multiaddr{addr}}
	if addrs, err := peer.AddrInfoToP2pAddrs(&info); err == nil && len(addrs) == 1 {
		addr = addrs[0]
	}

	if c.Stat().Direction == network.DirOutbound {
		return connection.DialerEndpoint(addr)
	}
	return connection.ListenerEndpoint(addr)
}

// Peerstore returns the peerstore.
func (h *Host) Peerstore() peerstore.Peerstore {
	return h.host.Peerstore()
}

// LibP2PHost returns the underlying libp2p host.
func (h *Host) LibP2PHost() host.Host {
	return h.host
}

// Close shuts down the host.
func (h *Host) Close() error {
	return h.host.Close()
}
