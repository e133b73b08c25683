package behaviour

import (
	"github.com/blockberries/gooseberry/pkg/addressbook"
	"github.com/blockberries/gooseberry/pkg/connection"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
)

// Router issues find-node queries. FindNode must not block; results come
// back later as PeerDiscovered or QueryFailed node events.
type Router interface {
	// AddPeer offers a newly connected peer to the routing table so that a
	// query issued right after the connection can reach it.
	AddPeer(peerID peer.ID)

	FindNode(target peer.ID)
}

// Discovery seeds routing knowledge as connections open. When a peer dials
// us it looks that peer up; when we dial a peer it looks ourselves up so
// the network learns where we are.
//
// Discovery is the only writer of its address table.
type Discovery struct {
	local  peer.ID
	router Router
	table  *addressbook.Table
	queue  ActionQueue
	logger Logger
}

// NewDiscovery creates a discovery behaviour. A nil table is replaced by
// an in-memory one.
func NewDiscovery(local peer.ID, router Router, table *addressbook.Table, logger Logger) *Discovery {
	if table == nil {
		table = addressbook.New()
	}
	return &Discovery{
		local:  local,
		router: router,
		table:  table,
		logger: orNop(logger),
	}
}

// Name implements Behaviour.
func (d *Discovery) Name() string {
	return "discovery"
}

// Table returns the address table.
func (d *Discovery) Table() *addressbook.Table {
	return d.table
}

// OnConnected issues the bootstrap find-node query for the connection.
// The connected peer is handed to the router first since it is the only
// peer the query can start from on a fresh node.
func (d *Discovery) OnConnected(peerID peer.ID, ep connection.Endpoint) {
	if d.router != nil {
		d.router.AddPeer(peerID)
	}
	if ep.IsDialer() {
		d.table.Insert(peerID, ep.Address, addressbook.SourceConnection)
		d.findNode(d.local)
		return
	}
	d.findNode(peerID)
}

// OnDisconnected implements Behaviour.
func (d *Discovery) OnDisconnected(peer.ID, connection.Endpoint) {}

// OnNodeEvent records discovery results.
func (d *Discovery) OnNodeEvent(_ peer.ID, event any) {
	switch evt := event.(type) {
	case PeerDiscovered:
		if evt.Peer == d.local || len(evt.Addrs) == 0 {
			return
		}
		if d.table.Insert(evt.Peer, evt.Addrs[0], addressbook.SourceDiscovery) {
			d.logger.Debug("discovered peer", "peer", evt.Peer, "address", evt.Addrs[0])
			d.queue.Push(EmitEvent{Payload: AddressDiscovered{Peer: evt.Peer, Addr: evt.Addrs[0]}})
		}
	case QueryFailed:
		d.logger.Debug("find-node query failed", "target", evt.Target, "error", evt.Err)
		d.queue.Push(EmitEvent{Payload: evt})
	}
}

// Poll implements Behaviour.
func (d *Discovery) Poll(PollParameters) (Action, bool) {
	return d.queue.Pop()
}

// Lookup returns the known address of a peer. If the peer is unknown it
// starts a find-node query and returns false; a later AddressDiscovered
// event reports the result. Lookup is safe to call from any goroutine.
func (d *Discovery) Lookup(peerID peer.ID) (multiaddr.Multiaddr, bool) {
	if addr, ok := d.table.Get(peerID); ok {
		return addr, true
	}
	d.findNode(peerID)
	return nil, false
}

func (d *Discovery) findNode(target peer.ID) {
	if d.router == nil {
		return
	}
	d.router.FindNode(target)
}
