package behaviour

import (
	"fmt"

	"github.com/blockberries/gooseberry/pkg/protocol"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
)

// Node events delivered to behaviours through OnNodeEvent.

// PeerDiscovered reports a peer found by a find-node query.
type PeerDiscovered struct {
	Peer  peer.ID
	Addrs []multiaddr.Multiaddr
}

// QueryFailed reports a find-node query that produced no result.
type QueryFailed struct {
	Target peer.ID
	Err    error
}

func (q QueryFailed) Error() string {
	return fmt.Sprintf("find-node %s: %v", q.Target, q.Err)
}

func (q QueryFailed) Unwrap() error {
	return q.Err
}

// Application event payloads carried by EmitEvent.

// GreetingReceived is emitted when a peer's greeting arrives.
type GreetingReceived struct {
	Peer    peer.ID
	Message protocol.Message
}

// GreetingFailed is emitted when a greeting exchange fails.
type GreetingFailed struct {
	Peer      peer.ID
	Direction protocol.Direction
	Err       error
}

// AddressDiscovered is emitted when discovery learns a new peer address.
type AddressDiscovered struct {
	Peer peer.ID
	Addr multiaddr.Multiaddr
}

// ReconnectAbandoned is emitted when an address has used up its
// reconnection attempts.
type ReconnectAbandoned struct {
	Address  multiaddr.Multiaddr
	Attempts int
}
