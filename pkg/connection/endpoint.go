package connection

import (
	"fmt"

	"github.com/multiformats/go-multiaddr"
)

// EndpointKind records which side initiated a connection.
type EndpointKind int

const (
	// KindDialer means the local node dialed the remote peer.
	KindDialer EndpointKind = iota

	// KindListener means the remote peer dialed the local node.
	KindListener
)

// String returns a human-readable representation of the endpoint kind.
func (k EndpointKind) String() string {
	switch k {
	case KindDialer:
		return "Dialer"
	case KindListener:
		return "Listener"
	default:
		return fmt.Sprintf("EndpointKind(%d)", k)
	}
}

// Endpoint describes an established connection from the local point of view.
// It is created when the connection is established and never mutated.
type Endpoint struct {
	// Kind is Dialer for outbound connections and Listener for inbound ones.
	Kind EndpointKind

	// Address is the remote address of the connection. For Dialer endpoints
	// it is the address that was dialed and can be dialed again.
	Address multiaddr.Multiaddr
}

// DialerEndpoint returns an endpoint for a connection the local node dialed.
func DialerEndpoint(addr multiaddr.Multiaddr) Endpoint {
	return Endpoint{Kind: KindDialer, Address: addr}
}

// ListenerEndpoint returns an endpoint for a connection the local node accepted.
func ListenerEndpoint(addr multiaddr.Multiaddr) Endpoint {
	return Endpoint{Kind: KindListener, Address: addr}
}

// IsDialer returns true if the local node initiated the connection.
func (e Endpoint) IsDialer() bool {
	return e.Kind == KindDialer
}

// Direction returns "outbound" for Dialer endpoints and "inbound" otherwise.
// The value is used as a metrics label.
func (e Endpoint) Direction() string {
	if e.IsDialer() {
		return "outbound"
	}
	return "inbound"
}

// Equal reports whether two endpoints have the same kind and address.
func (e Endpoint) Equal(other Endpoint) bool {
	if e.Kind != other.Kind {
		return false
	}
	if e.Address == nil || other.Address == nil {
		return e.Address == nil && other.Address == nil
	}
	return e.Address.Equal(other.Address)
}

func (e Endpoint) String() string {
	if e.Address == nil {
		return e.Kind.String() + "{}"
	}
	return fmt.Sprintf("%s{%s}", e.Kind, e.Address)
}
