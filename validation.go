package gooseberry

import (
	"fmt"

	"github.com/blockberries/gooseberry/pkg/protocol"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
)

// ValidateGreeting checks that greeting can be sent as a protocol message:
// non-empty, valid UTF-8, and shorter than protocol.MaxMessageSize bytes.
func ValidateGreeting(greeting string) error {
	if greeting == "" {
		return fmt.Errorf("%w: greeting cannot be empty", ErrInvalidGreeting)
	}
	if _, err := protocol.NewMessage(greeting); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidGreeting, err)
	}
	return nil
}

// ValidateDialAddr checks that addr identifies a peer and returns its ID.
func ValidateDialAddr(addr multiaddr.Multiaddr) (peer.ID, error) {
	if addr == nil {
		return "", fmt.Errorf("%w: address is nil", ErrInvalidDialAddr)
	}
	info, err := peer.AddrInfoFromP2pAddr(addr)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidDialAddr, err)
	}
	return info.ID, nil
}
