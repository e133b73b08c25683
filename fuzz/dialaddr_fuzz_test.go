package fuzz

import (
	"testing"

	"github.com/blockberries/gooseberry"
	"github.com/multiformats/go-multiaddr"
)

// FuzzValidateDialAddr tests dial address validation with arbitrary
// multiaddr strings.
func FuzzValidateDialAddr(f *testing.F) {
	f.Add("/ip4/127.0.0.1/tcp/9000/p2p/" + validPeerID)
	f.Add("/ip6/::1/udp/9000/quic-v1/p2p/" + validPeerID)
	f.Add("/ip4/127.0.0.1/tcp/9000")
	f.Add("/p2p/" + validPeerID)
	f.Add("/dns4/example.com/tcp/443/p2p/" + validPeerID + "/p2p-circuit")
	f.Add("/")

	f.Fuzz(func(t *testing.T, s string) {
		addr, err := multiaddr.NewMultiaddr(s)
		if err != nil {
			return
		}
		id, err := gooseberry.ValidateDialAddr(addr)
		if err == nil && id == "" {
			t.Errorf("ValidateDialAddr(%s) accepted an address without a peer", addr)
		}
	})
}
