package connection

import (
	"errors"
	"testing"

	"github.com/libp2p/go-libp2p/core/test"
	"github.com/multiformats/go-multiaddr"
)

func mustAddr(t *testing.T, s string) multiaddr.Multiaddr {
	t.Helper()
	ma, err := multiaddr.NewMultiaddr(s)
	if err != nil {
		t.Fatalf("failed to parse multiaddr %q: %v", s, err)
	}
	return ma
}

func TestManager_FirstConnectionFixesEndpoint(t *testing.T) {
	m := NewManager()
	p := test.RandPeerIDFatal(t)

	dialer := DialerEndpoint(mustAddr(t, "/ip4/10.0.0.1/tcp/4001"))
	listener := ListenerEndpoint(mustAddr(t, "/ip4/10.0.0.1/tcp/5555"))

	if !m.AddConn(p, dialer) {
		t.Fatal("first AddConn should report first connection")
	}
	if m.AddConn(p, listener) {
		t.Fatal("second AddConn should not report first connection")
	}

	ep, ok := m.Endpoint(p)
	if !ok {
		t.Fatal("peer should be connected")
	}
	if !ep.Equal(dialer) {
		t.Errorf("Endpoint = %v, want %v", ep, dialer)
	}

	if _, last := m.RemoveConn(p); last {
		t.Fatal("RemoveConn with one connection left should not report last")
	}
	if !m.IsConnected(p) {
		t.Fatal("peer should still be connected")
	}

	ep, last := m.RemoveConn(p)
	if !last {
		t.Fatal("RemoveConn of the final connection should report last")
	}
	if !ep.Equal(dialer) {
		t.Errorf("RemoveConn endpoint = %v, want %v", ep, dialer)
	}
	if m.GetState(p) != StateDisconnected {
		t.Errorf("state = %v, want Disconnected", m.GetState(p))
	}
}

func TestManager_RemoveUnknown(t *testing.T) {
	m := NewManager()
	p := test.RandPeerIDFatal(t)

	if _, last := m.RemoveConn(p); last {
		t.Error("RemoveConn on unknown peer should not report last")
	}

	m.AddConn(p, ListenerEndpoint(nil))
	m.RemoveConn(p)
	if _, last := m.RemoveConn(p); last {
		t.Error("extra RemoveConn should not report last twice")
	}
}

func TestManager_Dialing(t *testing.T) {
	m := NewManager()
	p := test.RandPeerIDFatal(t)

	if err := m.MarkDialing(p); err != nil {
		t.Fatalf("MarkDialing failed: %v", err)
	}
	if err := m.MarkDialing(p); err == nil {
		t.Error("MarkDialing should fail while a dial is in progress")
	}

	dialErr := errors.New("connection refused")
	m.DialFailed(p, dialErr)

	info, ok := m.Info(p)
	if !ok {
		t.Fatal("Info should find peer")
	}
	if info.State != StateDisconnected {
		t.Errorf("State = %v, want Disconnected", info.State)
	}
	if !errors.Is(info.LastError, dialErr) {
		t.Errorf("LastError = %v, want %v", info.LastError, dialErr)
	}

	if err := m.MarkDialing(p); err != nil {
		t.Fatalf("MarkDialing after failure failed: %v", err)
	}
	m.AddConn(p, DialerEndpoint(mustAddr(t, "/ip4/10.0.0.2/tcp/4001")))
	if !m.IsConnected(p) {
		t.Error("peer should be connected after dial")
	}
	if info, _ := m.Info(p); info.LastError != nil {
		t.Errorf("LastError = %v, want nil after connect", info.LastError)
	}

	// A stale dial failure must not knock a connected peer down.
	m.DialFailed(p, dialErr)
	if !m.IsConnected(p) {
		t.Error("DialFailed should not disconnect a connected peer")
	}
}

func TestManager_ConnectedPeers(t *testing.T) {
	m := NewManager()
	a := test.RandPeerIDFatal(t)
	b := test.RandPeerIDFatal(t)
	c := test.RandPeerIDFatal(t)

	m.AddConn(a, ListenerEndpoint(nil))
	m.AddConn(b, ListenerEndpoint(nil))
	_ = m.MarkDialing(c)

	peers := m.ConnectedPeers()
	if len(peers) != 2 {
		t.Fatalf("ConnectedPeers() returned %d peers, want 2", len(peers))
	}
	if peers[0] > peers[1] {
		t.Error("ConnectedPeers() should be sorted")
	}
}

func TestEndpoint(t *testing.T) {
	addr := mustAddr(t, "/ip4/127.0.0.1/tcp/4001")

	d := DialerEndpoint(addr)
	l := ListenerEndpoint(addr)

	if !d.IsDialer() || l.IsDialer() {
		t.Error("IsDialer mismatch")
	}
	if d.Direction() != "outbound" || l.Direction() != "inbound" {
		t.Errorf("Direction() = %q/%q", d.Direction(), l.Direction())
	}
	if d.Equal(l) {
		t.Error("dialer and listener endpoints should differ")
	}
	if d.String() != "Dialer{/ip4/127.0.0.1/tcp/4001}" {
		t.Errorf("String() = %q", d.String())
	}
	if EndpointKind(7).String() != "EndpointKind(7)" {
		t.Errorf("unexpected unknown kind string %q", EndpointKind(7).String())
	}
}
