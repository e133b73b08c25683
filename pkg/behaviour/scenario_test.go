package behaviour

import (
	"testing"
	"time"

	"github.com/blockberries/gooseberry/internal/testutil"
	"github.com/blockberries/gooseberry/pkg/connection"
	"github.com/blockberries/gooseberry/pkg/protocol"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testNode struct {
	id       peer.ID
	router   *testutil.MockRouter
	composer *Composer
}

func newTestNode(t *testing.T) *testNode {
	t.Helper()
	id := test.RandPeerIDFatal(t)
	router := &testutil.MockRouter{}
	return &testNode{
		id:     id,
		router: router,
		composer: NewComposer(
			NewWelcome("Hello!", nil),
			NewReconnect(ReconnectConfig{}, nil),
			NewDiscovery(id, router, nil, nil),
		),
	}
}

func (n *testNode) drain() []Action {
	return drain(n.composer, PollParameters{LocalPeer: n.id, Now: time.Now()})
}

// Node A dials node B, they exchange greetings, and the connection drops.
func TestScenario_TwoNodes(t *testing.T) {
	a := newTestNode(t)
	b := newTestNode(t)
	addrB := mustAddr(t, "/ip4/127.0.0.1/tcp/4002/p2p/"+b.id.String())
	addrA := mustAddr(t, "/ip4/127.0.0.1/tcp/51000/p2p/"+a.id.String())

	a.composer.OnConnected(b.id, connection.DialerEndpoint(addrB))
	b.composer.OnConnected(a.id, connection.ListenerEndpoint(addrA))

	assert.Equal(t, []Action{SendMessage{Peer: b.id, Message: "Hello!"}}, a.drain())
	assert.Equal(t, []Action{SendMessage{Peer: a.id, Message: "Hello!"}}, b.drain())
	assert.Equal(t, []peer.ID{a.id}, a.router.Queries())
	assert.Equal(t, []peer.ID{a.id}, b.router.Queries())
	assert.Equal(t, []peer.ID{b.id}, a.router.Added())
	assert.Equal(t, []peer.ID{a.id}, b.router.Added())

	b.composer.OnNodeEvent(a.id, protocol.Event{
		Kind:      protocol.EventReceived,
		Direction: protocol.DirectionInbound,
		Message:   "Hello!",
	})
	actions := b.drain()
	require.Len(t, actions, 1)
	assert.Equal(t, EmitEvent{Source: "welcome", Payload: GreetingReceived{Peer: a.id, Message: "Hello!"}}, actions[0])

	a.composer.OnDisconnected(b.id, connection.DialerEndpoint(addrB))
	b.composer.OnDisconnected(a.id, connection.ListenerEndpoint(addrA))

	assert.Equal(t, []Action{DialAddress{Address: addrB}}, a.drain())
	assert.Empty(t, b.drain())
}
