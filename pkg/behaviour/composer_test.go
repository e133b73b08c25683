package behaviour

import (
	"testing"

	"github.com/blockberries/gooseberry/pkg/connection"
	"github.com/libp2p/go-libp2p/core/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposer_FanOutInRegistrationOrder(t *testing.T) {
	var trace []string
	a := &recorder{name: "a", trace: &trace}
	b := &recorder{name: "b", trace: &trace}
	c := NewComposer(a, b)

	p := test.RandPeerIDFatal(t)
	ep := connection.DialerEndpoint(mustAddr(t, "/ip4/127.0.0.1/tcp/4001"))

	c.OnConnected(p, ep)
	c.OnNodeEvent(p, "ping")
	c.OnDisconnected(p, ep)

	assert.Equal(t, []string{
		"a:connected", "b:connected",
		"a:event", "b:event",
		"a:disconnected", "b:disconnected",
	}, trace)
}

func TestComposer_PollReturnsFirstReady(t *testing.T) {
	var trace []string
	a := &recorder{name: "a", trace: &trace}
	b := &recorder{name: "b", trace: &trace, actions: []Action{
		EmitEvent{Payload: 1},
		EmitEvent{Payload: 2},
	}}
	c := NewComposer(a, b)

	action, ok := c.Poll(PollParameters{})
	require.True(t, ok)
	assert.Equal(t, EmitEvent{Source: "b", Payload: 1}, action)
	assert.Equal(t, 1, a.polls)
	assert.Equal(t, 1, b.polls)

	// The scan restarts from the first behaviour.
	a.actions = []Action{EmitEvent{Source: "custom", Payload: 3}}
	action, ok = c.Poll(PollParameters{})
	require.True(t, ok)
	assert.Equal(t, EmitEvent{Source: "custom", Payload: 3}, action)
	assert.Equal(t, 1, b.polls, "b must not be polled once a is ready")

	action, ok = c.Poll(PollParameters{})
	require.True(t, ok)
	assert.Equal(t, EmitEvent{Source: "b", Payload: 2}, action)
}

func TestComposer_EmptyPollIsIdempotent(t *testing.T) {
	var trace []string
	c := NewComposer(&recorder{name: "a", trace: &trace}, &recorder{name: "b", trace: &trace})

	for i := 0; i < 3; i++ {
		_, ok := c.Poll(PollParameters{})
		assert.False(t, ok)
	}
	assert.Empty(t, trace)
}

func TestComposer_NonEmitActionsPassThrough(t *testing.T) {
	var trace []string
	addr := mustAddr(t, "/ip4/127.0.0.1/tcp/4001")
	c := NewComposer(&recorder{name: "a", trace: &trace, actions: []Action{DialAddress{Address: addr}}})

	action, ok := c.Poll(PollParameters{})
	require.True(t, ok)
	assert.Equal(t, DialAddress{Address: addr}, action)
}

func TestComposer_Nesting(t *testing.T) {
	var trace []string
	inner := NewComposer(&recorder{name: "leaf", trace: &trace, actions: []Action{EmitEvent{Payload: "x"}}})
	outer := NewComposer(inner)

	p := test.RandPeerIDFatal(t)
	outer.OnConnected(p, connection.ListenerEndpoint(mustAddr(t, "/ip4/127.0.0.1/tcp/4001")))
	assert.Equal(t, []string{"leaf:connected"}, trace)

	action, ok := outer.Poll(PollParameters{})
	require.True(t, ok)
	assert.Equal(t, "leaf", action.(EmitEvent).Source)
}

func TestComposer_AddIgnoresNil(t *testing.T) {
	c := NewComposer(nil)
	c.Add(nil)
	assert.Empty(t, c.Behaviours())
	assert.Equal(t, "composer", c.Name())

	_, ok := c.Poll(PollParameters{})
	assert.False(t, ok)
}

func TestActionKind_String(t *testing.T) {
	tests := []struct {
		kind ActionKind
		want string
	}{
		{ActionDialAddress, "DialAddress"},
		{ActionSendMessage, "SendMessage"},
		{ActionEmitEvent, "EmitEvent"},
		{ActionKind(42), "ActionKind(42)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
