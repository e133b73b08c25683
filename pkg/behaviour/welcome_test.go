package behaviour

import (
	"errors"
	"testing"

	"github.com/blockberries/gooseberry/pkg/connection"
	"github.com/blockberries/gooseberry/pkg/protocol"
	"github.com/libp2p/go-libp2p/core/test"
)

func TestWelcome_GreetsOncePerConnection(t *testing.T) {
	w := NewWelcome("Hello!", nil)
	p := test.RandPeerIDFatal(t)

	w.OnConnected(p, connection.ListenerEndpoint(mustAddr(t, "/ip4/127.0.0.1/tcp/4001")))

	actions := drain(w, PollParameters{})
	if len(actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(actions))
	}
	send, ok := actions[0].(SendMessage)
	if !ok {
		t.Fatalf("action = %T, want SendMessage", actions[0])
	}
	if send.Peer != p || send.Message != "Hello!" {
		t.Errorf("SendMessage = %+v", send)
	}

	w.OnDisconnected(p, connection.ListenerEndpoint(mustAddr(t, "/ip4/127.0.0.1/tcp/4001")))
	if actions := drain(w, PollParameters{}); len(actions) != 0 {
		t.Errorf("disconnect produced %d actions", len(actions))
	}
}

func TestWelcome_EventHandling(t *testing.T) {
	p := test.RandPeerIDFatal(t)
	failure := errors.New("boom")

	tests := []struct {
		name  string
		event any
		want  any
	}{
		{
			name:  "received",
			event: protocol.Event{Kind: protocol.EventReceived, Direction: protocol.DirectionInbound, Message: "hi"},
			want:  GreetingReceived{Peer: p, Message: "hi"},
		},
		{
			name:  "failed",
			event: protocol.Event{Kind: protocol.EventFailed, Direction: protocol.DirectionOutbound, Err: failure},
			want:  GreetingFailed{Peer: p, Direction: protocol.DirectionOutbound, Err: failure},
		},
		{
			name:  "sent",
			event: protocol.Event{Kind: protocol.EventSent, Direction: protocol.DirectionOutbound, Message: "hi"},
		},
		{
			name:  "unrelated",
			event: PeerDiscovered{Peer: p},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWelcome("Hello!", nil)
			w.OnNodeEvent(p, tt.event)

			actions := drain(w, PollParameters{})
			if tt.want == nil {
				if len(actions) != 0 {
					t.Fatalf("got %d actions, want none", len(actions))
				}
				return
			}
			if len(actions) != 1 {
				t.Fatalf("got %d actions, want 1", len(actions))
			}
			emit, ok := actions[0].(EmitEvent)
			if !ok {
				t.Fatalf("action = %T, want EmitEvent", actions[0])
			}
			if emit.Payload != tt.want {
				t.Errorf("payload = %+v, want %+v", emit.Payload, tt.want)
			}
		})
	}
}
