package behaviour

import (
	"testing"

	"github.com/blockberries/gooseberry/pkg/connection"
	"github.com/libp2p/go-libp2p/core/peer"
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

// recorder is a behaviour that logs every call into a shared trace and
// returns scripted actions from Poll.
type recorder struct {
	name    string
	trace   *[]string
	actions []Action
	polls   int
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) OnConnected(peer.ID, connection.Endpoint) {
	*r.trace = append(*r.trace, r.name+":connected")
}

func (r *recorder) OnDisconnected(peer.ID, connection.Endpoint) {
	*r.trace = append(*r.trace, r.name+":disconnected")
}

func (r *recorder) OnNodeEvent(peer.ID, any) {
	*r.trace = append(*r.trace, r.name+":event")
}

func (r *recorder) Poll(PollParameters) (Action, bool) {
	r.polls++
	if len(r.actions) == 0 {
		return nil, false
	}
	a := r.actions[0]
	r.actions = r.actions[1:]
	return a, true
}

// drain polls b until it reports nothing ready.
func drain(b Behaviour, params PollParameters) []Action {
	var out []Action
	for {
		a, ok := b.Poll(params)
		if !ok {
			return out
		}
		out = append(out, a)
	}
}
