package behaviour

import (
	"github.com/blockberries/gooseberry/pkg/connection"
	"github.com/libp2p/go-libp2p/core/peer"
)

// Composer aggregates behaviours into one. Lifecycle events reach every
// behaviour in registration order; Poll returns the first ready action,
// scanning from the first registered behaviour each time.
//
// Composer implements Behaviour, so composers nest.
type Composer struct {
	name       string
	behaviours []Behaviour
}

// NewComposer returns a composer over bs in the given order.
func NewComposer(bs ...Behaviour) *Composer {
	c := &Composer{name: "composer"}
	for _, b := range bs {
		c.Add(b)
	}
	return c
}

// Add registers b after the existing behaviours. Nil is ignored.
func (c *Composer) Add(b Behaviour) {
	if b == nil {
		return
	}
	c.behaviours = append(c.behaviours, b)
}

// Behaviours returns the registered behaviours in order.
func (c *Composer) Behaviours() []Behaviour {
	out := make([]Behaviour, len(c.behaviours))
	copy(out, c.behaviours)
	return out
}

// Name implements Behaviour.
func (c *Composer) Name() string {
	return c.name
}

// OnConnected implements Behaviour.
func (c *Composer) OnConnected(peerID peer.ID, ep connection.Endpoint) {
	for _, b := range c.behaviours {
		b.OnConnected(peerID, ep)
	}
}

// OnDisconnected implements Behaviour.
func (c *Composer) OnDisconnected(peerID peer.ID, ep connection.Endpoint) {
	for _, b := range c.behaviours {
		b.OnDisconnected(peerID, ep)
	}
}

// OnNodeEvent implements Behaviour.
func (c *Composer) OnNodeEvent(peerID peer.ID, event any) {
	for _, b := range c.behaviours {
		b.OnNodeEvent(peerID, event)
	}
}

// Poll implements Behaviour.
func (c *Composer) Poll(params PollParameters) (Action, bool) {
	for _, b := range c.behaviours {
		action, ok := b.Poll(params)
		if !ok {
			continue
		}
		if emit, isEmit := action.(EmitEvent); isEmit && emit.Source == "" {
			emit.Source = b.Name()
			action = emit
		}
		return action, true
	}
	return nil, false
}
