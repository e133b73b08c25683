package behaviour

import (
	"github.com/blockberries/gooseberry/pkg/connection"
	"github.com/blockberries/gooseberry/pkg/protocol"
	"github.com/libp2p/go-libp2p/core/peer"
)

// Welcome greets every newly connected peer once and surfaces the greetings
// it receives.
type Welcome struct {
	greeting protocol.Message
	queue    ActionQueue
	logger   Logger
}

// NewWelcome creates a greeting behaviour.
func NewWelcome(greeting protocol.Message, logger Logger) *Welcome {
	return &Welcome{
		greeting: greeting,
		logger:   orNop(logger),
	}
}

// Name implements Behaviour.
func (w *Welcome) Name() string {
	return "welcome"
}

// OnConnected queues one greeting for the peer.
func (w *Welcome) OnConnected(peerID peer.ID, ep connection.Endpoint) {
	w.logger.Info("peer connected", "peer", peerID, "endpoint", ep)
	w.queue.Push(SendMessage{Peer: peerID, Message: w.greeting})
}

// OnDisconnected implements Behaviour.
func (w *Welcome) OnDisconnected(peerID peer.ID, ep connection.Endpoint) {
	w.logger.Info("peer disconnected", "peer", peerID, "endpoint", ep)
}

// OnNodeEvent handles greeting exchange outcomes.
func (w *Welcome) OnNodeEvent(peerID peer.ID, event any) {
	evt, ok := event.(protocol.Event)
	if !ok {
		return
	}

	switch evt.Kind {
	case protocol.EventReceived:
		w.queue.Push(EmitEvent{Payload: GreetingReceived{Peer: peerID, Message: evt.Message}})
	case protocol.EventSent:
		w.logger.Debug("greeting sent", "peer", peerID)
	case protocol.EventFailed:
		w.logger.Warn("greeting exchange failed",
			"peer", peerID,
			"direction", evt.Direction,
			"error", evt.Err,
		)
		w.queue.Push(EmitEvent{Payload: GreetingFailed{Peer: peerID, Direction: evt.Direction, Err: evt.Err}})
	}
}

// Poll implements Behaviour.
func (w *Welcome) Poll(PollParameters) (Action, bool) {
	return w.queue.Pop()
}
