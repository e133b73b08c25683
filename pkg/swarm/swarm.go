// Package swarm drives a behaviour against a transport.
//
// A Swarm owns one loop goroutine (Run). Connection notifications, inbound
// exchange results and application requests are queued to the loop, which
// is the only caller of behaviour methods. After every input and on every
// tick the loop polls the behaviour until it reports nothing ready and
// executes the returned actions. Dials and stream I/O run in background
// goroutines whose results re-enter the loop as inputs.
package swarm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blockberries/gooseberry/internal/eventdispatch"
	"github.com/blockberries/gooseberry/otel"
	"github.com/blockberries/gooseberry/pkg/behaviour"
	"github.com/blockberries/gooseberry/pkg/connection"
	"github.com/blockberries/gooseberry/pkg/protocol"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
)

const (
	// DefaultTickInterval is how often the loop polls without new input.
	DefaultTickInterval = time.Second

	// DefaultInboxSize is the capacity of the input queue.
	DefaultInboxSize = 256

	// DefaultEventBufferSize is the capacity of the application event channel.
	DefaultEventBufferSize = 256

	// maxHeldEvents bounds exchange results waiting for a peer's Connected.
	maxHeldEvents = 16

	// maxActionsPerDrain bounds one poll drain so inputs are not starved.
	maxActionsPerDrain = 256
)

var (
	// ErrNotConnected is the failure reported for a send to a peer with no
	// live connection.
	ErrNotConnected = errors.New("peer not connected")

	// ErrAlreadyRunning is returned by Run when the loop already ran.
	ErrAlreadyRunning = errors.New("swarm already running")

	// ErrStopped is returned by feed methods after the loop has exited.
	ErrStopped = errors.New("swarm stopped")
)

// Transport is the network the swarm drives.
type Transport interface {
	// ID returns the local peer ID.
	ID() peer.ID

	// Dial connects to addr, which must carry a /p2p component.
	Dial(ctx context.Context, addr multiaddr.Multiaddr) (peer.ID, error)

	// NewStream opens a protocol stream to a connected peer.
	NewStream(ctx context.Context, peerID peer.ID) (protocol.Stream, error)

	// IsConnected reports whether the transport has a live connection.
	IsConnected(peerID peer.ID) bool
}

// Logger is the logging interface the swarm writes to.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Metrics receives swarm measurements.
type Metrics interface {
	ConnectionOpened(direction string)
	ConnectionClosed(direction string)
	DialAttempt(result string)
	ExchangeResult(direction, result string)
	MessageSent(bytes int)
	MessageReceived(bytes int)
	ActionExecuted(kind string)
	EventEmitted(kind string)
	EventDropped()
}

// StatsRecorder receives per-peer activity.
type StatsRecorder interface {
	ConnectionStarted(peerID peer.ID, outbound bool)
	ConnectionEnded(peerID peer.ID)
	Failure(peerID peer.ID)
	MessageSent(peerID peer.ID, bytes int)
	MessageReceived(peerID peer.ID, bytes int)
}

// Config configures a Swarm. Zero fields take defaults.
type Config struct {
	TickInterval    time.Duration
	InboxSize       int
	EventBufferSize int
	Handler         protocol.HandlerConfig

	Logger  Logger
	Metrics Metrics
	Stats   StatsRecorder
	Tracer  *otel.Tracer

	// MapError, when set, rewrites the error of every DialFailed event and
	// of every GreetingFailed payload before delivery.
	MapError func(kind eventdispatch.Kind, err error) error
}

type input interface{}

type connectedInput struct {
	peer peer.ID
	ep   connection.Endpoint
}

type disconnectedInput struct {
	peer peer.ID
	ep   connection.Endpoint
}

type nodeEventInput struct {
	peer  peer.ID
	event any
}

type actionInput struct {
	action behaviour.Action
}

type dialFailedInput struct {
	peer peer.ID
	addr multiaddr.Multiaddr
	err  error
}

// Swarm runs a behaviour over a transport.
type Swarm struct {
	transport Transport
	behaviour behaviour.Behaviour
	conns     *connection.Manager
	events    *eventdispatch.Dispatcher
	config    Config

	logger  Logger
	metrics Metrics
	stats   StatsRecorder
	tracer  *otel.Tracer

	inbox chan input
	done  chan struct{}

	// loop-owned
	held map[peer.ID][]any

	handlersMu sync.Mutex
	handlers   map[peer.ID]*protocol.Handler

	runMu   sync.Mutex
	started bool
	wg      sync.WaitGroup
}

// New creates a swarm driving b over t.
func New(t Transport, b behaviour.Behaviour, cfg Config) *Swarm {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = DefaultInboxSize
	}
	if cfg.EventBufferSize <= 0 {
		cfg.EventBufferSize = DefaultEventBufferSize
	}

	s := &Swarm{
		transport: t,
		behaviour: b,
		conns:     connection.NewManager(),
		config:    cfg,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		stats:     cfg.Stats,
		tracer:    cfg.Tracer,
		inbox:     make(chan input, cfg.InboxSize),
		done:      make(chan struct{}),
		held:      make(map[peer.ID][]any),
		handlers:  make(map[peer.ID]*protocol.Handler),
	}
	if s.logger == nil {
		s.logger = nopLogger{}
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.stats == nil {
		s.stats = nopStats{}
	}
	if s.tracer == nil {
		s.tracer = otel.NewTracer(nil)
	}
	s.events = eventdispatch.NewDispatcher(cfg.EventBufferSize, func(e eventdispatch.Event) {
		s.metrics.EventDropped()
		s.logger.Warn("event dropped, buffer full", "kind", e.Kind, "peer", e.PeerID)
	})
	return s
}

// Events returns the application event channel. It is closed when Run
// returns.
func (s *Swarm) Events() <-chan eventdispatch.Event {
	return s.events.Events()
}

// Connections returns the connection tracker.
func (s *Swarm) Connections() *connection.Manager {
	return s.conns
}

// Exchanges returns the recent exchanges with a peer.
func (s *Swarm) Exchanges(peerID peer.ID) []protocol.Exchange {
	s.handlersMu.Lock()
	h, ok := s.handlers[peerID]
	s.handlersMu.Unlock()
	if !ok {
		return nil
	}
	return h.Exchanges()
}

// Run drives the behaviour until ctx is done. It can be called once.
func (s *Swarm) Run(ctx context.Context) error {
	s.runMu.Lock()
	if s.started {
		s.runMu.Unlock()
		return ErrAlreadyRunning
	}
	s.started = true
	s.runMu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		close(s.done)
		s.wg.Wait()
		s.events.Close()
	}()

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		if s.drain(ctx) {
			// The drain hit its cap with actions still ready. Take one
			// pending input if there is one, then drain again.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case in := <-s.inbox:
				s.handle(ctx, in)
			default:
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case in := <-s.inbox:
			s.handle(ctx, in)
		case <-ticker.C:
		}
	}
}

// Connected reports a newly opened transport connection.
func (s *Swarm) Connected(peerID peer.ID, ep connection.Endpoint) {
	_ = s.enqueue(connectedInput{peer: peerID, ep: ep})
}

// Disconnected reports a closed transport connection.
func (s *Swarm) Disconnected(peerID peer.ID, ep connection.Endpoint) {
	_ = s.enqueue(disconnectedInput{peer: peerID, ep: ep})
}

// InjectNodeEvent delivers event about peerID to the behaviour.
func (s *Swarm) InjectNodeEvent(peerID peer.ID, event any) {
	_ = s.enqueue(nodeEventInput{peer: peerID, event: event})
}

// Submit queues an action as if a behaviour had returned it.
func (s *Swarm) Submit(action behaviour.Action) error {
	return s.enqueue(actionInput{action: action})
}

// Dial queues a dial of addr. The outcome is reported as a Connected or
// DialFailed event.
func (s *Swarm) Dial(addr multiaddr.Multiaddr) error {
	if addr == nil {
		return fmt.Errorf("dial: nil address")
	}
	return s.Submit(behaviour.DialAddress{Address: addr})
}

// HandleStream runs an inbound exchange on a stream the remote peer opened
// and reports the outcome to the behaviour. It blocks until the exchange
// finishes and is meant to be called from the transport's stream handler.
func (s *Swarm) HandleStream(peerID peer.ID, stream protocol.Stream) {
	_, span := s.tracer.StartExchange(context.Background(), peerID, "inbound")
	evt := s.handlerFor(peerID).Accept(stream)
	s.recordExchange(peerID, evt)
	s.tracer.RecordMessageSize(span, evt.Message.Len())
	s.tracer.EndSpan(span, evt.Err)

	s.InjectNodeEvent(peerID, evt)
}

func (s *Swarm) enqueue(in input) error {
	select {
	case <-s.done:
		return ErrStopped
	default:
	}

	select {
	case s.inbox <- in:
		return nil
	case <-s.done:
		return ErrStopped
	}
}

func (s *Swarm) handle(ctx context.Context, in input) {
	switch in := in.(type) {
	case connectedInput:
		s.handleConnected(in.peer, in.ep)
	case disconnectedInput:
		s.handleDisconnected(in.peer)
	case nodeEventInput:
		s.handleNodeEvent(in.peer, in.event)
	case actionInput:
		s.execute(ctx, in.action)
	case dialFailedInput:
		s.handleDialFailed(in)
	}
}

func (s *Swarm) handleConnected(peerID peer.ID, ep connection.Endpoint) {
	if !s.conns.AddConn(peerID, ep) {
		s.logger.Debug("additional connection", "peer", peerID, "endpoint", ep)
		return
	}

	s.metrics.ConnectionOpened(ep.Direction())
	s.stats.ConnectionStarted(peerID, ep.IsDialer())
	s.behaviour.OnConnected(peerID, ep)
	s.emit(eventdispatch.Event{Kind: eventdispatch.KindConnected, PeerID: peerID, Endpoint: ep})

	held := s.held[peerID]
	delete(s.held, peerID)
	for _, event := range held {
		s.behaviour.OnNodeEvent(peerID, event)
	}
}

func (s *Swarm) handleDisconnected(peerID peer.ID) {
	ep, last := s.conns.RemoveConn(peerID)
	if !last {
		return
	}

	delete(s.held, peerID)
	s.handlersMu.Lock()
	delete(s.handlers, peerID)
	s.handlersMu.Unlock()

	s.metrics.ConnectionClosed(ep.Direction())
	s.stats.ConnectionEnded(peerID)
	s.behaviour.OnDisconnected(peerID, ep)
	s.emit(eventdispatch.Event{Kind: eventdispatch.KindDisconnected, PeerID: peerID, Endpoint: ep})
}

func (s *Swarm) handleNodeEvent(peerID peer.ID, event any) {
	if _, isExchange := event.(protocol.Event); isExchange && !s.conns.IsConnected(peerID) {
		// The transport may already hold the connection whose Connected
		// notification is still queued.
		if !s.transport.IsConnected(peerID) {
			s.logger.Debug("dropping exchange result for disconnected peer", "peer", peerID)
			return
		}
		if len(s.held[peerID]) >= maxHeldEvents {
			s.logger.Warn("dropping exchange result, too many held", "peer", peerID)
			return
		}
		s.held[peerID] = append(s.held[peerID], event)
		return
	}
	s.behaviour.OnNodeEvent(peerID, event)
}

func (s *Swarm) handleDialFailed(in dialFailedInput) {
	if in.peer != "" {
		s.conns.DialFailed(in.peer, in.err)
		s.stats.Failure(in.peer)
	}
	s.logger.Debug("dial failed", "peer", in.peer, "address", in.addr, "error", in.err)
	s.emit(eventdispatch.Event{
		Kind:    eventdispatch.KindDialFailed,
		PeerID:  in.peer,
		Payload: in.addr,
		Err:     in.err,
	})
}

// drain executes ready actions until the behaviour is pending. It reports
// true when it stopped at maxActionsPerDrain instead.
func (s *Swarm) drain(ctx context.Context) bool {
	for i := 0; i < maxActionsPerDrain; i++ {
		action, ok := s.behaviour.Poll(behaviour.PollParameters{
			LocalPeer: s.transport.ID(),
			Now:       time.Now(),
		})
		if !ok {
			return false
		}
		s.execute(ctx, action)
	}
	return true
}

func (s *Swarm) execute(ctx context.Context, action behaviour.Action) {
	s.metrics.ActionExecuted(action.Kind().String())

	switch a := action.(type) {
	case behaviour.DialAddress:
		s.dial(ctx, a.Address)
	case behaviour.SendMessage:
		s.send(ctx, a.Peer, a.Message)
	case behaviour.EmitEvent:
		s.emit(eventdispatch.Event{
			Kind:    eventdispatch.KindBehaviour,
			Source:  a.Source,
			Payload: a.Payload,
		})
	default:
		s.logger.Warn("unknown action", "kind", action.Kind())
	}
}

func (s *Swarm) dial(ctx context.Context, addr multiaddr.Multiaddr) {
	info, err := peer.AddrInfoFromP2pAddr(addr)
	if err != nil {
		s.metrics.DialAttempt("failure")
		s.handleDialFailed(dialFailedInput{addr: addr, err: fmt.Errorf("invalid dial address: %w", err)})
		return
	}
	if err := s.conns.MarkDialing(info.ID); err != nil {
		s.logger.Debug("skipping dial", "peer", info.ID, "reason", err)
		return
	}

	s.spawn(func() {
		dctx, span := s.tracer.StartDial(ctx, info.ID, addr.String())
		_, err := s.transport.Dial(dctx, addr)
		s.tracer.EndSpan(span, err)
		if err != nil {
			s.metrics.DialAttempt("failure")
			_ = s.enqueue(dialFailedInput{peer: info.ID, addr: addr, err: err})
			return
		}
		s.metrics.DialAttempt("success")
	})
}

func (s *Swarm) send(ctx context.Context, peerID peer.ID, msg protocol.Message) {
	if !s.conns.IsConnected(peerID) {
		evt := protocol.Event{
			Kind:      protocol.EventFailed,
			Direction: protocol.DirectionOutbound,
			Message:   msg,
			Err:       ErrNotConnected,
		}
		s.recordExchange(peerID, evt)
		s.behaviour.OnNodeEvent(peerID, evt)
		return
	}

	h := s.handlerFor(peerID)
	s.spawn(func() {
		sctx, span := s.tracer.StartExchange(ctx, peerID, "outbound")
		evt := h.Send(sctx, msg)
		s.recordExchange(peerID, evt)
		s.tracer.RecordMessageSize(span, msg.Len())
		s.tracer.EndSpan(span, evt.Err)
		_ = s.enqueue(nodeEventInput{peer: peerID, event: evt})
	})
}

func (s *Swarm) emit(event eventdispatch.Event) {
	if mapErr := s.config.MapError; mapErr != nil {
		if event.Err != nil {
			event.Err = mapErr(event.Kind, event.Err)
		}
		if failed, ok := event.Payload.(behaviour.GreetingFailed); ok && failed.Err != nil {
			failed.Err = mapErr(event.Kind, failed.Err)
			event.Payload = failed
		}
	}
	if s.events.Emit(event) {
		s.metrics.EventEmitted(event.Kind.String())
	}
}

func (s *Swarm) spawn(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *Swarm) handlerFor(peerID peer.ID) *protocol.Handler {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()

	h, ok := s.handlers[peerID]
	if !ok {
		open := func(ctx context.Context) (protocol.Stream, error) {
			return s.transport.NewStream(ctx, peerID)
		}
		h = protocol.NewHandler(open, s.config.Handler)
		s.handlers[peerID] = h
	}
	return h
}

func (s *Swarm) recordExchange(peerID peer.ID, evt protocol.Event) {
	direction := "outbound"
	if evt.Direction == protocol.DirectionInbound {
		direction = "inbound"
	}

	switch evt.Kind {
	case protocol.EventSent:
		s.metrics.ExchangeResult(direction, "success")
		s.metrics.MessageSent(evt.Message.Len())
		s.stats.MessageSent(peerID, evt.Message.Len())
	case protocol.EventReceived:
		s.metrics.ExchangeResult(direction, "success")
		s.metrics.MessageReceived(evt.Message.Len())
		s.stats.MessageReceived(peerID, evt.Message.Len())
	case protocol.EventFailed:
		s.metrics.ExchangeResult(direction, "failure")
		s.stats.Failure(peerID)
	}
}
