package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

const (
	// DefaultExchangeTimeout bounds a single exchange, stream open included.
	DefaultExchangeTimeout = 10 * time.Second

	// DefaultExchangeHistory is how many finished exchanges a Handler keeps.
	DefaultExchangeHistory = 16
)

// ErrInvalidExchangeTransition indicates an invalid exchange state transition.
var ErrInvalidExchangeTransition = errors.New("invalid exchange state transition")

// Direction is the side of an exchange relative to the local node.
type Direction int

const (
	// DirectionOutbound is an exchange the local node initiated.
	DirectionOutbound Direction = iota

	// DirectionInbound is an exchange the remote peer initiated.
	DirectionInbound
)

// String returns a human-readable name for the direction.
func (d Direction) String() string {
	switch d {
	case DirectionOutbound:
		return "Outbound"
	case DirectionInbound:
		return "Inbound"
	default:
		return fmt.Sprintf("Direction(%d)", d)
	}
}

// ExchangeState is the state of one one-shot exchange.
type ExchangeState int

const (
	// ExchangeIdle is the state before the stream upgrade starts.
	ExchangeIdle ExchangeState = iota

	// ExchangeUpgrading indicates the frame is being read or written.
	ExchangeUpgrading

	// ExchangeCompleted indicates the frame was transferred.
	ExchangeCompleted

	// ExchangeFailed indicates the exchange failed. It is never retried.
	ExchangeFailed
)

// String returns a human-readable name for the exchange state.
func (s ExchangeState) String() string {
	switch s {
	case ExchangeIdle:
		return "Idle"
	case ExchangeUpgrading:
		return "Upgrading"
	case ExchangeCompleted:
		return "Completed"
	case ExchangeFailed:
		return "Failed"
	default:
		return fmt.Sprintf("ExchangeState(%d)", s)
	}
}

// IsTerminal returns true for Completed and Failed.
func (s ExchangeState) IsTerminal() bool {
	return s == ExchangeCompleted || s == ExchangeFailed
}

// CanTransitionTo checks if a transition to target is valid.
func (s ExchangeState) CanTransitionTo(target ExchangeState) bool {
	switch s {
	case ExchangeIdle:
		return target == ExchangeUpgrading || target == ExchangeFailed
	case ExchangeUpgrading:
		return target == ExchangeCompleted || target == ExchangeFailed
	default:
		return false
	}
}

// EventKind is the outcome reported for an exchange.
type EventKind int

const (
	// EventSent reports a completed outbound exchange.
	EventSent EventKind = iota

	// EventReceived reports a completed inbound exchange.
	EventReceived

	// EventFailed reports a failed exchange in either direction.
	EventFailed
)

// String returns a human-readable name for the event kind.
func (k EventKind) String() string {
	switch k {
	case EventSent:
		return "Sent"
	case EventReceived:
		return "Received"
	case EventFailed:
		return "Failed"
	default:
		return fmt.Sprintf("EventKind(%d)", k)
	}
}

// Event is what a finished exchange surfaces to its owning behaviour.
type Event struct {
	Kind      EventKind
	Direction Direction

	// Message is the frame that was sent or received.
	Message Message

	// Err is set for EventFailed.
	Err error
}

// Exchange is one one-shot transfer and its state.
type Exchange struct {
	ID         uint64
	Direction  Direction
	State      ExchangeState
	Message    Message
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

func (x *Exchange) transition(target ExchangeState) error {
	if !x.State.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidExchangeTransition, x.State, target)
	}
	x.State = target
	if target.IsTerminal() {
		x.FinishedAt = time.Now()
	}
	return nil
}

// Stream is the byte stream an exchange runs on. network.Stream satisfies it,
// as does net.Conn. Streams that also implement Reset() are reset on failure.
type Stream interface {
	io.ReadWriteCloser
	SetDeadline(time.Time) error
}

// OpenFunc opens a new outbound stream to the handler's peer,
// already negotiated to ProtocolID.
type OpenFunc func(ctx context.Context) (Stream, error)

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	// Timeout bounds one exchange. Zero uses DefaultExchangeTimeout.
	Timeout time.Duration

	// HistorySize is how many finished exchanges are kept.
	// Zero uses DefaultExchangeHistory.
	HistorySize int
}

// Handler drives one-shot exchanges for a single connection.
// Each call to Send or Accept is an independent Exchange; exchanges in the
// same direction run one at a time. Handler is safe for concurrent use.
type Handler struct {
	open    OpenFunc
	timeout time.Duration

	outbound sync.Mutex
	inbound  sync.Mutex

	mu          sync.Mutex
	nextID      uint64
	history     []Exchange
	historySize int
}

// NewHandler creates a handler that opens outbound streams with open.
func NewHandler(open OpenFunc, cfg HandlerConfig) *Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultExchangeTimeout
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultExchangeHistory
	}
	return &Handler{
		open:        open,
		timeout:     cfg.Timeout,
		historySize: cfg.HistorySize,
	}
}

// Send runs an outbound exchange carrying msg.
// It returns EventSent on success and EventFailed otherwise.
func (h *Handler) Send(ctx context.Context, msg Message) Event {
	h.outbound.Lock()
	defer h.outbound.Unlock()

	x := h.begin(DirectionOutbound)
	x.Message = msg

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := x.transition(ExchangeUpgrading); err != nil {
		return h.fail(x, err, nil)
	}

	if msg.Len() >= MaxMessageSize {
		return h.fail(x, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, msg.Len()), nil)
	}
	if h.open == nil {
		return h.fail(x, fmt.Errorf("%w: no outbound stream opener", ErrWriteFailed), nil)
	}
	s, err := h.open(ctx)
	if err != nil {
		return h.fail(x, fmt.Errorf("%w: open stream: %w", ErrWriteFailed, err), nil)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.SetDeadline(deadline)
	}

	if err := WriteMessage(s, msg); err != nil {
		return h.fail(x, err, s)
	}
	if err := s.Close(); err != nil {
		return h.fail(x, fmt.Errorf("%w: close stream: %w", ErrWriteFailed, err), nil)
	}

	return h.complete(x, Event{Kind: EventSent, Direction: DirectionOutbound, Message: msg})
}

// Accept runs an inbound exchange on a stream the remote peer opened.
// It returns EventReceived on success and EventFailed otherwise.
func (h *Handler) Accept(s Stream) Event {
	h.inbound.Lock()
	defer h.inbound.Unlock()

	x := h.begin(DirectionInbound)
	if err := x.transition(ExchangeUpgrading); err != nil {
		return h.fail(x, err, s)
	}
	_ = s.SetDeadline(time.Now().Add(h.timeout))

	msg, err := ReadMessage(s)
	if err != nil {
		return h.fail(x, err, s)
	}
	_ = s.Close()

	x.Message = msg
	return h.complete(x, Event{Kind: EventReceived, Direction: DirectionInbound, Message: msg})
}

// Exchanges returns the finished exchanges, oldest first.
func (h *Handler) Exchanges() []Exchange {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Exchange, len(h.history))
	copy(out, h.history)
	return out
}

func (h *Handler) begin(dir Direction) *Exchange {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	return &Exchange{
		ID:        h.nextID,
		Direction: dir,
		State:     ExchangeIdle,
		StartedAt: time.Now(),
	}
}

func (h *Handler) complete(x *Exchange, evt Event) Event {
	_ = x.transition(ExchangeCompleted) // Upgrading -> Completed
	h.record(x)
	return evt
}

func (h *Handler) fail(x *Exchange, err error, s Stream) Event {
	if s != nil {
		if r, ok := s.(interface{ Reset() error }); ok {
			_ = r.Reset()
		} else {
			_ = s.Close()
		}
	}

	x.Err = err
	_ = x.transition(ExchangeFailed) // Idle and Upgrading both lead to Failed
	h.record(x)
	return Event{Kind: EventFailed, Direction: x.Direction, Message: x.Message, Err: err}
}

func (h *Handler) record(x *Exchange) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.history = append(h.history, *x)
	if len(h.history) > h.historySize {
		h.history = h.history[len(h.history)-h.historySize:]
	}
}
