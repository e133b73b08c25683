package gooseberry

import (
	"context"
	"errors"
	"fmt"

	"github.com/blockberries/gooseberry/pkg/protocol"
	"github.com/blockberries/gooseberry/pkg/swarm"
	"github.com/libp2p/go-libp2p/core/peer"
)

// ErrorCode identifies the type of error for programmatic handling.
type ErrorCode int

const (
	// ErrCodeUnknown indicates an unknown or unclassified error.
	ErrCodeUnknown ErrorCode = iota

	// ErrCodeTransportRead indicates reading a frame from a stream failed.
	ErrCodeTransportRead

	// ErrCodeFrameTooLarge indicates a frame at or above the size limit.
	ErrCodeFrameTooLarge

	// ErrCodeDecode indicates a frame that is not valid UTF-8.
	ErrCodeDecode

	// ErrCodeWrite indicates opening or writing a stream failed.
	ErrCodeWrite

	// ErrCodeDial indicates a dial attempt failed.
	ErrCodeDial

	// ErrCodeUnknownPeer indicates no address is known for the peer.
	ErrCodeUnknownPeer

	// ErrCodeNotConnected indicates there is no live connection to the peer.
	ErrCodeNotConnected

	// ErrCodeContextCanceled indicates the operation was cancelled via context.
	ErrCodeContextCanceled

	// ErrCodeInvalidConfig indicates the configuration is invalid.
	ErrCodeInvalidConfig

	// ErrCodeNodeNotStarted indicates the node has not been started.
	ErrCodeNodeNotStarted

	// ErrCodeNodeAlreadyStarted indicates the node is already running.
	ErrCodeNodeAlreadyStarted
)

// String returns a human-readable name for the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeUnknown:
		return "Unknown"
	case ErrCodeTransportRead:
		return "TransportRead"
	case ErrCodeFrameTooLarge:
		return "FrameTooLarge"
	case ErrCodeDecode:
		return "Decode"
	case ErrCodeWrite:
		return "Write"
	case ErrCodeDial:
		return "Dial"
	case ErrCodeUnknownPeer:
		return "UnknownPeer"
	case ErrCodeNotConnected:
		return "NotConnected"
	case ErrCodeContextCanceled:
		return "ContextCanceled"
	case ErrCodeInvalidConfig:
		return "InvalidConfig"
	case ErrCodeNodeNotStarted:
		return "NodeNotStarted"
	case ErrCodeNodeAlreadyStarted:
		return "NodeAlreadyStarted"
	default:
		return fmt.Sprintf("ErrorCode(%d)", c)
	}
}

// Error represents a gooseberry error with rich context.
// It provides structured information for programmatic error handling.
type Error struct {
	// Code identifies the type of error.
	Code ErrorCode

	// Message is a human-readable description of the error.
	Message string

	// PeerID is the peer associated with the error, if any.
	PeerID peer.ID

	// Cause is the underlying error, if any.
	Cause error

	// Retriable indicates whether the operation can be retried.
	Retriable bool
}

// Error returns a human-readable error message.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("gooseberry: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("gooseberry: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// Two gooseberry errors are considered equal if they have the same error code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// IsRetriable returns true if the error indicates a retriable operation.
func IsRetriable(err error) bool {
	var gErr *Error
	if errors.As(err, &gErr) {
		return gErr.Retriable
	}
	return false
}

// IsPermanent returns true if the error indicates a permanent failure.
// Permanent failures should not be retried.
func IsPermanent(err error) bool {
	var gErr *Error
	if errors.As(err, &gErr) {
		switch gErr.Code {
		case ErrCodeInvalidConfig, ErrCodeFrameTooLarge, ErrCodeDecode:
			return true
		}
	}
	return false
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Retriable: retriable(code),
	}
}

// NewErrorWithCause creates a new Error with the given code, message, and cause.
func NewErrorWithCause(code ErrorCode, message string, cause error) *Error {
	e := NewError(code, message)
	e.Cause = cause
	return e
}

// NewPeerError creates a new Error associated with a specific peer.
func NewPeerError(code ErrorCode, message string, peerID peer.ID) *Error {
	e := NewError(code, message)
	e.PeerID = peerID
	return e
}

func retriable(code ErrorCode) bool {
	switch code {
	case ErrCodeTransportRead, ErrCodeWrite, ErrCodeDial, ErrCodeNotConnected:
		return true
	}
	return false
}

// ClassifyError wraps err in an *Error whose code reflects the failure.
// The node applies it to the errors carried by DialFailed events and
// GreetingFailed payloads. It returns nil for a nil error and err itself
// when it already is an *Error.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var gErr *Error
	if errors.As(err, &gErr) {
		return gErr
	}

	var code ErrorCode
	var message string
	switch {
	case errors.Is(err, protocol.ErrFrameTooLarge):
		code, message = ErrCodeFrameTooLarge, "frame too large"
	case errors.Is(err, protocol.ErrDecode):
		code, message = ErrCodeDecode, "invalid message encoding"
	case errors.Is(err, protocol.ErrReadFailed):
		code, message = ErrCodeTransportRead, "read failed"
	case errors.Is(err, protocol.ErrWriteFailed):
		code, message = ErrCodeWrite, "write failed"
	case errors.Is(err, swarm.ErrNotConnected):
		code, message = ErrCodeNotConnected, "not connected"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code, message = ErrCodeContextCanceled, "operation cancelled"
	case errors.Is(err, ErrInvalidConfig):
		code, message = ErrCodeInvalidConfig, "invalid configuration"
	case errors.Is(err, ErrNodeNotStarted):
		code, message = ErrCodeNodeNotStarted, "node not started"
	case errors.Is(err, ErrNodeAlreadyStarted):
		code, message = ErrCodeNodeAlreadyStarted, "node already started"
	case errors.Is(err, ErrUnknownPeer):
		code, message = ErrCodeUnknownPeer, "unknown peer"
	default:
		code, message = ErrCodeUnknown, "unclassified error"
	}
	return NewErrorWithCause(code, message, err)
}

// classifyEventError is the swarm's error mapper. Transport dial errors
// carry no sentinel, so an unclassified dial failure becomes ErrCodeDial.
func classifyEventError(kind EventKind, err error) error {
	gErr := ClassifyError(err)
	if gErr == nil {
		return nil
	}
	if kind == EventDialFailed && gErr.Code == ErrCodeUnknown {
		return NewErrorWithCause(ErrCodeDial, "dial failed", err)
	}
	return gErr
}

// Sentinel errors for peer operations.
var (
	// ErrUnknownPeer indicates no address is known for the peer yet.
	ErrUnknownPeer = errors.New("no known address for peer")

	// ErrInvalidDialAddr indicates a dial address without a /p2p component.
	ErrInvalidDialAddr = errors.New("dial address must include /p2p/<peer-id>")
)

// Sentinel errors for configuration.
var (
	// ErrInvalidConfig indicates the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMissingPrivateKey indicates no private key was provided.
	ErrMissingPrivateKey = errors.New("private key is required")

	// ErrInvalidPrivateKey indicates the provided private key is invalid.
	ErrInvalidPrivateKey = errors.New("invalid private key")

	// ErrMissingListenAddrs indicates no listen addresses were provided.
	ErrMissingListenAddrs = errors.New("at least one listen address is required")

	// ErrInvalidGreeting indicates a greeting that cannot be sent.
	ErrInvalidGreeting = errors.New("invalid greeting")
)

// Sentinel errors for node operations.
var (
	// ErrNodeNotStarted indicates the node has not been started.
	ErrNodeNotStarted = errors.New("node not started")

	// ErrNodeAlreadyStarted indicates the node is already running.
	ErrNodeAlreadyStarted = errors.New("node already started")

	// ErrNodeStopped indicates the node has been stopped and cannot restart.
	ErrNodeStopped = errors.New("node stopped")
)
