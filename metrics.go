package gooseberry

import "github.com/blockberries/gooseberry/pkg/swarm"

// Metrics defines the metrics collection interface for gooseberry.
// It is designed to be compatible with Prometheus and other metrics systems.
//
// Implementations must be safe for concurrent use.
//
// Metric naming convention:
//   - Counters: <name>_total (e.g., connections_opened_total)
//   - Histograms: <name>_bytes (e.g., message_size_bytes)
type Metrics interface {
	// Connection metrics

	// ConnectionOpened increments when the first connection to a peer opens.
	// Labels: direction (inbound, outbound)
	ConnectionOpened(direction string)

	// ConnectionClosed increments when the last connection to a peer closes.
	// Labels: direction (inbound, outbound)
	ConnectionClosed(direction string)

	// DialAttempt records a dial result.
	// Labels: result (success, failure)
	DialAttempt(result string)

	// Exchange metrics

	// ExchangeResult records the outcome of a one-shot exchange.
	// Labels: direction (inbound, outbound), result (success, failure)
	ExchangeResult(direction, result string)

	// MessageSent records a greeting being sent.
	MessageSent(bytes int)

	// MessageReceived records a greeting being received.
	MessageReceived(bytes int)

	// Behaviour metrics

	// ActionExecuted records an action returned by the behaviours.
	// Labels: kind (DialAddress, SendMessage, EmitEvent)
	ActionExecuted(kind string)

	// EventEmitted records an event delivered to the application.
	// Labels: kind (Connected, Disconnected, Behaviour, DialFailed)
	EventEmitted(kind string)

	// EventDropped records an event being dropped due to buffer full.
	EventDropped()
}

var _ swarm.Metrics = (Metrics)(nil)

// NopMetrics is a no-op metrics implementation that discards all metrics.
// It is the default when no metrics collector is configured.
type NopMetrics struct{}

// Ensure NopMetrics implements Metrics.
var _ Metrics = NopMetrics{}

// ConnectionOpened implements Metrics.ConnectionOpened (no-op).
func (NopMetrics) ConnectionOpened(direction string) {}

// ConnectionClosed implements Metrics.ConnectionClosed (no-op).
func (NopMetrics) ConnectionClosed(direction string) {}

// DialAttempt implements Metrics.DialAttempt (no-op).
func (NopMetrics) DialAttempt(result string) {}

// ExchangeResult implements Metrics.ExchangeResult (no-op).
func (NopMetrics) ExchangeResult(direction, result string) {}

// MessageSent implements Metrics.MessageSent (no-op).
func (NopMetrics) MessageSent(bytes int) {}

// MessageReceived implements Metrics.MessageReceived (no-op).
func (NopMetrics) MessageReceived(bytes int) {}

// ActionExecuted implements Metrics.ActionExecuted (no-op).
func (NopMetrics) ActionExecuted(kind string) {}

// EventEmitted implements Metrics.EventEmitted (no-op).
func (NopMetrics) EventEmitted(kind string) {}

// EventDropped implements Metrics.EventDropped (no-op).
func (NopMetrics) EventDropped() {}
