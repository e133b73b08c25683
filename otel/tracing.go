// Package otel provides OpenTelemetry tracing for gooseberry nodes.
//
// # Span Hierarchy
//
// The following spans are created during normal operation:
//
//	gooseberry.dial          (DialAddress actions and Node.Dial)
//	gooseberry.exchange      (one-shot greeting exchanges, either direction)
//	gooseberry.find_node     (DHT find-node queries)
//
// # Attributes
//
// Common span attributes include:
//   - peer.id: The remote peer's ID
//   - net.address: The dialed multiaddr
//   - exchange.direction: "outbound" or "inbound"
//   - message.size: Size of the exchanged message
//   - find_node.target: The peer ID a query looks for
//   - find_node.found: Number of peers a query returned
//
// # Example Usage
//
//	tp := otel.GetTracerProvider()
//	cfg := gooseberry.NewConfig(key, addrs,
//	    gooseberry.WithTracerProvider(tp),
//	)
package otel

import (
	"context"

	"github.com/libp2p/go-libp2p/core/peer"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// TracerName is the name used for the OpenTelemetry tracer.
	TracerName = "github.com/blockberries/gooseberry"

	// Span names
	SpanDial     = "gooseberry.dial"
	SpanExchange = "gooseberry.exchange"
	SpanFindNode = "gooseberry.find_node"

	// Attribute keys
	AttrPeerID            = "peer.id"
	AttrAddress           = "net.address"
	AttrExchangeDirection = "exchange.direction"
	AttrMessageSize       = "message.size"
	AttrFindNodeTarget    = "find_node.target"
	AttrFindNodeFound     = "find_node.found"
	AttrErrorMessage      = "error.message"
)

// Tracer creates spans for dials, exchanges, and discovery queries.
//
// Tracer is safe for concurrent use.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new Tracer using the given TracerProvider.
// If provider is nil, a no-op tracer is used.
func NewTracer(provider trace.TracerProvider) *Tracer {
	if provider == nil {
		return &Tracer{tracer: noop.NewTracerProvider().Tracer(TracerName)}
	}
	return &Tracer{tracer: provider.Tracer(TracerName)}
}

// StartDial starts a span for dialing an address.
func (t *Tracer) StartDial(ctx context.Context, peerID peer.ID, addr string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanDial,
		trace.WithAttributes(
			attribute.String(AttrPeerID, peerID.String()),
			attribute.String(AttrAddress, addr),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartExchange starts a span for a one-shot exchange. direction is
// "outbound" or "inbound".
func (t *Tracer) StartExchange(ctx context.Context, peerID peer.ID, direction string) (context.Context, trace.Span) {
	kind := trace.SpanKindProducer
	if direction == "inbound" {
		kind = trace.SpanKindConsumer
	}
	return t.tracer.Start(ctx, SpanExchange,
		trace.WithAttributes(
			attribute.String(AttrPeerID, peerID.String()),
			attribute.String(AttrExchangeDirection, direction),
		),
		trace.WithSpanKind(kind),
	)
}

// StartFindNode starts a span for a find-node query.
func (t *Tracer) StartFindNode(ctx context.Context, target peer.ID) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanFindNode,
		trace.WithAttributes(
			attribute.String(AttrFindNodeTarget, target.String()),
		),
	)
}

// RecordMessageSize records the exchanged message size on the given span.
func (t *Tracer) RecordMessageSize(span trace.Span, size int) {
	span.SetAttributes(attribute.Int(AttrMessageSize, size))
}

// RecordFound records how many peers a find-node query returned.
func (t *Tracer) RecordFound(span trace.Span, found int) {
	span.SetAttributes(attribute.Int(AttrFindNodeFound, found))
}

// RecordError records an error on the given span.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
}

// EndSpan ends a span, marking it failed if err is not nil.
func (t *Tracer) EndSpan(span trace.Span, err error) {
	if err != nil {
		t.RecordError(span, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
