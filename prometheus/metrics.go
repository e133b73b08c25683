// Package prometheus provides a Prometheus implementation of the gooseberry.Metrics interface.
//
// All metrics are registered with the default Prometheus registry unless a
// custom registerer is supplied, and follow Prometheus naming conventions.
//
// # Metric Names
//
// All metrics use the configured namespace prefix (default: "gooseberry").
//
// # Counters
//
//	gooseberry_connections_opened_total{direction="inbound|outbound"}
//	gooseberry_connections_closed_total{direction="inbound|outbound"}
//	gooseberry_dial_attempts_total{result="success|failure"}
//	gooseberry_exchange_results_total{direction="inbound|outbound",result="success|failure"}
//	gooseberry_messages_sent_total
//	gooseberry_messages_received_total
//	gooseberry_bytes_sent_total
//	gooseberry_bytes_received_total
//	gooseberry_actions_executed_total{kind="<action>"}
//	gooseberry_events_emitted_total{kind="<kind>"}
//	gooseberry_events_dropped_total
//
// # Histograms
//
//	gooseberry_message_size_bytes{direction="inbound|outbound"}
//
// # Example Usage
//
//	import (
//	    "github.com/blockberries/gooseberry"
//	    prommetrics "github.com/blockberries/gooseberry/prometheus"
//	    "github.com/prometheus/client_golang/prometheus/promhttp"
//	)
//
//	func main() {
//	    metrics := prommetrics.NewMetrics("myapp")
//
//	    cfg := gooseberry.NewConfig(key, addrs,
//	        gooseberry.WithMetrics(metrics),
//	    )
//
//	    node, err := gooseberry.New(cfg)
//	    // ...
//
//	    http.Handle("/metrics", promhttp.Handler())
//	    http.ListenAndServe(":9090", nil)
//	}
package prometheus

import (
	"github.com/blockberries/gooseberry"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace is the default namespace for all metrics.
const DefaultNamespace = "gooseberry"

// Metrics implements the gooseberry.Metrics interface using Prometheus metrics.
//
// Metrics is safe for concurrent use.
type Metrics struct {
	// Connection metrics
	connectionsOpened *prometheus.CounterVec
	connectionsClosed *prometheus.CounterVec
	dialAttempts      *prometheus.CounterVec

	// Exchange metrics
	exchangeResults  *prometheus.CounterVec
	messagesSent     prometheus.Counter
	messagesReceived prometheus.Counter
	bytesSent        prometheus.Counter
	bytesReceived    prometheus.Counter
	messageSize      *prometheus.HistogramVec

	// Behaviour metrics
	actionsExecuted *prometheus.CounterVec
	eventsEmitted   *prometheus.CounterVec
	eventsDropped   prometheus.Counter
}

// Ensure Metrics implements gooseberry.Metrics.
var _ gooseberry.Metrics = (*Metrics)(nil)

// NewMetrics creates a new Prometheus metrics collector with the given namespace.
// If namespace is empty, DefaultNamespace ("gooseberry") is used.
//
// All metrics are automatically registered with the default Prometheus registry.
// If registration fails (e.g., metrics already registered), this function will panic.
// To avoid panics, use NewMetricsWithRegisterer with a custom registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates a new Prometheus metrics collector with the given
// namespace and registerer. This allows using a custom registry for testing or
// to avoid conflicts with other metrics.
//
// If namespace is empty, DefaultNamespace ("gooseberry") is used.
// If registerer is nil, metrics will not be registered automatically.
func NewMetricsWithRegisterer(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	}

	m := &Metrics{
		connectionsOpened: counterVec("connections_opened_total",
			"Total number of peers that became connected", "direction"),
		connectionsClosed: counterVec("connections_closed_total",
			"Total number of peers whose last connection closed", "direction"),
		dialAttempts: counterVec("dial_attempts_total",
			"Total number of dial attempts by result", "result"),
		exchangeResults: counterVec("exchange_results_total",
			"Total number of one-shot exchanges by direction and outcome", "direction", "result"),
		messagesSent:     counter("messages_sent_total", "Total number of greetings sent"),
		messagesReceived: counter("messages_received_total", "Total number of greetings received"),
		bytesSent:        counter("bytes_sent_total", "Total greeting payload bytes sent"),
		bytesReceived:    counter("bytes_received_total", "Total greeting payload bytes received"),
		messageSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "message_size_bytes",
				Help:      "Histogram of greeting payload sizes",
				Buckets:   prometheus.ExponentialBuckets(16, 4, 5),
			},
			[]string{"direction"},
		),
		actionsExecuted: counterVec("actions_executed_total",
			"Total number of behaviour actions executed by kind", "kind"),
		eventsEmitted: counterVec("events_emitted_total",
			"Total number of events delivered by kind", "kind"),
		eventsDropped: counter("events_dropped_total",
			"Total number of events dropped due to buffer full"),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.connectionsOpened,
			m.connectionsClosed,
			m.dialAttempts,
			m.exchangeResults,
			m.messagesSent,
			m.messagesReceived,
			m.bytesSent,
			m.bytesReceived,
			m.messageSize,
			m.actionsExecuted,
			m.eventsEmitted,
			m.eventsDropped,
		)
	}

	return m
}

// ConnectionOpened implements gooseberry.Metrics.
func (m *Metrics) ConnectionOpened(direction string) {
	m.connectionsOpened.WithLabelValues(direction).Inc()
}

// ConnectionClosed implements gooseberry.Metrics.
func (m *Metrics) ConnectionClosed(direction string) {
	m.connectionsClosed.WithLabelValues(direction).Inc()
}

// DialAttempt implements gooseberry.Metrics.
func (m *Metrics) DialAttempt(result string) {
	m.dialAttempts.WithLabelValues(result).Inc()
}

// ExchangeResult implements gooseberry.Metrics.
func (m *Metrics) ExchangeResult(direction, result string) {
	m.exchangeResults.WithLabelValues(direction, result).Inc()
}

// MessageSent implements gooseberry.Metrics.
func (m *Metrics) MessageSent(bytes int) {
	m.messagesSent.Inc()
	m.bytesSent.Add(float64(bytes))
	m.messageSize.WithLabelValues("outbound").Observe(float64(bytes))
}

// MessageReceived implements gooseberry.Metrics.
func (m *Metrics) MessageReceived(bytes int) {
	m.messagesReceived.Inc()
	m.bytesReceived.Add(float64(bytes))
	m.messageSize.WithLabelValues("inbound").Observe(float64(bytes))
}

// ActionExecuted implements gooseberry.Metrics.
func (m *Metrics) ActionExecuted(kind string) {
	m.actionsExecuted.WithLabelValues(kind).Inc()
}

// EventEmitted implements gooseberry.Metrics.
func (m *Metrics) EventEmitted(kind string) {
	m.eventsEmitted.WithLabelValues(kind).Inc()
}

// EventDropped implements gooseberry.Metrics.
func (m *Metrics) EventDropped() {
	m.eventsDropped.Inc()
}
