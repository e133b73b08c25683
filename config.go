package gooseberry

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/multiformats/go-multiaddr"
	"go.opentelemetry.io/otel/trace"
)

// Default configuration values.
const (
	DefaultGreeting          = "Hello!"
	DefaultDHTProtocolPrefix = "/golem"
	DefaultDiscoveryTimeout  = 30 * time.Second
	DefaultReconnectMaxDelay = 5 * time.Minute
	DefaultTickInterval      = 1 * time.Second
	DefaultExchangeTimeout   = 10 * time.Second
	DefaultEventBufferSize   = 100
)

// Config holds the configuration for a gooseberry node.
type Config struct {
	// PrivateKey is the Ed25519 private key for this node's identity.
	// This is required and must be provided by the application.
	PrivateKey ed25519.PrivateKey

	// ListenAddrs are the multiaddresses this node will listen on.
	// At least one address is required.
	ListenAddrs []multiaddr.Multiaddr

	// Greeting is the message sent to every newly connected peer.
	Greeting string

	// DisableDiscovery turns off the DHT. Connections still populate
	// the address table.
	DisableDiscovery bool

	// DHTProtocolPrefix namespaces the DHT protocol IDs.
	DHTProtocolPrefix string

	// DHTClientMode runs the DHT as a client that does not answer queries.
	DHTClientMode bool

	// DiscoveryTimeout bounds a single find-node query.
	DiscoveryTimeout time.Duration

	// ReconnectBaseDelay is the delay before redialing a dropped peer.
	// Zero redials immediately.
	ReconnectBaseDelay time.Duration

	// ReconnectMaxDelay is the maximum delay between reconnection attempts
	// after exponential backoff.
	ReconnectMaxDelay time.Duration

	// ReconnectMaxAttempts is the maximum number of reconnection attempts.
	// Set to 0 for unlimited attempts.
	ReconnectMaxAttempts int

	// TickInterval is how often behaviours are polled without new input.
	TickInterval time.Duration

	// ExchangeTimeout bounds one greeting exchange, stream open included.
	ExchangeTimeout time.Duration

	// EventBufferSize is the buffer size for the events channel.
	EventBufferSize int

	// AddressTablePath is the file the peer address table is loaded from
	// at start and saved to at stop. Empty keeps the table in memory.
	AddressTablePath string

	// EnableNAT enables NAT port mapping and hole punching.
	EnableNAT bool

	// Logger is the logger for the node. If nil, a NopLogger is used.
	// The logger must be safe for concurrent use.
	Logger Logger

	// Metrics is the metrics collector for the node. If nil, a NopMetrics is used.
	// The metrics collector must be safe for concurrent use.
	Metrics Metrics

	// TracerProvider supplies the OpenTelemetry tracer. If nil, tracing
	// is disabled.
	TracerProvider trace.TracerProvider
}

// Validate checks that the configuration is valid and returns an error
// describing any problems found.
func (c *Config) Validate() error {
	if c.PrivateKey == nil {
		return ErrMissingPrivateKey
	}
	if len(c.PrivateKey) != ed25519.PrivateKeySize {
		return fmt.Errorf("%w: expected %d bytes, got %d",
			ErrInvalidPrivateKey, ed25519.PrivateKeySize, len(c.PrivateKey))
	}
	if len(c.ListenAddrs) == 0 {
		return ErrMissingListenAddrs
	}
	if c.Greeting != "" {
		if err := ValidateGreeting(c.Greeting); err != nil {
			return err
		}
	}
	if c.DiscoveryTimeout < 0 {
		return fmt.Errorf("%w: discovery timeout cannot be negative", ErrInvalidConfig)
	}
	if c.ReconnectBaseDelay < 0 {
		return fmt.Errorf("%w: reconnect base delay cannot be negative", ErrInvalidConfig)
	}
	if c.ReconnectMaxDelay < 0 {
		return fmt.Errorf("%w: reconnect max delay cannot be negative", ErrInvalidConfig)
	}
	if c.ReconnectMaxDelay > 0 && c.ReconnectMaxDelay < c.ReconnectBaseDelay {
		return fmt.Errorf("%w: reconnect max delay cannot be less than base delay", ErrInvalidConfig)
	}
	if c.ReconnectMaxAttempts < 0 {
		return fmt.Errorf("%w: reconnect max attempts cannot be negative", ErrInvalidConfig)
	}
	if c.TickInterval < 0 {
		return fmt.Errorf("%w: tick interval cannot be negative", ErrInvalidConfig)
	}
	if c.ExchangeTimeout < 0 {
		return fmt.Errorf("%w: exchange timeout cannot be negative", ErrInvalidConfig)
	}
	if c.EventBufferSize < 0 {
		return fmt.Errorf("%w: event buffer size cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// applyDefaults sets default values for any unset optional fields.
// ReconnectBaseDelay and ReconnectMaxAttempts keep their zero values,
// which mean immediate and unlimited redials.
func (c *Config) applyDefaults() {
	if c.Greeting == "" {
		c.Greeting = DefaultGreeting
	}
	if c.DHTProtocolPrefix == "" {
		c.DHTProtocolPrefix = DefaultDHTProtocolPrefix
	}
	if c.DiscoveryTimeout == 0 {
		c.DiscoveryTimeout = DefaultDiscoveryTimeout
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.TickInterval == 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.ExchangeTimeout == 0 {
		c.ExchangeTimeout = DefaultExchangeTimeout
	}
	if c.EventBufferSize == 0 {
		c.EventBufferSize = DefaultEventBufferSize
	}
	if c.Logger == nil {
		c.Logger = NopLogger{}
	}
	if c.Metrics == nil {
		c.Metrics = NopMetrics{}
	}
}

// ConfigOption is a functional option for configuring a Node.
type ConfigOption func(*Config)

// WithGreeting sets the greeting sent to every newly connected peer.
func WithGreeting(greeting string) ConfigOption {
	return func(c *Config) {
		c.Greeting = greeting
	}
}

// WithDiscoveryDisabled turns off the DHT.
func WithDiscoveryDisabled() ConfigOption {
	return func(c *Config) {
		c.DisableDiscovery = true
	}
}

// WithDHTProtocolPrefix sets the DHT protocol prefix.
func WithDHTProtocolPrefix(prefix string) ConfigOption {
	return func(c *Config) {
		c.DHTProtocolPrefix = prefix
	}
}

// WithDHTClientMode runs the DHT in client mode.
func WithDHTClientMode() ConfigOption {
	return func(c *Config) {
		c.DHTClientMode = true
	}
}

// WithDiscoveryTimeout sets the timeout for one find-node query.
func WithDiscoveryTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.DiscoveryTimeout = d
	}
}

// WithReconnectBaseDelay sets the initial reconnection delay.
func WithReconnectBaseDelay(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.ReconnectBaseDelay = d
	}
}

// WithReconnectMaxDelay sets the maximum reconnection delay after backoff.
func WithReconnectMaxDelay(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.ReconnectMaxDelay = d
	}
}

// WithReconnectMaxAttempts sets the maximum number of reconnection attempts.
// Set to 0 for unlimited attempts.
func WithReconnectMaxAttempts(n int) ConfigOption {
	return func(c *Config) {
		c.ReconnectMaxAttempts = n
	}
}

// WithTickInterval sets how often behaviours are polled without new input.
func WithTickInterval(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.TickInterval = d
	}
}

// WithExchangeTimeout sets the timeout for one greeting exchange.
func WithExchangeTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.ExchangeTimeout = d
	}
}

// WithEventBufferSize sets the buffer size for the events channel.
func WithEventBufferSize(size int) ConfigOption {
	return func(c *Config) {
		c.EventBufferSize = size
	}
}

// WithAddressTablePath persists the peer address table at path.
func WithAddressTablePath(path string) ConfigOption {
	return func(c *Config) {
		c.AddressTablePath = path
	}
}

// WithNAT enables NAT port mapping and hole punching.
func WithNAT() ConfigOption {
	return func(c *Config) {
		c.EnableNAT = true
	}
}

// WithLogger sets the logger for the node.
// The logger must be safe for concurrent use.
func WithLogger(l Logger) ConfigOption {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithMetrics sets the metrics collector for the node.
// The metrics collector must be safe for concurrent use.
func WithMetrics(m Metrics) ConfigOption {
	return func(c *Config) {
		c.Metrics = m
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) ConfigOption {
	return func(c *Config) {
		c.TracerProvider = tp
	}
}

// NewConfig creates a new Config with the required fields and applies
// any provided options. It applies defaults for unset optional fields
// but does not validate the configuration.
func NewConfig(
	privateKey ed25519.PrivateKey,
	listenAddrs []multiaddr.Multiaddr,
	opts ...ConfigOption,
) *Config {
	c := &Config{
		PrivateKey:  privateKey,
		ListenAddrs: listenAddrs,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.applyDefaults()
	return c
}
