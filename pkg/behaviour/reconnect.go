package behaviour

import (
	"sort"
	"time"

	"github.com/blockberries/gooseberry/pkg/connection"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
)

// ReconnectConfig configures the Reconnect behaviour.
// The zero value redials immediately and without limit.
type ReconnectConfig struct {
	// BaseDelay is the delay before the first redial of an address.
	// Zero redials immediately.
	BaseDelay time.Duration

	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration

	// MaxAttempts caps redials of one address. Zero means unlimited.
	MaxAttempts int

	// StableAfter is how long a redialed connection must stay up before
	// the address's attempt count resets. Zero uses MaxDelay.
	StableAfter time.Duration
}

type scheduledDial struct {
	addr multiaddr.Multiaddr
	due  time.Time
}

// Reconnect redials peers this node dialed once their connection drops.
// Connections the remote side initiated are not redialed.
type Reconnect struct {
	config  ReconnectConfig
	backoff *connection.BackoffCalculator
	now     func() time.Time

	queue     ActionQueue
	scheduled []scheduledDial
	attempts  map[string]*connection.ReconnectState
	upSince   map[string]time.Time

	logger Logger
}

// NewReconnect creates a reconnect behaviour.
func NewReconnect(cfg ReconnectConfig, logger Logger) *Reconnect {
	if cfg.StableAfter <= 0 {
		cfg.StableAfter = cfg.MaxDelay
	}
	return &Reconnect{
		config:   cfg,
		backoff:  connection.NewBackoffCalculator(cfg.BaseDelay, cfg.MaxDelay),
		now:      time.Now,
		attempts: make(map[string]*connection.ReconnectState),
		upSince:  make(map[string]time.Time),
		logger:   orNop(logger),
	}
}

// Name implements Behaviour.
func (r *Reconnect) Name() string {
	return "reconnect"
}

// OnConnected records when a dialed address came up.
func (r *Reconnect) OnConnected(_ peer.ID, ep connection.Endpoint) {
	if !ep.IsDialer() || ep.Address == nil {
		return
	}
	r.upSince[ep.Address.String()] = r.now()
}

// OnDisconnected schedules a redial of the endpoint address if this node
// dialed it.
func (r *Reconnect) OnDisconnected(peerID peer.ID, ep connection.Endpoint) {
	if !ep.IsDialer() || ep.Address == nil {
		return
	}

	key := ep.Address.String()
	now := r.now()

	rs, ok := r.attempts[key]
	if !ok {
		rs = &connection.ReconnectState{}
		r.attempts[key] = rs
	}
	if since, up := r.upSince[key]; up && r.config.StableAfter > 0 && now.Sub(since) >= r.config.StableAfter {
		rs.Attempts = 0
	}
	delete(r.upSince, key)

	if !connection.ShouldRetry(rs.Attempts, r.config.MaxAttempts) {
		r.logger.Warn("giving up on reconnection",
			"peer", peerID,
			"address", ep.Address,
			"attempts", rs.Attempts,
		)
		r.queue.Push(EmitEvent{Payload: ReconnectAbandoned{Address: ep.Address, Attempts: rs.Attempts}})
		return
	}

	r.backoff.ScheduleNext(rs, now)
	if rs.CurrentDelay <= 0 {
		r.queue.Push(DialAddress{Address: ep.Address})
		return
	}

	r.logger.Debug("reconnection scheduled",
		"peer", peerID,
		"address", ep.Address,
		"attempt", rs.Attempts,
		"delay", rs.CurrentDelay,
	)
	r.scheduled = append(r.scheduled, scheduledDial{addr: ep.Address, due: rs.NextAttempt})
	sort.SliceStable(r.scheduled, func(i, j int) bool {
		return r.scheduled[i].due.Before(r.scheduled[j].due)
	})
}

// OnNodeEvent implements Behaviour.
func (r *Reconnect) OnNodeEvent(peer.ID, any) {}

// Poll returns the oldest ready dial.
func (r *Reconnect) Poll(params PollParameters) (Action, bool) {
	now := params.Now
	if now.IsZero() {
		now = r.now()
	}

	due := 0
	for due < len(r.scheduled) && !r.scheduled[due].due.After(now) {
		r.queue.Push(DialAddress{Address: r.scheduled[due].addr})
		due++
	}
	if due > 0 {
		r.scheduled = append(r.scheduled[:0], r.scheduled[due:]...)
	}

	return r.queue.Pop()
}

// Pending returns the number of queued and scheduled actions.
func (r *Reconnect) Pending() int {
	return r.queue.Len() + len(r.scheduled)
}
