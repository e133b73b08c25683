package swarm

import "github.com/libp2p/go-libp2p/core/peer"

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type nopMetrics struct{}

func (nopMetrics) ConnectionOpened(string)       {}
func (nopMetrics) ConnectionClosed(string)       {}
func (nopMetrics) DialAttempt(string)            {}
func (nopMetrics) ExchangeResult(string, string) {}
func (nopMetrics) MessageSent(int)               {}
func (nopMetrics) MessageReceived(int)           {}
func (nopMetrics) ActionExecuted(string)         {}
func (nopMetrics) EventEmitted(string)           {}
func (nopMetrics) EventDropped()                 {}

type nopStats struct{}

func (nopStats) ConnectionStarted(peer.ID, bool) {}
func (nopStats) ConnectionEnded(peer.ID)         {}
func (nopStats) Failure(peer.ID)                 {}
func (nopStats) MessageSent(peer.ID, int)        {}
func (nopStats) MessageReceived(peer.ID, int)    {}
