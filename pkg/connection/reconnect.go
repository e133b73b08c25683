package connection

import (
	"math/rand"
	"time"
)

// ReconnectState tracks the reconnection attempts for one dial address.
type ReconnectState struct {
	// Attempts is the number of reconnection attempts scheduled.
	Attempts int

	// NextAttempt is the time of the next reconnection attempt.
	NextAttempt time.Time

	// CurrentDelay is the current backoff delay.
	CurrentDelay time.Duration
}

// BackoffCalculator calculates the next backoff delay with exponential backoff.
// A zero BaseDelay disables backoff: every delay is zero.
type BackoffCalculator struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// NewBackoffCalculator creates a new backoff calculator.
func NewBackoffCalculator(baseDelay, maxDelay time.Duration) *BackoffCalculator {
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	return &BackoffCalculator{
		BaseDelay: baseDelay,
		MaxDelay:  maxDelay,
	}
}

// NextDelay calculates the delay for the given attempt number:
// BaseDelay * 2^attempt capped at MaxDelay, with ±10% jitter.
func (bc *BackoffCalculator) NextDelay(attempt int) time.Duration {
	if bc.BaseDelay <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}

	delay := bc.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= bc.MaxDelay {
			delay = bc.MaxDelay
			break
		}
	}
	if delay > bc.MaxDelay {
		delay = bc.MaxDelay
	}

	// ±10% so peers that lost the same link do not redial in lockstep.
	jitter := time.Duration(float64(delay) * 0.1 * (2*rand.Float64() - 1))
	delay += jitter
	if delay < 0 {
		delay = bc.BaseDelay
	}
	return delay
}

// ScheduleNext schedules the next attempt relative to now.
func (bc *BackoffCalculator) ScheduleNext(rs *ReconnectState, now time.Time) {
	rs.CurrentDelay = bc.NextDelay(rs.Attempts)
	rs.NextAttempt = now.Add(rs.CurrentDelay)
	rs.Attempts++
}

// ShouldRetry determines if reconnection should be attempted based on
// the maximum attempt limit. A maxAttempts of 0 means unlimited.
func ShouldRetry(attempts, maxAttempts int) bool {
	if maxAttempts == 0 {
		return true
	}
	return attempts < maxAttempts
}
