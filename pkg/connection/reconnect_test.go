package connection

import (
	"fmt"
	"testing"
	"time"
)

func TestBackoffCalculator_NextDelay(t *testing.T) {
	bc := NewBackoffCalculator(1*time.Second, 1*time.Minute)

	tests := []struct {
		attempt  int
		minDelay time.Duration
		maxDelay time.Duration
	}{
		{0, 900 * time.Millisecond, 1100 * time.Millisecond},
		{1, 1800 * time.Millisecond, 2200 * time.Millisecond},
		{2, 3600 * time.Millisecond, 4400 * time.Millisecond},
		{3, 7200 * time.Millisecond, 8800 * time.Millisecond},
		{10, 54 * time.Second, 66 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			delay := bc.NextDelay(tt.attempt)
			if delay < tt.minDelay || delay > tt.maxDelay {
				t.Errorf("NextDelay(%d) = %v, want between %v and %v",
					tt.attempt, delay, tt.minDelay, tt.maxDelay)
			}
		})
	}
}

func TestBackoffCalculator_NextDelay_NegativeAttempt(t *testing.T) {
	bc := NewBackoffCalculator(1*time.Second, 1*time.Minute)

	delay := bc.NextDelay(-1)
	if delay < 900*time.Millisecond || delay > 1100*time.Millisecond {
		t.Errorf("NextDelay(-1) = %v, should treat as attempt 0", delay)
	}
}

func TestBackoffCalculator_ZeroBaseDisablesBackoff(t *testing.T) {
	bc := NewBackoffCalculator(0, 0)

	for attempt := 0; attempt < 5; attempt++ {
		if d := bc.NextDelay(attempt); d != 0 {
			t.Errorf("NextDelay(%d) = %v, want 0", attempt, d)
		}
	}
}

func TestBackoffCalculator_MaxBelowBase(t *testing.T) {
	bc := NewBackoffCalculator(2*time.Second, time.Second)
	if bc.MaxDelay != 2*time.Second {
		t.Errorf("MaxDelay = %v, want clamp to base delay", bc.MaxDelay)
	}
}

func TestBackoffCalculator_ScheduleNext(t *testing.T) {
	bc := NewBackoffCalculator(1*time.Second, 1*time.Minute)
	rs := &ReconnectState{}

	now := time.Unix(1000, 0)
	bc.ScheduleNext(rs, now)

	if rs.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", rs.Attempts)
	}
	if rs.NextAttempt != now.Add(rs.CurrentDelay) {
		t.Errorf("NextAttempt = %v, want now + %v", rs.NextAttempt, rs.CurrentDelay)
	}

	bc.ScheduleNext(rs, now)
	if rs.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2 after second schedule", rs.Attempts)
	}
	if rs.CurrentDelay < 1800*time.Millisecond {
		t.Errorf("CurrentDelay = %v, want about 2s after second schedule", rs.CurrentDelay)
	}
}

func TestBackoffCalculator_MaxDelay(t *testing.T) {
	bc := NewBackoffCalculator(1*time.Second, 5*time.Second)

	for attempt := 10; attempt < 20; attempt++ {
		delay := bc.NextDelay(attempt)
		if delay > 5500*time.Millisecond {
			t.Errorf("NextDelay(%d) = %v, should be capped around max delay 5s (with jitter)", attempt, delay)
		}
	}
}

func TestShouldRetry_Unlimited(t *testing.T) {
	for attempts := 0; attempts < 1000; attempts++ {
		if !ShouldRetry(attempts, 0) {
			t.Errorf("ShouldRetry(%d, 0) = false, want true (unlimited)", attempts)
		}
	}
}

func TestShouldRetry_Limited(t *testing.T) {
	maxAttempts := 5

	tests := []struct {
		attempts    int
		shouldRetry bool
	}{
		{0, true},
		{1, true},
		{4, true},
		{5, false},
		{6, false},
		{100, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempts_%d", tt.attempts), func(t *testing.T) {
			got := ShouldRetry(tt.attempts, maxAttempts)
			if got != tt.shouldRetry {
				t.Errorf("ShouldRetry(%d, %d) = %v, want %v",
					tt.attempts, maxAttempts, got, tt.shouldRetry)
			}
		})
	}
}
