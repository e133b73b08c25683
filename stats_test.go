package gooseberry

import (
	"sync"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/test"
)

func TestPeerStatsTracker_Connection(t *testing.T) {
	tracker := NewPeerStatsTracker()
	id := test.RandPeerIDFatal(t)

	tracker.RecordConnectionStart(true)
	stats := tracker.Snapshot(id)
	if !stats.Connected || !stats.IsOutbound {
		t.Errorf("after start: Connected=%v IsOutbound=%v, want true/true", stats.Connected, stats.IsOutbound)
	}
	if stats.ConnectionCount != 1 {
		t.Errorf("ConnectionCount = %d, want 1", stats.ConnectionCount)
	}

	time.Sleep(5 * time.Millisecond)
	tracker.RecordConnectionEnd()
	stats = tracker.Snapshot(id)
	if stats.Connected {
		t.Error("peer should not be connected after RecordConnectionEnd")
	}
	if stats.TotalConnectTime <= 0 {
		t.Error("TotalConnectTime should include the finished session")
	}
	if !stats.ConnectedAt.IsZero() {
		t.Error("ConnectedAt should be zero when disconnected")
	}

	tracker.RecordConnectionStart(false)
	stats = tracker.Snapshot(id)
	if stats.IsOutbound || stats.ConnectionCount != 2 {
		t.Errorf("after reconnect: IsOutbound=%v ConnectionCount=%d, want false/2", stats.IsOutbound, stats.ConnectionCount)
	}
}

func TestPeerStatsTracker_EndWithoutStart(t *testing.T) {
	tracker := NewPeerStatsTracker()
	tracker.RecordConnectionEnd()

	if got := tracker.Snapshot("p").TotalConnectTime; got != 0 {
		t.Errorf("TotalConnectTime = %v, want 0", got)
	}
}

func TestPeerStatsTracker_Messages(t *testing.T) {
	tracker := NewPeerStatsTracker()

	tracker.RecordMessageSent(6)
	tracker.RecordMessageReceived(6)
	tracker.RecordMessageReceived(4)
	tracker.RecordFailure()

	stats := tracker.Snapshot("p")
	if stats.MessagesSent != 1 || stats.BytesSent != 6 {
		t.Errorf("sent = %d msgs / %d bytes, want 1 / 6", stats.MessagesSent, stats.BytesSent)
	}
	if stats.MessagesReceived != 2 || stats.BytesReceived != 10 {
		t.Errorf("received = %d msgs / %d bytes, want 2 / 10", stats.MessagesReceived, stats.BytesReceived)
	}
	if stats.FailureCount != 1 {
		t.Errorf("FailureCount = %d, want 1", stats.FailureCount)
	}
	if stats.LastMessageAt.IsZero() {
		t.Error("LastMessageAt should be set")
	}
}

func TestStatsRegistry(t *testing.T) {
	r := newStatsRegistry()
	a := test.RandPeerIDFatal(t)
	b := test.RandPeerIDFatal(t)

	if r.snapshot(a) != nil {
		t.Error("unknown peer should have nil stats")
	}

	r.ConnectionStarted(a, true)
	r.MessageSent(a, 6)
	r.Failure(b)

	if got := r.snapshot(a); got == nil || got.MessagesSent != 1 || !got.Connected {
		t.Errorf("snapshot(a) = %+v, want connected with one message sent", got)
	}
	if got := r.snapshot(b); got == nil || got.FailureCount != 1 {
		t.Errorf("snapshot(b) = %+v, want one failure", got)
	}

	r.ConnectionEnded(a)
	if r.snapshot(a).Connected {
		t.Error("peer a should be disconnected")
	}

	all := r.all()
	if len(all) != 2 {
		t.Errorf("all() has %d peers, want 2", len(all))
	}
}

func TestStatsRegistry_Concurrent(t *testing.T) {
	r := newStatsRegistry()
	id := test.RandPeerIDFatal(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.MessageReceived(id, 1)
			}
		}()
	}
	wg.Wait()

	if got := r.snapshot(id).MessagesReceived; got != 1000 {
		t.Errorf("MessagesReceived = %d, want 1000", got)
	}
}
