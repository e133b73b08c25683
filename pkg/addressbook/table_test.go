package addressbook

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
)

func mustParsePeerID(t *testing.T, s string) peer.ID {
	t.Helper()
	id, err := peer.Decode(s)
	if err != nil {
		t.Fatalf("failed to parse peer ID %q: %v", s, err)
	}
	return id
}

func mustParseMultiaddr(t *testing.T, s string) multiaddr.Multiaddr {
	t.Helper()
	ma, err := multiaddr.NewMultiaddr(s)
	if err != nil {
		t.Fatalf("failed to parse multiaddr %q: %v", s, err)
	}
	return ma
}

const testPeerIDStr = "QmYyQSo1c1Ym7orWxLYvCrM2EmxFTANf8wXmmE7DWjhx5N"
const testPeerID2Str = "QmcZf59bWwK5XFi76CZX8cbJ4BhTzzA3gU1ZjYZcYW3dwt"

func TestTable_InsertIfAbsent(t *testing.T) {
	table := New()
	id := mustParsePeerID(t, testPeerIDStr)
	first := mustParseMultiaddr(t, "/ip4/10.0.0.1/tcp/4001")
	second := mustParseMultiaddr(t, "/ip4/10.0.0.2/tcp/4001")

	if !table.Insert(id, first, SourceDiscovery) {
		t.Fatal("first Insert should create an entry")
	}
	if table.Insert(id, second, SourceConnection) {
		t.Fatal("second Insert should not replace the entry")
	}

	addr, ok := table.Get(id)
	if !ok {
		t.Fatal("Get should find the peer")
	}
	if !addr.Equal(first) {
		t.Errorf("Get = %s, want %s", addr, first)
	}

	entry, _ := table.Entry(id)
	if entry.Source != SourceDiscovery {
		t.Errorf("Source = %v, want discovery", entry.Source)
	}
	if entry.FirstSeen.IsZero() {
		t.Error("FirstSeen should be set")
	}
}

func TestTable_InsertNilAddr(t *testing.T) {
	table := New()
	if table.Insert(mustParsePeerID(t, testPeerIDStr), nil, SourceDiscovery) {
		t.Error("Insert with nil address should be rejected")
	}
	if table.Len() != 0 {
		t.Errorf("Len = %d, want 0", table.Len())
	}
}

func TestTable_GetUnknown(t *testing.T) {
	table := New()
	if _, ok := table.Get(mustParsePeerID(t, testPeerIDStr)); ok {
		t.Error("Get on empty table should miss")
	}
}

func TestTable_List(t *testing.T) {
	table := New()
	a := mustParsePeerID(t, testPeerIDStr)
	b := mustParsePeerID(t, testPeerID2Str)

	table.Insert(a, mustParseMultiaddr(t, "/ip4/10.0.0.1/tcp/1"), SourceConnection)
	table.Insert(b, mustParseMultiaddr(t, "/ip4/10.0.0.2/tcp/2"), SourceDiscovery)

	list := table.List()
	if len(list) != 2 {
		t.Fatalf("List returned %d entries, want 2", len(list))
	}
	if list[1].FirstSeen.Before(list[0].FirstSeen) {
		t.Error("List() should be ordered oldest first")
	}
	if (list[0].PeerID != a || list[1].PeerID != b) && (list[0].PeerID != b || list[1].PeerID != a) {
		t.Errorf("List() = %v, want both peers", list)
	}
}

func TestTable_SaveAndOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "peers.json")

	table, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if table.Len() != 0 {
		t.Fatalf("new table has %d entries", table.Len())
	}

	a := mustParsePeerID(t, testPeerIDStr)
	b := mustParsePeerID(t, testPeerID2Str)
	addrA := mustParseMultiaddr(t, "/ip4/10.0.0.1/tcp/4001/p2p/"+testPeerIDStr)
	addrB := mustParseMultiaddr(t, "/ip6/::1/tcp/4002")
	table.Insert(a, addrA, SourceConnection)
	table.Insert(b, addrB, SourceDiscovery)

	if err := table.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if _, err := os.Stat(path + tempFileSuffix); !os.IsNotExist(err) {
		t.Error("temporary file should be renamed away")
	}

	reloaded, err := Open(path)
	if err != nil {
		t.Fatalf("re-Open() failed: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("reloaded table has %d entries, want 2", reloaded.Len())
	}

	got, _ := reloaded.Entry(a)
	if !got.Addr.Equal(addrA) || got.Source != SourceConnection {
		t.Errorf("reloaded entry = %+v", got)
	}
	got, _ = reloaded.Entry(b)
	if !got.Addr.Equal(addrB) || got.Source != SourceDiscovery {
		t.Errorf("reloaded entry = %+v", got)
	}
}

func TestTable_OpenCorruptedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peers.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	table, err := Open(path)
	if err != nil {
		t.Fatalf("Open() should recover from corruption: %v", err)
	}
	if table.Len() != 0 {
		t.Errorf("corrupted file should load empty, got %d entries", table.Len())
	}
	if _, err := os.Stat(path + backupFileSuffix); err != nil {
		t.Errorf("backup file should exist: %v", err)
	}
}

func TestTable_OpenEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peers.json")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	table, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if table.Len() != 0 {
		t.Errorf("Len = %d, want 0", table.Len())
	}
}

func TestTable_SaveInMemory(t *testing.T) {
	if err := New().Save(); err != nil {
		t.Errorf("Save() on in-memory table = %v, want nil", err)
	}
}

func TestTable_ConcurrentInsert(t *testing.T) {
	table := New()
	id := mustParsePeerID(t, testPeerIDStr)

	addr := mustParseMultiaddr(t, "/ip4/10.0.0.1/tcp/4001")

	var wg sync.WaitGroup
	inserted := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted <- table.Insert(id, addr, SourceDiscovery)
		}()
	}
	wg.Wait()
	close(inserted)

	wins := 0
	for ok := range inserted {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Errorf("%d goroutines inserted, want exactly 1", wins)
	}
}

func TestSource_String(t *testing.T) {
	tests := []struct {
		source Source
		want   string
	}{
		{SourceConnection, "connection"},
		{SourceDiscovery, "discovery"},
		{SourceStorage, "storage"},
		{Source(9), "Source(9)"},
	}
	for _, tt := range tests {
		if got := tt.source.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
