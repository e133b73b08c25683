package addressbook

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
)

// Table maps peers to their best known address.
// All methods are thread-safe.
type Table struct {
	entries map[peer.ID]*Entry
	storage *storage
	mu      sync.RWMutex
}

// New creates an in-memory table.
func New() *Table {
	return &Table{
		entries: make(map[peer.ID]*Entry),
	}
}

// Open creates a table backed by the JSON file at path, loading any
// entries already stored there. Call Save to write changes back.
func Open(path string) (*Table, error) {
	s := newStorage(path)

	data, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("failed to load address table: %w", err)
	}

	t := New()
	t.storage = s
	for _, e := range data.Peers {
		if e == nil || e.Addr == nil {
			continue
		}
		if _, exists := t.entries[e.PeerID]; exists {
			continue
		}
		entry := *e
		t.entries[e.PeerID] = &entry
	}
	return t, nil
}

// Insert records addr for peerID unless the peer already has an entry.
// It returns true if a new entry was created.
func (t *Table) Insert(peerID peer.ID, addr multiaddr.Multiaddr, source Source) bool {
	if addr == nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[peerID]; exists {
		return false
	}
	t.entries[peerID] = &Entry{
		PeerID:    peerID,
		Addr:      addr,
		Source:    source,
		FirstSeen: time.Now(),
	}
	return true
}

// Get returns the known address for a peer.
func (t *Table) Get(peerID peer.ID) (multiaddr.Multiaddr, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[peerID]
	if !ok {
		return nil, false
	}
	return e.Addr, true
}

// Entry returns a copy of the entry for a peer.
func (t *Table) Entry(peerID peer.ID) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[peerID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// List returns copies of all entries, oldest first.
func (t *Table) List() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FirstSeen.Equal(out[j].FirstSeen) {
			return out[i].FirstSeen.Before(out[j].FirstSeen)
		}
		return out[i].PeerID < out[j].PeerID
	})
	return out
}

// Len returns the number of entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Save writes the table to its backing file.
// It is a no-op for in-memory tables.
func (t *Table) Save() error {
	if t.storage == nil {
		return nil
	}

	entries := t.List()
	data := &tableData{
		Version: currentVersion,
		Peers:   make([]*Entry, len(entries)),
	}
	for i := range entries {
		data.Peers[i] = &entries[i]
	}
	return t.storage.save(data)
}
