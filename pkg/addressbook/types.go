// Package addressbook provides the peer address table: the best known
// address for every peer the node has connected to or discovered.
// Entries are inserted once and never evicted. The table can be persisted
// to a JSON file between runs.
package addressbook

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
)

// Source records how an address was learned.
type Source int

const (
	// SourceConnection means the address was dialed successfully.
	SourceConnection Source = iota

	// SourceDiscovery means the address came from a find-node result.
	SourceDiscovery

	// SourceStorage means the address was loaded from disk.
	SourceStorage
)

// String returns the source name used in the JSON file.
func (s Source) String() string {
	switch s {
	case SourceConnection:
		return "connection"
	case SourceDiscovery:
		return "discovery"
	case SourceStorage:
		return "storage"
	default:
		return fmt.Sprintf("Source(%d)", s)
	}
}

func parseSource(s string) Source {
	switch s {
	case "connection":
		return SourceConnection
	case "discovery":
		return SourceDiscovery
	default:
		return SourceStorage
	}
}

// Entry is one row of the address table.
type Entry struct {
	PeerID    peer.ID
	Addr      multiaddr.Multiaddr
	Source    Source
	FirstSeen time.Time
}

type entryJSON struct {
	PeerID    string    `json:"peer_id"`
	Addr      string    `json:"addr"`
	Source    string    `json:"source"`
	FirstSeen time.Time `json:"first_seen"`
}

// MarshalJSON implements json.Marshaler for Entry.
func (e Entry) MarshalJSON() ([]byte, error) {
	raw := entryJSON{
		PeerID:    e.PeerID.String(),
		Source:    e.Source.String(),
		FirstSeen: e.FirstSeen,
	}
	if e.Addr != nil {
		raw.Addr = e.Addr.String()
	}
	return json.Marshal(raw)
}

// UnmarshalJSON implements json.Unmarshaler for Entry.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw entryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := peer.Decode(raw.PeerID)
	if err != nil {
		return fmt.Errorf("invalid peer id %q: %w", raw.PeerID, err)
	}
	addr, err := multiaddr.NewMultiaddr(raw.Addr)
	if err != nil {
		return fmt.Errorf("invalid address %q for %s: %w", raw.Addr, id, err)
	}

	e.PeerID = id
	e.Addr = addr
	e.Source = parseSource(raw.Source)
	e.FirstSeen = raw.FirstSeen
	return nil
}

// tableData is the on-disk layout.
type tableData struct {
	Version int      `json:"version"`
	Peers   []*Entry `json:"peers"`
}
