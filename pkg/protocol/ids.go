// Package protocol implements the greeting wire protocol: a single
// length-delimited UTF-8 frame per stream, negotiated as ProtocolID, plus
// the libp2p host wiring that carries it.
package protocol

import "github.com/libp2p/go-libp2p/core/protocol"

const (
	// ProtocolID is the protocol identifier negotiated for greeting streams.
	ProtocolID protocol.ID = "/golem/1.0.0"

	// MaxMessageSize bounds a frame payload. Payloads must be strictly
	// smaller than this value.
	MaxMessageSize = 10240
)
