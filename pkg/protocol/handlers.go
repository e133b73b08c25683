package protocol

import (
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
)

// NewStreamHandler adapts fn to a libp2p stream handler for ProtocolID.
// A nil fn resets every inbound stream.
func NewStreamHandler(fn func(peerID peer.ID, s Stream)) network.StreamHandler {
	return func(stream network.Stream) {
		if fn == nil {
			_ = stream.Reset()
			return
		}
		fn(stream.Conn().RemotePeer(), stream)
	}
}
