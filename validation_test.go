package gooseberry

import (
	"errors"
	"strings"
	"testing"

	"github.com/blockberries/gooseberry/pkg/protocol"
	"github.com/libp2p/go-libp2p/core/test"
)

func TestValidateGreeting(t *testing.T) {
	tests := []struct {
		name     string
		greeting string
		wantErr  bool
	}{
		{"default", DefaultGreeting, false},
		{"unicode", "héllo 👋", false},
		{"largest allowed", strings.Repeat("a", protocol.MaxMessageSize-1), false},
		{"empty", "", true},
		{"at limit", strings.Repeat("a", protocol.MaxMessageSize), true},
		{"invalid utf-8", string([]byte{0xff, 0xfe}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGreeting(tt.greeting)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidGreeting) {
					t.Errorf("ValidateGreeting() = %v, want ErrInvalidGreeting", err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateGreeting() = %v, want nil", err)
			}
		})
	}
}

func TestValidateDialAddr(t *testing.T) {
	id := test.RandPeerIDFatal(t)

	got, err := ValidateDialAddr(mustParseMultiaddr(t, "/ip4/127.0.0.1/tcp/4001/p2p/"+id.String()))
	if err != nil {
		t.Fatalf("ValidateDialAddr() = %v", err)
	}
	if got != id {
		t.Errorf("peer = %s, want %s", got, id)
	}

	if _, err := ValidateDialAddr(mustParseMultiaddr(t, "/ip4/127.0.0.1/tcp/4001")); !errors.Is(err, ErrInvalidDialAddr) {
		t.Errorf("address without /p2p: err = %v, want ErrInvalidDialAddr", err)
	}
	if _, err := ValidateDialAddr(nil); !errors.Is(err, ErrInvalidDialAddr) {
		t.Errorf("nil address: err = %v, want ErrInvalidDialAddr", err)
	}
}
