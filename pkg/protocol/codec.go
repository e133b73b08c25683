package protocol

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/libp2p/go-msgio"
)

// Sentinel errors for the greeting codec.
var (
	// ErrReadFailed indicates the stream failed while a frame was being read.
	ErrReadFailed = errors.New("read failed")

	// ErrFrameTooLarge indicates a frame at or above MaxMessageSize.
	// Oversize inbound frames match both ErrFrameTooLarge and ErrReadFailed.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrDecode indicates the payload is not valid UTF-8.
	ErrDecode = errors.New("payload is not valid utf-8")

	// ErrWriteFailed indicates the stream failed while a frame was being written.
	ErrWriteFailed = errors.New("write failed")
)

// Message is a greeting protocol payload.
type Message string

// NewMessage validates text as a protocol message.
func NewMessage(text string) (Message, error) {
	if len(text) >= MaxMessageSize {
		return "", fmt.Errorf("%w: %d bytes, maximum is %d", ErrFrameTooLarge, len(text), MaxMessageSize-1)
	}
	if !utf8.ValidString(text) {
		return "", ErrDecode
	}
	return Message(text), nil
}

// Len returns the payload size in bytes.
func (m Message) Len() int {
	return len(m)
}

// ReadMessage reads exactly one frame from r and decodes it.
func ReadMessage(r io.Reader) (Message, error) {
	reader := msgio.NewVarintReaderSize(r, MaxMessageSize-1)

	buf, err := reader.ReadMsg()
	if err != nil {
		if errors.Is(err, msgio.ErrMsgTooLarge) {
			return "", fmt.Errorf("%w: %w", ErrReadFailed, ErrFrameTooLarge)
		}
		return "", fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	if len(buf) == 0 {
		return "", nil
	}
	defer reader.ReleaseMsg(buf)

	if !utf8.Valid(buf) {
		return "", ErrDecode
	}
	return Message(buf), nil
}

// WriteMessage encodes m as one frame and writes it to w.
func WriteMessage(w io.Writer, m Message) error {
	if len(m) >= MaxMessageSize {
		return fmt.Errorf("%w: %d bytes, maximum is %d", ErrFrameTooLarge, len(m), MaxMessageSize-1)
	}

	writer := msgio.NewVarintWriter(w)
	if err := writer.WriteMsg([]byte(m)); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}
