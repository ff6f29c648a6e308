// Package wire implements the Nexus wire protocol (§4.5, §6): framed,
// length-prefixed binary messages between client and server over a
// Unix domain socket. Frame payloads use a MessagePack-style
// tag-and-value encoding so new fields can be appended without
// breaking older peers.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize is the largest payload a single frame may carry (§4.5).
// Larger frames close the connection with FrameTooLarge.
const MaxFrameSize = 16 << 20

var ErrFrameTooLarge = errors.New("wire: frame too large")

// ReadFrame reads one length-prefixed frame from r: a 4-byte
// big-endian payload length followed by the payload itself.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("wire: read payload: %w", err)
	}
	return payload, nil
}

// WriteFrame writes payload as one length-prefixed frame to w.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}
