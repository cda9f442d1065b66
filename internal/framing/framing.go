// Package framing implements the length-prefixed multi-frame wire format
// used by the proxy and registrar drivers to carry topic/meta/payload (and
// registrar request/reply) frames over a single TCP stream.
//
// A ZeroMQ socket delivers a multipart message atomically; a plain TCP
// stream does not, so each transmission is prefixed with a frame count and
// each frame with its own length so the reader can reassemble exactly the
// frames the writer sent.
package framing

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameBytes bounds a single frame to guard against a corrupt length
// prefix causing an unbounded allocation.
const MaxFrameBytes = 64 << 20 // 64 MiB

// WriteMessage writes frames as one atomic transmission: a 4-byte frame
// count followed by each frame's 4-byte length and bytes, all big-endian.
func WriteMessage(w io.Writer, frames [][]byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(frames)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("framing: write frame count: %w", err)
	}
	for i, frame := range frames {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(frame)))
		if _, err := w.Write(lenBuf[:]); err != nil {
			return fmt.Errorf("framing: write frame %d length: %w", i, err)
		}
		if len(frame) == 0 {
			continue
		}
		if _, err := w.Write(frame); err != nil {
			return fmt.Errorf("framing: write frame %d body: %w", i, err)
		}
	}
	if f, ok := w.(*bufio.Writer); ok {
		return f.Flush()
	}
	return nil
}

// ReadMessage reads back one transmission written by WriteMessage.
func ReadMessage(r io.Reader) ([][]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err // EOF propagates untouched so callers can detect disconnect
	}
	count := binary.BigEndian.Uint32(header[:])
	if count > 1<<16 {
		return nil, fmt.Errorf("framing: implausible frame count %d", count)
	}

	frames := make([][]byte, count)
	for i := uint32(0); i < count; i++ {
		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return nil, fmt.Errorf("framing: read frame %d length: %w", i, err)
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		if n > MaxFrameBytes {
			return nil, fmt.Errorf("framing: frame %d exceeds max size %d", i, MaxFrameBytes)
		}
		buf := make([]byte, n)
		if n > 0 {
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, fmt.Errorf("framing: read frame %d body: %w", i, err)
			}
		}
		frames[i] = buf
	}
	return frames, nil
}
