package actor

import (
	"bytes"
	"strings"
	"testing"
)

func TestMaybeCompressPayloadBelowThreshold(t *testing.T) {
	payload := []byte("short")
	out, compressed := maybeCompressPayload(payload, false, 8192)
	if compressed {
		t.Fatalf("expected no compression below threshold")
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("payload mutated despite no compression")
	}
}

func TestMaybeCompressPayloadAlreadyMarkedCompressed(t *testing.T) {
	payload := []byte(strings.Repeat("x", 9000))
	out, compressed := maybeCompressPayload(payload, true, 8192)
	if compressed {
		t.Fatalf("expected maybeCompressPayload to leave an already-compressed payload alone")
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("payload mutated despite already being marked compressed")
	}
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	payload := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog ", 500))

	compressed, ok := maybeCompressPayload(payload, false, 8192)
	if !ok {
		t.Fatalf("expected payload above threshold to compress")
	}
	if bytes.Equal(compressed, payload) {
		t.Fatalf("compressed output identical to input")
	}

	out, err := maybeDecompressPayload(compressed, true)
	if err != nil {
		t.Fatalf("maybeDecompressPayload: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(out), len(payload))
	}
}

func TestMaybeDecompressPayloadPassthrough(t *testing.T) {
	payload := []byte("uncompressed")
	out, err := maybeDecompressPayload(payload, false)
	if err != nil {
		t.Fatalf("maybeDecompressPayload: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("expected passthrough when compressed is false")
	}
}

func TestMaybeDecompressPayloadCorrupt(t *testing.T) {
	if _, err := maybeDecompressPayload([]byte("not valid s2 data"), true); err == nil {
		t.Fatalf("expected an error decompressing corrupt input")
	}
}
