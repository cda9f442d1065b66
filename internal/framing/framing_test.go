package framing

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestWriteReadMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	frames := [][]byte{[]byte("topic"), []byte("meta-bytes"), []byte("payload")}

	if err := WriteMessage(&buf, frames); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	got, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if len(got) != len(frames) {
		t.Fatalf("got %d frames, want %d", len(got), len(frames))
	}
	for i := range frames {
		if !bytes.Equal(got[i], frames[i]) {
			t.Errorf("frame %d = %q, want %q", i, got[i], frames[i])
		}
	}
}

func TestWriteReadMessageEmptyFrame(t *testing.T) {
	var buf bytes.Buffer
	frames := [][]byte{[]byte("topic"), nil, []byte("x")}

	if err := WriteMessage(&buf, frames); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	got, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if len(got[1]) != 0 {
		t.Fatalf("expected empty frame 1, got %q", got[1])
	}
}

func TestReadMessagePropagatesEOF(t *testing.T) {
	_, err := ReadMessage(bytes.NewReader(nil))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadMessageRejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 1})
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	if _, err := ReadMessage(&buf); err == nil {
		t.Fatalf("expected error for oversized frame length")
	}
}

func TestTwoMessagesBackToBack(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, [][]byte{[]byte("a")}); err != nil {
		t.Fatalf("WriteMessage 1: %v", err)
	}
	if err := WriteMessage(&buf, [][]byte{[]byte("b")}); err != nil {
		t.Fatalf("WriteMessage 2: %v", err)
	}

	first, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage 1: %v", err)
	}
	second, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage 2: %v", err)
	}
	if string(first[0]) != "a" || string(second[0]) != "b" {
		t.Fatalf("got %q, %q", first[0], second[0])
	}
}
