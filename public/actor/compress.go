package actor

import (
	"github.com/klauspost/compress/s2"
)

// maybeCompressPayload S2-compresses payload when it is at least
// threshold bytes and not already marked compressed, returning the
// (possibly unchanged) payload and whether it compressed it; the caller
// then marks meta.Control. Below threshold the framing and
// decompression overhead outweighs the savings.
func maybeCompressPayload(payload []byte, compressed bool, threshold int) ([]byte, bool) {
	if compressed || len(payload) < threshold {
		return payload, false
	}
	return s2.Encode(nil, payload), true
}

// maybeDecompressPayload reverses maybeCompressPayload when the sender marked
// the frame compressed.
func maybeDecompressPayload(payload []byte, compressed bool) ([]byte, error) {
	if !compressed {
		return payload, nil
	}
	out, err := s2.Decode(nil, payload)
	if err != nil {
		return nil, newError(Serialization, "decompress", err)
	}
	return out, nil
}
