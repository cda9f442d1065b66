package wire

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode serializes v (Meta, Data, or Registration) to its wire form.
func Encode(v interface{}) ([]byte, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: encode %T: %w", v, err)
	}
	return b, nil
}

// Decode deserializes b into v, which must be a pointer.
func Decode(b []byte, v interface{}) error {
	if err := msgpack.Unmarshal(b, v); err != nil {
		return fmt.Errorf("wire: decode %T: %w", v, err)
	}
	return nil
}
