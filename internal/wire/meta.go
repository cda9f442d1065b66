// Package wire defines the three schemas that cross the network
// unchanged regardless of transport: Meta, Data, and Registration.
// Every interoperable implementation of this system must share these
// field names and types — see spec.md §6.
//
// Fields carry explicit msgpack tags so the wire shape is pinned to the
// tag, not to Go's field order or name, the same guarantee a .proto file
// gives a generated struct.
package wire

// ByteOrder identifies the endianness a Data record's fixed-width
// numeric fields were encoded with.
type ByteOrder string

const (
	LittleEndian ByteOrder = "LittleEndian"
	BigEndian    ByteOrder = "BigEndian"
)

// Meta carries the metadata that accompanies every Message payload.
type Meta struct {
	// Datatype is the MIME-like tag identifying how to decode the
	// payload (see the table in spec.md §6). Required.
	Datatype string `msgpack:"datatype" json:"datatype"`

	// Byteorder records the endianness of fixed-width numeric fields
	// inside the payload. Defaults to LittleEndian.
	Byteorder ByteOrder `msgpack:"byteorder" json:"byteorder"`

	// CommunicationID lets unrelated layers correlate a message with
	// an application-level exchange id.
	CommunicationID int64 `msgpack:"communicationid,omitempty" json:"communicationid,omitempty"`

	// ReplyTo names the topic a response to this message should be
	// published on. Empty means no reply is expected.
	ReplyTo string `msgpack:"replyto,omitempty" json:"replyto,omitempty"`

	// Reserved fields used by higher layers. This repo passes Status
	// and Composition through untouched; Action carries the control
	// sub-command on ControlTopic frames, and Control carries the
	// compression flag (see MarkCompressed).
	Status      string `msgpack:"status,omitempty" json:"status,omitempty"`
	Composition string `msgpack:"composition,omitempty" json:"composition,omitempty"`
	Action      string `msgpack:"action,omitempty" json:"action,omitempty"`
	Control     string `msgpack:"control,omitempty" json:"control,omitempty"`
}

// NewMeta returns a Meta with the required datatype set and byte order
// defaulted to little-endian.
func NewMeta(datatype string) Meta {
	return Meta{Datatype: datatype, Byteorder: LittleEndian}
}

// HasReplyTo reports whether a reply topic is set.
func (m Meta) HasReplyTo() bool {
	return m.ReplyTo != ""
}

// ClearReplyTo returns a copy of m with ReplyTo cleared, used when
// building a response from a request (spec.md §4.2's make_response).
func (m Meta) ClearReplyTo() Meta {
	m.ReplyTo = ""
	return m
}

// compressedControlFlag is written into Meta.Control (not a new MIME
// tag — see SPEC_FULL.md §4.2) when the payload frame was S2-compressed
// before transmission.
const compressedControlFlag = "s2"

// MarkCompressed records that the accompanying payload frame is S2
// compressed.
func (m Meta) MarkCompressed() Meta {
	m.Control = compressedControlFlag
	return m
}

// IsCompressed reports whether MarkCompressed was applied.
func (m Meta) IsCompressed() bool {
	return m.Control == compressedControlFlag
}
