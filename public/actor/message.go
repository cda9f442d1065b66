package actor

import (
	"github.com/JeffersonLab/dift-sub001/internal/wire"
)

// Message is a (topic, meta, payload) triple: the unit the Proxy
// forwards and a Subscription callback receives (spec.md §3).
type Message struct {
	topic   Topic
	meta    wire.Meta
	payload []byte
}

// NewMessage builds a Message from an already-populated Meta. meta must
// carry a non-empty Datatype.
func NewMessage(topic Topic, meta wire.Meta, payload []byte) (Message, error) {
	if meta.Datatype == "" {
		return Message{}, newError(InvalidArgument, "NewMessage", errInvalidf("meta.datatype must not be empty"))
	}
	return Message{topic: topic, meta: meta, payload: payload}, nil
}

// NewMessageWithMime builds a Message from a bare MIME tag, creating an
// empty Meta and setting its Datatype.
func NewMessageWithMime(topic Topic, mimetype string, payload []byte) (Message, error) {
	if mimetype == "" {
		return Message{}, newError(InvalidArgument, "NewMessageWithMime", errInvalidf("mimetype must not be empty"))
	}
	return Message{topic: topic, meta: wire.NewMeta(mimetype), payload: payload}, nil
}

// MakeMessage infers the MIME tag from v's scalar/array kind, wraps it
// in a wire.Data, serializes it, and returns a Message with Datatype
// set to the matching MIME string (spec.md §4.2, §6).
func MakeMessage(topic Topic, v interface{}) (Message, error) {
	mimetype, data, err := mimeForValue(v)
	if err != nil {
		return Message{}, err
	}
	payload, err := wire.Encode(data)
	if err != nil {
		return Message{}, newError(Serialization, "MakeMessage", err)
	}
	return NewMessageWithMime(topic, mimetype, payload)
}

// ParseMessage is the inverse of MakeMessage: it decodes msg's payload
// as a wire.Data and type-asserts its native value to T.
func ParseMessage[T any](msg Message) (T, error) {
	var zero T
	var data wire.Data
	if err := wire.Decode(msg.payload, &data); err != nil {
		return zero, newError(Serialization, "ParseMessage", err)
	}
	v, ok := data.Value().(T)
	if !ok {
		return zero, newError(Serialization, "ParseMessage", errInvalidf("payload kind %s does not hold a %T", data.Kind, zero))
	}
	return v, nil
}

// MakeResponse builds a response to msg: same payload shape conventions
// apply to the caller, but topic is set to msg's reply-to topic and the
// reply-to field is cleared on the result (spec.md §4.2).
func MakeResponse(msg Message) (Message, error) {
	if !msg.meta.HasReplyTo() {
		return Message{}, newError(InvalidArgument, "MakeResponse", errInvalidf("message has no replyto topic"))
	}
	return Message{
		topic:   RawTopic(msg.meta.ReplyTo),
		meta:    msg.meta.ClearReplyTo(),
		payload: msg.payload,
	}, nil
}

// Topic returns the message's topic.
func (m Message) Topic() Topic { return m.topic }

// Meta returns the message's metadata.
func (m Message) Meta() wire.Meta { return m.meta }

// Payload returns the message's raw payload bytes.
func (m Message) Payload() []byte { return m.payload }

// Datatype is a convenience accessor for Meta().Datatype.
func (m Message) Datatype() string { return m.meta.Datatype }

// HasReplyTo reports whether this message carries a reply-to topic.
func (m Message) HasReplyTo() bool { return m.meta.HasReplyTo() }

// ReplyTo returns the reply-to topic, or the zero Topic if unset.
func (m Message) ReplyTo() Topic { return RawTopic(m.meta.ReplyTo) }

// WithReplyTo returns a copy of m with its reply-to topic set, used by
// sync_publish to arrange a one-shot correlation topic (spec.md §4.8).
func (m Message) WithReplyTo(replyTo Topic) Message {
	m.meta.ReplyTo = replyTo.Str()
	return m
}
