package actor

import (
	"bufio"
	"log"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/JeffersonLab/dift-sub001/internal/framing"
	"github.com/JeffersonLab/dift-sub001/internal/wire"
)

// ProxyDriver holds two transport sockets against one ProxyAddress: a
// publisher-side connection to the Proxy's pub port and a
// subscriber-side connection to its sub port (spec.md §4.4).
//
// A driver is used by exactly one goroutine at a time; concurrent
// publication requires distinct drivers, which is why the
// ConnectionPool hands out one per request.
type ProxyDriver struct {
	id                uuid.UUID
	addr              ProxyAddress
	compressThreshold int

	mu        sync.Mutex
	pubConn   net.Conn
	subConn   net.Conn
	subReader *bufio.Reader
	prefixes  map[string]struct{}
	setup     *ConnectionSetup
}

// NewProxyDriver constructs a driver for addr. It does not dial until
// Connect is called. Each driver gets a random id, logged alongside
// transport errors so a handful of drivers hammering the same address
// can be told apart in a busy log. compressThreshold of 0 or less
// selects the documented default (SPEC_FULL.md §4.2).
func NewProxyDriver(addr ProxyAddress, compressThreshold int) *ProxyDriver {
	if compressThreshold <= 0 {
		compressThreshold = defaultCompressThreshold
	}
	return &ProxyDriver{id: uuid.New(), addr: addr, compressThreshold: compressThreshold, prefixes: make(map[string]struct{})}
}

// Connect dials both sockets, retrying with exponential backoff (capped
// at a handful of attempts) since a freshly started Proxy may not yet
// be listening. setup, if non-nil, runs its pre-connection hook on each
// socket once both are dialed (before any cached prefix is re-sent) and
// its post-connection hook at the end, giving subscriptions time to
// propagate before the caller proceeds.
func (d *ProxyDriver) Connect(setup *ConnectionSetup) error {
	dial := func() (net.Conn, net.Conn, error) {
		pub, err := net.Dial("tcp", d.addr.PubString())
		if err != nil {
			return nil, nil, err
		}
		sub, err := net.Dial("tcp", d.addr.SubString())
		if err != nil {
			pub.Close()
			return nil, nil, err
		}
		return pub, sub, nil
	}

	var pub, sub net.Conn
	op := func() error {
		var err error
		pub, sub, err = dial()
		return err
	}
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	if err := backoff.Retry(op, policy); err != nil {
		return newError(TransportError, "ProxyDriver.Connect", err)
	}

	if setup != nil {
		if err := setup.PreConnection(pub); err != nil {
			pub.Close()
			sub.Close()
			return newError(TransportError, "ProxyDriver.Connect", err)
		}
		if err := setup.PreConnection(sub); err != nil {
			pub.Close()
			sub.Close()
			return newError(TransportError, "ProxyDriver.Connect", err)
		}
	}

	d.mu.Lock()
	d.pubConn = pub
	d.subConn = sub
	d.subReader = bufio.NewReader(sub)
	d.setup = setup
	for prefix := range d.prefixes {
		d.sendControlLocked(ControlCommandSub, prefix)
	}
	d.mu.Unlock()

	if setup != nil {
		setup.PostConnection()
	}
	return nil
}

// reconnect closes any stale sockets and re-dials through Connect's
// backoff policy, re-subscribing every prefix the caller had set before
// the drop (SPEC_FULL.md §4.4). It is invoked from Poll, Recv, and Send
// when they observe a TransportError, so a mid-session disconnect from
// the Proxy heals itself instead of failing every call forever.
func (d *ProxyDriver) reconnect() error {
	d.mu.Lock()
	setup := d.setup
	if d.pubConn != nil {
		d.pubConn.Close()
	}
	if d.subConn != nil {
		d.subConn.Close()
	}
	d.pubConn = nil
	d.subConn = nil
	d.subReader = nil
	d.mu.Unlock()

	log.Printf("actor: ProxyDriver[%s]: re-dialing %s after transport error", d.id, d.addr)
	return d.Connect(setup)
}

// Close releases both sockets.
func (d *ProxyDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var firstErr error
	if d.pubConn != nil {
		if err := d.pubConn.Close(); err != nil {
			firstErr = err
		}
	}
	if d.subConn != nil {
		if err := d.subConn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Send serializes msg as a three-frame transmission (topic, Meta,
// payload) and writes it to the publisher-side socket. Large payloads
// are opportunistically S2-compressed, flagged via Meta.Control.
func (d *ProxyDriver) Send(msg Message) error {
	meta := msg.Meta()
	payload, compressed := maybeCompressPayload(msg.Payload(), meta.IsCompressed(), d.compressThreshold)
	if compressed {
		meta = meta.MarkCompressed()
	}

	metaBytes, err := wire.Encode(meta)
	if err != nil {
		return newError(Serialization, "ProxyDriver.Send", err)
	}
	frames := [][]byte{[]byte(msg.Topic().Str()), metaBytes, payload}

	if err := d.trySend(frames); err != nil {
		if !IsKind(err, TransportError) {
			return err
		}
		if rerr := d.reconnect(); rerr != nil {
			return newError(TransportError, "ProxyDriver.Send", rerr)
		}
		return d.trySend(frames)
	}
	return nil
}

func (d *ProxyDriver) trySend(frames [][]byte) error {
	d.mu.Lock()
	conn := d.pubConn
	d.mu.Unlock()
	if conn == nil {
		return newError(TransportError, "ProxyDriver.Send", errInvalidf("not connected"))
	}
	if err := framing.WriteMessage(conn, frames); err != nil {
		return newError(TransportError, "ProxyDriver.Send", err)
	}
	return nil
}

// Recv reads the next three-frame transmission from the subscriber-side
// socket and reverses Send's encoding.
func (d *ProxyDriver) Recv() (Message, error) {
	frames, err := d.tryRecv()
	if err != nil {
		if !IsKind(err, TransportError) {
			return Message{}, err
		}
		if rerr := d.reconnect(); rerr != nil {
			return Message{}, newError(TransportError, "ProxyDriver.Recv", rerr)
		}
		frames, err = d.tryRecv()
		if err != nil {
			return Message{}, err
		}
	}
	return d.decodeFrames(frames)
}

func (d *ProxyDriver) tryRecv() ([][]byte, error) {
	d.mu.Lock()
	conn := d.subConn
	reader := d.subReader
	d.mu.Unlock()
	if conn == nil {
		return nil, newError(TransportError, "ProxyDriver.Recv", errInvalidf("not connected"))
	}

	conn.SetReadDeadline(time.Time{})
	frames, err := framing.ReadMessage(reader)
	if err != nil {
		return nil, newError(TransportError, "ProxyDriver.Recv", err)
	}
	return frames, nil
}

func (d *ProxyDriver) decodeFrames(frames [][]byte) (Message, error) {
	if len(frames) != 3 {
		return Message{}, newError(Serialization, "ProxyDriver.Recv", errInvalidf("expected 3 frames, got %d", len(frames)))
	}
	var meta wire.Meta
	if err := wire.Decode(frames[1], &meta); err != nil {
		return Message{}, newError(Serialization, "ProxyDriver.Recv", err)
	}
	payload, err := maybeDecompressPayload(frames[2], meta.IsCompressed())
	if err != nil {
		return Message{}, err
	}
	return NewMessage(RawTopic(string(frames[0])), meta, payload)
}

// Subscribe sets a prefix filter on the subscriber-side socket using
// topic.Str(), re-applied automatically on reconnect.
func (d *ProxyDriver) Subscribe(topic Topic) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prefixes[topic.Str()] = struct{}{}
	if d.subConn == nil {
		return nil
	}
	return d.sendControlLocked(ControlCommandSub, topic.Str())
}

// Unsubscribe clears a previously set prefix filter.
func (d *ProxyDriver) Unsubscribe(topic Topic) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.prefixes, topic.Str())
	if d.subConn == nil {
		return nil
	}
	return d.sendControlLocked(ControlCommandUnsub, topic.Str())
}

func (d *ProxyDriver) sendControlLocked(command, prefix string) error {
	meta := wire.NewMeta(MimeString)
	meta.Action = command
	metaBytes, err := wire.Encode(meta)
	if err != nil {
		return newError(Serialization, "ProxyDriver.control", err)
	}
	frames := [][]byte{[]byte(ControlTopic), metaBytes, []byte(prefix)}
	if err := framing.WriteMessage(d.subConn, frames); err != nil {
		log.Printf("actor: ProxyDriver[%s]: control write to %s failed: %v", d.id, d.addr, err)
		return newError(TransportError, "ProxyDriver.control", err)
	}
	return nil
}

// Poll returns true if a message is available on the subscriber-side
// socket within timeout.
func (d *ProxyDriver) Poll(timeout time.Duration) (bool, error) {
	ready, dead, err := d.tryPoll(timeout)
	if err == nil {
		return ready, nil
	}
	if !dead {
		return false, err
	}
	if rerr := d.reconnect(); rerr != nil {
		return false, newError(TransportError, "ProxyDriver.Poll", rerr)
	}
	ready, _, err = d.tryPoll(timeout)
	if err != nil {
		return false, err
	}
	return ready, nil
}

// tryPoll peeks the subscriber socket for timeout. dead reports whether
// the failure is connection-level (EOF or similar) rather than a plain
// poll timeout, distinguishing "nothing to read yet" from "the Proxy
// went away" so Poll only re-dials for the latter.
func (d *ProxyDriver) tryPoll(timeout time.Duration) (ready bool, dead bool, err error) {
	d.mu.Lock()
	conn := d.subConn
	reader := d.subReader
	d.mu.Unlock()
	if conn == nil {
		return false, true, newError(TransportError, "ProxyDriver.Poll", errInvalidf("not connected"))
	}

	conn.SetReadDeadline(time.Now().Add(timeout))
	defer conn.SetReadDeadline(time.Time{})

	_, perr := reader.Peek(1)
	if perr == nil {
		return true, false, nil
	}
	if ne, ok := perr.(net.Error); ok && ne.Timeout() {
		return false, false, nil
	}
	return false, true, newError(TransportError, "ProxyDriver.Poll", perr)
}
