package actor

import (
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/JeffersonLab/dift-sub001/internal/framing"
	"github.com/JeffersonLab/dift-sub001/internal/wire"
)

// Registrar command tags (spec.md §4.5).
const (
	CommandRegisterPublisher           = "registerPublisher"
	CommandRegisterSubscriber          = "registerSubscriber"
	CommandRemovePublisherRegistration = "removePublisherRegistration"
	CommandRemoveSubscriberRegistration = "removeSubscriberRegistration"
	CommandRemoveAllRegistration        = "removeAllRegistration"
	CommandFindPublisher                = "findPublisher"
	CommandFindSubscriber               = "findSubscriber"
)

// StatusSuccess is the reply status frame value on success; any other
// value is an error message.
const StatusSuccess = "success"

// RegDriver is a request/reply socket to a Registrar. Each call is a
// framed message with a command tag and a serialized Registration (or
// a topic filter); the reply is a status plus zero or more serialized
// Registration records.
//
// A call that times out discards the underlying socket; the next call
// creates a fresh one (spec.md §4.5).
type RegDriver struct {
	addr    RegAddress
	sender  string
	timeout time.Duration

	mu   sync.Mutex
	conn net.Conn
}

// NewRegDriver constructs a driver for addr. sender identifies this
// caller in request frames (used for removeAllRegistration scoping).
// timeout of 0 or less selects the documented default (spec.md §4.5).
func NewRegDriver(addr RegAddress, sender string, timeout time.Duration) *RegDriver {
	if timeout <= 0 {
		timeout = defaultRegDriverTimeout
	}
	return &RegDriver{addr: addr, sender: sender, timeout: timeout}
}

// Close releases the underlying socket, if any.
func (d *RegDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}

func (d *RegDriver) ensureConn() (net.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		return d.conn, nil
	}

	var conn net.Conn
	op := func() error {
		var err error
		conn, err = net.DialTimeout("tcp", d.addr.String(), d.timeout)
		return err
	}
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, newError(TransportError, "RegDriver.connect", err)
	}
	d.conn = conn
	return conn, nil
}

func (d *RegDriver) discard() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}

// call sends [sender, command, payload] and returns the reply's payload
// frames once status == success.
func (d *RegDriver) call(command string, payload []byte) ([][]byte, error) {
	conn, err := d.ensureConn()
	if err != nil {
		return nil, err
	}

	conn.SetDeadline(time.Now().Add(d.timeout))
	defer conn.SetDeadline(time.Time{})

	frames := [][]byte{[]byte(d.sender), []byte(command), payload}
	if err := framing.WriteMessage(conn, frames); err != nil {
		d.discard()
		return nil, newError(TransportError, "RegDriver.call", err)
	}

	reply, err := framing.ReadMessage(conn)
	if err != nil {
		d.discard()
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, newError(Timeout, "RegDriver.call", err)
		}
		return nil, newError(TransportError, "RegDriver.call", err)
	}
	if len(reply) < 1 {
		d.discard()
		return nil, newError(TransportError, "RegDriver.call", errInvalidf("empty reply"))
	}

	status := string(reply[0])
	if status != StatusSuccess {
		return nil, newError(TransportError, "RegDriver.call", errInvalidf("registrar error: %s", status))
	}
	return reply[1:], nil
}

// Add registers reg as a publisher or subscriber.
func (d *RegDriver) Add(reg wire.Registration, isPublisher bool) error {
	payload, err := wire.Encode(reg)
	if err != nil {
		return newError(Serialization, "RegDriver.Add", err)
	}
	command := CommandRegisterSubscriber
	if isPublisher {
		command = CommandRegisterPublisher
	}
	_, err = d.call(command, payload)
	return err
}

// Remove de-registers reg as a publisher or subscriber.
func (d *RegDriver) Remove(reg wire.Registration, isPublisher bool) error {
	payload, err := wire.Encode(reg)
	if err != nil {
		return newError(Serialization, "RegDriver.Remove", err)
	}
	command := CommandRemoveSubscriberRegistration
	if isPublisher {
		command = CommandRemovePublisherRegistration
	}
	_, err = d.call(command, payload)
	return err
}

// RemoveAll removes every registration this driver's sender previously
// added from host. Scoped to the caller's own host per this
// implementation's resolution of spec.md's open question on
// removeAllRegistration's blast radius.
func (d *RegDriver) RemoveAll(host string) error {
	_, err := d.call(CommandRemoveAllRegistration, []byte(host))
	return err
}

// Find returns every Registration whose topic is a match for topic,
// filtered to publishers or subscribers.
func (d *RegDriver) Find(topic Topic, isPublisher bool) ([]wire.Registration, error) {
	command := CommandFindSubscriber
	if isPublisher {
		command = CommandFindPublisher
	}
	reply, err := d.call(command, []byte(topic.Str()))
	if err != nil {
		return nil, err
	}
	regs := make([]wire.Registration, 0, len(reply))
	for _, frame := range reply {
		var reg wire.Registration
		if err := wire.Decode(frame, &reg); err != nil {
			return nil, newError(Serialization, "RegDriver.Find", err)
		}
		regs = append(regs, reg)
	}
	return regs, nil
}
