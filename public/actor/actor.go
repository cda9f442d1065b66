package actor

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/JeffersonLab/dift-sub001/internal/telemetry"
	"github.com/JeffersonLab/dift-sub001/internal/wire"
)

// DefaultSettleDelay is how long a freshly dialed ProxyDriver's
// post-connection hook pauses, giving the Proxy time to propagate a
// subscription before the caller starts publishing.
const DefaultSettleDelay = 50 * time.Millisecond

// Actor is the public entry point: a named participant with a default
// Proxy and Registrar address, backed by a ConnectionPool
// (spec.md §4.8).
type Actor struct {
	name     string
	debug    bool
	proxy    ProxyAddress
	registry RegAddress
	pool     *ConnectionPool

	replyCounter atomic.Int64

	instruments *telemetry.Instruments
}

// NewActor constructs an Actor with the given name and default
// addresses. A ConnectionPool is created internally, sized by ctx (the
// process Context is used if ctx is nil). tunables is an optional
// trailing argument carrying the spec.md §4.11 knobs (registrar call
// timeout, subscription poll interval, compression threshold);
// omitting it selects the documented defaults.
func NewActor(name string, proxyAddr ProxyAddress, regAddr RegAddress, ctx *Context, debug bool, tunables ...Tunables) (*Actor, error) {
	if name == "" {
		return nil, newError(InvalidArgument, "NewActor", errInvalidf("name must not be empty"))
	}
	if ctx == nil {
		ctx = Instance()
	}
	setup := DefaultConnectionSetup(DefaultSettleDelay)
	return &Actor{
		name:        name,
		debug:       debug,
		proxy:       proxyAddr,
		registry:    regAddr,
		pool:        NewConnectionPool(ctx, setup, name, tunables...),
		instruments: telemetry.Get(),
	}, nil
}

// Name returns the actor's name.
func (a *Actor) Name() string { return a.name }

// Connect opens a scoped ProxyDriver handle against the actor's default
// Proxy address.
func (a *Actor) Connect() (*ProxyHandle, error) {
	return a.ConnectTo(a.proxy)
}

// ConnectTo opens a scoped ProxyDriver handle against addr.
func (a *Actor) ConnectTo(addr ProxyAddress) (*ProxyHandle, error) {
	return a.pool.GetProxyConnection(addr)
}

// Publish sends msg over handle's driver. Send returns as soon as the
// message is queued by the transport; this call does not block on
// delivery.
func (a *Actor) Publish(handle *ProxyHandle, msg Message) error {
	ctx, span := a.instruments.StartSpan(context.Background(), "actor.publish")
	defer span.End()
	_ = ctx

	if err := handle.Driver().Send(msg); err != nil {
		return err
	}
	a.logf("published to %s", msg.Topic())
	a.instruments.MessagesPublished.Add(context.Background(), 1)
	return nil
}

// SyncPublish publishes msg and blocks for up to timeout for the first
// reply, correlated via a one-shot reply topic (spec.md §4.8).
//
// A fresh driver is used for the temporary reply subscription because
// the publishing handle's driver may not have a SUB socket subscribed,
// and sharing one across the publish and the wait would race.
func (a *Actor) SyncPublish(handle *ProxyHandle, msg Message, timeout time.Duration) (Message, error) {
	ctx, span := a.instruments.StartSpan(context.Background(), "actor.sync_publish")
	defer span.End()
	_ = ctx

	replyTopic := RawTopic(fmt.Sprintf("reply:%s:%d", a.name, a.replyCounter.Add(1)))

	replyHandle, err := a.ConnectTo(handle.addr)
	if err != nil {
		return Message{}, err
	}

	replyCh := make(chan Message, 1)
	sub, err := a.Subscribe(replyTopic, replyHandle, func(m Message) {
		select {
		case replyCh <- m:
		default:
		}
	})
	if err != nil {
		replyHandle.Release()
		return Message{}, err
	}
	defer a.Unsubscribe(sub)

	if err := a.Publish(handle, msg.WithReplyTo(replyTopic)); err != nil {
		return Message{}, err
	}

	select {
	case reply := <-replyCh:
		a.instruments.MessagesReceived.Add(context.Background(), 1)
		return reply, nil
	case <-time.After(timeout):
		return Message{}, newError(Timeout, "Actor.SyncPublish", errInvalidf("no reply within %s", timeout))
	}
}

// Subscribe transfers handle into a new Subscription bound to topic,
// invoking cb on its worker goroutine for every received message.
func (a *Actor) Subscribe(topic Topic, handle *ProxyHandle, cb Callback) (*Subscription, error) {
	a.logf("subscribing to %s", topic)
	wrapped := func(m Message) {
		a.instruments.MessagesReceived.Add(context.Background(), 1)
		cb(m)
	}
	return newSubscription(topic, handle, wrapped)
}

// Unsubscribe stops sub's worker and joins it.
func (a *Actor) Unsubscribe(sub *Subscription) {
	sub.Stop()
}

// registrationFor builds a Registration for topic owned by this actor,
// filled with the actor's name and the default Proxy's host+pub_port
// (spec.md §4.8).
func (a *Actor) registrationFor(topic Topic, ownerType wire.OwnerType) wire.Registration {
	return wire.Registration{
		Name:      a.name,
		Host:      a.proxy.Host,
		Port:      a.proxy.PubPort(),
		Domain:    topic.Domain(),
		Subject:   topic.Subject(),
		Type:      topic.Type(),
		OwnerType: ownerType,
	}
}

func (a *Actor) withRegDriver(fn func(*RegDriver) error) error {
	handle, err := a.pool.GetRegConnection(a.registry)
	if err != nil {
		return err
	}
	defer handle.Release()
	a.instruments.RegistrarCalls.Add(context.Background(), 1)
	return fn(handle.Driver())
}

// RegisterPublisher advertises this actor as a publisher of topic.
func (a *Actor) RegisterPublisher(topic Topic) error {
	reg := a.registrationFor(topic, wire.Publisher)
	return a.withRegDriver(func(d *RegDriver) error { return d.Add(reg, true) })
}

// RegisterSubscriber advertises this actor as a subscriber of topic.
func (a *Actor) RegisterSubscriber(topic Topic) error {
	reg := a.registrationFor(topic, wire.Subscriber)
	return a.withRegDriver(func(d *RegDriver) error { return d.Add(reg, false) })
}

// DeregisterPublisher removes this actor's publisher registration for topic.
func (a *Actor) DeregisterPublisher(topic Topic) error {
	reg := a.registrationFor(topic, wire.Publisher)
	return a.withRegDriver(func(d *RegDriver) error { return d.Remove(reg, true) })
}

// DeregisterSubscriber removes this actor's subscriber registration for topic.
func (a *Actor) DeregisterSubscriber(topic Topic) error {
	reg := a.registrationFor(topic, wire.Subscriber)
	return a.withRegDriver(func(d *RegDriver) error { return d.Remove(reg, false) })
}

// DeregisterAll removes every registration this actor (matched by its
// name) previously added from its default Proxy host, per this
// implementation's resolution of the removeAll scoping open question
// (DESIGN.md).
func (a *Actor) DeregisterAll() error {
	return a.withRegDriver(func(d *RegDriver) error { return d.RemoveAll(a.proxy.Host) })
}

// DiscoverPublishers returns every Registration of a publisher whose
// topic matches topic, ordered per spec.md §3.
func (a *Actor) DiscoverPublishers(topic Topic) ([]wire.Registration, error) {
	var regs []wire.Registration
	err := a.withRegDriver(func(d *RegDriver) error {
		var err error
		regs, err = d.Find(topic, true)
		return err
	})
	return regs, err
}

// DiscoverSubscribers returns every Registration of a subscriber whose
// topic matches topic, ordered per spec.md §3.
func (a *Actor) DiscoverSubscribers(topic Topic) ([]wire.Registration, error) {
	var regs []wire.Registration
	err := a.withRegDriver(func(d *RegDriver) error {
		var err error
		regs, err = d.Find(topic, false)
		return err
	})
	return regs, err
}

// Close releases the actor's ConnectionPool, closing every idle driver.
func (a *Actor) Close() {
	a.pool.Close()
}

func (a *Actor) logf(format string, args ...interface{}) {
	if !a.debug {
		return
	}
	log.Printf("actor %s: "+format, append([]interface{}{a.name}, args...)...)
}
