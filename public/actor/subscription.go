package actor

import (
	"log"
	"time"
)

// Callback is invoked once per received message on a Subscription's
// worker goroutine.
type Callback func(Message)

// Subscription owns a driver moved in from the ConnectionPool and an
// independent worker goroutine that polls it, invoking a callback per
// message, until Stop is called (spec.md §4.7).
type Subscription struct {
	topic  Topic
	driver *ProxyDriver
	cb     Callback

	pool *ConnectionPool
	addr ProxyAddress

	pollInterval time.Duration
	stop         chan struct{}
	done         chan struct{}
}

// newSubscription subscribes the driver held by handle to topic and
// starts its worker, taking ownership of handle's driver until Stop.
// The poll interval is taken from the pool's Tunables.
func newSubscription(topic Topic, handle *ProxyHandle, cb Callback) (*Subscription, error) {
	pool, addr := handle.pool, handle.addr
	driver := handle.Detach()
	if err := driver.Subscribe(topic); err != nil {
		return nil, err
	}

	s := &Subscription{
		topic:        topic,
		driver:       driver,
		cb:           cb,
		pool:         pool,
		addr:         addr,
		pollInterval: pool.tunables.PollInterval,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	go s.run()
	return s, nil
}

func (s *Subscription) run() {
	defer close(s.done)

	for {
		select {
		case <-s.stop:
			if err := s.driver.Unsubscribe(s.topic); err != nil {
				log.Printf("actor: subscription %s: unsubscribe: %v", s.topic, err)
			}
			return
		default:
		}

		available, err := s.driver.Poll(s.pollInterval)
		if err != nil {
			log.Printf("actor: subscription %s: poll: %v", s.topic, err)
			continue
		}
		if !available {
			continue
		}

		msg, err := s.driver.Recv()
		if err != nil {
			log.Printf("actor: subscription %s: recv: %v", s.topic, err)
			continue
		}

		if !s.invoke(msg) {
			log.Printf("actor: subscription %s: callback faulted, retrying message once", s.topic)
			if !s.invoke(msg) {
				log.Printf("actor: subscription %s: callback faulted twice, dropping message", s.topic)
			}
		}
	}
}

// invoke runs the callback, isolating a panic as the fault signal
// (Callback has no error return).
func (s *Subscription) invoke(msg Message) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("actor: subscription %s: callback panic: %v", s.topic, r)
			ok = false
		}
	}()
	s.cb(msg)
	return true
}

// Stop sets the stop flag, joins the worker, and returns the driver to
// its originating pool (Actor.unsubscribe, spec.md §4.7).
func (s *Subscription) Stop() {
	close(s.stop)
	<-s.done
	if s.pool != nil {
		s.pool.releaseProxy(s.addr, s.driver)
	}
}
