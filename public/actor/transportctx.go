package actor

import (
	"net"
	"sync"

	"golang.org/x/net/netutil"
)

// defaultMaxSockets bounds concurrent outstanding drivers/connections
// when a Context does not override it.
const defaultMaxSockets = 1024

// Context is a shared facade around this process's transport tunables:
// io_threads (advisory, recorded but not enforced — this repo's
// transport is plain TCP with no thread-pool knob to set) and
// max_sockets, enforced server-side via netutil.LimitListener and
// client-side via a counting semaphore (spec.md §4.3).
type Context struct {
	ioThreads  int
	maxSockets int
	sem        chan struct{}
}

var (
	globalContext     *Context
	globalContextOnce sync.Once
)

// Instance returns the process-wide global Context, created on first
// use with default tunables.
func Instance() *Context {
	globalContextOnce.Do(func() {
		globalContext = NewContext(0, 0)
	})
	return globalContext
}

// NewContext creates an independent Context, used by an embedded Proxy
// server to isolate its I/O tunables from user actors. A zero or
// negative value for either tunable selects the implementation
// default.
func NewContext(ioThreads, maxSockets int) *Context {
	if maxSockets <= 0 {
		maxSockets = defaultMaxSockets
	}
	return &Context{
		ioThreads:  ioThreads,
		maxSockets: maxSockets,
		sem:        make(chan struct{}, maxSockets),
	}
}

// IOThreads returns the configured io_threads tunable.
func (c *Context) IOThreads() int { return c.ioThreads }

// MaxSockets returns the configured max_sockets tunable.
func (c *Context) MaxSockets() int { return c.maxSockets }

// LimitListener wraps l so no more than MaxSockets concurrent
// connections are accepted at once, for use by the Proxy and Registrar
// servers.
func (c *Context) LimitListener(l net.Listener) net.Listener {
	return netutil.LimitListener(l, c.maxSockets)
}

// Acquire blocks until a client-side socket slot is available. Release
// must be called exactly once per successful Acquire.
func (c *Context) Acquire() {
	c.sem <- struct{}{}
}

// Release returns a client-side socket slot acquired via Acquire.
func (c *Context) Release() {
	<-c.sem
}

// Close tears down the Context. Teardown is synchronous: after Close
// returns, no further Acquire calls should be made against it.
func (c *Context) Close() {}
