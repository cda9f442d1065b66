package actor

import (
	"net"
	"sync"
	"time"
)

// ConnectionSetup is an injection point the ConnectionPool applies to
// every freshly dialed ProxyDriver: PreConnection sets transport-level
// socket options, PostConnection pauses after connect since the
// transport is connectionless and subscriptions need time to propagate
// (spec.md §4.6).
type ConnectionSetup struct {
	PreConnectionFn  func(conn net.Conn) error
	PostConnectionFn func()
}

// PreConnection runs the configured pre-connection hook, if any.
func (s *ConnectionSetup) PreConnection(conn net.Conn) error {
	if s == nil || s.PreConnectionFn == nil {
		return nil
	}
	return s.PreConnectionFn(conn)
}

// PostConnection runs the configured post-connection hook, if any.
func (s *ConnectionSetup) PostConnection() {
	if s == nil || s.PostConnectionFn == nil {
		return
	}
	s.PostConnectionFn()
}

// DefaultConnectionSetup pauses briefly after connect to give the
// Proxy's subscription propagation a chance to settle before the
// caller starts publishing.
func DefaultConnectionSetup(settleDelay time.Duration) *ConnectionSetup {
	return &ConnectionSetup{
		PostConnectionFn: func() { time.Sleep(settleDelay) },
	}
}

// ProxyHandle is a pool-issued scoped handle to a ProxyDriver. Release
// returns the driver to its pool's idle stack; it must be called
// exactly once.
type ProxyHandle struct {
	pool   *ConnectionPool
	addr   ProxyAddress
	driver *ProxyDriver
}

// Driver returns the underlying ProxyDriver.
func (h *ProxyHandle) Driver() *ProxyDriver { return h.driver }

// Release returns the driver to the pool's idle stack for addr. Calling
// Release more than once is a no-op. If the pool has been closed, the
// first Release closes the driver instead of returning it.
func (h *ProxyHandle) Release() {
	if h.pool == nil {
		return
	}
	h.pool.releaseProxy(h.addr, h.driver)
	h.pool = nil
}

// Detach removes this handle from pool bookkeeping without returning
// the driver, used when a handle is moved into a Subscription so the
// driver is not returned to the idle stack until the subscription ends.
func (h *ProxyHandle) Detach() *ProxyDriver {
	h.pool = nil
	return h.driver
}

// RegHandle is the RegDriver analogue of ProxyHandle.
type RegHandle struct {
	pool   *ConnectionPool
	addr   RegAddress
	driver *RegDriver
}

// Driver returns the underlying RegDriver.
func (h *RegHandle) Driver() *RegDriver { return h.driver }

// Release returns the driver to the pool's idle stack for addr.
func (h *RegHandle) Release() {
	if h.pool == nil {
		return
	}
	h.pool.releaseReg(h.addr, h.driver)
	h.pool = nil
}

// ConnectionPool holds two address-keyed caches of idle drivers, one
// for ProxyDriver and one for RegDriver. Each entry is a LIFO stack;
// get_connection pops the top idle driver or dials a new one
// (spec.md §4.6).
//
// New drivers are constructed via createProxyConn/createRegConn rather
// than by calling NewProxyDriver/NewRegDriver directly — spec.md §4.6
// calls this the create_connection hook, "virtual so tests can
// substitute a fake". NewConnectionPool defaults both to the real
// constructors; SetProxyFactory/SetRegFactory override them.
type ConnectionPool struct {
	ctx      *Context
	setup    *ConnectionSetup
	sender   string
	tunables Tunables

	createProxyConn func(ProxyAddress) *ProxyDriver
	createRegConn   func(RegAddress, string) *RegDriver

	mu        sync.Mutex
	proxyIdle map[ProxyAddress][]*ProxyDriver
	regIdle   map[RegAddress][]*RegDriver
	closed    bool
}

// NewConnectionPool constructs an empty pool. ctx bounds total
// outstanding sockets via its client-side semaphore; setup is applied
// to every freshly dialed ProxyDriver. tunables is an optional trailing
// argument (spec.md §4.11 knobs); omitting it selects the documented
// defaults.
func NewConnectionPool(ctx *Context, setup *ConnectionSetup, sender string, tunables ...Tunables) *ConnectionPool {
	if ctx == nil {
		ctx = Instance()
	}
	t := firstTunables(tunables)
	p := &ConnectionPool{
		ctx:       ctx,
		setup:     setup,
		sender:    sender,
		tunables:  t,
		proxyIdle: make(map[ProxyAddress][]*ProxyDriver),
		regIdle:   make(map[RegAddress][]*RegDriver),
	}
	p.createProxyConn = func(addr ProxyAddress) *ProxyDriver {
		return NewProxyDriver(addr, p.tunables.CompressThreshold)
	}
	p.createRegConn = func(addr RegAddress, sender string) *RegDriver {
		return NewRegDriver(addr, sender, p.tunables.RegDriverTimeout)
	}
	return p
}

// SetProxyFactory overrides how fresh ProxyDrivers are constructed,
// letting a test substitute a fake instead of dialing real sockets.
func (p *ConnectionPool) SetProxyFactory(fn func(ProxyAddress) *ProxyDriver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createProxyConn = fn
}

// SetRegFactory overrides how fresh RegDrivers are constructed.
func (p *ConnectionPool) SetRegFactory(fn func(RegAddress, string) *RegDriver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createRegConn = fn
}

// GetProxyConnection pops an idle driver for addr or dials a new one,
// returning a scoped handle.
func (p *ConnectionPool) GetProxyConnection(addr ProxyAddress) (*ProxyHandle, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, newError(InvalidArgument, "ConnectionPool.GetProxyConnection", errInvalidf("pool is closed"))
	}
	stack := p.proxyIdle[addr]
	if n := len(stack); n > 0 {
		driver := stack[n-1]
		p.proxyIdle[addr] = stack[:n-1]
		p.mu.Unlock()
		return &ProxyHandle{pool: p, addr: addr, driver: driver}, nil
	}
	createProxyConn := p.createProxyConn
	p.mu.Unlock()

	p.ctx.Acquire()
	driver := createProxyConn(addr)
	if err := driver.Connect(p.setup); err != nil {
		p.ctx.Release()
		return nil, err
	}
	return &ProxyHandle{pool: p, addr: addr, driver: driver}, nil
}

func (p *ConnectionPool) releaseProxy(addr ProxyAddress, driver *ProxyDriver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		driver.Close()
		p.ctx.Release()
		return
	}
	p.proxyIdle[addr] = append(p.proxyIdle[addr], driver)
}

// GetRegConnection pops an idle RegDriver for addr or constructs a new
// one (RegDriver dials lazily on first call).
func (p *ConnectionPool) GetRegConnection(addr RegAddress) (*RegHandle, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, newError(InvalidArgument, "ConnectionPool.GetRegConnection", errInvalidf("pool is closed"))
	}
	stack := p.regIdle[addr]
	if n := len(stack); n > 0 {
		driver := stack[n-1]
		p.regIdle[addr] = stack[:n-1]
		p.mu.Unlock()
		return &RegHandle{pool: p, addr: addr, driver: driver}, nil
	}
	createRegConn := p.createRegConn
	sender := p.sender
	p.mu.Unlock()

	p.ctx.Acquire()
	driver := createRegConn(addr, sender)
	return &RegHandle{pool: p, addr: addr, driver: driver}, nil
}

func (p *ConnectionPool) releaseReg(addr RegAddress, driver *RegDriver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		driver.Close()
		p.ctx.Release()
		return
	}
	p.regIdle[addr] = append(p.regIdle[addr], driver)
}

// Close closes every cached idle driver and marks the pool unusable.
// In-flight (checked-out) drivers are closed as they are released.
func (p *ConnectionPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for _, stack := range p.proxyIdle {
		for _, driver := range stack {
			driver.Close()
			p.ctx.Release()
		}
	}
	for _, stack := range p.regIdle {
		for _, driver := range stack {
			driver.Close()
			p.ctx.Release()
		}
	}
	p.proxyIdle = nil
	p.regIdle = nil
}
