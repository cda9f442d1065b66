package actor

import (
	"fmt"
	"net"
	"testing"
	"time"
)

// startFakeProxyListeners accepts and discards connections on a pub and
// sub port, just enough for ProxyDriver.Connect to succeed without
// pulling in the internal/proxy package (which imports this one).
func startFakeProxyListeners(t *testing.T, pubPort, subPort int) {
	t.Helper()

	pubLn, err := net.Listen("tcp", addrFor(pubPort))
	if err != nil {
		t.Fatalf("listen pub: %v", err)
	}
	subLn, err := net.Listen("tcp", addrFor(subPort))
	if err != nil {
		t.Fatalf("listen sub: %v", err)
	}

	accept := func(ln net.Listener) {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				buf := make([]byte, 4096)
				for {
					if _, err := conn.Read(buf); err != nil {
						conn.Close()
						return
					}
				}
			}()
		}
	}
	go accept(pubLn)
	go accept(subLn)

	t.Cleanup(func() {
		pubLn.Close()
		subLn.Close()
	})
}

func addrFor(port int) string {
	return fmt.Sprintf("127.0.0.1:%d", port)
}

func TestConnectionPoolReusesReleasedDriver(t *testing.T) {
	startFakeProxyListeners(t, 19781, 19782)

	pool := NewConnectionPool(NewContext(0, 8), nil, "test-sender")
	defer pool.Close()

	addr, err := NewProxyAddress("127.0.0.1", 19781)
	if err != nil {
		t.Fatalf("NewProxyAddress: %v", err)
	}

	handle1, err := pool.GetProxyConnection(addr)
	if err != nil {
		t.Fatalf("GetProxyConnection: %v", err)
	}
	driver1 := handle1.Driver()
	handle1.Release()

	handle2, err := pool.GetProxyConnection(addr)
	if err != nil {
		t.Fatalf("GetProxyConnection: %v", err)
	}
	defer handle2.Release()

	if handle2.Driver() != driver1 {
		t.Fatalf("expected released driver to be reused")
	}
}

func TestConnectionPoolUsesInjectedProxyFactory(t *testing.T) {
	startFakeProxyListeners(t, 19785, 19786)

	pool := NewConnectionPool(NewContext(0, 8), nil, "test-sender")
	defer pool.Close()

	var calls int
	pool.SetProxyFactory(func(addr ProxyAddress) *ProxyDriver {
		calls++
		return NewProxyDriver(addr, 0)
	})

	addr, err := NewProxyAddress("127.0.0.1", 19785)
	if err != nil {
		t.Fatalf("NewProxyAddress: %v", err)
	}

	handle, err := pool.GetProxyConnection(addr)
	if err != nil {
		t.Fatalf("GetProxyConnection: %v", err)
	}
	defer handle.Release()

	if calls != 1 {
		t.Fatalf("expected the injected factory to be called once, got %d", calls)
	}
}

func TestConnectionPoolUsesInjectedRegFactory(t *testing.T) {
	pool := NewConnectionPool(NewContext(0, 8), nil, "test-sender")
	defer pool.Close()

	var gotSender string
	pool.SetRegFactory(func(addr RegAddress, sender string) *RegDriver {
		gotSender = sender
		return NewRegDriver(addr, sender, time.Millisecond)
	})

	addr, err := NewRegAddress("127.0.0.1", 19787)
	if err != nil {
		t.Fatalf("NewRegAddress: %v", err)
	}

	handle, err := pool.GetRegConnection(addr)
	if err != nil {
		t.Fatalf("GetRegConnection: %v", err)
	}
	defer handle.Release()

	if gotSender != "test-sender" {
		t.Fatalf("expected injected factory to see sender %q, got %q", "test-sender", gotSender)
	}
}

func TestConnectionPoolCloseRejectsFurtherUse(t *testing.T) {
	startFakeProxyListeners(t, 19783, 19784)

	pool := NewConnectionPool(NewContext(0, 8), nil, "test-sender")
	addr, _ := NewProxyAddress("127.0.0.1", 19783)

	handle, err := pool.GetProxyConnection(addr)
	if err != nil {
		t.Fatalf("GetProxyConnection: %v", err)
	}
	handle.Release()

	pool.Close()

	if _, err := pool.GetProxyConnection(addr); err == nil {
		t.Fatalf("expected error after pool close")
	}
}
