package actor

import (
	"fmt"
)

// ProxyAddress identifies a running Proxy server: the host plus its
// publisher-facing port. The subscriber-facing and control ports are
// conventionally derived offsets from it (spec.md §6's defaults are
// pub=7771, sub=7772, control=7773 — i.e. pub+1, pub+2).
type ProxyAddress struct {
	Host string
	Port int
}

// NewProxyAddress builds a ProxyAddress, rejecting an empty host or a
// non-positive port.
func NewProxyAddress(host string, port int) (ProxyAddress, error) {
	if host == "" {
		return ProxyAddress{}, newError(InvalidArgument, "NewProxyAddress", errInvalidf("host must not be empty"))
	}
	if port <= 0 {
		return ProxyAddress{}, newError(InvalidArgument, "NewProxyAddress", errInvalidf("port must be positive, got %d", port))
	}
	return ProxyAddress{Host: host, Port: port}, nil
}

// PubPort is the port publishers connect to.
func (a ProxyAddress) PubPort() int { return a.Port }

// SubPort is the port subscribers connect to.
func (a ProxyAddress) SubPort() int { return a.Port + 1 }

// ControlPort is the port the liveness/control responder listens on.
func (a ProxyAddress) ControlPort() int { return a.Port + 2 }

// String returns the dial address for the publisher-facing socket.
func (a ProxyAddress) String() string { return fmt.Sprintf("%s:%d", a.Host, a.PubPort()) }

// PubString returns the dial address for the publisher-facing socket.
func (a ProxyAddress) PubString() string { return fmt.Sprintf("%s:%d", a.Host, a.PubPort()) }

// SubString returns the dial address for the subscriber-facing socket.
func (a ProxyAddress) SubString() string { return fmt.Sprintf("%s:%d", a.Host, a.SubPort()) }

// ControlString returns the dial address for the control responder.
func (a ProxyAddress) ControlString() string { return fmt.Sprintf("%s:%d", a.Host, a.ControlPort()) }

// Equal reports field-wise equality.
func (a ProxyAddress) Equal(other ProxyAddress) bool { return a == other }

// RegAddress identifies a running Registrar server.
type RegAddress struct {
	Host string
	Port int
}

// NewRegAddress builds a RegAddress, rejecting an empty host or a
// non-positive port.
func NewRegAddress(host string, port int) (RegAddress, error) {
	if host == "" {
		return RegAddress{}, newError(InvalidArgument, "NewRegAddress", errInvalidf("host must not be empty"))
	}
	if port <= 0 {
		return RegAddress{}, newError(InvalidArgument, "NewRegAddress", errInvalidf("port must be positive, got %d", port))
	}
	return RegAddress{Host: host, Port: port}, nil
}

// String returns the dial address for the registrar's request socket.
func (a RegAddress) String() string { return fmt.Sprintf("%s:%d", a.Host, a.Port) }

// Equal reports field-wise equality.
func (a RegAddress) Equal(other RegAddress) bool { return a == other }
