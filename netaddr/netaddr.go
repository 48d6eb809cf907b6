// Package netaddr provides the immutable address value types consumed by
// the reactor and socket packages: IPAddress and Endpoint. These are not
// on any hot path; they exist only to hand the socket facade a byte-layout
// sockaddr and an address family.
package netaddr

import (
	"fmt"
	"net"
)

// Family discriminates the address family of an IPAddress.
type Family uint8

const (
	IPv4 Family = iota
	IPv6
)

// IPAddress is an immutable IPv4 or IPv6 address value.
type IPAddress struct {
	family Family
	bytes  [16]byte // first 4 bytes valid for IPv4, all 16 for IPv6
}

// ParseIPAddress parses a textual IPv4 or IPv6 address.
func ParseIPAddress(s string) (IPAddress, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return IPAddress{}, fmt.Errorf("netaddr: invalid address %q", s)
	}
	if v4 := ip.To4(); v4 != nil {
		var a IPAddress
		a.family = IPv4
		copy(a.bytes[:4], v4)
		return a, nil
	}
	var a IPAddress
	a.family = IPv6
	copy(a.bytes[:16], ip.To16())
	return a, nil
}

// IPAddressFromBytes builds an IPAddress from 4 (IPv4) or 16 (IPv6) bytes.
func IPAddressFromBytes(b []byte) (IPAddress, error) {
	var a IPAddress
	switch len(b) {
	case 4:
		a.family = IPv4
		copy(a.bytes[:4], b)
	case 16:
		a.family = IPv6
		copy(a.bytes[:16], b)
	default:
		return IPAddress{}, fmt.Errorf("netaddr: address must be 4 or 16 bytes, got %d", len(b))
	}
	return a, nil
}

// AnyIPv4 is 0.0.0.0.
func AnyIPv4() IPAddress { return IPAddress{family: IPv4} }

// Loopback returns 127.0.0.1 (ipv6=false) or ::1 (ipv6=true).
func Loopback(ipv6 bool) IPAddress {
	var a IPAddress
	if ipv6 {
		a.family = IPv6
		a.bytes[15] = 1
	} else {
		a.family = IPv4
		a.bytes[0] = 127
		a.bytes[3] = 1
	}
	return a
}

// Family reports whether this is an IPv4 or IPv6 address.
func (a IPAddress) Family() Family { return a.family }

// Bytes returns the 4 (IPv4) or 16 (IPv6) raw address bytes.
func (a IPAddress) Bytes() []byte {
	if a.family == IPv4 {
		b := make([]byte, 4)
		copy(b, a.bytes[:4])
		return b
	}
	b := make([]byte, 16)
	copy(b, a.bytes[:16])
	return b
}

func (a IPAddress) String() string {
	if a.family == IPv4 {
		return net.IP(a.bytes[:4]).String()
	}
	return net.IP(a.bytes[:16]).String()
}

// Endpoint pairs an address with a port, in host byte order.
type Endpoint struct {
	addr IPAddress
	port uint16
}

// NewEndpoint builds an Endpoint from an address and a host-order port.
func NewEndpoint(addr IPAddress, port uint16) Endpoint {
	return Endpoint{addr: addr, port: port}
}

// ParseEndpoint parses "host:port" into an Endpoint.
func ParseEndpoint(s string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Endpoint{}, err
	}
	addr, err := ParseIPAddress(host)
	if err != nil {
		return Endpoint{}, err
	}
	var port uint16
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return Endpoint{}, fmt.Errorf("netaddr: invalid port %q: %w", portStr, err)
	}
	return Endpoint{addr: addr, port: port}, nil
}

// Address returns the endpoint's address.
func (e Endpoint) Address() IPAddress { return e.addr }

// Port returns the endpoint's port, host byte order.
func (e Endpoint) Port() uint16 { return e.port }

func (e Endpoint) String() string {
	return net.JoinHostPort(e.addr.String(), fmt.Sprintf("%d", e.port))
}
