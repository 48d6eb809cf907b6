package socket

import (
	"fmt"
	"syscall"

	"github.com/ringproactor/reactor/netaddr"
)

// toSockaddr converts an Endpoint into the syscall package's Sockaddr
// representation, for the synchronous Bind call.
func toSockaddr(ep netaddr.Endpoint) (syscall.Sockaddr, error) {
	addr := ep.Address()
	switch addr.Family() {
	case netaddr.IPv4:
		var sa syscall.SockaddrInet4
		copy(sa.Addr[:], addr.Bytes())
		sa.Port = int(ep.Port())
		return &sa, nil
	case netaddr.IPv6:
		var sa syscall.SockaddrInet6
		copy(sa.Addr[:], addr.Bytes())
		sa.Port = int(ep.Port())
		return &sa, nil
	default:
		return nil, fmt.Errorf("socket: unknown address family %v", addr.Family())
	}
}
