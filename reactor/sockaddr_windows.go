//go:build windows

package reactor

import (
	"encoding/binary"

	"github.com/ringproactor/reactor/netaddr"
)

// encodeSockaddr writes ep into the Winsock sockaddr_in/sockaddr_in6 wire
// layout (AF_INET=2, AF_INET6=23 on Windows), for ConnectEx.
func encodeSockaddr(ep netaddr.Endpoint) []byte {
	addr := ep.Address()
	if addr.Family() == netaddr.IPv4 {
		b := make([]byte, 16)
		binary.LittleEndian.PutUint16(b[0:2], 2) // AF_INET
		binary.BigEndian.PutUint16(b[2:4], ep.Port())
		copy(b[4:8], addr.Bytes())
		return b
	}
	b := make([]byte, 28)
	binary.LittleEndian.PutUint16(b[0:2], 23) // AF_INET6
	binary.BigEndian.PutUint16(b[2:4], ep.Port())
	copy(b[8:24], addr.Bytes())
	return b
}
