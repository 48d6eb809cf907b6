//go:build linux

package reactor

import (
	"encoding/binary"

	"github.com/ringproactor/reactor/netaddr"
)

// encodeSockaddr writes ep into the kernel's sockaddr_in/sockaddr_in6
// wire layout (AF_INET=2, AF_INET6=10 on Linux), for IORING_OP_CONNECT.
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
	binary.LittleEndian.PutUint16(b[0:2], 10) // AF_INET6
	binary.BigEndian.PutUint16(b[2:4], ep.Port())
	copy(b[8:24], addr.Bytes())
	return b
}
