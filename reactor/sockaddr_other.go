//go:build !linux && !windows

package reactor

import (
	"encoding/binary"

	"github.com/ringproactor/reactor/netaddr"
)

// encodeSockaddr is unused on unsupported platforms (newBackend already
// fails construction), but kept so the package compiles everywhere.
func encodeSockaddr(ep netaddr.Endpoint) []byte {
	addr := ep.Address()
	b := make([]byte, 16)
	binary.LittleEndian.PutUint16(b[0:2], 2)
	binary.BigEndian.PutUint16(b[2:4], ep.Port())
	copy(b[4:8], addr.Bytes())
	return b
}
