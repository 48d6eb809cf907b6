package netaddr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringproactor/reactor/netaddr"
)

func TestParseIPAddressV4(t *testing.T) {
	a, err := netaddr.ParseIPAddress("127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, netaddr.IPv4, a.Family())
	assert.Equal(t, []byte{127, 0, 0, 1}, a.Bytes())
	assert.Equal(t, "127.0.0.1", a.String())
}

func TestParseIPAddressV6(t *testing.T) {
	a, err := netaddr.ParseIPAddress("::1")
	require.NoError(t, err)
	assert.Equal(t, netaddr.IPv6, a.Family())
	assert.Len(t, a.Bytes(), 16)
}

func TestEndpointRoundTrip(t *testing.T) {
	ep, err := netaddr.ParseEndpoint("127.0.0.1:8080")
	require.NoError(t, err)
	assert.Equal(t, uint16(8080), ep.Port())
	assert.Equal(t, "127.0.0.1:8080", ep.String())
}

func TestIPAddressFromBytesInvalid(t *testing.T) {
	_, err := netaddr.IPAddressFromBytes([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestLoopback(t *testing.T) {
	assert.Equal(t, "127.0.0.1", netaddr.Loopback(false).String())
	assert.Equal(t, "::1", netaddr.Loopback(true).String())
}
