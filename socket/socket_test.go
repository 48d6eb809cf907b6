package socket_test

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringproactor/reactor/connstate"
	"github.com/ringproactor/reactor/netaddr"
	"github.com/ringproactor/reactor/socket"
)

func skipNonUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("raw syscall socket setup is unix-specific in this test")
	}
}

func TestBindListenAcceptRoundTrip(t *testing.T) {
	skipNonUnix(t)

	s, err := socket.New(netaddr.IPv4)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SetOptions(socket.Options{ReuseAddress: true}))
	require.NoError(t, s.Bind(netaddr.NewEndpoint(netaddr.Loopback(false), 0)))
	require.NoError(t, s.Listen(16))
	require.NoError(t, s.SetNonBlocking(true))

	assert.True(t, s.IsValid())
	assert.Equal(t, netaddr.IPv4, s.Family())
	assert.NotZero(t, s.Fd())
}

func TestCloseIsIdempotent(t *testing.T) {
	skipNonUnix(t)

	s, err := socket.New(netaddr.IPv4)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.False(t, s.IsValid())
}

func TestStateDefaultsToOKWithoutWatch(t *testing.T) {
	skipNonUnix(t)

	s, err := socket.New(netaddr.IPv4)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, connstate.StateOK, s.State())
}

func TestFromFDWrapsExistingDescriptor(t *testing.T) {
	skipNonUnix(t)

	s, err := socket.New(netaddr.IPv4)
	require.NoError(t, err)
	defer s.Close()

	wrapped := socket.FromFD(int32(s.Fd()), netaddr.IPv4)
	assert.Equal(t, s.Fd(), wrapped.Fd())
}
