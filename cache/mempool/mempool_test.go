package mempool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// reactorpool.Record buffers (recv data, connect sockaddrs) round-trip
// through Malloc/Free/Cap exactly like this: grow on demand, reuse the
// full pool-class capacity, then return it once the operation settles.

func TestMallocGivesAtLeastRequestedCapacity(t *testing.T) {
	for _, sz := range []int{1, 64, 4096, 64 << 10, 1 << 20} {
		b := Malloc(sz)
		require.Len(t, b, sz)
		require.GreaterOrEqual(t, Cap(b), sz)
		Free(b)
	}
}

func TestMallocZeroSizeReturnsEmptySlice(t *testing.T) {
	b := Malloc(0)
	require.Empty(t, b)
}

// Cap reports the usable capacity of the buffer's pool class (class size
// minus the footer), not merely the length that was requested.
func TestCapReflectsPoolClassNotRequestedSize(t *testing.T) {
	const want = 8 << 10
	b := Malloc(want - footerLen)
	require.Equal(t, want-footerLen, Cap(b))
	require.Equal(t, want, cap(b))
	Free(b)
}

// reactorpool.Pool.Release calls mempool.Free on a Record's non-nil
// Buf/SockAddr; Free on a slice this package never allocated (or a nil
// or empty slice) must be a no-op, not a panic.
func TestFreeIsSafeOnForeignOrZeroBuffers(t *testing.T) {
	require.NotPanics(t, func() {
		Free(nil)
		Free([]byte{})
		Free(make([]byte, 16))      // plain slice, never Malloc'd
		Free(make([]byte, 0, 4096)) // right size class, wrong footer
	})
}

func TestFreeThenReallocRecyclesTheSameClass(t *testing.T) {
	b := Malloc(4096)
	cp := Cap(b)
	Free(b)
	b2 := Malloc(4096)
	require.Equal(t, cp, Cap(b2))
	Free(b2)
}
