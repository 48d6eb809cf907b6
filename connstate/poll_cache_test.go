package connstate

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// ListenConnState calls pollcache.alloc() once per watched connection and
// pollcache.freeable() once that connection's stater.Close() runs; these
// tests exercise that same alloc/freeable/free cycle directly rather than
// the allocator's internal block-growth bookkeeping in isolation.

func TestAllocReturnsDistinctOperators(t *testing.T) {
	c := &pollCache{}
	seen := make(map[*fdOperator]bool)
	for i := 0; i < 100; i++ {
		op := c.alloc()
		require.NotNil(t, op)
		require.False(t, seen[op], "alloc handed out the same operator twice")
		seen[op] = true
	}
}

func TestAllocGrowsInBlocksAcrossPollBlockSize(t *testing.T) {
	c := &pollCache{}
	perBlock := int(pollBlockSize / unsafe.Sizeof(fdOperator{}))
	if perBlock == 0 {
		perBlock = 1
	}
	n := perBlock * 2 // force at least two block-growth passes
	ops := make([]*fdOperator, 0, n)
	for i := 0; i < n; i++ {
		ops = append(ops, c.alloc())
	}
	require.Len(t, ops, n)
	require.GreaterOrEqual(t, len(c.cache), n)
}

// freeable defers the actual recycling until free() flips freeack, mirroring
// how the poller batches frees instead of recycling synchronously on every
// Close.
func TestFreeableRecyclesOnlyAfterFree(t *testing.T) {
	c := &pollCache{}
	op := c.alloc()
	firstBeforeFree := c.first

	c.freeable(op)
	require.Equal(t, firstBeforeFree, c.first, "freeable must not recycle before free() acks")
	require.Len(t, c.freelist, 1)

	c.free()
	c.freeable(c.alloc()) // triggers the CAS-guarded recycle pass
	require.NotEqual(t, firstBeforeFree, c.first)
}
