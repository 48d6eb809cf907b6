package ring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// reactorpool.shardState preallocates one Ring[Record] per shard with
// NewFromSlice and then only ever calls Get(idx) to recover a checked-out
// Record's address — it never walks Head/Next/Prev/Move. These tests
// mirror that exact access pattern plus the pointer-stability guarantee
// reactorpool depends on (a Record's address must not move between
// Acquire and Release).

type fakeRecord struct {
	fd    int32
	inUse bool
}

func TestNewFromSliceGetRecoversEachElementByIndex(t *testing.T) {
	recs := make([]fakeRecord, 256)
	for i := range recs {
		recs[i].fd = int32(i)
	}
	r := NewFromSlice(recs)
	require.Equal(t, 256, r.Len())

	for i := 0; i < 256; i++ {
		item, ok := r.Get(i)
		require.True(t, ok)
		require.Equal(t, int32(i), item.Value().fd)
		require.Equal(t, i, item.Index())
	}
}

func TestGetOutOfRangeReturnsFalse(t *testing.T) {
	r := NewFromSlice(make([]fakeRecord, 4))
	_, ok := r.Get(-1)
	require.False(t, ok)
	_, ok = r.Get(4)
	require.False(t, ok)
}

// A Record handed out via Pointer() must keep the same address across
// repeated Get calls for the same index: reactorpool's records are passed
// as io_uring user_data and cast back to a *Record on completion.
func TestPointerIdentityIsStableAcrossGets(t *testing.T) {
	r := NewFromSlice(make([]fakeRecord, 8))
	item, ok := r.Get(3)
	require.True(t, ok)
	p1 := item.Pointer()
	p1.fd = 42
	p1.inUse = true

	item2, ok := r.Get(3)
	require.True(t, ok)
	p2 := item2.Pointer()
	require.Same(t, p1, p2)
	require.Equal(t, int32(42), p2.fd)
}

// Do visits every item in index order, regardless of which are currently
// checked out. reactorpool itself does not call Do.
func TestDoVisitsEveryItemInOrder(t *testing.T) {
	recs := make([]fakeRecord, 5)
	for i := range recs {
		recs[i].fd = int32(i * 10)
	}
	r := NewFromSlice(recs)

	var seen []int32
	r.Do(func(v *fakeRecord) { seen = append(seen, v.fd) })
	require.Equal(t, []int32{0, 10, 20, 30, 40}, seen)
}
