package reactorpool_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringproactor/reactor/reactorpool"
)

func TestAcquireRelease(t *testing.T) {
	p := reactorpool.New(reactorpool.Config{Shards: 2, RecordsPerShard: 4})
	rec, err := p.Acquire(7, reactorpool.KindAccept)
	require.NoError(t, err)
	assert.Equal(t, int32(7), rec.Fd)
	assert.Equal(t, reactorpool.KindAccept, rec.Kind)
	p.Release(rec)
}

func TestAcquireBufPinsBuffer(t *testing.T) {
	p := reactorpool.New(reactorpool.Config{Shards: 1, RecordsPerShard: 2})
	rec, err := p.AcquireBuf(3, reactorpool.KindRecv, 4096)
	require.NoError(t, err)
	require.NotNil(t, rec.Buf)
	assert.GreaterOrEqual(t, len(rec.Buf), 4096)
	p.Release(rec)
}

func TestExhaustionReturnsError(t *testing.T) {
	p := reactorpool.New(reactorpool.Config{Shards: 1, RecordsPerShard: 1})
	rec, err := p.Acquire(1, reactorpool.KindConnect)
	require.NoError(t, err)
	_, err = p.Acquire(1, reactorpool.KindConnect)
	assert.ErrorIs(t, err, reactorpool.ErrExhausted)
	p.Release(rec)
	rec2, err := p.Acquire(1, reactorpool.KindConnect)
	require.NoError(t, err)
	p.Release(rec2)
}

func TestReleaseResetsRecord(t *testing.T) {
	p := reactorpool.New(reactorpool.Config{Shards: 1, RecordsPerShard: 1})
	rec, err := p.AcquireBuf(5, reactorpool.KindSend, 128)
	require.NoError(t, err)
	rec.Result = 99
	rec.Complete = func(int32, error) {}
	p.Release(rec)

	rec2, err := p.Acquire(5, reactorpool.KindRecv)
	require.NoError(t, err)
	assert.Nil(t, rec2.Buf)
	assert.Equal(t, int32(0), rec2.Result)
	assert.Nil(t, rec2.Complete)
}

func TestConcurrentAcquireReleaseDoesNotRace(t *testing.T) {
	p := reactorpool.New(reactorpool.DefaultConfig())
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(fd int32) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				rec, err := p.Acquire(fd, reactorpool.KindRecv)
				if err != nil {
					continue
				}
				p.Release(rec)
			}
		}(int32(i))
	}
	wg.Wait()
}
