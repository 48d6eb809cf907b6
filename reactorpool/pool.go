// Package reactorpool provides the sharded, pool-allocated operation
// records that back every in-flight io_uring/IOCP submission. A Record's
// address is handed to the kernel as user_data (Linux) or recovered via
// container-of from an OVERLAPPED pointer (Windows); it must stay alive
// and at a fixed address for the lifetime of the submission, so records
// come from a preallocated ring rather than a bare sync.Pool of pointers
// that the GC is free to relocate-by-reclaim between calls.
package reactorpool

import (
	"fmt"
	"sync"

	"github.com/ringproactor/reactor/cache/mempool"
	"github.com/ringproactor/reactor/container/ring"
	"github.com/ringproactor/reactor/hash/xfnv"
)

// Kind discriminates the operation a Record is carrying.
type Kind uint8

const (
	KindAccept Kind = iota
	KindRecv
	KindSend
	KindConnect
)

func (k Kind) String() string {
	switch k {
	case KindAccept:
		return "accept"
	case KindRecv:
		return "recv"
	case KindSend:
		return "send"
	case KindConnect:
		return "connect"
	default:
		return "unknown"
	}
}

// Record is one in-flight operation's bookkeeping. Its address is stable
// for as long as it is checked out of a Pool: the ring backing store never
// moves or reallocates its elements.
type Record struct {
	Kind Kind
	Fd   int32

	// Buf is the pinned buffer for Recv/Send; nil for Accept/Connect.
	// Allocated from cache/mempool so it is never moved by the GC either.
	Buf []byte

	// SockAddr is the raw sockaddr storage for Accept (written by the
	// kernel/IOCP) and Connect (written by the caller before submission).
	// SockAddrLen is the accompanying length, passed by pointer to
	// io_uring's accept opcode and by value to its connect opcode.
	SockAddr    []byte
	SockAddrLen uint32

	// Result and Err are spare result slots cleared by reset. Neither
	// backend writes them: the completion result is passed to Complete
	// as its arguments.
	Result int32
	Err    error

	// Complete is set by the caller before submission and invoked exactly
	// once by the backend's completion path. It is nil while the Record
	// sits on the free list.
	Complete func(result int32, err error)

	shard int
	inUse bool
}

// reset clears a Record back to its free-list state. Buf is released to
// mempool here rather than by the caller, so every acquire/release pair
// is symmetric regardless of which operation kind used the Record.
func (r *Record) reset() {
	if r.Buf != nil {
		mempool.Free(r.Buf)
	}
	if r.SockAddr != nil {
		mempool.Free(r.SockAddr)
	}
	r.Kind = 0
	r.Fd = 0
	r.Buf = nil
	r.SockAddr = nil
	r.SockAddrLen = 0
	r.Result = 0
	r.Err = nil
	r.Complete = nil
	r.inUse = false
}

// EnsureSockAddr pins a size-byte buffer into r.SockAddr if one isn't
// already attached, for backends that need scratch sockaddr storage
// (io_uring's IORING_OP_ACCEPT writes the peer address here; Connect
// writes the target address here before submission).
func (r *Record) EnsureSockAddr(size int) []byte {
	if r.SockAddr == nil {
		r.SockAddr = mempool.Malloc(size)
	}
	return r.SockAddr
}

// shardState is one shard's free list: a preallocated ring of Records plus
// a stack of indices not currently checked out.
type shardState struct {
	mu   sync.Mutex
	ring *ring.Ring[Record]
	free []int
}

// Pool is a fixed set of shards, each independently lockable, so that
// operations on unrelated file descriptors never contend on the same
// mutex. The shard for a given fd is chosen by hashing the fd with the
// same FNV-1a used elsewhere in this tree for in-memory-only hashing.
type Pool struct {
	shards    []*shardState
	shardMask uint64
}

// Config controls the size of the pool.
type Config struct {
	// Shards is the number of independent free lists; rounded up to the
	// next power of two. Defaults to 16.
	Shards int
	// RecordsPerShard is how many Records each shard preallocates.
	// Defaults to 256.
	RecordsPerShard int
}

// DefaultConfig returns the Config used when New is called with a zero
// value.
func DefaultConfig() Config {
	return Config{Shards: 16, RecordsPerShard: 256}
}

// New builds a Pool per cfg. A zero Config is replaced with DefaultConfig.
func New(cfg Config) *Pool {
	if cfg.Shards <= 0 {
		cfg.Shards = DefaultConfig().Shards
	}
	if cfg.RecordsPerShard <= 0 {
		cfg.RecordsPerShard = DefaultConfig().RecordsPerShard
	}
	n := nextPow2(cfg.Shards)
	shards := make([]*shardState, n)
	for i := range shards {
		items := make([]Record, cfg.RecordsPerShard)
		ss := &shardState{
			ring: ring.NewFromSlice(items),
			free: make([]int, cfg.RecordsPerShard),
		}
		for j := range ss.free {
			ss.free[j] = cfg.RecordsPerShard - 1 - j
		}
		shards[i] = ss
	}
	return &Pool{shards: shards, shardMask: uint64(n - 1)}
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (p *Pool) shardFor(fd int32) *shardState {
	var b [4]byte
	b[0] = byte(fd)
	b[1] = byte(fd >> 8)
	b[2] = byte(fd >> 16)
	b[3] = byte(fd >> 24)
	idx := xfnv.Hash(b[:]) & p.shardMask
	return p.shards[idx]
}

// ErrExhausted is returned by Acquire (and AcquireBuf) when the fd's
// shard has no free Records.
var ErrExhausted = fmt.Errorf("reactorpool: shard exhausted")

// Acquire checks out a Record for fd, growing is not performed: callers
// that exhaust a shard should back off and retry, matching the "pool
// exhaustion yields backpressure, not unbounded growth" rule in
// spec.md's resource model.
func (p *Pool) Acquire(fd int32, kind Kind) (*Record, error) {
	ss := p.shardFor(fd)
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if len(ss.free) == 0 {
		return nil, ErrExhausted
	}
	idx := ss.free[len(ss.free)-1]
	ss.free = ss.free[:len(ss.free)-1]
	item, ok := ss.ring.Get(idx)
	if !ok {
		panic("reactorpool: free list held an out-of-range index")
	}
	rec := item.Pointer()
	rec.Fd = fd
	rec.Kind = kind
	rec.inUse = true
	rec.shard = idx
	return rec, nil
}

// AcquireBuf is Acquire followed by pinning a mempool-backed buffer of at
// least size bytes into rec.Buf, for Recv/Send operations.
func (p *Pool) AcquireBuf(fd int32, kind Kind, size int) (*Record, error) {
	rec, err := p.Acquire(fd, kind)
	if err != nil {
		return nil, err
	}
	rec.Buf = mempool.Malloc(size)
	return rec, nil
}

// Release returns rec to its shard's free list. rec must not be touched
// by the caller after this returns; the backend and the Record it points
// to may be immediately reused by an unrelated fd.
func (p *Pool) Release(rec *Record) {
	ss := p.shardFor(rec.Fd)
	idx := rec.shard
	rec.reset()
	ss.mu.Lock()
	ss.free = append(ss.free, idx)
	ss.mu.Unlock()
}
