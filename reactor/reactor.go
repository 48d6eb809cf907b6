// Package reactor is the public facade (C7): one Reactor per OS thread's
// worth of I/O, wrapping whichever completion backend the build targets
// (io_uring on Linux, IOCP on Windows) behind a single typed API. Every
// operation returns a task.Task[T] settled from the backend's own
// completion-draining goroutine — callers never block the submitting
// goroutine past the initial, synchronous submission step.
package reactor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/ringproactor/reactor/netaddr"
	"github.com/ringproactor/reactor/reactorpool"
	"github.com/ringproactor/reactor/socket"
	"github.com/ringproactor/reactor/task"
)

// Reactor owns one backend and one pool of operation records. All of its
// methods are safe to call concurrently; the backend serializes actual
// submission internally (spec.md §5).
type Reactor struct {
	backend backend
	pool    *reactorpool.Pool

	closed int32

	mu sync.Mutex
	// inflight maps each outstanding Record to the settle closure that
	// finishes its Task exactly once. Close invokes these directly so
	// an abort-and-drain never depends on the backend calling back in.
	inflight map[*reactorpool.Record]func(int32, error)
}

// New constructs a Reactor. A zero Config is replaced with DefaultConfig.
func New(cfg Config) (*Reactor, error) {
	cfg = cfg.withDefaults()
	b, err := newBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("reactor: %w", err)
	}
	r := &Reactor{
		backend:  b,
		pool:     reactorpool.New(reactorpool.Config{Shards: cfg.Pool.Shards, RecordsPerShard: cfg.Pool.RecordsPerShard}),
		inflight: make(map[*reactorpool.Record]func(int32, error)),
	}
	return r, nil
}

// Close stops accepting new operations and aborts every still in-flight
// one with ErrCanceled before returning (spec.md §5's required
// abort-and-drain choice). Idempotent.
//
// Each pending settle closure is itself sync.Once-guarded (see settleOnce),
// so invoking it here races safely against a genuine backend completion
// arriving on another goroutine at the same instant: whichever reaches
// the closure first settles the Task and releases the Record exactly
// once, the other is a no-op.
func (r *Reactor) Close() error {
	if !atomic.CompareAndSwapInt32(&r.closed, 0, 1) {
		return nil
	}
	r.mu.Lock()
	pending := make([]func(int32, error), 0, len(r.inflight))
	for _, settle := range r.inflight {
		pending = append(pending, settle)
	}
	r.inflight = make(map[*reactorpool.Record]func(int32, error))
	r.mu.Unlock()

	for _, settle := range pending {
		settle(0, ErrCanceled)
	}
	return r.backend.Close()
}

func (r *Reactor) track(rec *reactorpool.Record, settle func(int32, error)) {
	r.mu.Lock()
	r.inflight[rec] = settle
	r.mu.Unlock()
}

func (r *Reactor) untrack(rec *reactorpool.Record) {
	r.mu.Lock()
	delete(r.inflight, rec)
	r.mu.Unlock()
}

// settleOnce wraps body in a sync.Once so it runs exactly once no matter
// which of (real backend completion, Reactor.Close's cancel sweep) calls
// it first, and removes rec from the inflight set before body runs so a
// concurrent Close sees a consistent view either way.
func (r *Reactor) settleOnce(rec *reactorpool.Record, body func(result int32, opErr error)) func(int32, error) {
	var once sync.Once
	return func(result int32, opErr error) {
		once.Do(func() {
			r.untrack(rec)
			body(result, opErr)
		})
	}
}

// Accept waits for a new connection on ln, which must already be bound,
// listening, and non-blocking. The returned Socket takes ownership of the
// accepted descriptor.
func (r *Reactor) Accept(ln *socket.Socket) task.Task[*socket.Socket] {
	t, c := task.New[*socket.Socket]()
	if atomic.LoadInt32(&r.closed) != 0 {
		c.Fail(ErrClosed)
		return t
	}
	fd := ln.NativeHandle()
	family := ln.Family()
	rec, err := r.pool.Acquire(fd, reactorpool.KindAccept)
	if err != nil {
		c.Fail(&OpError{Op: "accept", Code: errCode(err)})
		return t
	}
	settle := r.settleOnce(rec, func(result int32, opErr error) {
		r.pool.Release(rec)
		if opErr != nil {
			c.Fail(&OpError{Op: "accept", Code: errCode(opErr)})
			return
		}
		newFd := result
		if err := associate(r.backend, newFd); err != nil {
			c.Fail(&OpError{Op: "accept", Code: errCode(err)})
			return
		}
		c.Complete(socket.FromFD(newFd, family))
	})
	rec.Complete = settle
	r.track(rec, settle)
	r.backend.Submit(rec)
	return t
}

// Recv reads at most size bytes from sock. A result of nil, nil signals
// an orderly peer shutdown (a zero-length read). size must be positive;
// a non-positive size is rejected locally before submission rather than
// silently substituted, per spec.md's invalid-argument contract.
func (r *Reactor) Recv(sock *socket.Socket, size int) task.Task[[]byte] {
	t, c := task.New[[]byte]()
	if size <= 0 {
		c.Fail(&OpError{Op: "recv", Code: errCode(syscall.EINVAL)})
		return t
	}
	if atomic.LoadInt32(&r.closed) != 0 {
		c.Fail(ErrClosed)
		return t
	}
	fd := sock.NativeHandle()
	rec, err := r.pool.AcquireBuf(fd, reactorpool.KindRecv, size)
	if err != nil {
		c.Fail(&OpError{Op: "recv", Code: errCode(err)})
		return t
	}
	settle := r.settleOnce(rec, func(result int32, opErr error) {
		if opErr != nil {
			r.pool.Release(rec)
			c.Fail(&OpError{Op: "recv", Code: errCode(opErr)})
			return
		}
		if result == 0 {
			r.pool.Release(rec)
			c.Complete(nil)
			return
		}
		out := make([]byte, result)
		copy(out, rec.Buf[:result])
		r.pool.Release(rec)
		c.Complete(out)
	})
	rec.Complete = settle
	r.track(rec, settle)
	r.backend.Submit(rec)
	return t
}

// Send writes data to sock. Short writes are reported as-is: the core
// performs no automatic retry (spec.md §4.5); the returned int is the
// number of bytes actually written.
func (r *Reactor) Send(sock *socket.Socket, data []byte) task.Task[int] {
	t, c := task.New[int]()
	fd := sock.NativeHandle()
	if atomic.LoadInt32(&r.closed) != 0 {
		c.Fail(ErrClosed)
		return t
	}
	rec, err := r.pool.AcquireBuf(fd, reactorpool.KindSend, len(data))
	if err != nil {
		c.Fail(&OpError{Op: "send", Code: errCode(err)})
		return t
	}
	copy(rec.Buf, data)
	settle := r.settleOnce(rec, func(result int32, opErr error) {
		if opErr != nil {
			c.Fail(&OpError{Op: "send", Code: errCode(opErr)})
		} else {
			c.Complete(int(result))
		}
		r.pool.Release(rec)
	})
	rec.Complete = settle
	r.track(rec, settle)
	r.backend.Submit(rec)
	return t
}

// Connect initiates a connection to ep on sock, which must already be
// non-blocking (and, on Windows, bound via Bind to the wildcard address
// before Connect is called, a ConnectEx requirement). Settles with an
// empty struct on success, never re-entering Await internally (spec.md §9
// open question (b)).
func (r *Reactor) Connect(sock *socket.Socket, ep netaddr.Endpoint) task.Task[struct{}] {
	t, c := task.New[struct{}]()
	fd := sock.NativeHandle()
	if atomic.LoadInt32(&r.closed) != 0 {
		c.Fail(ErrClosed)
		return t
	}
	if err := associate(r.backend, fd); err != nil {
		c.Fail(&OpError{Op: "connect", Code: errCode(err)})
		return t
	}
	rec, err := r.pool.Acquire(fd, reactorpool.KindConnect)
	if err != nil {
		c.Fail(&OpError{Op: "connect", Code: errCode(err)})
		return t
	}
	addr := encodeSockaddr(ep)
	sa := rec.EnsureSockAddr(len(addr))
	copy(sa, addr)
	rec.SockAddrLen = uint32(len(addr))
	settle := r.settleOnce(rec, func(result int32, opErr error) {
		if opErr != nil {
			c.Fail(&OpError{Op: "connect", Code: errCode(opErr)})
		} else {
			c.Complete(struct{}{})
		}
		r.pool.Release(rec)
	})
	rec.Complete = settle
	r.track(rec, settle)
	r.backend.Submit(rec)
	return t
}
