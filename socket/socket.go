// Package socket provides the move-only Socket handle the reactor core
// consumes. The core itself only ever needs a Socket's native handle and
// the guarantee that handle stays valid for the lifetime of any in-flight
// operation (spec.md §4.6) — everything else here (bind/listen/options)
// is synchronous, non-hot-path setup performed once before a Socket is
// ever handed to a Reactor.
package socket

import (
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"syscall"

	"github.com/ringproactor/reactor/connstate"
	"github.com/ringproactor/reactor/netaddr"
)

// Options configures a Socket via SetOptions, mirroring the original
// implementation's bind/listen knobs. SetOptions does not apply
// ReceiveTimeoutMs or SendTimeoutMs; those two fields have no effect.
type Options struct {
	ReuseAddress     bool
	NoDelay          bool
	KeepAlive        bool
	ReceiveTimeoutMs int
	SendTimeoutMs    int
	ReceiveBufSize   int
	SendBufSize      int
}

// Socket is a move-only-by-convention owner of one native socket
// descriptor. The zero value is not valid; use New or FromFD.
type Socket struct {
	fd     int32
	family netaddr.Family
	closed int32
	stater connstate.ConnStater // best-effort diagnostics, nil until Watch is called
}

// New creates a TCP stream socket for the given address family.
func New(family netaddr.Family) (*Socket, error) {
	domain := syscall.AF_INET
	if family == netaddr.IPv6 {
		domain = syscall.AF_INET6
	}
	fd, err := syscall.Socket(domain, syscall.SOCK_STREAM, syscall.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("socket: create: %w", err)
	}
	return &Socket{fd: int32(fd), family: family}, nil
}

// FromFD wraps an already-open descriptor (e.g. one handed back by an
// Accept completion), taking ownership of it.
func FromFD(fd int32, family netaddr.Family) *Socket {
	return &Socket{fd: fd, family: family}
}

// Fd returns the native descriptor. Valid only while the Socket is open.
func (s *Socket) Fd() uintptr { return uintptr(s.fd) }

// NativeHandle is an alias for Fd, matching the original interface's
// naming; both are provided since examples in this tree use either name.
func (s *Socket) NativeHandle() int32 { return s.fd }

// Family reports the address family this socket was created with.
func (s *Socket) Family() netaddr.Family { return s.family }

// Bind binds the socket to a local endpoint. Non-hot-path: called once
// before Listen, never while the reactor has operations in flight.
func (s *Socket) Bind(ep netaddr.Endpoint) error {
	sa, err := toSockaddr(ep)
	if err != nil {
		return err
	}
	if err := syscall.Bind(int(s.fd), sa); err != nil {
		return fmt.Errorf("socket: bind: %w", err)
	}
	return nil
}

// Listen marks the socket as passive with the given backlog.
func (s *Socket) Listen(backlog int) error {
	if backlog <= 0 {
		backlog = syscall.SOMAXCONN
	}
	if err := syscall.Listen(int(s.fd), backlog); err != nil {
		return fmt.Errorf("socket: listen: %w", err)
	}
	return nil
}

// SetNonBlocking toggles O_NONBLOCK. The reactor requires this to be true
// before a Socket is ever submitted to a backend.
func (s *Socket) SetNonBlocking(nonBlocking bool) error {
	if err := syscall.SetNonblock(int(s.fd), nonBlocking); err != nil {
		return fmt.Errorf("socket: set non-blocking: %w", err)
	}
	return nil
}

// SetOptions applies opts via setsockopt. Non-hot-path.
func (s *Socket) SetOptions(opts Options) error {
	fd := int(s.fd)
	if opts.ReuseAddress {
		if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
			return fmt.Errorf("socket: SO_REUSEADDR: %w", err)
		}
	}
	if opts.NoDelay {
		if err := syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, syscall.TCP_NODELAY, 1); err != nil {
			return fmt.Errorf("socket: TCP_NODELAY: %w", err)
		}
	}
	if opts.KeepAlive {
		if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_KEEPALIVE, 1); err != nil {
			return fmt.Errorf("socket: SO_KEEPALIVE: %w", err)
		}
	}
	if opts.ReceiveBufSize > 0 {
		if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_RCVBUF, opts.ReceiveBufSize); err != nil {
			return fmt.Errorf("socket: SO_RCVBUF: %w", err)
		}
	}
	if opts.SendBufSize > 0 {
		if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_SNDBUF, opts.SendBufSize); err != nil {
			return fmt.Errorf("socket: SO_SNDBUF: %w", err)
		}
	}
	return nil
}

// IsValid reports whether Close has not yet been called.
func (s *Socket) IsValid() bool {
	return atomic.LoadInt32(&s.closed) == 0
}

// Watch starts best-effort connection-health tracking via connstate,
// surfaced through State(). This is diagnostic only and off the
// reactor's hot path; most Sockets never call it.
func (s *Socket) Watch() error {
	dup, err := syscall.Dup(int(s.fd))
	if err != nil {
		return fmt.Errorf("socket: watch: %w", err)
	}
	f := os.NewFile(uintptr(dup), fmt.Sprintf("socket-%d", s.fd))
	conn, err := net.FileConn(f)
	_ = f.Close() // FileConn dups the descriptor again; close our own dup, not s.fd
	if err != nil {
		return fmt.Errorf("socket: watch: %w", err)
	}
	stater, err := connstate.ListenConnState(conn)
	if err != nil {
		return fmt.Errorf("socket: watch: %w", err)
	}
	s.stater = stater
	return nil
}

// State reports the best-effort connection state if Watch was called,
// or connstate.StateOK otherwise.
func (s *Socket) State() connstate.ConnState {
	if s.stater == nil {
		return connstate.StateOK
	}
	return s.stater.State()
}

// Close releases the descriptor. Safe to call more than once.
func (s *Socket) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}
	if s.stater != nil {
		_ = s.stater.Close()
	}
	return syscall.Close(int(s.fd))
}
