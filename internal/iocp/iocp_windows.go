//go:build windows

// Package iocp is the Windows completion backend (C6): it drives the same
// four operations as internal/iouring (accept/recv/send/connect) through
// a single IOCP handle instead of a ring buffer. The teacher ships no
// Windows backend at all, so this file is grounded entirely on two
// real-world patterns (see DESIGN.md): an experimental IOCP poller's
// GetQueuedCompletionStatus loop and Overlapped container-of recovery,
// and a zero-copy listener's AcceptEx/Mswsock.dll loading idiom.
package iocp

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/ringproactor/reactor/reactorpool"
)

var (
	ws2dll         = windows.NewLazySystemDLL("ws2_32.dll")
	procWSARecv    = ws2dll.NewProc("WSARecv")
	procWSASend    = ws2dll.NewProc("WSASend")
	modmswsock     = windows.NewLazySystemDLL("Mswsock.dll")
	procAcceptEx   = modmswsock.NewProc("AcceptEx")
	procConnectEx  = modmswsock.NewProc("ConnectEx")
	sockaddrMaxLen = int(unsafe.Sizeof(windows.RawSockaddrAny{}))
)

// wsaBuf is the WSABUF layout WSARecv/WSASend expect.
type wsaBuf struct {
	Len uint32
	Buf *byte
}

// opWrapper carries a windows.Overlapped as its first field so a
// completion's *Overlapped pointer can be cast straight back to
// *opWrapper (container-of). It is kept alive in EventLoop.pending from
// submission to completion, since nothing else in the Go heap references
// it once the kernel has a copy of its address.
type opWrapper struct {
	windows.Overlapped
	rec        *reactorpool.Record
	acceptSock windows.Handle // valid only while rec.Kind == KindAccept
}

// EventLoop owns one IOCP handle shared by every socket the reactor
// drives through this backend, matching spec.md §5's single-I/O-worker
// model the same way internal/iouring.EventLoop does.
type EventLoop struct {
	port windows.Handle

	pendingMu sync.Mutex
	pending   map[*opWrapper]struct{}
}

// NewEventLoop creates the completion port and starts its draining
// goroutine.
func NewEventLoop() (*EventLoop, error) {
	port, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0)
	if err != nil {
		return nil, err
	}
	e := &EventLoop{port: port, pending: make(map[*opWrapper]struct{})}
	go e.loop()
	return e, nil
}

// Associate registers fd with this completion port. Must be called once
// per socket before any operation on it is submitted.
func (e *EventLoop) Associate(fd int32) error {
	_, err := windows.CreateIoCompletionPort(windows.Handle(fd), e.port, 0, 0)
	return err
}

// Close unblocks the draining goroutine and releases the port. As with
// internal/iouring.EventLoop, draining in-flight operations first is the
// caller's responsibility (spec.md §5 abort-and-drain).
func (e *EventLoop) Close() error {
	_ = windows.PostQueuedCompletionStatus(e.port, 0, 0, nil)
	return windows.CloseHandle(e.port)
}

func (e *EventLoop) track(w *opWrapper) {
	e.pendingMu.Lock()
	e.pending[w] = struct{}{}
	e.pendingMu.Unlock()
}

func (e *EventLoop) untrack(w *opWrapper) {
	e.pendingMu.Lock()
	delete(e.pending, w)
	e.pendingMu.Unlock()
}

// Submit dispatches rec per its Kind. rec.Complete is invoked exactly
// once, either synchronously on a submission failure or from the
// completion-draining goroutine once GetQueuedCompletionStatus reports
// the operation done.
func (e *EventLoop) Submit(rec *reactorpool.Record) {
	switch rec.Kind {
	case reactorpool.KindAccept:
		e.submitAccept(rec)
	case reactorpool.KindRecv:
		e.submitRecv(rec)
	case reactorpool.KindSend:
		e.submitSend(rec)
	case reactorpool.KindConnect:
		e.submitConnect(rec)
	default:
		panic("iocp: record has unknown operation kind")
	}
}

// addressFamilyOf derives a socket's address family via getsockname,
// so accept always creates the client socket with the listener's own
// family rather than assuming IPv4 (spec.md §9 open question (c)).
func addressFamilyOf(h windows.Handle) (uint16, error) {
	var sa windows.RawSockaddrAny
	size := int32(unsafe.Sizeof(sa))
	if err := windows.Getsockname(h, &sa, &size); err != nil {
		return 0, err
	}
	return sa.Addr.Family, nil
}

func (e *EventLoop) submitAccept(rec *reactorpool.Record) {
	listenSock := windows.Handle(rec.Fd)

	family, err := addressFamilyOf(listenSock)
	if err != nil {
		rec.Complete(0, err)
		return
	}
	clientSock, err := windows.Socket(int32(family), windows.SOCK_STREAM, windows.IPPROTO_TCP)
	if err != nil {
		rec.Complete(0, err)
		return
	}

	addrBufLen := sockaddrMaxLen + 16 // AcceptEx requires len(sockaddr)+16 padding, per side
	rec.EnsureSockAddr(2 * addrBufLen)

	w := &opWrapper{rec: rec, acceptSock: clientSock}
	e.track(w)

	var bytesReceived uint32
	r1, _, errno := procAcceptEx.Call(
		uintptr(listenSock),
		uintptr(clientSock),
		uintptr(unsafe.Pointer(&rec.SockAddr[0])),
		0,
		uintptr(addrBufLen),
		uintptr(addrBufLen),
		uintptr(unsafe.Pointer(&bytesReceived)),
		uintptr(unsafe.Pointer(&w.Overlapped)),
	)
	if r1 == 0 && errno != windows.ERROR_IO_PENDING {
		e.untrack(w)
		windows.Closesocket(clientSock)
		rec.Complete(0, errno)
	}
}

func (e *EventLoop) submitRecv(rec *reactorpool.Record) {
	w := &opWrapper{rec: rec}
	e.track(w)

	var buf wsaBuf
	if len(rec.Buf) > 0 {
		buf.Len = uint32(len(rec.Buf))
		buf.Buf = &rec.Buf[0]
	}
	var flags uint32
	r1, _, errno := procWSARecv.Call(
		uintptr(rec.Fd),
		uintptr(unsafe.Pointer(&buf)),
		1,
		0,
		uintptr(unsafe.Pointer(&flags)),
		uintptr(unsafe.Pointer(&w.Overlapped)),
		0,
	)
	if r1 != 0 && errno != windows.ERROR_IO_PENDING {
		e.untrack(w)
		rec.Complete(0, errno)
	}
}

func (e *EventLoop) submitSend(rec *reactorpool.Record) {
	w := &opWrapper{rec: rec}
	e.track(w)

	var buf wsaBuf
	if len(rec.Buf) > 0 {
		buf.Len = uint32(len(rec.Buf))
		buf.Buf = &rec.Buf[0]
	}
	r1, _, errno := procWSASend.Call(
		uintptr(rec.Fd),
		uintptr(unsafe.Pointer(&buf)),
		1,
		0,
		0,
		uintptr(unsafe.Pointer(&w.Overlapped)),
		0,
	)
	if r1 != 0 && errno != windows.ERROR_IO_PENDING {
		e.untrack(w)
		rec.Complete(0, errno)
	}
}

// submitConnect uses ConnectEx, which requires the socket be already
// bound (even to the wildcard address) before it is called.
func (e *EventLoop) submitConnect(rec *reactorpool.Record) {
	if len(rec.SockAddr) == 0 {
		rec.Complete(0, windows.ERROR_INVALID_PARAMETER)
		return
	}

	w := &opWrapper{rec: rec}
	e.track(w)

	var bytesSent uint32
	r1, _, errno := procConnectEx.Call(
		uintptr(rec.Fd),
		uintptr(unsafe.Pointer(&rec.SockAddr[0])),
		uintptr(rec.SockAddrLen),
		0,
		0,
		uintptr(unsafe.Pointer(&bytesSent)),
		uintptr(unsafe.Pointer(&w.Overlapped)),
	)
	if r1 == 0 && errno != windows.ERROR_IO_PENDING {
		e.untrack(w)
		rec.Complete(0, errno)
	}
}

func (e *EventLoop) loop() {
	for {
		var bytes uint32
		var key uintptr
		var ov *windows.Overlapped
		err := windows.GetQueuedCompletionStatus(e.port, &bytes, &key, &ov, windows.INFINITE)
		if ov == nil {
			return // a bare wake posted by Close, or the port was closed
		}

		w := (*opWrapper)(unsafe.Pointer(ov))
		e.untrack(w)
		rec := w.rec
		if rec == nil || rec.Complete == nil {
			continue
		}

		if rec.Kind == reactorpool.KindAccept {
			e.completeAccept(w, bytes, err)
			continue
		}
		if err != nil {
			rec.Complete(0, err)
			continue
		}
		rec.Complete(int32(bytes), nil)
	}
}

func (e *EventLoop) completeAccept(w *opWrapper, bytes uint32, err error) {
	rec := w.rec
	if err != nil {
		windows.Closesocket(w.acceptSock)
		rec.Complete(0, err)
		return
	}
	// The accepted socket does not inherit listen-socket properties
	// (getsockname/getpeername, SO_KEEPALIVE, ...) until this is set.
	listenSock := windows.Handle(rec.Fd)
	_ = windows.Setsockopt(w.acceptSock, windows.SOL_SOCKET, windows.SO_UPDATE_ACCEPT_CONTEXT,
		(*byte)(unsafe.Pointer(&listenSock)), int32(unsafe.Sizeof(listenSock)))
	rec.Complete(int32(w.acceptSock), nil)
}
