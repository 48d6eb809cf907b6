/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package iouring

import (
	"syscall"
	"unsafe"

	"github.com/ringproactor/reactor/reactorpool"
)

// defaultSockAddrLen is large enough for a sockaddr_in6; accept/connect
// never need more than this for the address families this core supports.
const defaultSockAddrLen = 128

// prepare fills sqe from rec's fields for rec.Kind. Called with the SQE
// already zeroed by PeekSQE(true).
func prepare(sqe *IOUringSQE, rec *reactorpool.Record) {
	switch rec.Kind {
	case reactorpool.KindAccept:
		prepAccept(sqe, rec)
	case reactorpool.KindRecv:
		prepRecv(sqe, rec)
	case reactorpool.KindSend:
		prepSend(sqe, rec)
	case reactorpool.KindConnect:
		prepConnect(sqe, rec)
	default:
		panic("iouring: record has unknown operation kind")
	}
}

// prepAccept issues IORING_OP_ACCEPT. The kernel writes the peer address
// into rec.SockAddr and the actual length into rec.SockAddrLen; addr2 (the
// pointer to addrlen) is carried in the SQE's Off field, which aliases
// addr2 in the kernel's io_uring_sqe union.
func prepAccept(sqe *IOUringSQE, rec *reactorpool.Record) {
	rec.EnsureSockAddr(defaultSockAddrLen)
	rec.SockAddrLen = uint32(len(rec.SockAddr))

	sqe.Opcode = IORING_OP_ACCEPT
	sqe.Fd = rec.Fd
	sqe.Addr = uint64(uintptr(unsafe.Pointer(&rec.SockAddr[0])))
	sqe.Off = uint64(uintptr(unsafe.Pointer(&rec.SockAddrLen)))
}

// prepRecv issues IORING_OP_RECV into rec.Buf.
func prepRecv(sqe *IOUringSQE, rec *reactorpool.Record) {
	sqe.Opcode = IORING_OP_RECV
	sqe.Fd = rec.Fd
	if len(rec.Buf) > 0 {
		sqe.Addr = uint64(uintptr(unsafe.Pointer(&rec.Buf[0])))
	}
	sqe.Len = uint32(len(rec.Buf))
}

// prepSend issues IORING_OP_SEND from rec.Buf. Short sends are reported
// as-is by the completion path in eventloop.go — this module never
// resubmits a partial send.
func prepSend(sqe *IOUringSQE, rec *reactorpool.Record) {
	sqe.Opcode = IORING_OP_SEND
	sqe.Fd = rec.Fd
	if len(rec.Buf) > 0 {
		sqe.Addr = uint64(uintptr(unsafe.Pointer(&rec.Buf[0])))
	}
	sqe.Len = uint32(len(rec.Buf))
}

// prepConnect issues IORING_OP_CONNECT against rec.SockAddr, which the
// caller must have filled in before submission. Unlike accept, connect's
// Off field carries the sockaddr length by value, not a pointer to it.
func prepConnect(sqe *IOUringSQE, rec *reactorpool.Record) {
	sqe.Opcode = IORING_OP_CONNECT
	sqe.Fd = rec.Fd
	if len(rec.SockAddr) > 0 {
		sqe.Addr = uint64(uintptr(unsafe.Pointer(&rec.SockAddr[0])))
	}
	sqe.Off = uint64(len(rec.SockAddr))
}

// errFromRes turns a CQE result into an error: negative values are
// -errno, per the io_uring completion convention.
func errFromRes(res int32) error {
	if res >= 0 {
		return nil
	}
	return syscall.Errno(-res)
}
