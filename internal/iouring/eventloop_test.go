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
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ringproactor/reactor/reactorpool"
)

func getListenerFd(t *testing.T, ln net.Listener) int32 {
	t.Helper()
	sc, ok := ln.(syscall.Conn)
	require.True(t, ok)
	rc, err := sc.SyscallConn()
	require.NoError(t, err)
	var fd int32
	err = rc.Control(func(f uintptr) {
		fd = int32(f)
	})
	require.NoError(t, err)
	return fd
}

func TestEventLoopSendRecv(t *testing.T) {
	skipIfUnsupported(t)

	cfg := DefaultConfig()
	evl, err := NewEventLoop(cfg)
	require.NoError(t, err)
	defer evl.Close()

	c := createConnections(t, 1)[0]
	defer c.Close()

	pool := reactorpool.New(reactorpool.DefaultConfig())

	recvDone := make(chan struct{})
	recvRec, err := pool.AcquireBuf(int32(getFd(t, c.server)), reactorpool.KindRecv, 64)
	require.NoError(t, err)
	var recvN int32
	var recvErr error
	recvRec.Complete = func(n int32, e error) {
		recvN, recvErr = n, e
		close(recvDone)
	}
	evl.Submit(recvRec)

	sendDone := make(chan struct{})
	sendRec, err := pool.AcquireBuf(int32(getFd(t, c.client)), reactorpool.KindSend, 5)
	require.NoError(t, err)
	copy(sendRec.Buf, []byte("hello"))
	var sendN int32
	var sendErr error
	sendRec.Complete = func(n int32, e error) {
		sendN, sendErr = n, e
		close(sendDone)
	}
	evl.Submit(sendRec)

	select {
	case <-sendDone:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for send completion")
	}
	require.NoError(t, sendErr)
	require.Equal(t, int32(5), sendN)

	select {
	case <-recvDone:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for recv completion")
	}
	require.NoError(t, recvErr)
	require.Equal(t, int32(5), recvN)
	require.Equal(t, "hello", string(recvRec.Buf[:recvN]))

	pool.Release(sendRec)
	pool.Release(recvRec)
}

func TestEventLoopAccept(t *testing.T) {
	skipIfUnsupported(t)

	cfg := DefaultConfig()
	evl, err := NewEventLoop(cfg)
	require.NoError(t, err)
	defer evl.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	lnFd := getListenerFd(t, ln)

	pool := reactorpool.New(reactorpool.DefaultConfig())
	rec, err := pool.Acquire(lnFd, reactorpool.KindAccept)
	require.NoError(t, err)

	done := make(chan struct{})
	var acceptedFd int32
	var acceptErr error
	rec.Complete = func(n int32, e error) {
		acceptedFd, acceptErr = n, e
		close(done)
	}
	evl.Submit(rec)

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for accept completion")
	}
	require.NoError(t, acceptErr)
	require.Greater(t, acceptedFd, int32(0))
	pool.Release(rec)
}
