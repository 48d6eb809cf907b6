//go:build windows

package iocp_test

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ringproactor/reactor/internal/iocp"
	"github.com/ringproactor/reactor/reactorpool"
)

func TestEventLoopAccept(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	tcpLn, ok := ln.(*net.TCPListener)
	require.True(t, ok)
	f, err := tcpLn.File()
	require.NoError(t, err)
	defer f.Close()
	lnFd := int32(f.Fd())

	evl, err := iocp.NewEventLoop()
	require.NoError(t, err)
	defer evl.Close()
	require.NoError(t, evl.Associate(lnFd))

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
