//go:build !windows

package iocp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ringproactor/reactor/internal/iocp"
	"github.com/ringproactor/reactor/reactorpool"
)

func TestNewEventLoopUnsupportedOffWindows(t *testing.T) {
	_, err := iocp.NewEventLoop()
	assert.ErrorIs(t, err, iocp.ErrUnsupported)
}

func TestSubmitCompletesWithUnsupported(t *testing.T) {
	var e *iocp.EventLoop
	rec := &reactorpool.Record{}
	done := make(chan error, 1)
	rec.Complete = func(_ int32, err error) { done <- err }

	e.Submit(rec)

	assert.ErrorIs(t, <-done, iocp.ErrUnsupported)
}
