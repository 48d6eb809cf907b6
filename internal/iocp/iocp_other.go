//go:build !windows

package iocp

import (
	"errors"

	"github.com/ringproactor/reactor/reactorpool"
)

// ErrUnsupported is returned by NewEventLoop on any non-Windows platform.
var ErrUnsupported = errors.New("iocp: only supported on windows")

// EventLoop is an unusable stand-in so this package still type-checks
// when cross-compiled; the reactor facade selects internal/iouring on
// Linux and has no completion backend on other non-Windows platforms.
type EventLoop struct{}

// NewEventLoop always fails on non-Windows platforms.
func NewEventLoop() (*EventLoop, error) {
	return nil, ErrUnsupported
}

func (e *EventLoop) Associate(fd int32) error { return ErrUnsupported }

func (e *EventLoop) Submit(rec *reactorpool.Record) {
	if rec.Complete != nil {
		rec.Complete(0, ErrUnsupported)
	}
}

func (e *EventLoop) Close() error { return nil }
