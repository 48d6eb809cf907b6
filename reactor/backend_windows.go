//go:build windows

package reactor

import "github.com/ringproactor/reactor/internal/iocp"

func newBackend(cfg Config) (backend, error) {
	return iocp.NewEventLoop()
}

// associate registers fd with the IOCP handle. Every socket must be
// associated exactly once before any operation on it is submitted.
func associate(b backend, fd int32) error {
	e, ok := b.(*iocp.EventLoop)
	if !ok {
		return nil
	}
	return e.Associate(fd)
}
