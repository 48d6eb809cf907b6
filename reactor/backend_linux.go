//go:build linux

package reactor

import "github.com/ringproactor/reactor/internal/iouring"

func newBackend(cfg Config) (backend, error) {
	icfg := &iouring.Config{
		IOUringQueueSize:  cfg.QueueDepth,
		SQEBatchSize:      256,
		SQESubmitInterval: 0,
		CompletionTimeout: cfg.CompletionTimeout,
	}
	return iouring.NewEventLoop(icfg)
}

// associate is a no-op on Linux: io_uring operates directly on an fd
// given in each SQE, there is no separate per-fd registration step like
// IOCP's CreateIoCompletionPort association.
func associate(b backend, fd int32) error { return nil }
