package reactor

import "github.com/ringproactor/reactor/reactorpool"

// backend is the common shape of the two completion backends (C5
// io_uring, C6 IOCP): submit a Record, and shut down. Platform-specific
// construction lives in backend_linux.go/backend_windows.go/backend_other.go.
type backend interface {
	Submit(rec *reactorpool.Record)
	Close() error
}
