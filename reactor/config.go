package reactor

import "time"

// Config controls the construction-time parameters of a Reactor.
type Config struct {
	// QueueDepth sizes the io_uring backend's submission channel; the
	// ring itself is created with twice as many entries. It has no effect
	// on the IOCP backend, which has no fixed queue depth.
	QueueDepth uint32

	// SQPoll is accepted but not applied: neither backend enables the
	// io_uring kernel-thread submission-queue poller.
	SQPoll bool

	// CompletionTimeout bounds how long a worker waits for a completion
	// batch before re-checking the running flag during shutdown.
	CompletionTimeout time.Duration

	// WorkerCount is fixed at 1 for this core (spec.md §6): a single
	// dedicated I/O worker goroutine per Reactor. The field exists so
	// callers can assert their expectation, not to configure more.
	WorkerCount int

	// Pool overrides the default operation-record pool sizing.
	Pool PoolConfig
}

// PoolConfig mirrors reactorpool.Config so callers of this package don't
// need to import reactorpool just to size the pool.
type PoolConfig struct {
	Shards          int
	RecordsPerShard int
}

// DefaultConfig returns the Config used when New is called with a zero
// value: QueueDepth 1024, CompletionTimeout 1000ms, WorkerCount 1.
func DefaultConfig() Config {
	return Config{
		QueueDepth:        1024,
		SQPoll:            false,
		CompletionTimeout: 1000 * time.Millisecond,
		WorkerCount:       1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.QueueDepth == 0 {
		c.QueueDepth = d.QueueDepth
	}
	if c.CompletionTimeout == 0 {
		c.CompletionTimeout = d.CompletionTimeout
	}
	if c.WorkerCount == 0 {
		c.WorkerCount = d.WorkerCount
	}
	return c
}
