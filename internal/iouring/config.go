package iouring

import "time"

// Config holds the configuration for the EventLoop.
type Config struct {
	IOUringQueueSize  uint32
	SQEBatchSize      int
	SQESubmitInterval time.Duration

	// CompletionTimeout bounds how long eventLoop blocks in a single
	// io_uring_enter wait before rechecking whether the loop has been
	// asked to stop. It does not bound individual operation latency.
	CompletionTimeout time.Duration
}

// DefaultConfig returns a new Config with default values.
func DefaultConfig() *Config {
	return &Config{
		IOUringQueueSize:  10000,
		SQEBatchSize:      256,
		SQESubmitInterval: 0, // 0 means disabled (submit only on batch size/channel empty)
		CompletionTimeout: time.Second,
	}
}
