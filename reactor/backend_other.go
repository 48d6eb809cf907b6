//go:build !linux && !windows

package reactor

import "fmt"

func newBackend(cfg Config) (backend, error) {
	return nil, fmt.Errorf("reactor: no completion backend for this platform")
}

func associate(b backend, fd int32) error { return nil }
