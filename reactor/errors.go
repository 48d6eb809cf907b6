package reactor

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrClosed is returned by any operation submitted after Close.
var ErrClosed = errors.New("reactor: closed")

// ErrCanceled is the result every still-in-flight operation is resolved
// with during Close's abort-and-drain (spec.md §5, required choice (a)).
// The operation fails with an *OpError whose Code is ECANCELED, which
// errors.Is matches against ErrCanceled.
var ErrCanceled = errors.New("reactor: operation canceled by close")

// OpError wraps a backend failure with the operation name that produced
// it, per spec.md §7.
type OpError struct {
	Op   string
	Code int
}

func (e *OpError) Error() string {
	return fmt.Sprintf("reactor: %s: error code %d", e.Op, e.Code)
}

// errCode extracts a platform error number from err, for OpError.Code.
// Both backends report failures as syscall.Errno (Linux) or as Windows'
// own syscall.Errno-compatible values from golang.org/x/sys/windows, so
// this single unwrap covers both. ErrCanceled maps to ECANCELED.
func errCode(err error) int {
	if errors.Is(err, ErrCanceled) {
		return int(syscall.ECANCELED)
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return -1
}

// Is reports whether target is ErrCanceled and e carries its code, so a
// caller can recognise an operation aborted by Close with errors.Is.
func (e *OpError) Is(target error) bool {
	return target == ErrCanceled && e.Code == int(syscall.ECANCELED)
}
