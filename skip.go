package stampede

import (
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/redis/rueidis"
)

// SkipClassifier reports whether a store failure should be absorbed.
// Classified failures switch the call into fail-open mode: the caller
// computes the value itself instead of receiving an infrastructure error.
// Unclassified failures propagate to the caller unchanged.
type SkipClassifier func(err error) bool

// DefaultSkipCacheOn classifies connectivity failures: network errors,
// broken connections, and a closing client. Redis server errors (wrong
// types, script errors) and the caller's own context cancellation are not
// connectivity problems and are never degraded.
func DefaultSkipCacheOn(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, rueidis.ErrClosing) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}
