// Package contextx provides context utilities for the stampede package.
package contextx

import (
	"context"
	"time"
)

// WithCleanupTimeout creates a context for cleanup operations that will not
// be cancelled when the parent context is cancelled. Broadcast publication
// and lock release must reach the store even if the owning caller's context
// has already expired, otherwise remote waiters are stranded until their
// own wait timeout.
//
// The returned context carries a timeout to prevent indefinite blocking.
// The caller must call the returned cancel function to release resources.
func WithCleanupTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	cleanupCtx := context.WithoutCancel(parent)
	return context.WithTimeout(cleanupCtx, timeout)
}
