package contextx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithCleanupTimeoutSurvivesParentCancellation(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())

	cleanupCtx, cancel := WithCleanupTimeout(parent, time.Second)
	defer cancel()

	cancelParent()

	select {
	case <-cleanupCtx.Done():
		t.Fatal("cleanup context should not be cancelled with parent")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWithCleanupTimeoutExpires(t *testing.T) {
	cleanupCtx, cancel := WithCleanupTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	select {
	case <-cleanupCtx.Done():
		require.ErrorIs(t, cleanupCtx.Err(), context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("cleanup context should expire after its timeout")
	}
}

func TestWithCleanupTimeoutPreservesValues(t *testing.T) {
	type ctxKey struct{}
	parent := context.WithValue(context.Background(), ctxKey{}, "trace-id")

	cleanupCtx, cancel := WithCleanupTimeout(parent, time.Second)
	defer cancel()

	assert.Equal(t, "trace-id", cleanupCtx.Value(ctxKey{}))
}
