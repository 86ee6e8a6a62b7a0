package coordinator

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/redis/rueidis/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type noopLogger struct{}

func (noopLogger) Error(msg string, args ...any) {}
func (noopLogger) Debug(msg string, args ...any) {}

func newTestCoordinator(t *testing.T) (*RedisCoordinator, *mock.Client) {
	t.Helper()
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	rc := NewRedis(RedisConfig{Client: client, Logger: noopLogger{}})
	return rc, client
}

// matchScript matches an EVALSHA invocation that references every given token.
func matchScript(tokens ...string) gomock.Matcher {
	return mock.MatchFn(func(cmd []string) bool {
		if len(cmd) == 0 || cmd[0] != "EVALSHA" {
			return false
		}
		for _, tok := range tokens {
			if !slices.Contains(cmd, tok) {
				return false
			}
		}
		return true
	}, "EVALSHA with expected keys and args")
}

func TestAcquireOrObserve(t *testing.T) {
	ctx := context.Background()

	t.Run("LockAcquired", func(t *testing.T) {
		rc, client := newTestCoordinator(t)
		client.EXPECT().
			Do(gomock.Any(), matchScript("L:ns", "V:ns", "ns.tag")).
			Return(mock.Result(mock.RedisArray(mock.RedisInt64(1), mock.RedisNil())))

		owned, msg, found, err := rc.AcquireOrObserve(ctx, "L:ns", "V:ns", "ns.tag")
		require.NoError(t, err)
		assert.True(t, owned)
		assert.False(t, found)
		assert.Empty(t, msg)
	})

	t.Run("LockHeldNoValue", func(t *testing.T) {
		rc, client := newTestCoordinator(t)
		client.EXPECT().
			Do(gomock.Any(), matchScript("L:ns")).
			Return(mock.Result(mock.RedisArray(mock.RedisInt64(0), mock.RedisNil())))

		owned, _, found, err := rc.AcquireOrObserve(ctx, "L:ns", "V:ns", "ns.tag")
		require.NoError(t, err)
		assert.False(t, owned)
		assert.False(t, found)
	})

	t.Run("LockHeldValueObserved", func(t *testing.T) {
		rc, client := newTestCoordinator(t)
		client.EXPECT().
			Do(gomock.Any(), matchScript("L:ns")).
			Return(mock.Result(mock.RedisArray(mock.RedisInt64(0), mock.RedisString(`{"content":42}`))))

		owned, msg, found, err := rc.AcquireOrObserve(ctx, "L:ns", "V:ns", "ns.tag")
		require.NoError(t, err)
		assert.False(t, owned)
		assert.True(t, found)
		assert.Equal(t, `{"content":42}`, msg)
	})

	t.Run("StoreError", func(t *testing.T) {
		rc, client := newTestCoordinator(t)
		storeErr := errors.New("connection refused")
		client.EXPECT().
			Do(gomock.Any(), matchScript("L:ns")).
			Return(mock.ErrorResult(storeErr))

		_, _, _, err := rc.AcquireOrObserve(ctx, "L:ns", "V:ns", "ns.tag")
		require.ErrorIs(t, err, storeErr)
	})

	t.Run("UnexpectedShape", func(t *testing.T) {
		rc, client := newTestCoordinator(t)
		client.EXPECT().
			Do(gomock.Any(), matchScript("L:ns")).
			Return(mock.Result(mock.RedisArray(mock.RedisInt64(1))))

		_, _, _, err := rc.AcquireOrObserve(ctx, "L:ns", "V:ns", "ns.tag")
		require.Error(t, err)
	})
}

func TestPublishValue(t *testing.T) {
	ctx := context.Background()

	t.Run("WithTTLExpiresLock", func(t *testing.T) {
		rc, client := newTestCoordinator(t)
		client.EXPECT().
			Do(gomock.Any(), matchScript("V:ns", "L:ns", "1500")).
			Return(mock.Result(mock.RedisArray(mock.RedisInt64(1), mock.RedisInt64(1))))

		err := rc.PublishValue(ctx, "V:ns", "L:ns", `{"content":42}`, 1500*time.Millisecond)
		require.NoError(t, err)
	})

	t.Run("WithoutTTLPlainPush", func(t *testing.T) {
		rc, client := newTestCoordinator(t)
		client.EXPECT().
			Do(gomock.Any(), mock.Match("RPUSH", "V:ns", `{"content":42}`)).
			Return(mock.Result(mock.RedisInt64(1)))

		err := rc.PublishValue(ctx, "V:ns", "L:ns", `{"content":42}`, 0)
		require.NoError(t, err)
	})

	t.Run("StoreError", func(t *testing.T) {
		rc, client := newTestCoordinator(t)
		storeErr := errors.New("connection reset")
		client.EXPECT().
			Do(gomock.Any(), matchScript("V:ns")).
			Return(mock.ErrorResult(storeErr))

		err := rc.PublishValue(ctx, "V:ns", "L:ns", `{"content":42}`, time.Second)
		require.ErrorIs(t, err, storeErr)
	})
}

func TestPublishRelease(t *testing.T) {
	ctx := context.Background()

	t.Run("PushesPlaceholderAndDeletesLock", func(t *testing.T) {
		rc, client := newTestCoordinator(t)
		client.EXPECT().
			Do(gomock.Any(), matchScript("V:ns", "L:ns", "{}")).
			Return(mock.Result(mock.RedisArray(mock.RedisInt64(1), mock.RedisInt64(1))))

		err := rc.PublishRelease(ctx, "V:ns", "L:ns", "{}")
		require.NoError(t, err)
	})

	t.Run("StoreError", func(t *testing.T) {
		rc, client := newTestCoordinator(t)
		storeErr := errors.New("broken pipe")
		client.EXPECT().
			Do(gomock.Any(), matchScript("V:ns")).
			Return(mock.ErrorResult(storeErr))

		err := rc.PublishRelease(ctx, "V:ns", "L:ns", "{}")
		require.ErrorIs(t, err, storeErr)
	})
}

func TestAwaitValue(t *testing.T) {
	ctx := context.Background()

	t.Run("ValueDelivered", func(t *testing.T) {
		rc, client := newTestCoordinator(t)
		client.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
				return len(cmd) == 4 && cmd[0] == "BRPOPLPUSH" && cmd[1] == "V:ns" && cmd[2] == "V:ns"
			}, "BRPOPLPUSH rotating on the value queue")).
			Return(mock.Result(mock.RedisString(`{"content":42}`)))

		msg, found, err := rc.AwaitValue(ctx, "V:ns", 2*time.Second)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, `{"content":42}`, msg)
	})

	t.Run("TimeoutIsNotAnError", func(t *testing.T) {
		rc, client := newTestCoordinator(t)
		client.EXPECT().
			Do(gomock.Any(), gomock.Any()).
			Return(mock.Result(mock.RedisNil()))

		_, found, err := rc.AwaitValue(ctx, "V:ns", time.Second)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("ZeroWaitNeverBlocks", func(t *testing.T) {
		rc, _ := newTestCoordinator(t)
		// No client expectation: a zero wait must not touch the store.
		_, found, err := rc.AwaitValue(ctx, "V:ns", 0)
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestClear(t *testing.T) {
	rc, client := newTestCoordinator(t)
	client.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", "L:ns", "V:ns")).
		Return(mock.Result(mock.RedisInt64(2)))

	err := rc.Clear(context.Background(), "L:ns", "V:ns")
	require.NoError(t, err)
}
