package coordinator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/stampedecache/stampede/internal/logger"
	"github.com/stampedecache/stampede/internal/luascript"
)

// RedisConfig contains configuration for RedisCoordinator.
type RedisConfig struct {
	Client rueidis.Client
	Logger logger.Logger
}

// RedisCoordinator implements Coordinator against Redis. The multi-step
// operations run as Lua scripts so other clients observe them atomically.
type RedisCoordinator struct {
	client  rueidis.Client
	logger  logger.Logger
	acquire luascript.Executor
	publish luascript.Executor
	release luascript.Executor
}

// NewRedis creates a RedisCoordinator with the given configuration.
func NewRedis(cfg RedisConfig) *RedisCoordinator {
	return &RedisCoordinator{
		client:  cfg.Client,
		logger:  cfg.Logger,
		acquire: luascript.New(acquireOrObserveScript),
		publish: luascript.New(publishExpireScript),
		release: luascript.New(publishReleaseScript),
	}
}

// AcquireOrObserve implements Coordinator.
func (rc *RedisCoordinator) AcquireOrObserve(ctx context.Context, lockKey, valueKey, ownerTag string) (bool, string, bool, error) {
	result := rc.acquire.Exec(ctx, rc.client, []string{lockKey, valueKey}, []string{ownerTag})
	arr, err := result.ToArray()
	if err != nil {
		return false, "", false, fmt.Errorf("failed to acquire or observe for key %q: %w", lockKey, err)
	}
	if len(arr) != 2 {
		return false, "", false, fmt.Errorf("unexpected acquire response for key %q: %d elements", lockKey, len(arr))
	}

	ownedFlag, err := arr[0].AsInt64()
	if err != nil {
		return false, "", false, fmt.Errorf("unexpected ownership flag for key %q: %w", lockKey, err)
	}
	owned := ownedFlag == 1

	msg, err := arr[1].ToString()
	if rueidis.IsRedisNil(err) {
		if owned {
			rc.logger.Debug("lock acquired", "lockKey", lockKey)
		} else {
			rc.logger.Debug("lock held elsewhere, no value yet", "lockKey", lockKey)
		}
		return owned, "", false, nil
	}
	if err != nil {
		return false, "", false, fmt.Errorf("unexpected peeked value for key %q: %w", valueKey, err)
	}

	rc.logger.Debug("lock held elsewhere, value observed", "lockKey", lockKey)
	return owned, msg, true, nil
}

// PublishValue implements Coordinator.
func (rc *RedisCoordinator) PublishValue(ctx context.Context, valueKey, lockKey, msg string, ttl time.Duration) error {
	if ttl > 0 {
		ttlArg := strconv.FormatInt(ttl.Milliseconds(), 10)
		err := rc.publish.Exec(ctx, rc.client, []string{valueKey, lockKey}, []string{msg, ttlArg}).Error()
		if err != nil {
			return fmt.Errorf("failed to publish value for key %q: %w", valueKey, err)
		}
		rc.logger.Debug("value published", "valueKey", valueKey, "ttl", ttl)
		return nil
	}

	// No TTL: the lock record is never expired, so the entry stays cached
	// until cleared externally.
	err := rc.client.Do(ctx, rc.client.B().Rpush().Key(valueKey).Element(msg).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to publish value for key %q: %w", valueKey, err)
	}
	rc.logger.Debug("value published without expiry", "valueKey", valueKey)
	return nil
}

// PublishRelease implements Coordinator.
func (rc *RedisCoordinator) PublishRelease(ctx context.Context, valueKey, lockKey, msg string) error {
	err := rc.release.Exec(ctx, rc.client, []string{valueKey, lockKey}, []string{msg}).Error()
	if err != nil {
		return fmt.Errorf("failed to release lock for key %q: %w", lockKey, err)
	}
	rc.logger.Debug("lock released, waiters notified", "lockKey", lockKey)
	return nil
}

// AwaitValue implements Coordinator.
func (rc *RedisCoordinator) AwaitValue(ctx context.Context, valueKey string, maxWait time.Duration) (string, bool, error) {
	if maxWait <= 0 {
		// BRPOPLPUSH with timeout 0 blocks forever; a non-positive wait
		// means "do not block at all".
		return "", false, nil
	}

	cmd := rc.client.B().Brpoplpush().Source(valueKey).Destination(valueKey).Timeout(maxWait.Seconds()).Build()
	msg, err := rc.client.Do(ctx, cmd).ToString()
	if rueidis.IsRedisNil(err) {
		rc.logger.Debug("wait timed out, no value broadcast", "valueKey", valueKey)
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to wait for value on key %q: %w", valueKey, err)
	}
	return msg, true, nil
}

// Clear implements Coordinator.
func (rc *RedisCoordinator) Clear(ctx context.Context, lockKey, valueKey string) error {
	err := rc.client.Do(ctx, rc.client.B().Del().Key(lockKey, valueKey).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to clear entry %q: %w", lockKey, err)
	}
	return nil
}
