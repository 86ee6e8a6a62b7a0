// Package coordinator implements the store side of the lock-and-broadcast
// protocol: atomic lock acquisition with value observation, broadcast
// publication, and the rotating blocking wait.
//
// All cross-process coordination happens through a lock record and a value
// queue per cache entry. The lock record (SET NX with the caller's owner
// tag) grants the exclusive right to compute for the current epoch. The
// value queue is an ordered list used as a fan-out broadcast: the owner
// pushes exactly one message and every waiter observes it with
// BRPOPLPUSH key key, which pops the message and immediately requeues it
// so the next waiter sees it too.
package coordinator

import (
	"context"
	"time"
)

// Coordinator defines the atomic operations the protocol issues against
// the shared store. Implementations must guarantee that each operation is
// all-or-nothing as observed by other clients; partial states (lock set
// but stale queue not cleared, value pushed but lock not expired) must
// never be visible.
type Coordinator interface {
	// AcquireOrObserve atomically attempts to acquire the lock record and
	// peeks the head of the value queue.
	//
	// There are three possible outcomes:
	//
	//  1. (true, "", false)    - the lock was absent and is now owned by
	//     ownerTag. Any stale value queue left from the previous epoch has
	//     been cleared, so the caller is responsible for computing and
	//     publishing the value. When the lock is acquired the peeked value
	//     is always absent.
	//  2. (false, "", false)   - the lock is held by someone else and no
	//     value has been published yet; the caller should wait.
	//  3. (false, msg, true)   - the lock is held by someone else and the
	//     broadcast message is already available.
	AcquireOrObserve(ctx context.Context, lockKey, valueKey, ownerTag string) (owned bool, msg string, found bool, err error)

	// PublishValue pushes the content message onto the value queue and,
	// when ttl > 0, atomically sets the lock record to expire after ttl.
	// Expiry of the lock opens the next epoch: the next caller after ttl
	// re-acquires ownership and recomputes. With ttl <= 0 the lock is left
	// untouched and the entry stays cached until cleared externally.
	PublishValue(ctx context.Context, valueKey, lockKey, msg string, ttl time.Duration) error

	// PublishRelease pushes the empty placeholder onto the value queue and
	// atomically deletes the lock record. Used after a failed computation
	// so waiters unblock promptly instead of riding out their timeout.
	PublishRelease(ctx context.Context, valueKey, lockKey, msg string) error

	// AwaitValue blocks until a broadcast message is available on the
	// value queue or maxWait elapses, whichever comes first. The message
	// is popped and immediately requeued so concurrent waiters all observe
	// it. A timeout is not an error: it returns ("", false, nil).
	AwaitValue(ctx context.Context, valueKey string, maxWait time.Duration) (msg string, found bool, err error)

	// Clear removes the lock record and value queue for an entry,
	// forcing the next caller to start a fresh epoch.
	Clear(ctx context.Context, lockKey, valueKey string) error
}
