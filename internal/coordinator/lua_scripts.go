package coordinator

// Lua scripts composing the store primitives into atomic steps.
//
// Each script touches at most the lock record and the value queue of a
// single cache entry, so both keys must resolve to the same node. This
// holds for single-instance and sentinel deployments; Redis Cluster would
// require hash-tagged keys.
const (
	// acquireOrObserveScript attempts SETNX on the lock record. On
	// acquisition it deletes the value queue, discarding any broadcast
	// left over from the previous, expired epoch. It always returns the
	// ownership flag together with a peek of the queue head.
	// KEYS[1] = lock key, KEYS[2] = value key, ARGV[1] = owner tag.
	acquireOrObserveScript = `
		local owned = redis.call('SETNX', KEYS[1], ARGV[1])
		if owned == 1 then redis.call('DEL', KEYS[2]) end
		return {owned, redis.call('LINDEX', KEYS[2], 0)}
	`

	// publishExpireScript broadcasts the content message and bounds the
	// epoch by expiring the lock record.
	// KEYS[1] = value key, KEYS[2] = lock key,
	// ARGV[1] = content message, ARGV[2] = ttl in milliseconds.
	publishExpireScript = `
		return {redis.call('RPUSH', KEYS[1], ARGV[1]), redis.call('PEXPIRE', KEYS[2], ARGV[2])}
	`

	// publishReleaseScript broadcasts the empty placeholder and deletes
	// the lock record, ending the epoch early after a failed computation.
	// KEYS[1] = value key, KEYS[2] = lock key, ARGV[1] = empty message.
	publishReleaseScript = `
		return {redis.call('RPUSH', KEYS[1], ARGV[1]), redis.call('DEL', KEYS[2])}
	`
)
