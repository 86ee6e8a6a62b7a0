package stampede

import "errors"

// Configuration errors returned by New and Wrap. Each malformed option is
// rejected with its own error before any call is wrapped.
var (
	// ErrNoAddresses is returned when no Redis address is provided in InitAddress.
	ErrNoAddresses = errors.New("at least one Redis address must be provided in InitAddress")

	// ErrEqualPrefixes is returned when the lock key prefix equals the value key prefix.
	// The two namespaces must stay disjoint or lock records and value queues collide.
	ErrEqualPrefixes = errors.New("LockKeyPrefix cannot equal ValueKeyPrefix")

	// ErrInvalidTTL is returned when TTL is negative. Zero means the entry
	// is cached until cleared externally.
	ErrInvalidTTL = errors.New("TTL must not be negative")

	// ErrInvalidMaxWait is returned when MaxWait is negative. Zero means a
	// non-owner never blocks and falls back to computing immediately.
	ErrInvalidMaxWait = errors.New("MaxWait must not be negative")

	// ErrNilCompute is returned when Wrap is called without a compute function.
	ErrNilCompute = errors.New("compute function cannot be nil")

	// ErrNilCache is returned when Wrap is called without a Cache.
	ErrNilCache = errors.New("cache cannot be nil")
)
