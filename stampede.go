// Package stampede prevents cache stampedes across a fleet of cooperating
// processes.
//
// It wraps an expensive, possibly-failing computation so that at most one
// process computes a result for a given key at a time. All other
// concurrent callers for that key either receive the computed result or
// fall back to computing it themselves when coordination fails or times
// out. Coordination runs over Redis via the rueidis client, composed from
// two atomic Lua scripts plus a blocking rotate-pop.
//
// # Basic Usage
//
//	cache, err := stampede.New(
//	    rueidis.ClientOption{InitAddress: []string{"localhost:6379"}},
//	    stampede.CacheOption{},
//	)
//	if err != nil {
//	    return err
//	}
//	defer cache.Client().Close()
//
//	fetchUser, err := stampede.Wrap(cache, func(ctx context.Context, id string) (User, error) {
//	    return loadUserFromDatabase(ctx, id)
//	}, stampede.FuncOption[string]{
//	    Namespace: "users.fetch",
//	    TTL:       time.Minute,
//	    MaxWait:   5 * time.Second,
//	})
//
//	user, err := fetchUser.Call(ctx, "123")
//
// # Protocol
//
// Each cache entry is a pair of Redis keys: a lock record ("L:" namespace
// plus the derived key) and a value queue ("V:" ...). A call atomically
// tries SET NX on the lock record while peeking the value queue. The
// winner computes the value once, pushes it onto the queue, and expires
// the lock after TTL; everyone else either decodes the already-broadcast
// value or blocks on BRPOPLPUSH key key, which pops the message and
// requeues it so a single push fans out to any number of waiters. When
// the owner's computation fails, it deletes the lock and pushes an empty
// placeholder so waiters unblock promptly and compute for themselves.
//
// Concurrent callers for the same key within one process are coalesced
// into a single coordination attempt and all receive its outcome.
//
// # Degradation
//
// Store failures classified by SkipCacheOn (connection errors, by
// default) are logged and absorbed: the call behaves as if uncoordinated
// and computes directly. A Redis outage degrades the layer to "no
// caching" rather than failing every wrapped call.
//
// # Topology
//
// The atomic scripts touch an entry's lock record and value queue
// together, so both keys must live on one node. Single-instance and
// sentinel deployments are supported; Redis Cluster is not.
package stampede

import (
	"log/slog"

	"github.com/redis/rueidis"

	"github.com/stampedecache/stampede/internal/coordinator"
)

// Logger defines the logging interface used by Cache and the functions
// wrapped through it. Implementations must be safe for concurrent use and
// should handle log levels internally. *slog.Logger satisfies this.
type Logger interface {
	// Error logs error messages, in particular degraded store operations.
	Error(msg string, args ...any)
	// Debug logs detailed diagnostic information about protocol steps.
	Debug(msg string, args ...any)
}

// Cache is the process-wide handle to the shared coordination store. One
// Cache is typically created per process and shared by every wrapped
// function.
type Cache struct {
	client         rueidis.Client
	coord          coordinator.Coordinator
	logger         Logger
	lockKeyPrefix  string
	valueKeyPrefix string
	keySep         string
}

// CacheOption configures a Cache. All fields are optional.
type CacheOption struct {
	// Logger for degraded operations and protocol debug output.
	// Defaults to slog.Default().
	Logger Logger

	// ClientBuilder allows customizing Redis client creation. If nil,
	// rueidis.NewClient is used with the provided options. Useful for
	// injecting mock clients in tests.
	ClientBuilder func(option rueidis.ClientOption) (rueidis.Client, error)

	// LockKeyPrefix namespaces lock records. Defaults to "L".
	// Must differ from ValueKeyPrefix.
	LockKeyPrefix string

	// ValueKeyPrefix namespaces value queues. Defaults to "V".
	ValueKeyPrefix string

	// KeySep joins prefix, namespace, and derived key. Defaults to ":".
	KeySep string
}

// New creates a Cache with the specified Redis client options.
//
// Options are validated eagerly: no address, or equal lock and value
// prefixes, are rejected here rather than surfacing on the first call.
// The caller owns the underlying client and should close it via
// Client().Close() on shutdown.
func New(clientOption rueidis.ClientOption, opt CacheOption) (*Cache, error) {
	if len(clientOption.InitAddress) == 0 {
		return nil, ErrNoAddresses
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.LockKeyPrefix == "" {
		opt.LockKeyPrefix = "L"
	}
	if opt.ValueKeyPrefix == "" {
		opt.ValueKeyPrefix = "V"
	}
	if opt.KeySep == "" {
		opt.KeySep = ":"
	}
	if opt.LockKeyPrefix == opt.ValueKeyPrefix {
		return nil, ErrEqualPrefixes
	}

	var client rueidis.Client
	var err error
	if opt.ClientBuilder != nil {
		client, err = opt.ClientBuilder(clientOption)
	} else {
		client, err = rueidis.NewClient(clientOption)
	}
	if err != nil {
		return nil, err
	}

	return &Cache{
		client:         client,
		coord:          coordinator.NewRedis(coordinator.RedisConfig{Client: client, Logger: opt.Logger}),
		logger:         opt.Logger,
		lockKeyPrefix:  opt.LockKeyPrefix,
		valueKeyPrefix: opt.ValueKeyPrefix,
		keySep:         opt.KeySep,
	}, nil
}

// Client returns the underlying rueidis.Client. Direct operations bypass
// the coordination protocol; use with caution.
func (c *Cache) Client() rueidis.Client {
	return c.client
}
