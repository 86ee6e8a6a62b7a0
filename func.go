package stampede

import (
	"context"
	"encoding/json"
	"reflect"
	"runtime"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/stampedecache/stampede/internal/contextx"
	"github.com/stampedecache/stampede/internal/envelope"
	"github.com/stampedecache/stampede/internal/ownertag"
)

// cleanupTimeout bounds publish and release round trips performed on a
// detached context after the caller's context may already be done.
const cleanupTimeout = 10 * time.Second

// ComputeFunc is the wrapped computation. It is invoked with the caller's
// original argument, at most once per key and epoch across all
// cooperating processes (except for uncoordinated fallback computations).
type ComputeFunc[A, V any] func(ctx context.Context, arg A) (V, error)

// MarshalFunc encodes a computed value for broadcast. Defaults to json.Marshal.
type MarshalFunc func(v any) ([]byte, error)

// UnmarshalFunc decodes a broadcast value. Defaults to json.Unmarshal.
type UnmarshalFunc func(data []byte, v any) error

// FuncOption configures a wrapped function. All fields are optional.
type FuncOption[A any] struct {
	// TTL bounds how long a successfully computed entry stays cached: the
	// lock record expires after TTL and the next caller recomputes. Zero
	// means the entry is cached until cleared externally; negative is
	// rejected.
	TTL time.Duration

	// MaxWait bounds how long a non-owning call blocks waiting for the
	// broadcast value. Zero means it never blocks and computes immediately
	// on a miss; negative is rejected. MaxWait should exceed the
	// reasonable worst-case time to compute and publish the value.
	MaxWait time.Duration

	// Namespace prefixes this function's keys in the store. Defaults to
	// the compute function's qualified name. Set it explicitly when
	// wrapping closures or method values, whose derived names are not
	// stable across refactors.
	Namespace string

	// Keymaker derives the per-call key suffix. Defaults to JSONKey.
	Keymaker Keymaker[A]

	// SkipCacheOn classifies store failures that degrade the call to
	// direct computation instead of erroring. Defaults to DefaultSkipCacheOn.
	SkipCacheOn SkipClassifier

	// Marshal and Unmarshal encode and decode broadcast values.
	Marshal   MarshalFunc
	Unmarshal UnmarshalFunc

	// Observer receives protocol lifecycle events, if set.
	Observer Observer
}

// Func is a wrapped computation bound to a Cache. Create one per function
// via Wrap and share it; each Func carries its own owner tag and local
// coalescing group.
type Func[A, V any] struct {
	cache        *Cache
	compute      ComputeFunc[A, V]
	keymaker     Keymaker[A]
	skip         SkipClassifier
	marshal      MarshalFunc
	unmarshal    UnmarshalFunc
	observer     Observer
	ttl          time.Duration
	maxWait      time.Duration
	namespace    string
	ownerTag     string
	lockKeyBase  string
	valueKeyBase string
	group        singleflight.Group
}

// Wrap binds a compute function to the cache. Options are validated
// eagerly, one specific error per malformed option, and the owner tag for
// this configuration is generated once here and reused for every
// acquisition it makes.
func Wrap[A, V any](c *Cache, compute ComputeFunc[A, V], opt FuncOption[A]) (*Func[A, V], error) {
	if c == nil {
		return nil, ErrNilCache
	}
	if compute == nil {
		return nil, ErrNilCompute
	}
	if opt.TTL < 0 {
		return nil, ErrInvalidTTL
	}
	if opt.MaxWait < 0 {
		return nil, ErrInvalidMaxWait
	}
	if opt.Namespace == "" {
		opt.Namespace = qualifiedName(compute)
	}
	if opt.Keymaker == nil {
		opt.Keymaker = JSONKey[A]
	}
	if opt.SkipCacheOn == nil {
		opt.SkipCacheOn = DefaultSkipCacheOn
	}
	if opt.Marshal == nil {
		opt.Marshal = json.Marshal
	}
	if opt.Unmarshal == nil {
		opt.Unmarshal = json.Unmarshal
	}

	tag, err := ownertag.New(opt.Namespace)
	if err != nil {
		return nil, err
	}

	return &Func[A, V]{
		cache:        c,
		compute:      compute,
		keymaker:     opt.Keymaker,
		skip:         opt.SkipCacheOn,
		marshal:      opt.Marshal,
		unmarshal:    opt.Unmarshal,
		observer:     opt.Observer,
		ttl:          opt.TTL,
		maxWait:      opt.MaxWait,
		namespace:    opt.Namespace,
		ownerTag:     tag,
		lockKeyBase:  c.lockKeyPrefix + c.keySep + opt.Namespace,
		valueKeyBase: c.valueKeyPrefix + c.keySep + opt.Namespace,
	}, nil
}

// Call invokes the wrapped computation through the coordination protocol.
//
// Concurrent calls with equivalent derived keys within this process are
// coalesced: one of them drives the store protocol and every caller
// receives that attempt's outcome, value or error. Across processes, the
// lock record guarantees at most one computation per key and epoch.
func (f *Func[A, V]) Call(ctx context.Context, arg A) (V, error) {
	suffix, hasKey := f.keymaker(arg)
	flightKey := ""
	if hasKey {
		flightKey = suffix
	}

	res, err, shared := f.group.Do(flightKey, func() (any, error) {
		return f.attempt(ctx, arg, suffix, hasKey)
	})
	if shared {
		f.emit(EventCoalesced, suffix)
	}
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Invalidate clears the cache entry for arg, deleting its lock record and
// value queue so the next caller starts a fresh epoch.
func (f *Func[A, V]) Invalidate(ctx context.Context, arg A) error {
	suffix, hasKey := f.keymaker(arg)
	lockKey, valueKey := f.entryKeys(suffix, hasKey)
	return f.cache.coord.Clear(ctx, lockKey, valueKey)
}

// attempt runs one full pass of the protocol state machine. All paths
// terminate; there is no retry loop within a single call.
func (f *Func[A, V]) attempt(ctx context.Context, arg A, suffix string, hasKey bool) (V, error) {
	lockKey, valueKey := f.entryKeys(suffix, hasKey)

	owned, msg, found, err := f.cache.coord.AcquireOrObserve(ctx, lockKey, valueKey, f.ownerTag)
	if err != nil {
		if !f.skip(err) {
			var zero V
			return zero, err
		}
		f.cache.logger.Error("skipping cache: store failure during acquire", "valueKey", valueKey, "error", err)
		f.emit(EventDegraded, suffix)
		// Degrade to "not owner, failure already known" so the call falls
		// through to its own computation without blocking.
		owned, msg, found = false, envelope.Empty, true
	}

	if owned {
		return f.computeAndPublish(ctx, arg, lockKey, valueKey, suffix)
	}

	if !found && f.maxWait > 0 {
		msg, found, err = f.await(ctx, valueKey, suffix)
		if err != nil {
			var zero V
			return zero, err
		}
	}

	if found {
		var value V
		ok, decErr := envelope.DecodeValue(envelope.UnmarshalFunc(f.unmarshal), msg, &value)
		if decErr != nil {
			var zero V
			return zero, decErr
		}
		if ok {
			f.emit(EventHit, suffix)
			return value, nil
		}
	}

	// Empty placeholder, miss with MaxWait zero, or wait timeout: compute
	// locally. Fallback results are never published.
	f.emit(EventFallback, suffix)
	return f.compute(ctx, arg)
}

// computeAndPublish runs the wrapped computation as the epoch's owner and
// broadcasts the outcome.
func (f *Func[A, V]) computeAndPublish(ctx context.Context, arg A, lockKey, valueKey, suffix string) (V, error) {
	f.emit(EventOwner, suffix)

	value, err := f.compute(ctx, arg)
	if err != nil {
		// Release the lock and push the empty placeholder before
		// re-raising, so waiters unblock without riding out MaxWait.
		f.releaseAndNotify(ctx, valueKey, lockKey)
		var zero V
		return zero, err
	}

	msg, encErr := envelope.EncodeValue(envelope.MarshalFunc(f.marshal), value)
	if encErr != nil {
		// The value is good but cannot be broadcast. Release so the entry
		// is not wedged, and hand the value to the caller anyway.
		f.cache.logger.Error("failed to encode value for broadcast", "valueKey", valueKey, "error", encErr)
		f.releaseAndNotify(ctx, valueKey, lockKey)
		return value, nil
	}

	if pubErr := f.publishValue(ctx, valueKey, lockKey, msg, suffix); pubErr != nil {
		var zero V
		return zero, pubErr
	}
	return value, nil
}

// publishValue broadcasts the content message and applies the TTL. It
// runs on a detached context so caller cancellation cannot strand remote
// waiters. Classified store failures are logged only; waiters then
// resolve via their own wait timeout.
func (f *Func[A, V]) publishValue(ctx context.Context, valueKey, lockKey, msg, suffix string) error {
	pubCtx, cancel := contextx.WithCleanupTimeout(ctx, cleanupTimeout)
	defer cancel()

	err := f.cache.coord.PublishValue(pubCtx, valueKey, lockKey, msg, f.ttl)
	if err == nil {
		return nil
	}
	if f.skip(err) {
		f.cache.logger.Error("skipping cache: store failure during publish", "valueKey", valueKey, "error", err)
		f.emit(EventDegraded, suffix)
		return nil
	}
	return err
}

// releaseAndNotify deletes the lock record and pushes the empty
// placeholder. Best effort: errors here are logged, never surfaced, so
// the original computation failure stays the caller's error.
func (f *Func[A, V]) releaseAndNotify(ctx context.Context, valueKey, lockKey string) {
	relCtx, cancel := contextx.WithCleanupTimeout(ctx, cleanupTimeout)
	defer cancel()

	if err := f.cache.coord.PublishRelease(relCtx, valueKey, lockKey, envelope.Empty); err != nil {
		f.cache.logger.Error("failed to notify waiters and release lock", "lockKey", lockKey, "error", err)
	}
}

// await blocks on the value queue for up to MaxWait. Classified store
// failures degrade to "no value"; a timeout is not an error.
func (f *Func[A, V]) await(ctx context.Context, valueKey, suffix string) (string, bool, error) {
	f.emit(EventWait, suffix)

	msg, found, err := f.cache.coord.AwaitValue(ctx, valueKey, f.maxWait)
	if err != nil {
		if !f.skip(err) {
			return "", false, err
		}
		f.cache.logger.Error("skipping cache: store failure during wait", "valueKey", valueKey, "error", err)
		f.emit(EventDegraded, suffix)
		return "", false, nil
	}
	return msg, found, nil
}

func (f *Func[A, V]) entryKeys(suffix string, hasKey bool) (lockKey, valueKey string) {
	if !hasKey {
		return f.lockKeyBase, f.valueKeyBase
	}
	return f.lockKeyBase + f.cache.keySep + suffix, f.valueKeyBase + f.cache.keySep + suffix
}

func (f *Func[A, V]) emit(event Event, key string) {
	if f.observer == nil {
		return
	}
	f.observer.On(EventData{Event: event, Namespace: f.namespace, Key: key})
}

// qualifiedName derives the default namespace from the compute function's
// fully qualified name, e.g. "github.com/acme/users.fetchUser".
func qualifiedName(fn any) string {
	pc := reflect.ValueOf(fn).Pointer()
	if f := runtime.FuncForPC(pc); f != nil {
		return f.Name()
	}
	return "stampede.func"
}
