package stampede

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Keymaker derives a cache-entry key suffix from a call argument. The
// boolean reports whether a suffix exists: when false, every call to the
// wrapped function shares one global cache slot.
//
// Two arguments the caller considers equivalent must derive identical
// suffixes. This is the sole correctness dependency the protocol places
// on key derivation.
type Keymaker[A any] func(arg A) (key string, ok bool)

const sha1HexSize = sha1.Size * 2

// JSONKey is the default Keymaker. It derives the suffix from the compact
// JSON form of the argument, replaced by its SHA-1 hex digest when longer
// than a digest. A nil argument means "no key": the function gets a single
// shared cache slot.
//
// The JSON form is deterministic for numbers, strings, ordered slices and
// structs. Maps are marshaled with sorted keys by encoding/json, so they
// are safe too.
func JSONKey[A any](arg A) (string, bool) {
	if v := any(arg); v == nil {
		return "", false
	}
	data, err := json.Marshal(arg)
	if err != nil {
		// Not JSON-representable; fall back to the printed form, which is
		// still deterministic for comparable arguments.
		data = fmt.Appendf(nil, "%+v", arg)
	}
	if string(data) == "null" {
		return "", false
	}
	if len(data) > sha1HexSize {
		sum := sha1.Sum(data)
		return hex.EncodeToString(sum[:]), true
	}
	return string(data), true
}

// SingleSlot is a Keymaker that ignores the argument entirely: all calls
// to the wrapped function share one cache entry.
func SingleSlot[A any](A) (string, bool) {
	return "", false
}
