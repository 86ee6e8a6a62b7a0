// Package envelope implements the broadcast message format pushed onto the
// value queue.
//
// Two message shapes exist on the wire:
//
//	{"content":<value>}  a computed value, encoded by the configured codec
//	{}                   the empty placeholder: "no value, compute yourself"
//
// The empty placeholder is pushed when the owner's computation fails, and
// is also what a waiter synthesizes locally after a wait timeout or a
// degraded store operation. Waiters treat the two identically.
package envelope

import (
	"encoding/json"
	"fmt"
)

// MarshalFunc encodes a computed value for the content field.
type MarshalFunc func(v any) ([]byte, error)

// UnmarshalFunc decodes the content field into the caller's value.
type UnmarshalFunc func(data []byte, v any) error

// Empty is the placeholder message signalling that no value is available.
const Empty = "{}"

type message struct {
	Content json.RawMessage `json:"content,omitempty"`
}

// EncodeValue wraps an encoded value in a content message.
func EncodeValue(marshal MarshalFunc, v any) (string, error) {
	content, err := marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode value: %w", err)
	}
	msg, err := json.Marshal(message{Content: content})
	if err != nil {
		return "", fmt.Errorf("failed to encode message: %w", err)
	}
	return string(msg), nil
}

// DecodeValue parses a broadcast message and, when it carries content,
// decodes it into v. The boolean reports whether content was present;
// an empty placeholder (or empty string) yields (false, nil).
func DecodeValue(unmarshal UnmarshalFunc, msg string, v any) (bool, error) {
	if msg == "" {
		return false, nil
	}
	var m message
	if err := json.Unmarshal([]byte(msg), &m); err != nil {
		return false, fmt.Errorf("failed to decode message: %w", err)
	}
	// RawMessage preserves a literal null, so a broadcast nil value is
	// indistinguishable from the placeholder and resolves as "no value".
	if m.Content == nil || string(m.Content) == "null" {
		return false, nil
	}
	if err := unmarshal(m.Content, v); err != nil {
		return false, fmt.Errorf("failed to decode value: %w", err)
	}
	return true, nil
}
