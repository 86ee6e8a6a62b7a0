// Package ownertag generates owner tokens for the distributed lock record.
//
// An owner tag identifies one wrapped-function configuration within one
// process. It is generated once at wrap time and reused for every lock
// acquisition that configuration makes, so the lock record's value always
// answers "which process-and-configuration owns this epoch".
package ownertag

import (
	"fmt"

	"github.com/google/uuid"
)

// New returns an owner tag of the form "<namespace>.<uuid>".
//
// UUIDv7 keeps tags time-ordered, which helps when inspecting lock records
// in Redis during an incident. Tags never collide across processes or
// across multiple configurations inside one process.
func New(namespace string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate owner tag for namespace %q: %w", namespace, err)
	}
	return namespace + "." + id.String(), nil
}
