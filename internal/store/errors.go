package store

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates an operation targeted a missing entity.
var ErrNotFound = errors.New("entity not found")

// ValidationError reports a candidate rejected before any write.
type ValidationError struct {
	Entity string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s %s", e.Entity, e.Field, e.Reason)
}

// ConflictError reports a uniqueness violation: a duplicate id, or a
// duplicate non-empty source track id.
type ConflictError struct {
	Entity string
	Field  string
	Value  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: duplicate %s %q", e.Entity, e.Field, e.Value)
}

// PersistenceError wraps a storage failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
