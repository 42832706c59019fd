package models

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError rejects bad input before anything is persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StateError reports an illegal status transition, such as completing a job
// that is not processing or deleting one that is not pending.
type StateError struct {
	ID     uint
	Status string
	Op     string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s scheduled post %d in status %q", e.Op, e.ID, e.Status)
}

// CollaboratorError wraps a failure of an external service (scrape, generate,
// publish, feed fetch). It is always caught at the job boundary.
type CollaboratorError struct {
	Service string
	Err     error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
