package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals an update or removal of an id the store does not hold.
	ErrNotFound = errors.New("entry not found")
	// ErrPersistence matches every *PersistenceError.
	ErrPersistence = errors.New("persistence failure")
)

// PersistenceError reports a failed write to the storage backend. The
// in-memory change it accompanies has already been applied.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure (%s %s): %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

func notFound(id string) error {
	return fmt.Errorf("%w: %q", ErrNotFound, id)
}
