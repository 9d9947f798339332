package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested document does not exist.
	ErrNotFound = errors.New("registry: not found")

	// ErrDuplicate is returned when a domain or email is already registered.
	ErrDuplicate = errors.New("registry: already exists")
)

// StoreError wraps a Firestore failure with the operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("registry: %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func wrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
