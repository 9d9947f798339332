package warehouse

import (
	"errors"
	"fmt"
)

var (
	// ErrUpsertFailed is returned when the warehouse rejected a merge or
	// status update. The event is lost unless the bus redelivers it.
	ErrUpsertFailed = errors.New("warehouse upsert failed")

	// ErrQueryFailed is returned when a read query could not be executed.
	ErrQueryFailed = errors.New("warehouse query failed")
)

// UpsertError wraps a warehouse failure with the operation that hit it.
type UpsertError struct {
	Op      string
	Err     error
	Details string
}

func (e *UpsertError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("warehouse: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("warehouse: %s failed: %v", e.Op, e.Err)
}

func (e *UpsertError) Unwrap() error {
	return e.Err
}

func (e *UpsertError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func wrapUpsertError(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var ue *UpsertError
	if errors.As(err, &ue) {
		return err
	}
	return &UpsertError{Op: op, Err: err, Details: details}
}
