package processor

import (
	"errors"
	"fmt"
)

var (
	// ErrProcessingFailed is returned when a change event could not be fully
	// applied. The subscriber nacks on it so the bus redelivers the event.
	ErrProcessingFailed = errors.New("change processing failed")
)

// ProcessError wraps a pipeline failure with the stage and file that hit it.
type ProcessError struct {
	Op     string
	FileID string
	Err    error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("processor: %s failed for %s: %v", e.Op, e.FileID, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

func (e *ProcessError) Is(target error) bool {
	return target == ErrProcessingFailed || errors.Is(e.Err, target)
}

func wrapProcessError(op, fileID string, err error) error {
	if err == nil {
		return nil
	}
	return &ProcessError{Op: op, FileID: fileID, Err: err}
}
