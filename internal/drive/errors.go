package drive

import (
	"errors"
	"fmt"
)

var (
	// ErrContentNotStaged is returned when no object for the file exists in
	// the temp bucket. The sync job either has not staged it yet or already
	// cleaned it up.
	ErrContentNotStaged = errors.New("file content not staged in temp bucket")
)

// DriveError wraps errors with context about the Drive or storage failure.
type DriveError struct {
	Op      string
	Err     error
	Details string
}

func (e *DriveError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("drive: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("drive: %s failed: %v", e.Op, e.Err)
}

func (e *DriveError) Unwrap() error {
	return e.Err
}

func (e *DriveError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func wrapDriveError(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var de *DriveError
	if errors.As(err, &de) {
		return err
	}
	return &DriveError{Op: op, Err: err, Details: details}
}
