package extract

import (
	"errors"
	"fmt"
)

// Common extraction errors
var (
	// ErrContentTooLarge is returned when the file exceeds the 20MB limit
	// both engines enforce for synchronous processing.
	ErrContentTooLarge = errors.New("file content exceeds the maximum limit (20MB)")

	// ErrEmptyContent is returned when no bytes were supplied.
	ErrEmptyContent = errors.New("file content is empty")

	// ErrEngineFailed is returned when the Vision or Document AI service
	// rejected or failed the request.
	ErrEngineFailed = errors.New("extraction engine failed")

	// ErrMissingCredentials is returned when neither GOOGLE_APPLICATION_CREDENTIALS
	// nor GOOGLE_CREDENTIALS environment variables are configured.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrInvalidConfiguration is returned when required processor settings
	// are absent.
	ErrInvalidConfiguration = errors.New("invalid extraction configuration")
)

// ExtractionError wraps errors with context about the extraction failure.
type ExtractionError struct {
	// Op is the operation that failed (e.g., "ExtractText", "Run").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

func (e *ExtractionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("extract: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("extract: %s failed: %v", e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func (e *ExtractionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExtractionError creates an ExtractionError with the specified operation.
func NewExtractionError(op string, err error, details string) *ExtractionError {
	return &ExtractionError{Op: op, Err: err, Details: details}
}

// WrapExtractionError wraps an error as an ExtractionError if it isn't already one.
func WrapExtractionError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ee *ExtractionError
	if errors.As(err, &ee) {
		return err // Already wrapped
	}

	return NewExtractionError(op, err, details)
}
