package event

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned when a webhook payload or bus message is
	// missing required fields or is not decodable.
	ErrValidation = errors.New("invalid change event")

	// ErrPublishFailed is returned when the change topic did not acknowledge
	// the message.
	ErrPublishFailed = errors.New("failed to publish change event")
)

// ValidationError carries the operation and detail of a rejected payload.
type ValidationError struct {
	Op      string
	Details string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("event: %s: %s", e.Op, e.Details)
}

// Is matches ValidationError against ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for the given operation.
func NewValidationError(op, details string) *ValidationError {
	return &ValidationError{Op: op, Details: details}
}

// PublishError wraps a publish failure with its operation.
type PublishError struct {
	Op  string
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("event: %s failed: %v", e.Op, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// Is matches PublishError against ErrPublishFailed.
func (e *PublishError) Is(target error) bool {
	return target == ErrPublishFailed || errors.Is(e.Err, target)
}
