package gate

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when no valid identity could be
	// established from the request credentials.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when a valid identity is not allowed to
	// perform the operation.
	ErrForbidden = errors.New("forbidden")
)

// AuthError wraps an authorization failure with the operation that hit it.
type AuthError struct {
	Op      string
	Err     error
	Details string
}

func (e *AuthError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("gate: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("gate: %s failed: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func (e *AuthError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func wrapAuthError(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return err
	}
	return &AuthError{Op: op, Err: err, Details: details}
}
