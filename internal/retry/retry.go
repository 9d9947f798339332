// Package retry wraps remote calls in a bounded exponential backoff policy.
//
// Every remote dependency (Drive metadata fetch, OCR, warehouse writes) goes
// through Do so that transient failures are absorbed uniformly instead of
// per call site. Validation-style failures should be marked with Permanent
// to stop retrying immediately.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy configures the backoff behaviour for a group of remote calls.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first one.
	MaxAttempts uint64

	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration

	// MaxInterval caps the delay between retries.
	MaxInterval time.Duration
}

// DefaultPolicy mirrors the bus redelivery characteristics: three attempts,
// one second initial delay, five second cap.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     5 * time.Second,
	}
}

// Do runs op under the policy, honoring ctx cancellation between attempts.
func (p Policy) Do(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = 0 // attempts are the bound, not wall time

	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, attempts-1), ctx))
}

// Permanent marks err as non-retryable so Do returns it without further attempts.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
