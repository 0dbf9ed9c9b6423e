package retry

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
)

// Permanent wraps an error to signal that the operation must not be retried.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Executor runs operations under a retry policy with exponential backoff
type Executor struct {
	policy *Policy
}

// NewExecutor creates an executor for the given policy. A nil policy uses
// the package defaults.
func NewExecutor(policy *Policy) *Executor {
	if policy == nil {
		policy = NewPolicy()
	}
	return &Executor{policy: policy}
}

// Execute runs fn, retrying transient failures according to the policy.
// It returns the last error if all attempts fail, or the context error if
// the context is cancelled while waiting.
func (e *Executor) Execute(ctx context.Context, fn func() error) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = e.policy.InitialInterval
	exponentialBackoff.Multiplier = e.policy.BackoffCoefficient
	exponentialBackoff.MaxInterval = e.policy.MaximumInterval

	var b backoff.BackOff = backoff.WithContext(exponentialBackoff, ctx)
	if e.policy.MaximumAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(e.policy.MaximumAttempts-1))
	}

	return backoff.Retry(fn, b)
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var perm *backoff.PermanentError
	return errors.As(err, &perm)
}
