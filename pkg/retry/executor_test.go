package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPolicyDefaults(t *testing.T) {
	policy := NewPolicy()

	assert.Equal(t, time.Second, policy.InitialInterval)
	assert.Equal(t, 2.0, policy.BackoffCoefficient)
	assert.Equal(t, int32(3), policy.MaximumAttempts)
}

func TestNewPolicyOptions(t *testing.T) {
	policy := NewPolicy(
		WithInitialInterval(10*time.Millisecond),
		WithBackoffCoefficient(1.5),
		WithMaximumInterval(time.Second),
		WithMaxAttempts(5),
	)

	assert.Equal(t, 10*time.Millisecond, policy.InitialInterval)
	assert.Equal(t, 1.5, policy.BackoffCoefficient)
	assert.Equal(t, time.Second, policy.MaximumInterval)
	assert.Equal(t, int32(5), policy.MaximumAttempts)
}

func TestExecutorRetriesUntilSuccess(t *testing.T) {
	executor := NewExecutor(NewPolicy(
		WithInitialInterval(time.Millisecond),
		WithMaxAttempts(5),
	))

	attempts := 0
	err := executor.Execute(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestExecutorExhaustsAttempts(t *testing.T) {
	executor := NewExecutor(NewPolicy(
		WithInitialInterval(time.Millisecond),
		WithMaxAttempts(3),
	))

	attempts := 0
	err := executor.Execute(context.Background(), func() error {
		attempts++
		return errors.New("still failing")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestExecutorPermanentError(t *testing.T) {
	executor := NewExecutor(NewPolicy(
		WithInitialInterval(time.Millisecond),
		WithMaxAttempts(5),
	))

	attempts := 0
	err := executor.Execute(context.Background(), func() error {
		attempts++
		return Permanent(errors.New("bad request"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestExecutorContextCancelled(t *testing.T) {
	executor := NewExecutor(NewPolicy(
		WithInitialInterval(time.Hour),
		WithMaxAttempts(10),
	))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := executor.Execute(ctx, func() error {
		return errors.New("transient")
	})

	require.Error(t, err)
}
