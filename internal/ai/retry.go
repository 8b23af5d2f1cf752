package ai

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds how often and how patiently a completion is retried.
// The wait before retry n (counting from zero) is Multiplier * 2^n clamped to [MinWait, MaxWait].
type RetryPolicy struct {
	MaxAttempts int
	Multiplier  time.Duration
	MinWait     time.Duration
	MaxWait     time.Duration
}

// DefaultRetryPolicy allows three attempts with waits between 4 and 10 seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Multiplier:  time.Second,
		MinWait:     4 * time.Second,
		MaxWait:     10 * time.Second,
	}
}

// clampedExponential implements backoff.BackOff with hard floor and ceiling.
type clampedExponential struct {
	policy RetryPolicy
	n      int
}

func (b *clampedExponential) NextBackOff() time.Duration {
	d := time.Duration(float64(b.policy.Multiplier) * math.Pow(2, float64(b.n)))
	b.n++
	if d < b.policy.MinWait {
		d = b.policy.MinWait
	}
	if b.policy.MaxWait > 0 && d > b.policy.MaxWait {
		d = b.policy.MaxWait
	}
	return d
}

func (b *clampedExponential) Reset() { b.n = 0 }

// retry calls op until it succeeds, returns a non-retriable error, or the
// attempt budget runs out. Exhausting the budget yields *RetryExhaustedError.
func retry(ctx context.Context, policy RetryPolicy, op func(ctx context.Context, attempt int) error) error {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	attempt := 0
	var last error
	operation := func() error {
		attempt++
		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		last = err
		if ctx.Err() != nil || !IsRetriable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(&clampedExponential{policy: policy}, uint64(maxAttempts-1)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		slog.Warn("llm call failed, retrying", "attempt", attempt, "max_attempts", maxAttempts, "wait", wait, "error", err)
	}

	err := backoff.RetryNotify(operation, b, notify)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return errors.Join(ctxErr, err)
	}
	if attempt >= maxAttempts && IsRetriable(last) {
		return &RetryExhaustedError{Attempts: attempt, Last: last}
	}
	return err
}
