package steps

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dukex/siteflow/pkg/models"
)

// call runs op under the retry policy. Calls already dispatched are not
// interrupted by cancellation of ctx; only further attempts are abandoned.
func (e *Executor) call(ctx context.Context, policy *models.RetryPolicy, op func(ctx context.Context) (any, error)) (any, error) {
	callCtx := context.WithoutCancel(ctx)

	if policy == nil || policy.MaxAttempts <= 1 {
		return op(callCtx)
	}

	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = policy.InitialInterval()
	exponential.MaxElapsedTime = 0

	if policy.BackoffMultiplier >= 1 {
		exponential.Multiplier = policy.BackoffMultiplier
	}

	exponential.Reset()

	strategy := backoff.WithContext(
		backoff.WithMaxRetries(exponential, uint64(policy.MaxAttempts-1)), // #nosec G115 -- MaxAttempts > 1
		ctx,
	)

	attempt := 0

	return backoff.RetryNotifyWithData(
		func() (any, error) {
			attempt++

			result, err := op(callCtx)
			if err != nil && !isRetryable(policy, err) {
				return nil, backoff.Permanent(err)
			}

			return result, err
		},
		strategy,
		func(err error, next time.Duration) {
			e.logger.WarnContext(ctx, "Retrying failed call", "attempt", attempt, "next_in", next, "error", err)
		},
	)
}

func isRetryable(policy *models.RetryPolicy, err error) bool {
	if len(policy.RetryableErrors) == 0 {
		return true
	}

	message := err.Error()
	for _, fragment := range policy.RetryableErrors {
		if strings.Contains(message, fragment) {
			return true
		}
	}

	return false
}
