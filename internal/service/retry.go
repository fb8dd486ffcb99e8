package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

// RetryWithBackoff re-invokes op up to maxAttempts times with a fixed delay
// between tries, logging each retry under label. It returns the last error
// once attempts are exhausted. Used around storage writes and query-id
// submissions that must not silently fail after a transient hiccup.
func RetryWithBackoff(
	ctx context.Context,
	log zerolog.Logger,
	op func(context.Context) error,
	label string,
	maxAttempts int,
	delay time.Duration,
) error {
	policy := backoff.WithMaxTries(uint(maxAttempts)) //nolint:gosec // bounded, small, caller-controlled

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if opErr := op(ctx); opErr != nil {
			log.Warn().
				Err(opErr).
				Str("op", label).
				Int("attempt", attempt).
				Int("max_attempts", maxAttempts).
				Msg("retrying after failure")
			return struct{}{}, opErr
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(backoff.NewConstantBackOff(delay)), policy)
	if err != nil {
		return fmt.Errorf("%s: exhausted %d attempts: %w", label, maxAttempts, err)
	}
	return nil
}
