package util

import (
	"context"
	"time"
)

// Retry runs fn until it succeeds or maxAttempts is exhausted, doubling
// the wait between attempts from baseDelay. The last error is returned
// when every attempt fails; cancelling ctx aborts the wait in between.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var err error
	delay := baseDelay

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		// No wait after the final attempt.
		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return err
}
