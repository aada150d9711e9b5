package utils

import (
	"context"
	"time"
)

// Poll calls f until it returns true or ctx is done.
// It returns the number of failed attempts and whether f eventually succeeded.
func Poll(ctx context.Context, f func() bool) (int, bool) {
	return PollEvery(ctx, 0, f)
}

// PollEvery is Poll with a pause of period between two attempts.
func PollEvery(ctx context.Context, period time.Duration, f func() bool) (int, bool) {
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return i, false
		}
		if f() {
			return i, true
		}
		if period > 0 {
			select {
			case <-ctx.Done():
				return i + 1, false
			case <-time.After(period):
			}
		}
	}
}
