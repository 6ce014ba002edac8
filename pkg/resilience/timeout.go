package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/newsrank/pkg/errors"
)

// WithTimeout runs fn as one unit of work under a deadline. fn receives the
// derived context; if the deadline passes first, its eventual result is
// discarded and an error matching both ErrTimeout and
// context.DeadlineExceeded is returned. A non-positive timeout runs fn
// directly.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- fn(timeoutCtx)
	}()
	select {
	case err := <-done:
		return err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
		}
		return apperrors.Wrap(apperrors.ErrTimeout, context.DeadlineExceeded, fmt.Sprintf("%s (limit: %v)", name, timeout))
	}
}
