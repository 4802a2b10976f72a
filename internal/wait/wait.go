// internal/wait/wait.go
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tamzrod/ibutton-cloner/internal/fault"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real-time SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Bound derives a context for one blocking wait.
// A zero timeout means no bound beyond ctx itself.
func Bound(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// Classify maps a context error from a bounded wait onto fault.ErrTimeout.
// Cancellation of the parent is returned unchanged.
func Classify(what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", what, fault.ErrTimeout)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// Until polls cond with sleep between attempts until it reports true.
// next supplies the delay before each retry.
func Until(ctx context.Context, sleep SleepFunc, next func() time.Duration, cond func() bool) error {
	for {
		if cond() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sleep(ctx, next()); err != nil {
			return err
		}
	}
}
