package legifrance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy describes how failed calls are retried. The wait before retry
// n (n starting at 1) is BaseInterval * Multiplier^n, clamped to
// [MinInterval, MaxInterval].
type RetryPolicy struct {
	MaxAttempts  int
	BaseInterval time.Duration
	Multiplier   float64
	MinInterval  time.Duration
	MaxInterval  time.Duration
}

// DefaultRetryPolicy makes at most 3 attempts, waiting 1s then 2s.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:  3,
	BaseInterval: 500 * time.Millisecond,
	Multiplier:   2,
	MinInterval:  time.Second,
	MaxInterval:  10 * time.Second,
}

// Wait returns the delay before retry n.
func (p RetryPolicy) Wait(n int) time.Duration {
	d := time.Duration(float64(p.BaseInterval) * math.Pow(p.Multiplier, float64(n)))
	if d < p.MinInterval {
		d = p.MinInterval
	}
	if p.MaxInterval > 0 && d > p.MaxInterval {
		d = p.MaxInterval
	}
	return d
}

// exponentialWait adapts RetryPolicy to backoff.BackOff.
type exponentialWait struct {
	policy RetryPolicy
	n      int
}

func (w *exponentialWait) NextBackOff() time.Duration {
	w.n++
	return w.policy.Wait(w.n)
}

func (w *exponentialWait) Reset() { w.n = 0 }

// retrier runs an operation under a RetryPolicy. Only errors accepted by
// retryable are retried; everything else is returned immediately.
type retrier struct {
	policy RetryPolicy
	timer  backoff.Timer
	logger *slog.Logger
}

func (r retrier) do(ctx context.Context, op string, fn func() error) error {
	attempts := r.policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(&exponentialWait{policy: r.policy}, uint64(attempts-1)),
		ctx,
	)

	attempt := 0
	operation := func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return err
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Warn("Retrying Legifrance call",
			"operation", op,
			"attempt", attempt,
			"max_attempts", attempts,
			"wait", wait,
			"error", err,
		)
	}

	err := backoff.RetryNotifyWithTimer(operation, b, notify, r.timer)
	if err == nil {
		return nil
	}
	if _, ok := AsAPIError(err); !ok && ctx.Err() != nil {
		return unexpectedError(op, fmt.Sprintf("Legifrance %s interrupted", op), err)
	}
	return err
}
