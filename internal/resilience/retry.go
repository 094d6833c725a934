package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Backoff is an exponential retry schedule with full jitter.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

// DefaultBackoff suits interactive request paths.
var DefaultBackoff = Backoff{Attempts: 3, Initial: 250 * time.Millisecond, Max: 4 * time.Second}

func (b Backoff) normalized() Backoff {
	if b.Attempts <= 0 {
		b.Attempts = DefaultBackoff.Attempts
	}
	if b.Initial <= 0 {
		b.Initial = DefaultBackoff.Initial
	}
	if b.Max < b.Initial {
		b.Max = b.Initial
	}
	return b
}

// Delay returns the upper bound of the wait before retry n (1-based).
func (b Backoff) Delay(n int) time.Duration {
	b = b.normalized()
	d := b.Initial
	for i := 1; i < n && d < b.Max; i++ {
		d *= 2
	}
	return min(d, b.Max)
}

func (b Backoff) jittered(n int) time.Duration {
	ceiling := b.Delay(n)
	if ceiling <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(ceiling)) + 1)
}

// Retry runs fn until it succeeds, returns a non-retryable error, the
// attempts run out or ctx ends.
func Retry[T any](ctx context.Context, b Backoff, op string, fn func(context.Context) (T, error)) (T, error) {
	b = b.normalized()
	var (
		val T
		err error
	)
	for attempt := 1; ; attempt++ {
		val, err = fn(ctx)
		if err == nil || attempt >= b.Attempts || !Retryable(err) {
			return val, err
		}

		wait := b.jittered(attempt)
		zap.L().Debug("resilience: retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return val, err
		case <-t.C:
		}
	}
}
