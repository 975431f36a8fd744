package hillshade

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy bounds the attempts made against the source and cache.
type RetryPolicy struct {
	Attempts   int
	Timeout    time.Duration // per attempt, zero for none
	Backoff    time.Duration
	MaxBackoff time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:   3,
		Timeout:    30 * time.Second,
		Backoff:    500 * time.Millisecond,
		MaxBackoff: 30 * time.Second,
	}
}

// permanent errors are returned without retrying.
func permanent(err error) bool {
	return errors.Is(err, ErrNoData) ||
		errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, context.Canceled)
}

// do runs op until it succeeds, fails permanently or runs out of attempts.
func (p RetryPolicy) do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := max(p.Attempts, 1)
	sleep := p.Backoff

	var err error
	for i := 0; i < attempts; i++ {
		err = p.attempt(ctx, op)
		if err == nil || permanent(err) {
			return err
		}

		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(sleep):
		}

		sleep *= 2
		if p.MaxBackoff > 0 && sleep > p.MaxBackoff {
			sleep = p.MaxBackoff
		}
	}
	return err
}

func (p RetryPolicy) attempt(ctx context.Context, op func(ctx context.Context) error) error {
	if p.Timeout <= 0 {
		return op(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	return op(ctx)
}
