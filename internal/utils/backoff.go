package utils

import (
	"context"
	"time"
)

type Backoff struct {
	base       time.Duration
	maxRetries int
}

func NewBackoff(base time.Duration, maxRetries int) Backoff {
	return Backoff{base: base, maxRetries: maxRetries}
}

// Do calls fn until it succeeds, retry reports the error as permanent, the
// retries run out, or ctx ends. Waits double from base on each attempt.
func (b Backoff) Do(ctx context.Context, retry func(error) bool, fn func(i int) error) error {
	var err error
	for i := 0; i <= b.maxRetries; i++ {
		err = fn(i)
		if err == nil || (retry != nil && !retry(err)) || i == b.maxRetries {
			return err
		}
		t := time.NewTimer(time.Duration(1<<i) * b.base)
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
	return err
}
