package app

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/khangpt2k6/bullroom/internal/domain"
)

const (
	defaultStoreAttempts = 3
	defaultRetryInitial  = 50 * time.Millisecond
	defaultRetryMax      = time.Second
)

// retryPolicy retries store operations that failed with ErrStoreUnavailable.
// Every other error is returned on the first attempt.
type retryPolicy struct {
	attempts uint
	initial  time.Duration
}

func (p retryPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initial
	b.MaxInterval = defaultRetryMax
	return b
}

func retryStore[T any](ctx context.Context, p retryPolicy, op func() (T, error)) (T, error) {
	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !errors.Is(err, domain.ErrStoreUnavailable) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(p.attempts),
	)
}

func retryStoreErr(ctx context.Context, p retryPolicy, op func() error) error {
	_, err := retryStore(ctx, p, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}
