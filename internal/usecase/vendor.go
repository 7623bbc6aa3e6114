package usecase

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/provider"
)

// VendorPolicy bounds every call made to a payment vendor
type VendorPolicy struct {
	Timeout         time.Duration
	MaxRetries      int
	InitialInterval time.Duration
}

// call runs fn under the per-call timeout. Only unavailable errors are
// retried, and only when retry is set: reads, or writes that carry an
// idempotency key.
func (v VendorPolicy) call(ctx context.Context, recorder MetricsRecorder, name model.ProviderType, operation string, retry bool, fn func(ctx context.Context) error) error {
	attempt := func() error {
		callCtx := ctx
		if v.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, v.Timeout)
			defer cancel()
		}

		started := time.Now()
		err := fn(callCtx)
		recorder.ObserveVendorCall(name, operation, started, err)

		if err != nil && (!retry || !provider.IsRetryable(err)) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(attempt, v.backOff(ctx))
}

func (v VendorPolicy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if v.InitialInterval > 0 {
		exp.InitialInterval = v.InitialInterval
	}
	retries := v.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(retries)), ctx)
}
