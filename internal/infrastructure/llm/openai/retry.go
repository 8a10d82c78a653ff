package openai

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sashabaranov/go-openai"
)

// retry runs op with randomized exponential backoff. Provider errors other
// than rate limiting and server failures stop immediately.
func retry[T any](ctx context.Context, a *Adapter, attempts uint, maxInterval time.Duration, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.retry.InitialInterval
	b.MaxInterval = maxInterval

	return backoff.Retry(ctx, func() (T, error) {
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				var zero T
				return zero, backoff.Permanent(err)
			}
		}

		res, err := op()
		if err != nil {
			return res, classify(err)
		}
		return res, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(attempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			if a.logger != nil {
				a.logger.Warn("Retrying LLM request", "error", err, "wait", wait.String())
			}
		}),
	)
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return backoff.Permanent(err)
	}

	if status, ok := statusCode(err); ok && !retryableStatus(status) {
		return backoff.Permanent(err)
	}
	return err
}

func statusCode(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
