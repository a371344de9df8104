package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gretools/greharvest/internal/types"
)

// Fetcher is the interface for all request fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the content at the given request's URL.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// FetchWithRetry fetches a request, retrying retryable failures up to
// req.MaxRetries additional attempts with exponential backoff: the delay
// doubles after every failed attempt, and a server-provided Retry-After
// takes precedence when it is longer.
func FetchWithRetry(ctx context.Context, f Fetcher, req *types.Request, baseDelay time.Duration, logger *slog.Logger) (*types.Response, error) {
	var lastErr error
	delay := baseDelay

	for attempt := 0; attempt <= req.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := delay
			var fe *types.FetchError
			if errors.As(lastErr, &fe) && fe.RetryAfter > wait {
				wait = fe.RetryAfter
			}
			logger.Debug("retrying fetch",
				"url", req.URLString(),
				"attempt", attempt,
				"wait", wait,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			delay *= 2
		}

		req.RetryCount = attempt
		resp, err := f.Fetch(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var fe *types.FetchError
		if !errors.As(err, &fe) || !fe.Retryable {
			return nil, err
		}
	}

	return nil, &types.FetchError{
		URL: req.URLString(),
		Err: errors.Join(types.ErrMaxRetries, lastErr),
	}
}
