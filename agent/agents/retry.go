package agents

import (
	"context"
	"time"
)

const retryBackoff = 500 * time.Millisecond

// withRetry calls fn with a single retry after a short backoff for
// transient provider/timeout failures. Moderation decisions are never
// retried; this helper is only for completion and retrieval calls.
func withRetry[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	out, err := fn(ctx)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return out, err
	}

	select {
	case <-ctx.Done():
		return out, err
	case <-time.After(retryBackoff):
	}
	return fn(ctx)
}
