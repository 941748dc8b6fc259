package embedding

import (
	"context"
	"errors"
	"time"

	"copro-smart-go/internal/apperr"
	"copro-smart-go/pkg/log"

	"github.com/cenkalti/backoff/v4"
)

// RetryOptions controls WithRetry. Zero values fall back to 3 retries,
// a 2s base delay and a 10s per-attempt timeout.
type RetryOptions struct {
	MaxRetries int
	BaseDelay  time.Duration
	Timeout    time.Duration
}

type retryingClient struct {
	next Client
	opts RetryOptions
}

// WithRetry retries calls rejected with 429 or 503 using exponential backoff
// (BaseDelay, doubling). Other failures are not retried. Every error it
// returns is an apperr Upstream error.
func WithRetry(next Client, opts RetryOptions) Client {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 2 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &retryingClient{next: next, opts: opts}
}

func (c *retryingClient) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = c.opts.BaseDelay << uint(c.opts.MaxRetries)
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.opts.MaxRetries)), ctx)
}

func (c *retryingClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()

		v, err := c.next.CreateEmbedding(attemptCtx, text)
		if err == nil {
			vector = v
			return nil
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Retryable() {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		log.Warnf("[EmbeddingClient] embedding endpoint busy, retrying in %s: %v", wait, err)
	}

	if err := backoff.RetryNotify(operation, c.policy(ctx), notify); err != nil {
		log.Errorf("[EmbeddingClient] embedding failed: %v", err)
		return nil, apperr.Upstream("embedding request failed", err)
	}
	return vector, nil
}
