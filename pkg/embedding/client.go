// Package embedding turns text into vectors through a remote embedding model.
package embedding

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"copro-smart-go/internal/config"
)

// Client defines the interface for an embedding client.
type Client interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// StatusError is returned when the endpoint answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("embedding api returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the endpoint asked us to come back later.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusServiceUnavailable
}

// NewClient builds the configured provider wrapped with the retry policy.
func NewClient(cfg config.EmbeddingConfig) Client {
	httpClient := &http.Client{}

	var provider Client
	switch cfg.Provider {
	case "huggingface":
		provider = newHuggingFaceClient(cfg, httpClient)
	default:
		provider = newOpenAIClient(cfg, httpClient)
	}

	return WithRetry(provider, RetryOptions{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  time.Duration(cfg.BaseDelayMs) * time.Millisecond,
		Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
}
