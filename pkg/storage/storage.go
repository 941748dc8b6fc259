// Package storage keeps uploaded binaries on the local filesystem or in MinIO.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"copro-smart-go/internal/config"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("object not found")

// Storage stores objects under slash-separated keys such as "document/a.pdf".
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// New builds the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig, minioCfg config.MinIOConfig) (Storage, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocal(cfg.LocalRoot)
	case "minio":
		return NewMinIO(ctx, minioCfg)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}
