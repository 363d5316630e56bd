package storage

import (
	"context"
	"fmt"

	"github.com/incubrix/cms/internal/config"
)

// New builds the payload backend selected by configuration.
func New(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Storage.Backend {
	case "", "minio":
		client, err := NewMinIOClient(cfg.MinIO)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "s3":
		client, err := NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "memory":
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
