package storage

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("object not found")

// Backend stores uploaded payloads and their derived thumbnails by key.
type Backend interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, objectName string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectName string) error
	Copy(ctx context.Context, srcObject, dstObject string) error
	EnsureBucket(ctx context.Context) error
}
