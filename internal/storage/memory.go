package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// MemoryBackend keeps payloads in process memory. It backs tests and
// single-process demo deployments.
type MemoryBackend struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{objects: make(map[string][]byte)}
}

func (b *MemoryBackend) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[objectName] = data
	return nil
}

func (b *MemoryBackend) Download(ctx context.Context, objectName string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.objects[objectName]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *MemoryBackend) Delete(ctx context.Context, objectName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.objects[objectName]; !ok {
		return ErrObjectNotFound
	}
	delete(b.objects, objectName)
	return nil
}

func (b *MemoryBackend) Copy(ctx context.Context, srcObject, dstObject string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, ok := b.objects[srcObject]
	if !ok {
		return ErrObjectNotFound
	}
	b.objects[dstObject] = append([]byte(nil), data...)
	return nil
}

func (b *MemoryBackend) EnsureBucket(ctx context.Context) error {
	return nil
}

// Has reports whether an object is stored under the key.
func (b *MemoryBackend) Has(objectName string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.objects[objectName]
	return ok
}

func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
