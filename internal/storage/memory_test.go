package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/incubrix/cms/internal/config"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	require.NoError(t, b.Upload(ctx, "uploads/a.txt", strings.NewReader("hello"), 5, "text/plain"))

	rc, err := b.Download(ctx, "uploads/a.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	require.NoError(t, b.Copy(ctx, "uploads/a.txt", "uploads/b.txt"))
	require.True(t, b.Has("uploads/b.txt"))

	require.NoError(t, b.Delete(ctx, "uploads/a.txt"))
	require.False(t, b.Has("uploads/a.txt"))
	require.Equal(t, 1, b.Len())
}

func TestMemoryBackendMissingObject(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	_, err := b.Download(ctx, "missing")
	require.True(t, errors.Is(err, ErrObjectNotFound))
	require.ErrorIs(t, b.Delete(ctx, "missing"), ErrObjectNotFound)
	require.ErrorIs(t, b.Copy(ctx, "missing", "other"), ErrObjectNotFound)
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Backend = "memory"
	b, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.IsType(t, &MemoryBackend{}, b)

	cfg.Storage.Backend = "tape"
	_, err = New(context.Background(), cfg)
	require.Error(t, err)
}
