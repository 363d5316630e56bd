package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/incubrix/cms/internal/database"
	"github.com/incubrix/cms/internal/feed"
	"github.com/incubrix/cms/internal/models"
	"github.com/incubrix/cms/internal/storage"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	ctx       context.Context
	db        *gorm.DB
	store     *AssetStore
	blobs     *storage.MemoryBackend
	hierarchy *HierarchyService
	settings  *SettingsService
	filter    *FeedFilterEngine
	feeds     *FeedService
	assets    *AssetService
	ingest    *IngestService
	registry  *PublicFeedRegistry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedSettings(db))

	store := NewAssetStore(db)
	blobs := storage.NewMemoryBackend()
	hierarchy := NewHierarchyService(store, blobs, nil)
	settings := NewSettingsService(db, store, nil)
	filter := NewFeedFilterEngine(store, hierarchy)

	renderer := feed.NewRenderer()
	renderer.Now = func() time.Time { return testNow }

	feeds := NewFeedService(store, settings, filter, renderer, "")
	hierarchy.Notifier = feeds
	settings.Notifier = feeds

	ingest := NewIngestService(store, hierarchy, settings, blobs, NoopExtractor{}, feeds)
	ingest.Now = func() time.Time { return testNow }

	return &fixture{
		ctx:       context.Background(),
		db:        db,
		store:     store,
		blobs:     blobs,
		hierarchy: hierarchy,
		settings:  settings,
		filter:    filter,
		feeds:     feeds,
		assets:    NewAssetService(store, blobs, feeds),
		ingest:    ingest,
		registry:  NewPublicFeedRegistry(db, store, settings, filter, renderer),
	}
}

func (f *fixture) folder(t *testing.T, name string, parent *uuid.UUID) models.Asset {
	t.Helper()
	folder := newFolder(name, parent, name, DefaultUploader)
	require.NoError(t, f.db.Create(&folder).Error)
	return folder
}

type fileOpt func(*models.Asset)

func included(publishAt time.Time) fileOpt {
	return func(a *models.Asset) {
		a.IncludeInFeed = true
		a.FeedPublishDate = &publishAt
	}
}

func withTags(tags ...string) fileOpt {
	return func(a *models.Asset) { _ = a.SetTags(tags) }
}

func withKind(kind models.ContentKind, mimeType string) fileOpt {
	return func(a *models.Asset) {
		a.ContentKind = kind
		a.MimeType = mimeType
	}
}

// file stores a text file node and its payload.
func (f *fixture) file(t *testing.T, name string, parent *uuid.UUID, opts ...fileOpt) models.Asset {
	t.Helper()
	a := models.Asset{
		Name:        name,
		ParentID:    parent,
		ContentKind: models.ContentKindText,
		Format:      "txt",
		MimeType:    "text/plain",
		Size:        int64(len(name)),
		UploadedBy:  DefaultUploader,
	}
	a.ID = uuid.New()
	_ = a.SetTags(nil)
	for _, opt := range opts {
		opt(&a)
	}
	a.StoragePath = objectKey(a.ID, a.Format)
	require.NoError(t, f.blobs.Upload(f.ctx, a.StoragePath, bytes.NewReader([]byte(name)), int64(len(name)), a.MimeType))
	require.NoError(t, f.db.Create(&a).Error)
	return a
}

func (f *fixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func idPtr(id uuid.UUID) *uuid.UUID { return &id }

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
