package app

import (
	"context"
	"fmt"

	"github.com/incubrix/cms/internal/config"
	"github.com/incubrix/cms/internal/database"
	"github.com/incubrix/cms/internal/feed"
	"github.com/incubrix/cms/internal/services"
	"github.com/incubrix/cms/internal/storage"
	"gorm.io/gorm"
)

// Services is the wired service graph shared by the HTTP server and the
// command line tool.
type Services struct {
	DB        *gorm.DB
	Storage   storage.Backend
	Store     *services.AssetStore
	Hierarchy *services.HierarchyService
	Settings  *services.SettingsService
	Feeds     *services.FeedService
	Assets    *services.AssetService
	Ingest    *services.IngestService
	Registry  *services.PublicFeedRegistry
}

// Wire builds the services on top of an open database and payload backend.
// Mutating services notify the feed service so the global snapshot tracks
// every change.
func Wire(db *gorm.DB, backend storage.Backend, extractor services.MetadataExtractor, feedOutputDir string) *Services {
	store := services.NewAssetStore(db)
	hierarchy := services.NewHierarchyService(store, backend, nil)
	settings := services.NewSettingsService(db, store, nil)
	filter := services.NewFeedFilterEngine(store, hierarchy)
	renderer := feed.NewRenderer()
	feeds := services.NewFeedService(store, settings, filter, renderer, feedOutputDir)
	hierarchy.Notifier = feeds
	settings.Notifier = feeds

	return &Services{
		DB:        db,
		Storage:   backend,
		Store:     store,
		Hierarchy: hierarchy,
		Settings:  settings,
		Feeds:     feeds,
		Assets:    services.NewAssetService(store, backend, feeds),
		Ingest:    services.NewIngestService(store, hierarchy, settings, backend, extractor, feeds),
		Registry:  services.NewPublicFeedRegistry(db, store, settings, filter, renderer),
	}
}

// Open connects to the configured database and payload backend and wires
// the services.
func Open(ctx context.Context, cfg *config.Config) (*Services, error) {
	db, err := database.Connect(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	backend, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage initialization failed: %w", err)
	}
	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed ensuring bucket: %w", err)
	}

	return Wire(db, backend, services.NewProbeExtractor(cfg.Probe), cfg.Feed.OutputDir), nil
}
