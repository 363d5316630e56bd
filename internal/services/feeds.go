package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/incubrix/cms/internal/feed"
	"github.com/incubrix/cms/internal/models"
	"github.com/incubrix/cms/pkg/logger"
	"github.com/incubrix/cms/pkg/metrics"
)

const (
	ScopeGlobal = "global"
	ScopeFolder = "folder"
	ScopePublic = "public"
)

type RenderedFeed struct {
	Body      []byte
	Format    feed.Format
	ItemCount int
}

// FeedPreviewItem is the admin projection of a feed item.
type FeedPreviewItem struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Link        string             `json:"link"`
	GUID        string             `json:"guid"`
	Category    string             `json:"category,omitempty"`
	PublishDate time.Time          `json:"publishDate"`
	ContentKind models.ContentKind `json:"contentKind"`
	MimeType    string             `json:"mimeType"`
	Size        int64              `json:"size"`
	Tags        []string           `json:"tags"`
}

type FeedPreview struct {
	Settings    models.SyndicationSettings `json:"settings"`
	FeedURL     string                     `json:"feedUrl"`
	JSONFeedURL string                     `json:"jsonFeedUrl"`
	ItemCount   int                        `json:"itemCount"`
	Items       []FeedPreviewItem          `json:"items"`
}

// FeedService builds the global and per-folder feeds. The global feed is
// re-rendered eagerly after every mutation and served from a snapshot.
type FeedService struct {
	Store     *AssetStore
	Settings  *SettingsService
	Filter    *FeedFilterEngine
	Renderer  *feed.Renderer
	OutputDir string

	// regenMu is held from the tree read through the file write.
	regenMu  sync.Mutex
	mu       sync.RWMutex
	snapshot map[feed.Format][]byte
	builtAt  time.Time
}

func NewFeedService(store *AssetStore, settings *SettingsService, filter *FeedFilterEngine, renderer *feed.Renderer, outputDir string) *FeedService {
	return &FeedService{
		Store:     store,
		Settings:  settings,
		Filter:    filter,
		Renderer:  renderer,
		OutputDir: outputDir,
		snapshot:  make(map[feed.Format][]byte),
	}
}

func feedURLs(siteURL, path string) (string, string) {
	base := strings.TrimRight(siteURL, "/") + path
	return base, base + "?format=json"
}

func buildDocument(settings models.SyndicationSettings, assets []models.Asset, title, description, selfURL, jsonURL string) feed.Document {
	ch := feed.ChannelFromSettings(settings)
	ch.Title = title
	ch.Description = description
	ch.SelfURL = selfURL
	ch.JSONURL = jsonURL

	items := make([]feed.Item, 0, len(assets))
	for _, a := range assets {
		items = append(items, feed.ItemFromAsset(a, ch.SiteURL))
	}
	return feed.Document{Channel: ch, Items: items}
}

func (f *FeedService) render(doc feed.Document, scope string, format feed.Format) (RenderedFeed, error) {
	body, err := f.Renderer.Render(doc, format)
	if err != nil {
		return RenderedFeed{}, err
	}
	recordRender(scope, format, len(doc.Items))
	return RenderedFeed{Body: body, Format: format, ItemCount: len(doc.Items)}, nil
}

func recordRender(scope string, format feed.Format, items int) {
	metrics.FeedRenders.WithLabelValues(scope, string(format)).Inc()
	metrics.FeedItems.WithLabelValues(scope).Observe(float64(items))
}

func (f *FeedService) globalDocument(ctx context.Context, settings models.SyndicationSettings) (feed.Document, error) {
	assets, err := f.Filter.ResolveAssetSet(ctx, AllCriterion(), settings)
	if err != nil {
		return feed.Document{}, err
	}
	self, jsonURL := feedURLs(settings.SiteURL, "/api/rss/feed")
	return buildDocument(settings, assets, settings.FeedTitle, settings.FeedDescription, self, jsonURL), nil
}

// Global renders the global feed from the current tree state.
func (f *FeedService) Global(ctx context.Context, format feed.Format) (RenderedFeed, error) {
	settings, err := f.Settings.Load(ctx)
	if err != nil {
		return RenderedFeed{}, err
	}
	doc, err := f.globalDocument(ctx, settings)
	if err != nil {
		return RenderedFeed{}, err
	}
	return f.render(doc, ScopeGlobal, format)
}

// Folder renders the feed of a folder subtree. The override title and
// description win over "<folder> - <global title>" style defaults.
func (f *FeedService) Folder(ctx context.Context, folderID uuid.UUID, format feed.Format) (RenderedFeed, error) {
	folder, err := f.Store.GetFolder(ctx, folderID)
	if err != nil {
		return RenderedFeed{}, err
	}
	settings, err := f.Settings.Load(ctx)
	if err != nil {
		return RenderedFeed{}, err
	}
	override, err := f.Settings.loadOverride(ctx, f.Settings.DB, folderID)
	if err != nil {
		return RenderedFeed{}, err
	}

	title := fmt.Sprintf("%s - %s", folder.Name, settings.FeedTitle)
	description := fmt.Sprintf("Files from %s folder - %s", folder.Name, settings.FeedDescription)
	if override != nil {
		if override.Title != nil && *override.Title != "" {
			title = *override.Title
		}
		if override.Description != nil && *override.Description != "" {
			description = *override.Description
		}
	}

	assets, err := f.Filter.ResolveAssetSet(ctx, FolderCriterion(folderID), settings)
	if err != nil {
		return RenderedFeed{}, err
	}

	self, jsonURL := feedURLs(settings.SiteURL, "/api/rss/folder/"+folderID.String()+"/feed")
	return f.render(buildDocument(settings, assets, title, description, self, jsonURL), ScopeFolder, format)
}

// Regenerate re-renders the global feed in both formats and replaces the
// snapshot. With an output directory configured the documents are also
// written to rss.xml, feed.xml and feed.json.
func (f *FeedService) Regenerate(ctx context.Context) error {
	f.regenMu.Lock()
	defer f.regenMu.Unlock()

	settings, err := f.Settings.Load(ctx)
	if err != nil {
		return err
	}
	doc, err := f.globalDocument(ctx, settings)
	if err != nil {
		return err
	}

	rendered := make(map[feed.Format][]byte, 2)
	for _, format := range []feed.Format{feed.FormatXML, feed.FormatJSON} {
		out, err := f.render(doc, ScopeGlobal, format)
		if err != nil {
			return err
		}
		rendered[format] = out.Body
	}

	f.mu.Lock()
	f.snapshot = rendered
	f.builtAt = time.Now().UTC()
	f.mu.Unlock()

	if f.OutputDir != "" {
		if err := f.writeFiles(rendered); err != nil {
			logger.Error("feed_file_write_failed", err, map[string]interface{}{
				"output_dir": f.OutputDir,
			})
		}
	}
	return nil
}

func (f *FeedService) writeFiles(rendered map[feed.Format][]byte) error {
	if err := os.MkdirAll(f.OutputDir, 0o755); err != nil {
		return err
	}
	files := map[string][]byte{
		"rss.xml":   rendered[feed.FormatXML],
		"feed.xml":  rendered[feed.FormatXML],
		"feed.json": rendered[feed.FormatJSON],
	}
	for name, body := range files {
		path := filepath.Join(f.OutputDir, name)
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, body, 0o644); err != nil {
			return err
		}
		if err := os.Rename(tmp, path); err != nil {
			return err
		}
	}
	return nil
}

// ContentChanged regenerates the global feed. A failure is logged and
// leaves the previous snapshot in place; the triggering mutation stands.
func (f *FeedService) ContentChanged(ctx context.Context, reason string) {
	ctx = context.WithoutCancel(ctx)
	if err := f.Regenerate(ctx); err != nil {
		metrics.FeedRegenerations.WithLabelValues("failure").Inc()
		logger.Error("feed_regeneration_failed", err, map[string]interface{}{
			"reason": reason,
		})
		return
	}
	metrics.FeedRegenerations.WithLabelValues("success").Inc()
	logger.Debug("feed_regenerated", map[string]interface{}{
		"reason": reason,
	})
}

// Snapshot serves the last regenerated global feed, rendering one first if
// none exists yet.
func (f *FeedService) Snapshot(ctx context.Context, format feed.Format) ([]byte, error) {
	f.mu.RLock()
	body, ok := f.snapshot[format]
	f.mu.RUnlock()
	if ok {
		return body, nil
	}

	if err := f.Regenerate(ctx); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snapshot[format], nil
}

// BuiltAt reports when the snapshot was last regenerated.
func (f *FeedService) BuiltAt() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.builtAt
}

func (f *FeedService) Preview(ctx context.Context) (FeedPreview, error) {
	settings, err := f.Settings.Load(ctx)
	if err != nil {
		return FeedPreview{}, err
	}
	doc, err := f.globalDocument(ctx, settings)
	if err != nil {
		return FeedPreview{}, err
	}

	items := make([]FeedPreviewItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		items = append(items, FeedPreviewItem{
			ID:          item.NodeID,
			Title:       item.Title,
			Description: item.Description,
			Link:        item.Link,
			GUID:        item.GUID,
			Category:    item.Category,
			PublishDate: item.PublishDate,
			ContentKind: item.Kind,
			MimeType:    item.MimeType,
			Size:        item.Size,
			Tags:        item.Tags,
		})
	}

	return FeedPreview{
		Settings:    settings,
		FeedURL:     doc.Channel.SelfURL,
		JSONFeedURL: doc.Channel.JSONURL,
		ItemCount:   len(items),
		Items:       items,
	}, nil
}
