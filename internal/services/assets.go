package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/incubrix/cms/internal/feed"
	"github.com/incubrix/cms/internal/models"
	"github.com/incubrix/cms/internal/storage"
	"github.com/incubrix/cms/pkg/logger"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	maxPreviewChars  = 10000
	maxNameLength    = 255
	truncatedNotice  = "\n\n... (content truncated)"
)

var listSortColumns = map[string]string{
	"name":        "name",
	"contentKind": "content_kind",
	"format":      "format",
	"size":        "size",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
}

// AssetView is the response projection of a node.
type AssetView struct {
	models.Asset
	Kind       string   `json:"kind"`
	Tags       []string `json:"tags"`
	FileURL    *string  `json:"fileUrl"`
	PreviewURL *string  `json:"previewUrl"`
}

func NewAssetView(a models.Asset) AssetView {
	view := AssetView{Asset: a, Kind: a.Kind(), Tags: a.TagList()}
	if !a.IsFolder {
		fileURL := feed.ContentPathPrefix + a.ID.String()
		view.FileURL = &fileURL
	}
	if a.PreviewAvailable {
		previewURL := "/api/assets/" + a.ID.String() + "/preview"
		view.PreviewURL = &previewURL
	}
	return view
}

func assetViews(assets []models.Asset) []AssetView {
	views := make([]AssetView, 0, len(assets))
	for _, a := range assets {
		views = append(views, NewAssetView(a))
	}
	return views
}

// ListQuery filters the node listing. An empty ParentID lists every node;
// the root sentinel lists top-level nodes.
type ListQuery struct {
	ParentID    string
	ContentKind string
	Starred     bool
	Shared      bool
	FeedOnly    bool
	Search      string
	SortBy      string
	SortOrder   string
	Page        int
	Limit       int
}

type ListResult struct {
	Assets []AssetView `json:"assets"`
	Page   int         `json:"page"`
	Limit  int         `json:"limit"`
	Total  int64       `json:"total"`
}

type KindCount struct {
	ContentKind models.ContentKind `json:"contentKind"`
	Count       int64              `json:"count"`
}

type Stats struct {
	TotalAssets   int64       `json:"totalAssets"`
	TotalFolders  int64       `json:"totalFolders"`
	TotalFiles    int64       `json:"totalFiles"`
	StarredItems  int64       `json:"starredItems"`
	SharedItems   int64       `json:"sharedItems"`
	FeedItems     int64       `json:"feedItems"`
	TotalSize     int64       `json:"totalSize"`
	AverageSize   float64     `json:"averageSize"`
	KindBreakdown []KindCount `json:"kindBreakdown"`
}

// SyndicationInput replaces the per-item syndication fields of a file.
type SyndicationInput struct {
	IncludeInFeed bool       `json:"includeInFeed"`
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	Category      *string    `json:"category"`
	PublishDate   *time.Time `json:"publishDate"`
	GUID          *string    `json:"guid"`
}

type PreviewResult struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	URL       string `json:"url,omitempty"`
	MimeType  string `json:"mimeType"`
	Truncated bool   `json:"truncated,omitempty"`
}

// AssetService serves node reads and the metadata mutations that do not
// change the tree shape.
type AssetService struct {
	Store    *AssetStore
	Storage  storage.Backend
	Notifier ChangeNotifier
}

func NewAssetService(store *AssetStore, backend storage.Backend, notifier ChangeNotifier) *AssetService {
	return &AssetService{Store: store, Storage: backend, Notifier: notifier}
}

func (s *AssetService) Get(ctx context.Context, id uuid.UUID) (AssetView, error) {
	asset, err := s.Store.Get(ctx, id)
	if err != nil {
		return AssetView{}, err
	}
	return NewAssetView(*asset), nil
}

func (s *AssetService) List(ctx context.Context, q ListQuery) (ListResult, error) {
	db := s.Store.DB.WithContext(ctx).Model(&models.Asset{})

	if strings.TrimSpace(q.ParentID) != "" {
		if IsRoot(q.ParentID) {
			db = db.Where("parent_id IS NULL")
		} else {
			parentID, err := uuid.Parse(strings.TrimSpace(q.ParentID))
			if err != nil {
				return ListResult{}, invalid("parentId", "invalid folder id")
			}
			db = db.Where("parent_id = ?", parentID)
		}
	}
	if kind := strings.TrimSpace(q.ContentKind); kind != "" && kind != "all" {
		db = db.Where("content_kind = ?", kind)
	}
	if q.Starred {
		db = db.Where("starred = ?", true)
	}
	if q.Shared {
		db = db.Where("shared = ?", true)
	}
	if q.FeedOnly {
		db = db.Where("include_in_feed = ?", true)
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		term := "%" + strings.ToLower(search) + "%"
		db = db.Where(
			"LOWER(name) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ? OR LOWER(CAST(tags AS TEXT)) LIKE ?",
			term, term, term,
		)
	}

	db = db.Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return ListResult{}, err
	}

	column, ok := listSortColumns[q.SortBy]
	if !ok {
		column = "updated_at"
	}
	direction := "DESC"
	if strings.EqualFold(q.SortOrder, "asc") {
		direction = "ASC"
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var assets []models.Asset
	err := db.
		Order("is_folder DESC").
		Order(column + " " + direction).
		Order("id").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&assets).Error
	if err != nil {
		return ListResult{}, err
	}

	return ListResult{Assets: assetViews(assets), Page: page, Limit: limit, Total: total}, nil
}

func (s *AssetService) Stats(ctx context.Context) (Stats, error) {
	db := s.Store.DB.WithContext(ctx)
	var stats Stats

	counts := []struct {
		dst   *int64
		query string
		args  []interface{}
	}{
		{&stats.TotalAssets, "1 = 1", nil},
		{&stats.TotalFolders, "is_folder = ?", []interface{}{true}},
		{&stats.TotalFiles, "is_folder = ?", []interface{}{false}},
		{&stats.StarredItems, "starred = ?", []interface{}{true}},
		{&stats.SharedItems, "shared = ?", []interface{}{true}},
		{&stats.FeedItems, "include_in_feed = ? AND is_folder = ?", []interface{}{true, false}},
	}
	for _, c := range counts {
		if err := db.Model(&models.Asset{}).Where(c.query, c.args...).Count(c.dst).Error; err != nil {
			return Stats{}, err
		}
	}

	if err := db.Model(&models.Asset{}).
		Where("is_folder = ?", false).
		Select("COALESCE(SUM(size), 0)").
		Scan(&stats.TotalSize).Error; err != nil {
		return Stats{}, err
	}
	if stats.TotalFiles > 0 {
		stats.AverageSize = float64(stats.TotalSize) / float64(stats.TotalFiles)
	}

	stats.KindBreakdown = []KindCount{}
	if err := db.Model(&models.Asset{}).
		Select("content_kind, COUNT(*) AS count").
		Where("is_folder = ?", false).
		Group("content_kind").
		Order("content_kind").
		Scan(&stats.KindBreakdown).Error; err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// Open returns the stored payload of a file. The caller closes the reader.
func (s *AssetService) Open(ctx context.Context, id uuid.UUID) (*models.Asset, io.ReadCloser, error) {
	asset, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if asset.IsFolder || asset.StoragePath == "" {
		return nil, nil, notFound("file")
	}
	rc, err := s.Storage.Download(ctx, asset.StoragePath)
	if err != nil {
		return nil, nil, objectErr(err)
	}
	return asset, rc, nil
}

func objectErr(err error) error {
	if errors.Is(err, storage.ErrObjectNotFound) {
		return notFound("file")
	}
	return err
}

// Preview returns a text excerpt for previewable text formats and the
// content URL for media.
func (s *AssetService) Preview(ctx context.Context, id uuid.UUID) (PreviewResult, error) {
	asset, err := s.Store.Get(ctx, id)
	if err != nil {
		return PreviewResult{}, err
	}
	if asset.IsFolder {
		return PreviewResult{}, notFound("asset")
	}
	if !asset.PreviewAvailable {
		return PreviewResult{}, invalid("", "preview not available for this file type")
	}

	switch {
	case asset.ContentKind == models.ContentKindText && previewableTextFormats[asset.Format]:
		return s.textPreview(ctx, asset)
	case asset.ContentKind.IsMedia():
		return PreviewResult{
			Type:     string(asset.ContentKind),
			URL:      feed.ContentPathPrefix + asset.ID.String(),
			MimeType: asset.MimeType,
		}, nil
	default:
		return PreviewResult{}, invalid("", "preview not implemented for this file type")
	}
}

func (s *AssetService) textPreview(ctx context.Context, asset *models.Asset) (PreviewResult, error) {
	rc, err := s.Storage.Download(ctx, asset.StoragePath)
	if err != nil {
		return PreviewResult{}, objectErr(err)
	}
	defer rc.Close()

	// Read one rune-width past the limit to detect truncation.
	data, err := io.ReadAll(io.LimitReader(rc, int64(maxPreviewChars*utf8.UTFMax+1)))
	if err != nil {
		return PreviewResult{}, err
	}

	content := string(data)
	truncated := false
	if utf8.RuneCountInString(content) > maxPreviewChars {
		runes := []rune(content)
		content = string(runes[:maxPreviewChars]) + truncatedNotice
		truncated = true
	}
	return PreviewResult{
		Type:      "text",
		Content:   content,
		MimeType:  asset.MimeType,
		Truncated: truncated,
	}, nil
}

// mutate loads a node, applies fn and saves the result.
func (s *AssetService) mutate(ctx context.Context, id uuid.UUID, reason string, fn func(*models.Asset) error) (AssetView, error) {
	asset, err := s.Store.Get(ctx, id)
	if err != nil {
		return AssetView{}, err
	}
	if err := fn(asset); err != nil {
		return AssetView{}, err
	}
	if err := s.Store.DB.WithContext(ctx).Save(asset).Error; err != nil {
		return AssetView{}, err
	}

	logger.Info(reason, map[string]interface{}{
		"asset_id": id.String(),
	})
	notify(ctx, s.Notifier, reason)
	return NewAssetView(*asset), nil
}

func validateName(name string) error {
	return fromValidation(validation.Errors{
		"name": validation.Validate(name, validation.Required, validation.RuneLength(1, maxNameLength)),
	}.Filter())
}

func (s *AssetService) Rename(ctx context.Context, id uuid.UUID, name string) (AssetView, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return AssetView{}, err
	}
	return s.mutate(ctx, id, "asset_renamed", func(a *models.Asset) error {
		a.Name = name
		return nil
	})
}

func (s *AssetService) SetStarred(ctx context.Context, id uuid.UUID, starred bool) (AssetView, error) {
	return s.mutate(ctx, id, "asset_starred", func(a *models.Asset) error {
		a.Starred = starred
		return nil
	})
}

func (s *AssetService) SetShared(ctx context.Context, id uuid.UUID, shared bool) (AssetView, error) {
	return s.mutate(ctx, id, "asset_shared", func(a *models.Asset) error {
		a.Shared = shared
		return nil
	})
}

func (s *AssetService) SetDescription(ctx context.Context, id uuid.UUID, description *string) (AssetView, error) {
	return s.mutate(ctx, id, "asset_description_updated", func(a *models.Asset) error {
		a.Description = trimmedOrNil(description)
		return nil
	})
}

// SetTags replaces the tag list. Blank and repeated tags are dropped.
func (s *AssetService) SetTags(ctx context.Context, id uuid.UUID, tags []string) (AssetView, error) {
	cleaned := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		cleaned = append(cleaned, tag)
	}
	return s.mutate(ctx, id, "asset_tags_updated", func(a *models.Asset) error {
		return a.SetTags(cleaned)
	})
}

// UpdateSyndication replaces the syndication fields of a file. Only files
// can be feed items.
func (s *AssetService) UpdateSyndication(ctx context.Context, id uuid.UUID, in SyndicationInput) (AssetView, error) {
	return s.mutate(ctx, id, "asset_syndication_updated", func(a *models.Asset) error {
		if a.IsFolder {
			return invalid("includeInFeed", "folders cannot be feed items")
		}
		a.IncludeInFeed = in.IncludeInFeed
		a.FeedTitle = trimmedOrNil(in.Title)
		a.FeedDescription = trimmedOrNil(in.Description)
		a.FeedCategory = trimmedOrNil(in.Category)
		a.FeedGUID = trimmedOrNil(in.GUID)
		a.FeedPublishDate = nil
		if in.PublishDate != nil && !in.PublishDate.IsZero() {
			published := in.PublishDate.UTC()
			a.FeedPublishDate = &published
		}
		return nil
	})
}
