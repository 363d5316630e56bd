package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/incubrix/cms/internal/classifier"
	"github.com/incubrix/cms/internal/models"
	"github.com/incubrix/cms/internal/storage"
	"github.com/incubrix/cms/pkg/logger"
	"github.com/incubrix/cms/pkg/metrics"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const (
	DefaultUploader    = "user@incubrix.com"
	DefaultFolderColor = "#1a73e8"
	FolderMimeType     = "application/x-folder"
	uploadPrefix       = "uploads/"
	thumbnailPrefix    = "thumbnails/"
	defaultMimeType    = "application/octet-stream"
)

var colorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

type CreateFolderInput struct {
	Name        string  `json:"name"`
	ParentID    string  `json:"parentId"`
	Color       string  `json:"color"`
	Description *string `json:"description"`
	UploadedBy  string  `json:"uploadedBy"`
}

// UploadFile is one file of a batch. RelativePath carries the client
// directory structure, e.g. "Podcasts/2024/ep1.mp3".
type UploadFile struct {
	Name         string
	RelativePath string
	Size         int64
	ContentType  string
	Content      io.ReadSeeker
}

type UploadBatch struct {
	ParentID   string
	UploadedBy string
	Files      []UploadFile
}

type UploadResult struct {
	Assets         []AssetView `json:"assets"`
	Folders        []AssetView `json:"folders"`
	FeedItemsAdded int         `json:"feedItemsAdded"`
}

type ClearReport struct {
	DeletedNodes    int `json:"deletedNodes"`
	PayloadFailures int `json:"payloadFailures"`
}

// IngestService creates nodes: folders, uploaded files and duplicates.
type IngestService struct {
	Store     *AssetStore
	Hierarchy *HierarchyService
	Settings  *SettingsService
	Storage   storage.Backend
	Extractor MetadataExtractor
	Notifier  ChangeNotifier
	Now       func() time.Time
}

func NewIngestService(store *AssetStore, hierarchy *HierarchyService, settings *SettingsService, backend storage.Backend, extractor MetadataExtractor, notifier ChangeNotifier) *IngestService {
	if extractor == nil {
		extractor = NoopExtractor{}
	}
	return &IngestService{
		Store:     store,
		Hierarchy: hierarchy,
		Settings:  settings,
		Storage:   backend,
		Extractor: extractor,
		Notifier:  notifier,
		Now:       time.Now,
	}
}

func (s *IngestService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *IngestService) CreateFolder(ctx context.Context, in CreateFolderInput) (AssetView, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.TrimSpace(in.Color)
	err := fromValidation(validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required.Error("folder name is required"), validation.RuneLength(1, maxNameLength)),
		validation.Field(&in.Color, validation.Match(colorPattern).Error("must be a hex color")),
	))
	if err != nil {
		return AssetView{}, err
	}

	parentID, err := s.Store.ResolveParent(ctx, in.ParentID)
	if err != nil {
		return AssetView{}, err
	}

	folder := newFolder(in.Name, parentID, in.Name, uploaderOrDefault(in.UploadedBy))
	if in.Color != "" {
		folder.Color = in.Color
	}
	folder.Description = trimmedOrNil(in.Description)

	if err := s.Store.DB.WithContext(ctx).Create(&folder).Error; err != nil {
		return AssetView{}, err
	}

	logger.Info("folder_created", map[string]interface{}{
		"folder_id": folder.ID.String(),
		"name":      folder.Name,
	})
	notify(ctx, s.Notifier, "folder_created")
	return NewAssetView(folder), nil
}

func newFolder(name string, parentID *uuid.UUID, originalPath, uploadedBy string) models.Asset {
	folder := models.Asset{
		Name:         name,
		IsFolder:     true,
		ParentID:     parentID,
		ContentKind:  models.ContentKindFolder,
		Format:       "folder",
		MimeType:     FolderMimeType,
		OriginalPath: originalPath,
		UploadedBy:   uploadedBy,
		Color:        DefaultFolderColor,
	}
	folder.ID = uuid.New()
	_ = folder.SetTags(nil)
	return folder
}

func uploaderOrDefault(uploadedBy string) string {
	if uploadedBy = strings.TrimSpace(uploadedBy); uploadedBy != "" {
		return uploadedBy
	}
	return DefaultUploader
}

// splitRelativePath returns the directory segments of a client relative
// path, dropping empty and dot segments.
func splitRelativePath(relative string) []string {
	relative = strings.ReplaceAll(relative, "\\", "/")
	parts := strings.Split(relative, "/")
	if len(parts) <= 1 {
		return nil
	}
	dirs := make([]string, 0, len(parts)-1)
	for _, part := range parts[:len(parts)-1] {
		part = strings.TrimSpace(part)
		if part == "" || part == "." || part == ".." {
			continue
		}
		dirs = append(dirs, part)
	}
	return dirs
}

// folderPrefixes lists every distinct directory prefix in the batch, sorted
// so that parents come before their children.
func folderPrefixes(files []UploadFile) []string {
	seen := make(map[string]bool)
	var prefixes []string
	for _, f := range files {
		dirs := splitRelativePath(f.RelativePath)
		for i := 1; i <= len(dirs); i++ {
			prefix := strings.Join(dirs[:i], "/")
			if !seen[prefix] {
				seen[prefix] = true
				prefixes = append(prefixes, prefix)
			}
		}
	}
	sort.Strings(prefixes)
	return prefixes
}

func objectKey(id uuid.UUID, format string) string {
	if format == "" {
		return uploadPrefix + id.String()
	}
	return uploadPrefix + id.String() + "." + format
}

func thumbnailKey(id uuid.UUID) string {
	return thumbnailPrefix + id.String() + ".jpg"
}

func fileMimeType(contentType, format string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType != "" && contentType != defaultMimeType {
		return contentType
	}
	if format != "" {
		if byExt := mime.TypeByExtension("." + format); byExt != "" {
			return byExt
		}
	}
	if contentType != "" {
		return contentType
	}
	return defaultMimeType
}

// Upload stores a batch of files under the batch parent. Directories named
// in relative paths are created once per distinct prefix. Files are
// auto-included in the feed when the global flag is on or the target
// folder's override asks for it.
func (s *IngestService) Upload(ctx context.Context, batch UploadBatch) (UploadResult, error) {
	if len(batch.Files) == 0 {
		return UploadResult{}, invalid("files", "no files uploaded")
	}

	parentID, err := s.Store.ResolveParent(ctx, batch.ParentID)
	if err != nil {
		return UploadResult{}, err
	}
	settings, err := s.Settings.Load(ctx)
	if err != nil {
		return UploadResult{}, err
	}

	autoInclude := settings.AutoIncludeNewFiles
	if !autoInclude && parentID != nil {
		override, err := s.Settings.loadOverride(ctx, s.Store.DB, *parentID)
		if err != nil {
			return UploadResult{}, err
		}
		autoInclude = override != nil && override.AutoIncludeNewFiles
	}

	uploadedBy := uploaderOrDefault(batch.UploadedBy)
	now := s.now()

	folders := make([]models.Asset, 0)
	folderIDs := make(map[string]uuid.UUID)
	for _, prefix := range folderPrefixes(batch.Files) {
		dir, name := path.Split(prefix)
		parent := parentID
		if dir = strings.TrimSuffix(dir, "/"); dir != "" {
			id := folderIDs[dir]
			parent = &id
		}
		folder := newFolder(name, parent, prefix, uploadedBy)
		folderIDs[prefix] = folder.ID
		folders = append(folders, folder)
	}

	assets := make([]models.Asset, 0, len(batch.Files))
	var written []string
	cleanup := func() {
		for _, key := range written {
			if err := s.Storage.Delete(ctx, key); err != nil {
				logger.Warn("upload_cleanup_failed", map[string]interface{}{
					"object_name": key,
					"error":       err.Error(),
				})
			}
		}
	}

	for _, f := range batch.Files {
		asset, keys, err := s.storeFile(ctx, f, parentID, folderIDs, uploadedBy)
		written = append(written, keys...)
		if err != nil {
			cleanup()
			return UploadResult{}, err
		}
		if autoInclude {
			applySyndicationDefaults(&asset, now)
			description := fmt.Sprintf("%s file: %s", asset.ContentKind, asset.Name)
			asset.FeedDescription = &description
		}
		assets = append(assets, asset)
	}

	err = s.Store.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range folders {
			if err := tx.Create(&folders[i]).Error; err != nil {
				return err
			}
		}
		for i := range assets {
			if err := tx.Create(&assets[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		cleanup()
		return UploadResult{}, err
	}

	added := 0
	for _, a := range assets {
		metrics.AssetsIngested.WithLabelValues(string(a.ContentKind)).Inc()
		if a.IncludeInFeed {
			added++
		}
	}

	logger.Info("assets_uploaded", map[string]interface{}{
		"files":            len(assets),
		"folders":          len(folders),
		"feed_items_added": added,
		"uploaded_by":      uploadedBy,
	})
	notify(ctx, s.Notifier, "assets_uploaded")

	return UploadResult{
		Assets:         assetViews(assets),
		Folders:        assetViews(folders),
		FeedItemsAdded: added,
	}, nil
}

// storeFile classifies, probes and stores one file. It returns the storage
// keys it wrote so the caller can release them on failure.
func (s *IngestService) storeFile(ctx context.Context, f UploadFile, batchParent *uuid.UUID, folderIDs map[string]uuid.UUID, uploadedBy string) (models.Asset, []string, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(f.Name), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return models.Asset{}, nil, invalid("files", "file name is required")
	}
	if f.Content == nil {
		return models.Asset{}, nil, invalid("files", "file "+name+" has no content")
	}

	format := classifier.NormalizeExtension(path.Ext(name))
	mimeType := fileMimeType(f.ContentType, format)
	kind := classifier.Classify(mimeType, format)

	parent := batchParent
	if dirs := splitRelativePath(f.RelativePath); len(dirs) > 0 {
		id := folderIDs[strings.Join(dirs, "/")]
		parent = &id
	}

	originalPath := f.RelativePath
	if originalPath == "" {
		originalPath = name
	}

	asset := models.Asset{
		Name:         name,
		ParentID:     parent,
		ContentKind:  kind,
		Format:       format,
		MimeType:     mimeType,
		Size:         f.Size,
		OriginalPath: originalPath,
		UploadedBy:   uploadedBy,
	}
	asset.ID = uuid.New()
	_ = asset.SetTags(nil)

	meta := s.Extractor.Extract(ctx, f.Content, name, mimeType, kind)
	asset.DurationSeconds = meta.DurationSeconds
	asset.PageCount = meta.PageCount
	asset.Width = meta.Width
	asset.Height = meta.Height
	asset.PreviewAvailable = meta.PreviewAvailable

	if _, err := f.Content.Seek(0, io.SeekStart); err != nil {
		return models.Asset{}, nil, err
	}

	key := objectKey(asset.ID, format)
	if err := s.Storage.Upload(ctx, key, f.Content, f.Size, mimeType); err != nil {
		logger.Error("payload_upload_failed", err, map[string]interface{}{
			"name":        name,
			"object_name": key,
		})
		return models.Asset{}, nil, fmt.Errorf("failed to store %s: %w", name, err)
	}
	asset.StoragePath = key
	keys := []string{key}

	if len(meta.Thumbnail) > 0 {
		thumb := thumbnailKey(asset.ID)
		err := s.Storage.Upload(ctx, thumb, bytes.NewReader(meta.Thumbnail), int64(len(meta.Thumbnail)), "image/jpeg")
		if err != nil {
			logger.Warn("thumbnail_upload_failed", map[string]interface{}{
				"asset_id": asset.ID.String(),
				"error":    err.Error(),
			})
		} else {
			asset.ThumbnailPath = &thumb
			keys = append(keys, thumb)
		}
	}
	return asset, keys, nil
}

// Duplicate copies a file next to the original. The copy starts outside
// the feed and unstarred.
func (s *IngestService) Duplicate(ctx context.Context, id uuid.UUID) (AssetView, error) {
	src, err := s.Store.Get(ctx, id)
	if err != nil {
		return AssetView{}, err
	}
	if src.IsFolder {
		return AssetView{}, invalid("id", "cannot duplicate folders")
	}

	dup := *src
	dup.ID = uuid.New()
	dup.CreatedAt = time.Time{}
	dup.UpdatedAt = time.Time{}
	dup.Name = src.Name + " (Copy)"
	derivedFrom := src.ID
	dup.DerivedFromID = &derivedFrom
	dup.Starred = false
	dup.Shared = false
	dup.IncludeInFeed = false
	dup.FeedTitle = nil
	dup.FeedDescription = nil
	dup.FeedCategory = nil
	dup.FeedPublishDate = nil
	dup.FeedGUID = nil
	dup.ThumbnailPath = nil

	dup.StoragePath = objectKey(dup.ID, src.Format)
	if err := s.Storage.Copy(ctx, src.StoragePath, dup.StoragePath); err != nil {
		return AssetView{}, objectErr(err)
	}
	if src.ThumbnailPath != nil {
		thumb := thumbnailKey(dup.ID)
		if err := s.Storage.Copy(ctx, *src.ThumbnailPath, thumb); err != nil {
			logger.Warn("thumbnail_copy_failed", map[string]interface{}{
				"asset_id": src.ID.String(),
				"error":    err.Error(),
			})
		} else {
			dup.ThumbnailPath = &thumb
		}
	}

	if err := s.Store.DB.WithContext(ctx).Create(&dup).Error; err != nil {
		_ = s.Hierarchy.releasePayloads(ctx, []models.Asset{dup})
		return AssetView{}, err
	}

	logger.Info("asset_duplicated", map[string]interface{}{
		"asset_id":  src.ID.String(),
		"copy_id":   dup.ID.String(),
		"copy_name": dup.Name,
	})
	notify(ctx, s.Notifier, "asset_duplicated")
	return NewAssetView(dup), nil
}

// ClearAll removes every node, folder override and public feed. Payload
// release is best effort.
func (s *IngestService) ClearAll(ctx context.Context) (ClearReport, error) {
	db := s.Store.DB.WithContext(ctx)

	var files []models.Asset
	if err := db.Select("id", "storage_path", "thumbnail_path").
		Where("is_folder = ?", false).
		Find(&files).Error; err != nil {
		return ClearReport{}, err
	}

	report := ClearReport{}
	if err := s.Hierarchy.releasePayloads(ctx, files); err != nil {
		report.PayloadFailures = len(multierr.Errors(err))
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("1 = 1").Delete(&models.Asset{})
		if res.Error != nil {
			return res.Error
		}
		report.DeletedNodes = int(res.RowsAffected)
		if err := tx.Where("1 = 1").Delete(&models.FolderOverride{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&models.PublicFeed{}).Error
	})
	if err != nil {
		return ClearReport{}, err
	}

	logger.Warn("all_content_cleared", map[string]interface{}{
		"deleted_nodes":    report.DeletedNodes,
		"payload_failures": report.PayloadFailures,
	})
	notify(ctx, s.Notifier, "content_cleared")
	return report, nil
}
