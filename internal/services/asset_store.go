package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/incubrix/cms/internal/models"
	"gorm.io/gorm"
)

const (
	RootID   = "root"
	RootName = "My Drive"

	// queryChunkSize keeps IN lists under the sqlite bound-parameter limit.
	queryChunkSize = 500
)

// AssetStore is the persistence boundary for asset nodes.
type AssetStore struct {
	DB *gorm.DB
}

func NewAssetStore(db *gorm.DB) *AssetStore {
	return &AssetStore{DB: db}
}

// IsRoot reports whether raw names the root sentinel.
func IsRoot(raw string) bool {
	raw = strings.TrimSpace(raw)
	return raw == "" || raw == RootID || raw == "null"
}

func parseID(raw, resource string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, notFound(resource)
	}
	return id, nil
}

func (s *AssetStore) Get(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	var asset models.Asset
	if err := s.DB.WithContext(ctx).First(&asset, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "asset")
	}
	return &asset, nil
}

func (s *AssetStore) GetByRawID(ctx context.Context, raw string) (*models.Asset, error) {
	id, err := parseID(raw, "asset")
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *AssetStore) GetFolder(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	var folder models.Asset
	err := s.DB.WithContext(ctx).First(&folder, "id = ? AND is_folder = ?", id, true).Error
	if err != nil {
		return nil, notFoundOr(err, "folder")
	}
	return &folder, nil
}

// ResolveParent turns a client-supplied parent reference into a stored
// parent pointer. The root sentinel yields nil.
func (s *AssetStore) ResolveParent(ctx context.Context, raw string) (*uuid.UUID, error) {
	if IsRoot(raw) {
		return nil, nil
	}
	id, err := parseID(raw, "parent folder")
	if err != nil {
		return nil, err
	}
	if _, err := s.GetFolder(ctx, id); err != nil {
		return nil, notFound("parent folder")
	}
	return &id, nil
}

// IncludedFiles returns every file node flagged for syndication.
func (s *AssetStore) IncludedFiles(ctx context.Context) ([]models.Asset, error) {
	var assets []models.Asset
	err := s.DB.WithContext(ctx).
		Where("is_folder = ? AND include_in_feed = ?", false, true).
		Find(&assets).Error
	return assets, err
}

// All returns every node, folders first, grouped by content kind and newest
// first within a kind.
func (s *AssetStore) All(ctx context.Context) ([]models.Asset, error) {
	var assets []models.Asset
	err := s.DB.WithContext(ctx).
		Order("is_folder DESC").
		Order("content_kind").
		Order("created_at DESC").
		Order("id").
		Find(&assets).Error
	return assets, err
}

// childrenOf loads the direct children of every id in parents.
func childrenOf(db *gorm.DB, parents []uuid.UUID) ([]models.Asset, error) {
	var out []models.Asset
	for start := 0; start < len(parents); start += queryChunkSize {
		end := start + queryChunkSize
		if end > len(parents) {
			end = len(parents)
		}
		var batch []models.Asset
		if err := db.
			Select("id", "name", "is_folder", "parent_id", "storage_path", "thumbnail_path").
			Where("parent_id IN ?", parents[start:end]).
			Order("id").
			Find(&batch).Error; err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func deleteIDs(tx *gorm.DB, model interface{}, column string, ids []uuid.UUID) error {
	for start := 0; start < len(ids); start += queryChunkSize {
		end := start + queryChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := tx.Where(column+" IN ?", ids[start:end]).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}
