package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/incubrix/cms/internal/models"
	"github.com/incubrix/cms/internal/storage"
	"github.com/incubrix/cms/pkg/logger"
	"github.com/incubrix/cms/pkg/metrics"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

type Crumb struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DeleteReport summarizes a node or subtree removal.
type DeleteReport struct {
	DeletedNodes    int `json:"deletedNodes"`
	PayloadFailures int `json:"payloadFailures"`
}

type HierarchyService struct {
	Store    *AssetStore
	Storage  storage.Backend
	Notifier ChangeNotifier
}

func NewHierarchyService(store *AssetStore, backend storage.Backend, notifier ChangeNotifier) *HierarchyService {
	return &HierarchyService{Store: store, Storage: backend, Notifier: notifier}
}

// ResolveBreadcrumb returns the path [root, ..., node].
func (h *HierarchyService) ResolveBreadcrumb(ctx context.Context, nodeID string) ([]Crumb, error) {
	root := Crumb{ID: RootID, Name: RootName}
	if IsRoot(nodeID) {
		return []Crumb{root}, nil
	}

	node, err := h.Store.GetByRawID(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	chain := []Crumb{{ID: node.ID.String(), Name: node.Name}}
	visited := map[uuid.UUID]bool{node.ID: true}
	parentID := node.ParentID

	// visited terminates the walk on a corrupted, cyclic chain.
	for parentID != nil {
		if visited[*parentID] {
			logger.Warn("breadcrumb_cycle_detected", map[string]interface{}{
				"node_id":   nodeID,
				"parent_id": parentID.String(),
			})
			break
		}
		visited[*parentID] = true

		parent, err := h.Store.Get(ctx, *parentID)
		if errors.Is(err, ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		chain = append(chain, Crumb{ID: parent.ID.String(), Name: parent.Name})
		parentID = parent.ParentID
	}

	crumbs := make([]Crumb, 0, len(chain)+1)
	crumbs = append(crumbs, root)
	for i := len(chain) - 1; i >= 0; i-- {
		crumbs = append(crumbs, chain[i])
	}
	return crumbs, nil
}

// CollectDescendantIDs returns the transitive closure of children under
// folderID in breadth-first order.
func (h *HierarchyService) CollectDescendantIDs(ctx context.Context, folderID uuid.UUID) ([]uuid.UUID, error) {
	levels, err := collectLevels(h.Store.DB.WithContext(ctx), folderID)
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for _, level := range levels {
		for _, node := range level {
			ids = append(ids, node.ID)
		}
	}
	return ids, nil
}

// collectLevels walks the subtree with an explicit frontier. Each element of
// the result holds one depth level; a visited set stops accidental cycles.
func collectLevels(db *gorm.DB, rootID uuid.UUID) ([][]models.Asset, error) {
	visited := map[uuid.UUID]bool{rootID: true}
	frontier := []uuid.UUID{rootID}
	var levels [][]models.Asset

	for len(frontier) > 0 {
		children, err := childrenOf(db, frontier)
		if err != nil {
			return nil, err
		}

		var level []models.Asset
		next := make([]uuid.UUID, 0, len(children))
		for _, child := range children {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			level = append(level, child)
			if child.IsFolder {
				next = append(next, child.ID)
			}
		}
		if len(level) > 0 {
			levels = append(levels, level)
		}
		frontier = next
	}
	return levels, nil
}

// DeleteNode removes a file, or a folder together with its subtree.
func (h *HierarchyService) DeleteNode(ctx context.Context, id uuid.UUID) (DeleteReport, error) {
	node, err := h.Store.Get(ctx, id)
	if err != nil {
		return DeleteReport{}, err
	}
	if node.IsFolder {
		return h.DeleteSubtree(ctx, id)
	}

	report := DeleteReport{}
	if err := h.releasePayloads(ctx, []models.Asset{*node}); err != nil {
		report.PayloadFailures = len(multierr.Errors(err))
	}
	if err := h.Store.DB.WithContext(ctx).Delete(&models.Asset{}, "id = ?", id).Error; err != nil {
		return report, err
	}
	report.DeletedNodes = 1

	logger.Info("asset_deleted", map[string]interface{}{
		"asset_id":         id.String(),
		"payload_failures": report.PayloadFailures,
	})
	notify(ctx, h.Notifier, "asset_deleted")
	return report, nil
}

// DeleteSubtree removes a folder and every descendant. Payload release is
// best effort: failures are logged and counted but never abort the delete.
// Rows are removed children-before-parent inside one transaction, together
// with the syndication overrides of every removed folder.
func (h *HierarchyService) DeleteSubtree(ctx context.Context, folderID uuid.UUID) (DeleteReport, error) {
	if _, err := h.Store.GetFolder(ctx, folderID); err != nil {
		return DeleteReport{}, err
	}

	db := h.Store.DB.WithContext(ctx)
	levels, err := collectLevels(db, folderID)
	if err != nil {
		return DeleteReport{}, err
	}

	var files []models.Asset
	folderIDs := []uuid.UUID{folderID}
	for _, level := range levels {
		for _, node := range level {
			if node.IsFolder {
				folderIDs = append(folderIDs, node.ID)
			} else {
				files = append(files, node)
			}
		}
	}

	report := DeleteReport{}
	if releaseErr := h.releasePayloads(ctx, files); releaseErr != nil {
		report.PayloadFailures = len(multierr.Errors(releaseErr))
		logger.Error("subtree_payload_release_incomplete", releaseErr, map[string]interface{}{
			"folder_id": folderID.String(),
			"failures":  report.PayloadFailures,
		})
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for i := len(levels) - 1; i >= 0; i-- {
			ids := make([]uuid.UUID, len(levels[i]))
			for j, node := range levels[i] {
				ids[j] = node.ID
			}
			if err := deleteIDs(tx, &models.Asset{}, "id", ids); err != nil {
				return err
			}
			report.DeletedNodes += len(ids)
		}
		if err := deleteIDs(tx, &models.FolderOverride{}, "folder_id", folderIDs); err != nil {
			return err
		}
		res := tx.Delete(&models.Asset{}, "id = ?", folderID)
		if res.Error != nil {
			return res.Error
		}
		report.DeletedNodes += int(res.RowsAffected)
		return nil
	})
	if err != nil {
		return DeleteReport{}, err
	}

	logger.Info("folder_deleted", map[string]interface{}{
		"folder_id":        folderID.String(),
		"deleted_nodes":    report.DeletedNodes,
		"payload_failures": report.PayloadFailures,
	})
	notify(ctx, h.Notifier, "folder_deleted")
	return report, nil
}

// releasePayloads deletes the stored payload and thumbnail of each file. A
// payload that is already gone counts as released.
func (h *HierarchyService) releasePayloads(ctx context.Context, files []models.Asset) error {
	if h.Storage == nil {
		return nil
	}
	var errs error
	for _, file := range files {
		keys := []string{file.StoragePath}
		if file.ThumbnailPath != nil {
			keys = append(keys, *file.ThumbnailPath)
		}
		for _, key := range keys {
			if key == "" {
				continue
			}
			err := h.Storage.Delete(ctx, key)
			if err == nil || errors.Is(err, storage.ErrObjectNotFound) {
				continue
			}
			metrics.PayloadReleaseFailures.Inc()
			logger.Error("payload_release_failed", err, map[string]interface{}{
				"asset_id":    file.ID.String(),
				"object_name": key,
			})
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// MoveNode reparents a node. A target equal to the node or inside its
// subtree is rejected and leaves the tree unchanged.
func (h *HierarchyService) MoveNode(ctx context.Context, nodeID uuid.UUID, newParent string) (*models.Asset, error) {
	var moved models.Asset
	err := h.Store.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&moved, "id = ?", nodeID).Error; err != nil {
			return notFoundOr(err, "asset")
		}

		var target *uuid.UUID
		if !IsRoot(newParent) {
			targetID, err := uuid.Parse(newParent)
			if err != nil {
				return invalid("parentId", "invalid target folder id")
			}
			if targetID == nodeID {
				return invalid("parentId", "cannot move a node into itself")
			}

			var folder models.Asset
			if err := tx.First(&folder, "id = ?", targetID).Error; err != nil {
				return notFoundOr(err, "target folder")
			}
			if !folder.IsFolder {
				return invalid("parentId", "target is not a folder")
			}

			if moved.IsFolder {
				levels, err := collectLevels(tx, nodeID)
				if err != nil {
					return err
				}
				for _, level := range levels {
					for _, node := range level {
						if node.ID == targetID {
							return invalid("parentId", "cannot move a folder into its own descendant")
						}
					}
				}
			}
			target = &targetID
		}

		moved.ParentID = target
		return tx.Model(&moved).Update("parent_id", target).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Info("asset_moved", map[string]interface{}{
		"asset_id":  nodeID.String(),
		"parent_id": newParent,
	})
	notify(ctx, h.Notifier, "asset_moved")
	return &moved, nil
}
