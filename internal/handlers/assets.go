package handlers

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/incubrix/cms/internal/export"
	"github.com/incubrix/cms/internal/services"
	"github.com/incubrix/cms/pkg/logger"
	"github.com/incubrix/cms/pkg/utils"
)

const contentCacheControl = "public, max-age=31536000"

type AssetsHandler struct {
	Store     *services.AssetStore
	Assets    *services.AssetService
	Ingest    *services.IngestService
	Hierarchy *services.HierarchyService
}

func NewAssetsHandler(store *services.AssetStore, assets *services.AssetService, ingest *services.IngestService, hierarchy *services.HierarchyService) *AssetsHandler {
	return &AssetsHandler{Store: store, Assets: assets, Ingest: ingest, Hierarchy: hierarchy}
}

func (h *AssetsHandler) CreateFolder(c *fiber.Ctx) error {
	var req services.CreateFolderInput
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	folder, err := h.Ingest.CreateFolder(c.Context(), req)
	if err != nil {
		return respondError(c, "folder_create_failed", "failed creating folder", err)
	}
	return utils.Success(c, fiber.StatusCreated, folder)
}

func (h *AssetsHandler) DeleteFolder(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "folder not found")
	}

	report, err := h.Hierarchy.DeleteSubtree(c.Context(), id)
	if err != nil {
		return respondError(c, "folder_delete_failed", "failed deleting folder", err)
	}
	return utils.Message(c, fiber.StatusOK, fmt.Sprintf("folder and %d nested items deleted", report.DeletedNodes-1), report)
}

// Upload accepts a multipart batch under the "files" field. Folder uploads
// send one "relativePaths" value per file, in the same order.
func (h *AssetsHandler) Upload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "multipart form is required")
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no files uploaded")
	}
	relativePaths := form.Value["relativePaths"]

	batch := services.UploadBatch{
		ParentID:   formValue(form, "parentId", "parentFolderId"),
		UploadedBy: formValue(form, "uploadedBy"),
		Files:      make([]services.UploadFile, 0, len(headers)),
	}

	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()

	for i, header := range headers {
		f, err := header.Open()
		if err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed opening uploaded file")
		}
		opened = append(opened, f)

		relative := ""
		if i < len(relativePaths) {
			relative = strings.TrimSpace(relativePaths[i])
		}
		batch.Files = append(batch.Files, services.UploadFile{
			Name:         filepath.Base(strings.TrimSpace(header.Filename)),
			RelativePath: relative,
			Size:         header.Size,
			ContentType:  header.Header.Get(fiber.HeaderContentType),
			Content:      f,
		})
	}

	result, err := h.Ingest.Upload(c.Context(), batch)
	if err != nil {
		return respondError(c, "upload_failed", "failed uploading files", err)
	}
	return utils.Success(c, fiber.StatusCreated, result)
}

func formValue(form *multipart.Form, keys ...string) string {
	for _, key := range keys {
		if values := form.Value[key]; len(values) > 0 && strings.TrimSpace(values[0]) != "" {
			return strings.TrimSpace(values[0])
		}
	}
	return ""
}

func (h *AssetsHandler) List(c *fiber.Ctx) error {
	result, err := h.Assets.List(c.Context(), services.ListQuery{
		ParentID:    c.Query("parentId", c.Query("parent_folder_id")),
		ContentKind: c.Query("contentKind"),
		Starred:     queryBool(c, "starred"),
		Shared:      queryBool(c, "shared"),
		FeedOnly:    queryBool(c, "feedOnly"),
		Search:      c.Query("search"),
		SortBy:      c.Query("sortBy"),
		SortOrder:   c.Query("sortOrder"),
		Page:        c.QueryInt("page", 1),
		Limit:       c.QueryInt("limit", 0),
	})
	if err != nil {
		return respondError(c, "asset_list_failed", "failed listing assets", err)
	}
	return utils.Paginated(c, result.Assets, result.Page, result.Limit, result.Total)
}

func (h *AssetsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.Assets.Stats(c.Context())
	if err != nil {
		return respondError(c, "asset_stats_failed", "failed computing statistics", err)
	}
	return utils.Success(c, fiber.StatusOK, stats)
}

func (h *AssetsHandler) ExportCSV(c *fiber.Ctx) error {
	assets, err := h.Store.All(c.Context())
	if err != nil {
		return respondError(c, "asset_export_failed", "failed exporting assets", err)
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, assets); err != nil {
		return respondError(c, "asset_export_failed", "failed exporting assets", err)
	}

	logger.Info("assets_exported", map[string]interface{}{
		"rows": len(assets),
	})

	c.Set(fiber.HeaderContentType, export.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, export.Filename(time.Now())))
	return c.Status(fiber.StatusOK).Send(buf.Bytes())
}

func (h *AssetsHandler) ClearAll(c *fiber.Ctx) error {
	report, err := h.Ingest.ClearAll(c.Context())
	if err != nil {
		return respondError(c, "clear_all_failed", "failed clearing assets", err)
	}
	return utils.Message(c, fiber.StatusOK, fmt.Sprintf("deleted %d items", report.DeletedNodes), report)
}

func (h *AssetsHandler) Breadcrumb(c *fiber.Ctx) error {
	crumbs, err := h.Hierarchy.ResolveBreadcrumb(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, "breadcrumb_failed", "failed resolving path", err)
	}
	return utils.Success(c, fiber.StatusOK, crumbs)
}

// Content streams a file payload inline with its stored mime type.
func (h *AssetsHandler) Content(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "file not found")
	}

	asset, body, err := h.Assets.Open(c.Context(), id)
	if err != nil {
		return respondError(c, "asset_content_failed", "failed serving file", err)
	}

	c.Set(fiber.HeaderContentType, asset.MimeType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s"`, strings.ReplaceAll(asset.Name, `"`, "")))
	c.Set(fiber.HeaderCacheControl, contentCacheControl)
	return c.Status(fiber.StatusOK).SendStream(body)
}

func (h *AssetsHandler) Preview(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "asset not found")
	}

	preview, err := h.Assets.Preview(c.Context(), id)
	if err != nil {
		return respondError(c, "asset_preview_failed", "failed generating preview", err)
	}
	return utils.Success(c, fiber.StatusOK, preview)
}

func (h *AssetsHandler) Get(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "asset not found")
	}

	view, err := h.Assets.Get(c.Context(), id)
	if err != nil {
		return respondError(c, "asset_get_failed", "failed loading asset", err)
	}
	return utils.Success(c, fiber.StatusOK, view)
}

type renameRequest struct {
	Name string `json:"name"`
}

type starRequest struct {
	Starred bool `json:"starred"`
}

type shareRequest struct {
	Shared bool `json:"shared"`
}

type descriptionRequest struct {
	Description *string `json:"description"`
}

type tagsRequest struct {
	Tags []string `json:"tags"`
}

type moveRequest struct {
	ParentID string `json:"parentId"`
}

// mutateAsset parses the :id parameter and the JSON body, applies fn and
// responds with the updated asset.
func mutateAsset[T any](c *fiber.Ctx, action string, fn func(ctx context.Context, id uuid.UUID, req T) (services.AssetView, error)) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "asset not found")
	}

	var req T
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	view, err := fn(c.Context(), id, req)
	if err != nil {
		return respondError(c, action, "failed updating asset", err)
	}
	return utils.Success(c, fiber.StatusOK, view)
}

func (h *AssetsHandler) Rename(c *fiber.Ctx) error {
	return mutateAsset(c, "asset_rename_failed", func(ctx context.Context, id uuid.UUID, req renameRequest) (services.AssetView, error) {
		return h.Assets.Rename(ctx, id, req.Name)
	})
}

func (h *AssetsHandler) Star(c *fiber.Ctx) error {
	return mutateAsset(c, "asset_star_failed", func(ctx context.Context, id uuid.UUID, req starRequest) (services.AssetView, error) {
		return h.Assets.SetStarred(ctx, id, req.Starred)
	})
}

func (h *AssetsHandler) Share(c *fiber.Ctx) error {
	return mutateAsset(c, "asset_share_failed", func(ctx context.Context, id uuid.UUID, req shareRequest) (services.AssetView, error) {
		return h.Assets.SetShared(ctx, id, req.Shared)
	})
}

func (h *AssetsHandler) Description(c *fiber.Ctx) error {
	return mutateAsset(c, "asset_description_failed", func(ctx context.Context, id uuid.UUID, req descriptionRequest) (services.AssetView, error) {
		return h.Assets.SetDescription(ctx, id, req.Description)
	})
}

func (h *AssetsHandler) Tags(c *fiber.Ctx) error {
	return mutateAsset(c, "asset_tags_failed", func(ctx context.Context, id uuid.UUID, req tagsRequest) (services.AssetView, error) {
		return h.Assets.SetTags(ctx, id, req.Tags)
	})
}

func (h *AssetsHandler) Syndication(c *fiber.Ctx) error {
	return mutateAsset(c, "asset_syndication_failed", func(ctx context.Context, id uuid.UUID, req services.SyndicationInput) (services.AssetView, error) {
		return h.Assets.UpdateSyndication(ctx, id, req)
	})
}

func (h *AssetsHandler) Move(c *fiber.Ctx) error {
	return mutateAsset(c, "asset_move_failed", func(ctx context.Context, id uuid.UUID, req moveRequest) (services.AssetView, error) {
		target := strings.TrimSpace(req.ParentID)
		if target == "" {
			target = services.RootID
		}
		moved, err := h.Hierarchy.MoveNode(ctx, id, target)
		if err != nil {
			return services.AssetView{}, err
		}
		return services.NewAssetView(*moved), nil
	})
}

func (h *AssetsHandler) Duplicate(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "asset not found")
	}

	dup, err := h.Ingest.Duplicate(c.Context(), id)
	if err != nil {
		return respondError(c, "asset_duplicate_failed", "failed duplicating asset", err)
	}
	return utils.Success(c, fiber.StatusCreated, dup)
}

func (h *AssetsHandler) Delete(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "asset not found")
	}

	report, err := h.Hierarchy.DeleteNode(c.Context(), id)
	if err != nil {
		return respondError(c, "asset_delete_failed", "failed deleting asset", err)
	}
	return utils.Message(c, fiber.StatusOK, fmt.Sprintf("deleted %d items", report.DeletedNodes), report)
}
