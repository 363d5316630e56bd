package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/incubrix/cms/internal/services"
	"github.com/incubrix/cms/pkg/utils"
)

type SettingsHandler struct {
	Settings *services.SettingsService
}

func NewSettingsHandler(settings *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{Settings: settings}
}

func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	settings, err := h.Settings.Load(c.Context())
	if err != nil {
		return respondError(c, "settings_load_failed", "failed loading feed settings", err)
	}
	return utils.Success(c, fiber.StatusOK, settings)
}

func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	var req services.SettingsInput
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	settings, err := h.Settings.Update(c.Context(), req)
	if err != nil {
		return respondError(c, "settings_update_failed", "failed updating feed settings", err)
	}
	return utils.Success(c, fiber.StatusOK, settings)
}

func (h *SettingsHandler) GetFolder(c *fiber.Ctx) error {
	folderID, err := parseUUID(c.Params("folderId"))
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "folder not found")
	}

	view, err := h.Settings.FolderOverride(c.Context(), folderID)
	if err != nil {
		return respondError(c, "folder_settings_load_failed", "failed loading folder feed settings", err)
	}
	return utils.Success(c, fiber.StatusOK, view)
}

func (h *SettingsHandler) UpdateFolder(c *fiber.Ctx) error {
	folderID, err := parseUUID(c.Params("folderId"))
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "folder not found")
	}

	var req services.FolderOverrideInput
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	view, err := h.Settings.UpsertFolderOverride(c.Context(), folderID, req)
	if err != nil {
		return respondError(c, "folder_settings_update_failed", "failed updating folder feed settings", err)
	}
	return utils.Success(c, fiber.StatusOK, view)
}
