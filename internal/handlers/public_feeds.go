package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/incubrix/cms/internal/services"
	"github.com/incubrix/cms/pkg/utils"
)

type PublicFeedsHandler struct {
	Registry *services.PublicFeedRegistry
}

func NewPublicFeedsHandler(registry *services.PublicFeedRegistry) *PublicFeedsHandler {
	return &PublicFeedsHandler{Registry: registry}
}

func (h *PublicFeedsHandler) List(c *fiber.Ctx) error {
	feeds, err := h.Registry.List(c.Context())
	if err != nil {
		return respondError(c, "public_feed_list_failed", "failed listing feeds", err)
	}
	return utils.Success(c, fiber.StatusOK, feeds)
}

func (h *PublicFeedsHandler) Create(c *fiber.Ctx) error {
	var req services.PublicFeedInput
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	created, err := h.Registry.Create(c.Context(), req)
	if err != nil {
		return respondError(c, "public_feed_create_failed", "failed creating feed", err)
	}
	return utils.Success(c, fiber.StatusCreated, created)
}

func (h *PublicFeedsHandler) Get(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("feedId"))
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "feed not found")
	}

	view, err := h.Registry.Get(c.Context(), id)
	if err != nil {
		return respondError(c, "public_feed_get_failed", "failed loading feed", err)
	}
	return utils.Success(c, fiber.StatusOK, view)
}

func (h *PublicFeedsHandler) Update(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("feedId"))
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "feed not found")
	}

	var req services.PublicFeedInput
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	view, err := h.Registry.Update(c.Context(), id, req)
	if err != nil {
		return respondError(c, "public_feed_update_failed", "failed updating feed", err)
	}
	return utils.Success(c, fiber.StatusOK, view)
}

func (h *PublicFeedsHandler) Delete(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("feedId"))
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "feed not found")
	}

	if err := h.Registry.Delete(c.Context(), id); err != nil {
		return respondError(c, "public_feed_delete_failed", "failed deleting feed", err)
	}
	return utils.Message(c, fiber.StatusOK, "feed deleted", nil)
}
