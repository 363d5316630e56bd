package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/incubrix/cms/internal/feed"
	"github.com/incubrix/cms/internal/services"
	"github.com/incubrix/cms/pkg/utils"
)

type FeedsHandler struct {
	Feeds    *services.FeedService
	Registry *services.PublicFeedRegistry
}

func NewFeedsHandler(feeds *services.FeedService, registry *services.PublicFeedRegistry) *FeedsHandler {
	return &FeedsHandler{Feeds: feeds, Registry: registry}
}

func sendFeed(c *fiber.Ctx, format feed.Format, body []byte) error {
	c.Set(fiber.HeaderContentType, format.ContentType())
	return c.Status(fiber.StatusOK).Send(body)
}

func (h *FeedsHandler) snapshot(c *fiber.Ctx, format feed.Format) error {
	body, err := h.Feeds.Snapshot(c.Context(), format)
	if err != nil {
		return respondError(c, "feed_snapshot_failed", "failed generating feed", err)
	}
	return sendFeed(c, format, body)
}

// GlobalXML serves the pre-rendered global feed.
func (h *FeedsHandler) GlobalXML(c *fiber.Ctx) error {
	return h.snapshot(c, feed.FormatXML)
}

func (h *FeedsHandler) GlobalJSON(c *fiber.Ctx) error {
	return h.snapshot(c, feed.FormatJSON)
}

// Global renders the global feed on request in the format named by the
// format query parameter.
func (h *FeedsHandler) Global(c *fiber.Ctx) error {
	format, err := feed.ParseFormat(c.Query("format"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	out, err := h.Feeds.Global(c.Context(), format)
	if err != nil {
		return respondError(c, "feed_render_failed", "failed generating feed", err)
	}
	return sendFeed(c, format, out.Body)
}

func (h *FeedsHandler) Folder(c *fiber.Ctx) error {
	folderID, err := parseUUID(c.Params("folderId"))
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "folder not found")
	}
	format, err := feed.ParseFormat(c.Query("format"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	out, err := h.Feeds.Folder(c.Context(), folderID, format)
	if err != nil {
		return respondError(c, "folder_feed_render_failed", "failed generating folder feed", err)
	}
	return sendFeed(c, format, out.Body)
}

// Public serves a named feed. The slug may carry a ".xml" or ".json"
// suffix selecting the format; without one the format query applies.
func (h *FeedsHandler) Public(c *fiber.Ctx) error {
	slug := c.Params("slug")
	raw := c.Query("format")
	switch {
	case strings.HasSuffix(slug, ".json"):
		slug, raw = strings.TrimSuffix(slug, ".json"), "json"
	case strings.HasSuffix(slug, ".xml"):
		slug, raw = strings.TrimSuffix(slug, ".xml"), "xml"
	}
	format, err := feed.ParseFormat(raw)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	out, err := h.Registry.Resolve(c.Context(), slug, format)
	if err != nil {
		return respondError(c, "public_feed_render_failed", "failed generating feed", err)
	}
	return sendFeed(c, format, out.Body)
}

func (h *FeedsHandler) Preview(c *fiber.Ctx) error {
	preview, err := h.Feeds.Preview(c.Context())
	if err != nil {
		return respondError(c, "feed_preview_failed", "failed generating feed preview", err)
	}
	return utils.Success(c, fiber.StatusOK, preview)
}
