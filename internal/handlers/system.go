package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/incubrix/cms/internal/services"
)

const robotsTxt = "User-agent: *\nAllow: /api/rss/\nAllow: /feeds/\nDisallow: /uploads/\n"

type SystemHandler struct {
	Feeds *services.FeedService
}

func NewSystemHandler(feeds *services.FeedService) *SystemHandler {
	return &SystemHandler{Feeds: feeds}
}

func (h *SystemHandler) Health(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if built := h.Feeds.BuiltAt(); !built.IsZero() {
		body["feedBuiltAt"] = built.Format(time.RFC3339)
	}
	return c.Status(fiber.StatusOK).JSON(body)
}

func (h *SystemHandler) Robots(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(robotsTxt)
}
