package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/incubrix/cms/internal/middleware"
	"github.com/incubrix/cms/internal/services"
	"github.com/incubrix/cms/pkg/logger"
	"github.com/incubrix/cms/pkg/utils"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

// respondError maps service errors onto the response envelope. Validation
// and not-found errors carry their own message; anything else is logged and
// reported with the generic message.
func respondError(c *fiber.Ctx, action, message string, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		return utils.Error(c, fiber.StatusNotFound, err.Error())
	}

	logger.Error(action, err, map[string]interface{}{
		"method":     c.Method(),
		"path":       c.Path(),
		"request_id": middleware.RequestID(c),
	})
	return utils.Error(c, fiber.StatusInternalServerError, message)
}

func queryBool(c *fiber.Ctx, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(c.Query(key)))
	return err == nil && v
}
