package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/medlink-api/internal/dto"
	"github.com/noah-isme/medlink-api/internal/middleware"
	"github.com/noah-isme/medlink-api/internal/models"
	"github.com/noah-isme/medlink-api/internal/service"
	"github.com/noah-isme/medlink-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseIDParam(c *fiber.Ctx, key string) (uint, bool) {
	value, err := strconv.ParseUint(strings.TrimSpace(c.Params(key)), 10, 64)
	if err != nil || value == 0 {
		return 0, false
	}
	return uint(value), true
}

// actorFromContext reads the identity stored by the JWT middleware. Anonymous
// requests yield the zero Actor.
func actorFromContext(c *fiber.Ctx) service.Actor {
	id, _ := c.Locals("user_id").(uint)
	role, _ := c.Locals("user_role").(string)
	return service.Actor{ID: id, Role: models.Role(role)}
}

// optionalActorFromContext returns nil for anonymous requests.
func optionalActorFromContext(c *fiber.Ctx) *service.Actor {
	actor := actorFromContext(c)
	if actor.ID == 0 {
		return nil
	}
	return &actor
}

func bearerToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) zerolog.Logger {
	ctx := base.With().Str("path", c.Path())
	if id := middleware.GetCorrelationID(c); id != "" {
		ctx = ctx.Str("correlation_id", id)
	}
	if actor := actorFromContext(c); actor.ID != 0 {
		ctx = ctx.Uint("user_id", actor.ID)
	}
	return ctx.Logger()
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrStorageNotConfigured):
		return fiber.StatusNotImplemented
	case errors.Is(err, service.ErrAttachmentTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrDuplicate), errors.Is(err, service.ErrInvalidState):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrPermissionDenied):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrAuthFailure):
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError translates a service error into the JSON envelope. Unexpected
// errors are logged and hidden behind a generic message.
func respondError(c *fiber.Ctx, base zerolog.Logger, err error, action string) error {
	status := statusForError(err)
	if status == fiber.StatusInternalServerError {
		logger := requestLogger(base, c)
		logger.Error().Err(err).Msg("failed to " + action)
		return utils.SendError(c, status, "internal server error")
	}
	return utils.SendError(c, status, err.Error())
}

// unauthenticated stands in for a missing auth middleware and rejects the request.
func unauthenticated(c *fiber.Ctx) error {
	return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
}

func invalidBody(c *fiber.Ctx) error {
	return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
}

func invalidID(c *fiber.Ctx) error {
	return utils.SendError(c, fiber.StatusBadRequest, "invalid id")
}

func sendPage(c *fiber.Ctx, message string, items interface{}, pagination dto.PaginationMeta) error {
	return utils.SendPaginated(c, message, items, utils.NewPageMeta(pagination.Page, pagination.PageSize, pagination.TotalItems))
}
