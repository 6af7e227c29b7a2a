package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/medlink-api/internal/dto"
	"github.com/noah-isme/medlink-api/internal/service"
	"github.com/noah-isme/medlink-api/internal/utils"
)

// AdminHandler exposes moderation and statistics endpoints.
type AdminHandler struct {
	service service.AdminService
	logger  zerolog.Logger
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(service service.AdminService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Register wires routes for administration. The group must already be
// restricted to the admin role.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Get("/me", h.me)
	router.Get("/statistics", h.statistics)
	router.Get("/users", h.listUsers)
	router.Post("/users/:id/block", h.block)
	router.Delete("/users/:id/block", h.unblock)
	router.Put("/users/:id/privileges", h.privileges)
	router.Delete("/users/:id", h.deleteUser)
}

func (h *AdminHandler) me(c *fiber.Ctx) error {
	profile, err := h.service.Me(c.UserContext(), actorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "load admin profile")
	}
	return utils.SendSuccess(c, "admin retrieved", profile)
}

func (h *AdminHandler) listUsers(c *fiber.Ctx) error {
	var req dto.AdminUserListRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	result, err := h.service.ListUsers(c.UserContext(), actorFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "list users")
	}
	return sendPage(c, "users retrieved", result.Items, result.Pagination)
}

func (h *AdminHandler) block(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	var req dto.BlockUserRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	user, err := h.service.Block(c.UserContext(), actorFromContext(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err, "block user")
	}
	return utils.SendCreated(c, "user blocked", user)
}

func (h *AdminHandler) unblock(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}

	user, err := h.service.Unblock(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "unblock user")
	}
	return utils.SendSuccess(c, "user unblocked", user)
}

func (h *AdminHandler) privileges(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	var req dto.AdminPrivilegesRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	profile, err := h.service.UpdatePrivileges(c.UserContext(), actorFromContext(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err, "update privileges")
	}
	return utils.SendSuccess(c, "privileges updated", profile)
}

func (h *AdminHandler) deleteUser(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}

	if err := h.service.DeleteUser(c.UserContext(), actorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err, "delete user")
	}
	return utils.SendDeleted(c, "user deleted", id)
}

func (h *AdminHandler) statistics(c *fiber.Ctx) error {
	stats, err := h.service.Statistics(c.UserContext(), actorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "load statistics")
	}
	return utils.SendSuccess(c, "statistics retrieved", stats)
}
