package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/medlink-api/internal/models"
	"github.com/noah-isme/medlink-api/internal/service"
	"github.com/noah-isme/medlink-api/internal/utils"
)

// ProfileHandler serves account profiles.
type ProfileHandler struct {
	service service.ProfileService
	logger  zerolog.Logger
}

// NewProfileHandler constructs the handler.
func NewProfileHandler(service service.ProfileService, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		service: service,
		logger:  logger.With().Str("component", "profile_handler").Logger(),
	}
}

// Register wires profile routes. Every route goes through protected, and the
// admin profile lookup additionally through adminOnly.
func (h *ProfileHandler) Register(router fiber.Router, protected, adminOnly fiber.Handler) {
	if protected == nil {
		protected = unauthenticated
	}
	router.Get("/users/me", protected, h.me)
	router.Get("/users/:id", protected, h.public)
	router.Get("/patients/:id", protected, h.byRole(models.RolePatient))
	router.Get("/specialists/:id", protected, h.byRole(models.RoleSpecialist))
	router.Get("/organizations/:id", protected, h.byRole(models.RoleOrganization))
	if adminOnly != nil {
		router.Get("/admins/:id", protected, adminOnly, h.byRole(models.RoleAdmin))
	}
}

func (h *ProfileHandler) me(c *fiber.Ctx) error {
	profile, err := h.service.Me(c.UserContext(), actorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "load profile")
	}
	return utils.SendSuccess(c, "profile retrieved", profile)
}

func (h *ProfileHandler) public(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	profile, err := h.service.Public(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err, "load profile")
	}
	return utils.SendSuccess(c, "profile retrieved", profile)
}

func (h *ProfileHandler) byRole(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseIDParam(c, "id")
		if !ok {
			return invalidID(c)
		}
		profile, err := h.service.ByRole(c.UserContext(), id, role)
		if err != nil {
			return respondError(c, h.logger, err, "load "+string(role)+" profile")
		}
		return utils.SendSuccess(c, string(role)+" retrieved", profile)
	}
}
