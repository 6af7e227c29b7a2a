package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/medlink-api/internal/dto"
	"github.com/noah-isme/medlink-api/internal/service"
	"github.com/noah-isme/medlink-api/internal/utils"
)

// AuthHandler exposes registration and login.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register wires routes. The register route expects an optional-JWT
// middleware in front of it so that admins can create admin accounts.
func (h *AuthHandler) Register(router fiber.Router, limiter fiber.Handler, optionalAuth fiber.Handler) {
	if limiter == nil {
		limiter = func(c *fiber.Ctx) error { return c.Next() }
	}
	if optionalAuth == nil {
		optionalAuth = func(c *fiber.Ctx) error { return c.Next() }
	}
	router.Post("/register", limiter, optionalAuth, h.register)
	router.Post("/login", limiter, h.login)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	profile, err := h.service.Register(c.UserContext(), payload, optionalActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "register user")
	}

	return utils.SendCreated(c, "user registered", profile)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Login(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err, "login")
	}

	return utils.SendSuccess(c, "login successful", result)
}

// SettingsHandler applies account settings for the bearer of the token.
type SettingsHandler struct {
	service service.SettingsService
	logger  zerolog.Logger
}

// NewSettingsHandler constructs the handler.
func NewSettingsHandler(service service.SettingsService, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: service,
		logger:  logger.With().Str("component", "settings_handler").Logger(),
	}
}

// Register wires routes for settings.
func (h *SettingsHandler) Register(router fiber.Router) {
	router.Put("", h.update)
}

func (h *SettingsHandler) update(c *fiber.Ctx) error {
	token := bearerToken(c)
	if token == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
	}

	var payload dto.SettingsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	profile, err := h.service.Update(c.UserContext(), token, payload)
	if err != nil {
		return respondError(c, h.logger, err, "update settings")
	}

	return utils.SendSuccess(c, "settings updated", profile)
}
