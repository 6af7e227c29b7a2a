package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/noah-isme/medlink-api/internal/config"
	"github.com/noah-isme/medlink-api/internal/handler"
	"github.com/noah-isme/medlink-api/internal/middleware"
	"github.com/noah-isme/medlink-api/internal/models"
	"github.com/noah-isme/medlink-api/internal/observability"
	"github.com/noah-isme/medlink-api/internal/utils"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler     *handler.AuthHandler
	SettingsHandler *handler.SettingsHandler
	ProfileHandler  *handler.ProfileHandler
	AdminHandler    *handler.AdminHandler
	ClinicHandler   *handler.ClinicHandler
	OrderHandler    *handler.OrderHandler
	ResponseHandler *handler.ResponseHandler
	ReviewHandler   *handler.ReviewHandler
	ChatHandler     *handler.ChatHandler

	JWTMiddleware         fiber.Handler
	OptionalJWTMiddleware fiber.Handler
	AuthRateLimiter       fiber.Handler
	HealthProbes          []handler.HealthProbe
	MetricsGatherers      []prometheus.Gatherer
	DisableMetrics        bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	if !deps.DisableMetrics {
		app.Get("/metrics", observability.MetricsHandler(deps.MetricsGatherers...))
	}

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes...))

	// Without a JWT middleware the protected groups stay closed.
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
	}
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"), deps.AuthRateLimiter, deps.OptionalJWTMiddleware)
	}

	// Settings decode the bearer token themselves so that a stale identity
	// surfaces as an authentication failure from the service.
	if deps.SettingsHandler != nil {
		deps.SettingsHandler.Register(api.Group("/settings"))
	}

	if deps.ClinicHandler != nil {
		deps.ClinicHandler.Register(api.Group("/clinics"), jwtMiddleware)
	}

	if deps.AdminHandler != nil {
		deps.AdminHandler.Register(api.Group("/admin", jwtMiddleware, adminOnly))
	}

	if deps.OrderHandler != nil {
		deps.OrderHandler.Register(api.Group("/orders", jwtMiddleware))
	}

	if deps.ResponseHandler != nil {
		deps.ResponseHandler.Register(api.Group("/responses", jwtMiddleware))
	}

	if deps.ReviewHandler != nil {
		deps.ReviewHandler.Register(api.Group("/reviews", jwtMiddleware))
	}

	if deps.ChatHandler != nil {
		deps.ChatHandler.Register(api.Group("/chats", jwtMiddleware))
		deps.ChatHandler.RegisterMessages(api.Group("/messages", jwtMiddleware))
	}

	if deps.ProfileHandler != nil {
		deps.ProfileHandler.Register(api, jwtMiddleware, adminOnly)
	}
}
