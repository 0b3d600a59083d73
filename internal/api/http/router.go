package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meditrack/staffcore/internal/api/http/handlers"
	"github.com/meditrack/staffcore/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	api.Get("/health", cfg.Health.Live)

	authGroup := api.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/register", cfg.Auth.Register)

	protected := authGroup.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/profile", cfg.Auth.Profile)
	protected.Put("/password", cfg.Auth.UpdatePassword)
	protected.Post("/logout", cfg.Auth.Logout)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Endpoint not found")
	})
}
