package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/ride-auth-service/internal/api/http/handlers"
	"github.com/spec-kit/ride-auth-service/internal/auth"
	"github.com/spec-kit/ride-auth-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Users    *handlers.ActorHandler
	Captains *handlers.ActorHandler
	Gate     *auth.Gate
	Gatherer prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.Health != nil {
		app.Get("/health/live", cfg.Health.Live)
		app.Get("/health/ready", cfg.Health.Ready)
	}
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	registerActorRoutes(app.Group("/users"), cfg.Users, cfg.Gate.Require(domain.ActorKindUser))
	registerActorRoutes(app.Group("/captains"), cfg.Captains, cfg.Gate.Require(domain.ActorKindCaptain))
}

func registerActorRoutes(group fiber.Router, h *handlers.ActorHandler, gate fiber.Handler) {
	group.Post("/register", h.Register)
	group.Post("/login", h.Login)
	group.Post("/logout", h.Logout)
	group.Get("/profile", gate, h.Profile)
}
