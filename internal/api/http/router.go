package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/ticket-router/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Tickets  *handlers.TicketsHandler
	OrgUnits *handlers.OrgUnitsHandler
	Routing  *handlers.RoutingHandler
	// Gatherer backs /metrics; nil leaves the endpoint unregistered.
	Gatherer prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api/v1")
	api.Post("/tickets", cfg.Tickets.CreateTicket)
	api.Post("/tickets/:number/comments", cfg.Tickets.AddComment)

	api.Post("/org-units/email/validate", cfg.OrgUnits.ValidateEmail)
	api.Get("/org-units/email/resolve", cfg.OrgUnits.ResolveEmail)

	api.Get("/priority", cfg.Routing.Priority)
	api.Post("/ingestion/poll", cfg.Routing.Poll)
}
