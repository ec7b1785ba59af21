package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	SLA            *handlers.SLAHandler
	Dashboard      *handlers.DashboardHandler
	Suggestions    *handlers.SuggestionsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	api := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireIdentity())

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", cfg.Tickets.UpdateTicket)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Post("/:id/replies", cfg.Tickets.AddReply)
	tickets.Post("/:id/resolve", cfg.Tickets.ResolveTicket)
	tickets.Post("/:id/close", cfg.Tickets.CloseTicket)

	slaGroup := api.Group("/sla")
	slaGroup.Get("/policies", cfg.SLA.ListPolicies)
	slaGroup.Post("/policies", auth.RequireAdmin(), cfg.SLA.CreatePolicy)
	slaGroup.Put("/policies/:id", auth.RequireAdmin(), cfg.SLA.UpdatePolicy)
	slaGroup.Get("/breaches", cfg.SLA.Breaches)

	api.Get("/dashboard", cfg.Dashboard.Dashboard)

	suggestions := api.Group("/suggestions")
	suggestions.Post("/", cfg.Suggestions.Generate)
	suggestions.Get("/", cfg.Suggestions.List)
	suggestions.Post("/:id/accept", cfg.Suggestions.Accept)
}
