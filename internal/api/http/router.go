package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	StaffTickets   *handlers.StaffTicketsHandler
	Files          *handlers.TicketFilesHandler
	Catalog        *handlers.CatalogHandler
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

	api := app.Group("/api")
	api.Post("/auth/login", cfg.Auth.Login)

	protected := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	protected.Post("/auth/logout", cfg.Auth.Logout)
	protected.Get("/auth/me", cfg.Auth.Me)

	protected.Get("/service-types", cfg.Catalog.ListServiceTypes)
	protected.Get("/companies", auth.RequireStaff(), cfg.Catalog.ListCompanies)

	tickets := protected.Group("/tickets")
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("/stats", cfg.Tickets.Stats)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)

	tickets.Post("/:id/assign", auth.RequireStaff(), cfg.StaffTickets.AssignTicket)
	tickets.Post("/:id/close", auth.RequireStaff(), cfg.StaffTickets.CloseTicket)

	tickets.Get("/:id/responses", cfg.Tickets.ListResponses)
	tickets.Post("/:id/responses", cfg.Tickets.AddResponse)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)

	tickets.Post("/:id/files", cfg.Files.Upload)
	tickets.Get("/:id/files/:fileId", cfg.Files.Download)
	tickets.Delete("/:id/files/:fileId", cfg.Files.Delete)
}
