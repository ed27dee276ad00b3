package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/worklist-service/internal/api/http/handlers"
	"github.com/spec-kit/worklist-service/internal/auth"
	"github.com/spec-kit/worklist-service/internal/domain"
	"github.com/spec-kit/worklist-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	CrewItems      *handlers.CrewItemsHandler
	AdminItems     *handlers.AdminItemsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/crew/login", cfg.Auth.CrewLogin)
	authGroup.Post("/admin/login", cfg.Auth.AdminLogin)

	crew := app.Group("/crew", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleCrew))
	crew.Get("/items/next-number", cfg.CrewItems.NextNumber)
	crew.Get("/items/form-options", cfg.CrewItems.FormOptions)
	crew.Get("/items/assigned", cfg.CrewItems.ListAssigned)
	crew.Get("/items/approved", cfg.CrewItems.ListApproved)
	crew.Post("/items", cfg.CrewItems.Submit)
	crew.Get("/items/:id", cfg.CrewItems.Get)
	crew.Put("/items/:id", cfg.CrewItems.Resolve)
	crew.Delete("/items/:id/photos/:photoID", cfg.CrewItems.DeletePhoto)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Get("/items", cfg.AdminItems.List)
	admin.Get("/items/:id", cfg.AdminItems.Get)
	admin.Put("/items/:id", cfg.AdminItems.Edit)
	admin.Delete("/items/:id", cfg.AdminItems.Delete)
	admin.Post("/items/:id/assign", cfg.AdminItems.Assign)
	admin.Post("/items/:id/status", cfg.AdminItems.UpdateStatus)
	admin.Put("/items/:id/notes", cfg.AdminItems.SaveNotes)
	admin.Get("/items/:id/photos/:photoID", cfg.AdminItems.Photo)
	admin.Delete("/items/:id/photos/:photoID", cfg.AdminItems.DeletePhoto)
	admin.Get("/items/:id/export", cfg.AdminItems.Export)
	admin.Post("/exports", cfg.AdminItems.ExportBatch)
}
