// Package router wires the HTTP surface: public search endpoints and the
// API-key-protected admin group.
package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/leakdex/leakdex/internal/handlers"
	"github.com/leakdex/leakdex/internal/logging"
	"github.com/leakdex/leakdex/internal/middleware"
)

// AuthConfig is the slice of configuration the router needs.
type AuthConfig struct {
	Enabled bool
	APIKeys []string
}

// Setup configures all routes and middlewares.
func Setup(app *fiber.App, logger *logging.Logger, h *handlers.Handler, auth AuthConfig) {
	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger))

	// Public surface (no auth): health plus masked search over the selected
	// indices only.
	app.Get("/health", h.Health)
	app.Get("/search", h.Search)
	app.Get("/search/count", h.SearchCount)

	// Admin surface (API key)
	authMiddleware := middleware.APIKeyAuth(logger, auth.APIKeys, auth.Enabled)
	admin := app.Group("/admin", authMiddleware)

	// Unmasked search
	admin.Get("/accounts", h.Accounts)

	// Index cache
	admin.Get("/indices-cache", h.IndicesCache)
	admin.Post("/indices-cache/refresh", h.RefreshIndicesCache)

	// Node registry
	admin.Get("/nodes", h.ListNodes)
	admin.Post("/nodes", h.CreateNode)
	admin.Delete("/nodes/:name", h.DeleteNode)

	// Index management
	admin.Post("/indices", h.CreateIndex)
	admin.Delete("/nodes/:name/indices/:index", h.DeleteIndex)

	// Public search surface configuration
	admin.Get("/search/selected", h.SelectedIndices)
	admin.Put("/search/selected", h.UpdateSelectedIndices)

	// Ingestion
	admin.Post("/parse/:filename", h.ParseFile)
	admin.Post("/parse-all-unparsed", h.ParseAllUnparsed)
	admin.Get("/files", h.ListFiles)

	// Bulk operations
	admin.Post("/accounts/bulk-delete", h.BulkDeleteAccounts)
	admin.Post("/accounts/clean", h.CleanAccounts)

	// Task tracking
	admin.Get("/tasks", h.ListTasks)
	admin.Get("/tasks/:id", h.GetTask)
	admin.Post("/tasks/:action", h.TaskAction)

	// 404 handler
	app.Use(h.NotFound)
}

// New creates a new Fiber app with configuration.
func New(logger *logging.Logger, h *handlers.Handler, auth AuthConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "leakdex",
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, h, auth)

	return app
}
