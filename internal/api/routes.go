package api

import (
	"github.com/bilgisen/karmadocs/internal/config"
	"github.com/bilgisen/karmadocs/internal/engine"
	"github.com/bilgisen/karmadocs/internal/importer"
	"github.com/bilgisen/karmadocs/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, cfg *config.Config, eng *engine.Engine, imp *importer.Importer) {
	handlers := NewHandlers(cfg, eng, imp)

	// Middleware
	app.Use(recover.New())
	app.Use(middleware.RequestLogger())

	// API group with versioning
	api := app.Group("/api/v1")

	// Health check endpoint
	api.Get("/health", handlers.HealthCheck)

	// Article endpoints
	articles := api.Group("/articles")
	{
		articles.Get("", handlers.ListArticles) // List, optionally ?sync=true
		articles.Post("", handlers.CreateArticle)
		articles.Post("/save-local", handlers.SaveLocal)
		articles.Post("/push-live", handlers.PushLive)
		articles.Post("/push-selected", handlers.PushSelected)
		articles.Post("/delete", handlers.DeleteArticle)
	}

	// Admin endpoints (API-key gated)
	admin := api.Group("/admin", middleware.AdminOnly(cfg.AdminAPIKey))
	{
		admin.Post("/import", handlers.RunImport)
	}

	// 404 Handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}
