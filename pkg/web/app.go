package web

import (
	"github.com/dukex/siteflow/pkg/metrics"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

// NewApp mounts the API routes. Request logging is skipped when quiet is set.
func NewApp(handlers *APIHandlers, m *metrics.Metrics, quiet bool) *fiber.App {
	app := fiber.New()
	app.Use(cors.New())

	if !quiet {
		app.Use(logger.New(logger.Config{
			DisableColors: true,
		}))
	}

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Siteflow API")
	})

	d := app.Group("/definitions")
	d.Get("/", handlers.GetDefinitions)
	d.Get("/:id", handlers.GetDefinition)
	d.Post("/:id/instances", handlers.StartWorkflow)

	i := app.Group("/instances")
	i.Get("/", handlers.GetHistory)
	i.Get("/:id", handlers.GetInstance)
	i.Post("/:id/cancel", handlers.CancelInstance)

	app.Post("/approvals/:id/decision", handlers.DecideApproval)
	app.Post("/events", handlers.PublishEvent)

	app.Get("/health", handlers.HealthCheck)

	if m != nil {
		app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	return app
}
