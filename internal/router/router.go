package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/config"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/handler"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	QueueHandler    *handler.QueueHandler
	FeedbackHandler *handler.FeedbackHandler
	JWTMiddleware   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.QueueHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware)
		deps.QueueHandler.RegisterIntake(submissions)

		if deps.FeedbackHandler != nil {
			deps.FeedbackHandler.Register(submissions)
		}

		operator := api.Group("/queue", jwtMiddleware)
		deps.QueueHandler.RegisterOperator(operator)
	}
}
