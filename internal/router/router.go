package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/eduwork-api/internal/config"
	"github.com/noah-isme/eduwork-api/internal/handler"
	"github.com/noah-isme/eduwork-api/internal/middleware"
	"github.com/noah-isme/eduwork-api/internal/models"
	"github.com/noah-isme/eduwork-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	WorkHandler         *handler.WorkHandler
	GroupHandler        *handler.GroupHandler
	DistributionHandler *handler.DistributionHandler
	SubmissionHandler   *handler.SubmissionHandler
	EvaluationHandler   *handler.EvaluationHandler
	StatisticsHandler   *handler.StatisticsHandler
	ActivityHandler     *handler.ActivityHandler
	AttachmentHandler   *handler.AttachmentHandler
	SeedHandler         *handler.SeedHandler
	JWTMiddleware       fiber.Handler
	HealthProbes        []handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes...))
	api.Get("/metrics", observability.MetricsHandler())

	// Seeding is guarded by its own token, not by JWT.
	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(api.Group("/seed"))
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	submitLimiter := middleware.RateLimit("submit", cfg.SubmitRateLimit, time.Minute)
	next := func(c *fiber.Ctx) error { return c.Next() }
	studentsOnly := middleware.WithAuth(next, middleware.AuthOptions{Role: middleware.AuthRoleStudent})
	authenticated := middleware.WithAuth(next, middleware.AuthOptions{RequireUser: true})

	if deps.WorkHandler != nil {
		works := api.Group("/works", jwtMiddleware)
		deps.WorkHandler.Register(works)
		if deps.GroupHandler != nil {
			deps.GroupHandler.RegisterWorkRoutes(works)
		}
		if deps.DistributionHandler != nil {
			deps.DistributionHandler.RegisterWorkRoutes(works)
		}
		if deps.SubmissionHandler != nil {
			deps.SubmissionHandler.RegisterWorkRoutes(works)
		}
	}

	if deps.GroupHandler != nil {
		deps.GroupHandler.Register(api.Group("/groups", jwtMiddleware))
	}

	if deps.DistributionHandler != nil {
		deps.DistributionHandler.Register(api.Group("/assignments", jwtMiddleware))
	}

	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(api.Group("/submissions", jwtMiddleware), studentsOnly, submitLimiter)
	}

	if deps.EvaluationHandler != nil {
		deps.EvaluationHandler.Register(api.Group("/evaluations", jwtMiddleware))
	}

	if deps.StatisticsHandler != nil {
		deps.StatisticsHandler.Register(api.Group("/statistics", jwtMiddleware, authenticated))
	}

	if deps.ActivityHandler != nil {
		activity := api.Group("/activity", jwtMiddleware, middleware.RequireRole(string(models.RoleDirector)))
		deps.ActivityHandler.Register(activity)
	}

	if deps.AttachmentHandler != nil {
		attachments := api.Group("/attachments", jwtMiddleware, authenticated)
		deps.AttachmentHandler.Register(attachments, middleware.RateLimit("attachment", cfg.SubmitRateLimit, time.Minute))
	}
}
