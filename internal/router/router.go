package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/mentora-api/internal/civiltime"
	"github.com/noah-isme/mentora-api/internal/config"
	"github.com/noah-isme/mentora-api/internal/handler"
	"github.com/noah-isme/mentora-api/internal/middleware"
	"github.com/noah-isme/mentora-api/internal/observability"
	"github.com/noah-isme/mentora-api/internal/service"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	EngagementHandler   *handler.EngagementHandler
	PaymentHandler      *handler.PaymentHandler
	CourseHandler       *handler.CourseHandler
	CurriculumHandler   *handler.CurriculumHandler
	ActivityHandler     *handler.ActivityHandler
	NotificationHandler *handler.NotificationHandler
	JWTMiddleware       fiber.Handler
	RateLimiter         fiber.Handler
	Zone                *civiltime.Zone
	HealthChecks        []handler.HealthDependency
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	zone := deps.Zone
	if zone == nil {
		zone = civiltime.NewZoneAt(time.UTC, nil)
	}
	api.Get("/health", handler.HealthCheck(cfg, zone, deps.HealthChecks...))
	api.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	limiter := deps.RateLimiter
	if limiter == nil {
		limiter = func(c *fiber.Ctx) error { return c.Next() }
	}

	secured := api.Group("", jwtMiddleware, limiter)

	if deps.EngagementHandler != nil {
		deps.EngagementHandler.Register(secured.Group("/engagements"))
		deps.EngagementHandler.RegisterDashboard(secured.Group("/dashboard"))
	}

	if deps.PaymentHandler != nil {
		deps.PaymentHandler.Register(secured)
	}

	if deps.CourseHandler != nil {
		deps.CourseHandler.Register(secured.Group("/courses"))
	}

	if deps.CurriculumHandler != nil {
		deps.CurriculumHandler.Register(secured.Group("/curriculum"))
	}

	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(secured.Group("/notifications"))
	}

	if deps.ActivityHandler != nil {
		admin := secured.Group("/admin", middleware.RequireRole(service.RoleAdmin))
		deps.ActivityHandler.Register(admin.Group("/activity"))
	}
}
