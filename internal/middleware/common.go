package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// Config customises the middleware registration pipeline.
type Config struct {
	Logger zerolog.Logger
	// AllowOrigins is a comma separated CORS origin list; empty means "*".
	AllowOrigins string
}

// Register attaches the middlewares shared by every route: panic recovery,
// correlation ids, request logging with metrics, and CORS.
func Register(app *fiber.App, cfg Config) {
	logger := cfg.Logger

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, panicked interface{}) {
			logger.Error().
				Str("correlation_id", GetCorrelationID(c)).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("panic", fmt.Sprint(panicked)).
				Msg("recovered from panic")
		},
	}))
	app.Use(CorrelationID())
	app.Use(Observability(logger))

	origins := strings.TrimSpace(cfg.AllowOrigins)
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, " + CorrelationHeader,
		AllowMethods:  "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		ExposeHeaders: CorrelationHeader,
	}))
}
