package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentora-api/internal/middleware"
	"github.com/noah-isme/mentora-api/internal/service"
)

func TestRateLimitKeysOnCaller(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		middleware.SetActor(c, service.ActivityActor{ID: uint(c.QueryInt("user")), Role: c.Query("role")})
		return c.Next()
	})
	app.Post("/payments/:id/confirm", middleware.RateLimit("payment_confirm", 1, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	call := func(query string) int {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/payments/3/confirm?"+query, nil))
		require.NoError(t, err)
		return resp.StatusCode
	}

	require.Equal(t, fiber.StatusNoContent, call("user=1&role=student"))
	require.Equal(t, fiber.StatusTooManyRequests, call("user=1&role=student"))
	require.Equal(t, fiber.StatusNoContent, call("user=2&role=student"))
	require.Equal(t, fiber.StatusNoContent, call("user=1&role=mentor"))
}
