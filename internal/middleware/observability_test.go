package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentora-api/internal/middleware"
	"github.com/noah-isme/mentora-api/internal/service"
)

func TestObservabilityLogsCallerAndSkipsHealth(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: zerolog.New(&buf)})
	app.Get("/api/v1/health", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Post("/api/v1/engagements/:id/approve", func(c *fiber.Ctx) error {
		middleware.SetActor(c, service.ActivityActor{ID: 4, Role: service.RoleMentor})
		return c.SendStatus(fiber.StatusConflict)
	})

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.NoError(t, err)
	require.Zero(t, buf.Len())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/engagements/9/approve", nil)
	req.Header.Set(middleware.CorrelationHeader, "trace-1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "warn", line["level"])
	require.Equal(t, "trace-1", line["correlation_id"])
	require.Equal(t, "/api/v1/engagements/:id/approve", line["route"])
	require.Equal(t, float64(4), line["actor_id"])
	require.Equal(t, "mentor", line["actor_role"])
}
