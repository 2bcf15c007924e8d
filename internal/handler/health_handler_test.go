package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentora-api/internal/civiltime"
	"github.com/noah-isme/mentora-api/internal/config"
	"github.com/noah-isme/mentora-api/internal/handler"
)

type healthEnvelope struct {
	Success bool                   `json:"success"`
	Data    handler.HealthResponse `json:"data"`
	Details handler.HealthResponse `json:"details"`
}

func getHealth(t *testing.T, deps ...handler.HealthDependency) (int, healthEnvelope) {
	t.Helper()
	// 2026-10-15 23:50 in Asia/Kolkata.
	instant := time.Date(2026, time.October, 15, 18, 20, 0, 0, time.UTC)
	zone, err := civiltime.NewZone("Asia/Kolkata", func() time.Time { return instant })
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/health", handler.HealthCheck(config.Config{AppName: "Mentora API", AppEnv: "test"}, zone, deps...))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload healthEnvelope
	require.NoError(t, json.Unmarshal(body, &payload))
	return resp.StatusCode, payload
}

func TestHealthCheckReportsCivilClock(t *testing.T) {
	status, payload := getHealth(t, handler.HealthDependency{Name: "database", Check: func(context.Context) error { return nil }})

	require.Equal(t, http.StatusOK, status)
	require.True(t, payload.Success)
	require.Equal(t, "ok", payload.Data.Status)
	require.Equal(t, "Mentora API", payload.Data.Service)
	require.Equal(t, "test", payload.Data.Environment)
	require.Equal(t, "Asia/Kolkata", payload.Data.Timezone)
	require.Equal(t, "2026-10-15", payload.Data.CivilDate)
	require.Equal(t, "23:50", payload.Data.CivilTime)
	require.Equal(t, map[string]string{"database": "ok"}, payload.Data.Components)
}

func TestHealthCheckDegradesWhenDependencyFails(t *testing.T) {
	status, payload := getHealth(t,
		handler.HealthDependency{Name: "database", Check: func(context.Context) error { return nil }},
		handler.HealthDependency{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }},
	)

	require.Equal(t, http.StatusServiceUnavailable, status)
	require.False(t, payload.Success)
	require.Equal(t, "degraded", payload.Details.Status)
	require.Equal(t, "ok", payload.Details.Components["database"])
	require.Equal(t, "connection refused", payload.Details.Components["redis"])
}
