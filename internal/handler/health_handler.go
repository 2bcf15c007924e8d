package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/mentora-api/internal/civiltime"
	"github.com/noah-isme/mentora-api/internal/config"
	"github.com/noah-isme/mentora-api/internal/utils"
)

const healthCheckTimeout = 2 * time.Second

// HealthResponse reports liveness plus the civil clock every schedule
// decision is made against.
type HealthResponse struct {
	Status      string            `json:"status"`
	Service     string            `json:"service"`
	Environment string            `json:"environment"`
	Timezone    string            `json:"timezone"`
	CivilDate   string            `json:"civil_date"`
	CivilTime   string            `json:"civil_time"`
	Instant     time.Time         `json:"instant"`
	Components  map[string]string `json:"components,omitempty"`
}

// HealthDependency is a named readiness check such as a database ping.
type HealthDependency struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthCheck answers 200 while every dependency responds and 503 otherwise.
func HealthCheck(cfg config.Config, zone *civiltime.Zone, deps ...HealthDependency) fiber.Handler {
	return func(c *fiber.Ctx) error {
		now := zone.Now()
		payload := HealthResponse{
			Status:      "ok",
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Timezone:    zone.Location().String(),
			CivilDate:   zone.DateOf(now),
			CivilTime:   zone.ClockOf(now),
			Instant:     now.UTC(),
		}

		if len(deps) > 0 {
			ctx, cancel := context.WithTimeout(c.UserContext(), healthCheckTimeout)
			defer cancel()

			payload.Components = make(map[string]string, len(deps))
			for _, dep := range deps {
				if err := dep.Check(ctx); err != nil {
					payload.Components[dep.Name] = err.Error()
					payload.Status = "degraded"
					continue
				}
				payload.Components[dep.Name] = "ok"
			}
		}

		if payload.Status != "ok" {
			return utils.Fail(c, fiber.StatusServiceUnavailable, "service degraded", payload)
		}
		return utils.SendSuccess(c, "service healthy", payload)
	}
}
