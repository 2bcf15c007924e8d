package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentora-api/internal/middleware"
	"github.com/noah-isme/mentora-api/internal/service"
)

func TestRequireRoleGuardsMentorCompletion(t *testing.T) {
	cases := []struct {
		name   string
		bind   func(c *fiber.Ctx)
		status int
	}{
		{"mentor actor", func(c *fiber.Ctx) { middleware.SetActor(c, service.ActivityActor{ID: 2, Role: service.RoleMentor}) }, fiber.StatusOK},
		{"admin actor", func(c *fiber.Ctx) { middleware.SetActor(c, service.ActivityActor{ID: 9, Role: service.RoleAdmin}) }, fiber.StatusOK},
		{"raw mixed case local", func(c *fiber.Ctx) { c.Locals("user_role", " Mentor ") }, fiber.StatusOK},
		{"student actor", func(c *fiber.Ctx) { middleware.SetActor(c, service.ActivityActor{ID: 1, Role: service.RoleStudent}) }, fiber.StatusForbidden},
		{"caller without role", func(c *fiber.Ctx) { middleware.SetActor(c, service.ActivityActor{ID: 1}) }, fiber.StatusForbidden},
		{"system actor", func(c *fiber.Ctx) { middleware.SetActor(c, service.SystemActor) }, fiber.StatusForbidden},
		{"anonymous", func(*fiber.Ctx) {}, fiber.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(func(c *fiber.Ctx) error {
				tc.bind(c)
				return c.Next()
			})
			app.Post("/engagements/1/schedule/2/complete",
				middleware.RequireRole(service.RoleMentor, " ADMIN "),
				func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

			resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/engagements/1/schedule/2/complete", nil))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
