package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentora-api/internal/middleware"
)

const testSecret = "mentora-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newJWTApp(seen *fiber.Map) *fiber.App {
	app := fiber.New()
	app.Use(middleware.JWTProtected(testSecret))
	app.Get("/", func(c *fiber.Ctx) error {
		(*seen)["user_id"] = c.Locals("user_id")
		(*seen)["user_role"] = c.Locals("user_role")
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestJWTProtectedPopulatesIdentity(t *testing.T) {
	seen := fiber.Map{}
	app := newJWTApp(&seen)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwt.MapClaims{"sub": "5", "role": " Mentor "}))
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	require.Equal(t, uint(5), seen["user_id"])
	require.Equal(t, "mentor", seen["user_role"])
}

func TestJWTProtectedAcceptsNumericSubjectAndRoleList(t *testing.T) {
	seen := fiber.Map{}
	app := newJWTApp(&seen)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwt.MapClaims{"user_id": 12, "roles": []string{"", "Student"}}))
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	require.Equal(t, uint(12), seen["user_id"])
	require.Equal(t, "student", seen["user_role"])
}

func TestJWTProtectedRejectsBadCredentials(t *testing.T) {
	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"empty token":    "Bearer ",
		"wrong secret":   "Bearer " + signToken(t, "other-secret", jwt.MapClaims{"sub": "5"}),
		"garbage":        "Bearer not-a-token",
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			seen := fiber.Map{}
			app := newJWTApp(&seen)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
			require.Empty(t, seen)
		})
	}
}

func TestJWTProtectedRejectsUnusableClaims(t *testing.T) {
	cases := map[string]jwt.MapClaims{
		"no subject":    {"role": "mentor"},
		"zero subject":  {"sub": "0", "role": "mentor"},
		"system role":   {"sub": "5", "role": "System"},
		"unsigned alg":  nil,
		"expired":       {"sub": "5", "role": "mentor", "exp": float64(1)},
		"fractional id": {"user_id": 1.5},
		"negative id":   {"id": -3},
	}

	for name, claims := range cases {
		t.Run(name, func(t *testing.T) {
			seen := fiber.Map{}
			app := newJWTApp(&seen)

			var token string
			if claims == nil {
				unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "5"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
				require.NoError(t, err)
				token = unsigned
			} else {
				token = signToken(t, testSecret, claims)
			}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
			require.Empty(t, seen)
		})
	}
}

func TestJWTProtectedLeavesUnknownRoleEmpty(t *testing.T) {
	seen := fiber.Map{}
	app := newJWTApp(&seen)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwt.MapClaims{"sub": "8", "role": "superuser"}))
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	require.Equal(t, uint(8), seen["user_id"])
	require.Nil(t, seen["user_role"])
}
