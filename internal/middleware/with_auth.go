package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/mentora-api/internal/service"
	"github.com/noah-isme/mentora-api/internal/utils"
)

// AuthRoleAny admits any authenticated caller.
const AuthRoleAny = "any"

// AuthOptions configures WithAuth. Role is AuthRoleAny or one of the
// service roles; admins pass every mentor guard.
type AuthOptions struct {
	Role           string
	AllowAnonymous bool
}

// WithAuth wraps a handler with an authentication and role guard.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := service.NormalizeRole(opts.Role)
	if role == "" {
		role = AuthRoleAny
	}
	anonymous := opts.AllowAnonymous && role == AuthRoleAny

	return func(c *fiber.Ctx) error {
		actor := ActorFromContext(c)
		if actor.ID == 0 {
			if anonymous {
				return handler(c)
			}
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}

		if !actorSatisfies(actor, role) {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}
		return handler(c)
	}
}

func actorSatisfies(actor service.ActivityActor, role string) bool {
	switch role {
	case AuthRoleAny:
		return true
	case service.RoleMentor:
		return actor.Is(service.RoleMentor) || actor.Is(service.RoleAdmin)
	default:
		return actor.Is(role)
	}
}
