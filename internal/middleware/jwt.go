package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/mentora-api/internal/service"
	"github.com/noah-isme/mentora-api/internal/utils"
)

const (
	localActor    = "actor"
	localUserID   = "user_id"
	localUserRole = "user_role"
)

var (
	errMissingSubject = errors.New("token subject missing")
	errReservedRole   = errors.New("token claims a reserved role")
)

// JWTProtected validates HS256 bearer tokens and binds the caller as the
// request's engagement actor.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (interface{}, error) { return []byte(secret), nil }

	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing or malformed")
		}

		claims := jwt.MapClaims{}
		token, err := parser.ParseWithClaims(tokenString, claims, keyFunc)
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		actor, err := actorFromClaims(claims)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}

		SetActor(c, actor)
		return c.Next()
	}
}

// SetActor binds actor to the request.
func SetActor(c *fiber.Ctx, actor service.ActivityActor) {
	c.Locals(localActor, actor)
	c.Locals(localUserID, actor.ID)
	if actor.Role != "" {
		c.Locals(localUserRole, actor.Role)
	}
}

// ActorFromContext returns the caller bound by JWTProtected. Requests wired
// with bare user_id/user_role locals resolve the same way.
func ActorFromContext(c *fiber.Ctx) service.ActivityActor {
	if actor, ok := c.Locals(localActor).(service.ActivityActor); ok {
		return actor
	}

	actor := service.ActivityActor{}
	switch id := c.Locals(localUserID).(type) {
	case uint:
		actor.ID = id
	case int:
		if id > 0 {
			actor.ID = uint(id)
		}
	}
	if role, ok := c.Locals(localUserRole).(string); ok {
		actor.Role = service.NormalizeRole(role)
	}
	return actor
}

func bearerToken(header string) (string, bool) {
	const scheme = "bearer "
	if len(header) < len(scheme) || !strings.EqualFold(header[:len(scheme)], scheme) {
		return "", false
	}
	token := strings.TrimSpace(header[len(scheme):])
	return token, token != ""
}

// actorFromClaims resolves the subject from sub, user_id or id and the role
// from role or the first non-empty entry of roles.
func actorFromClaims(claims jwt.MapClaims) (service.ActivityActor, error) {
	var actor service.ActivityActor
	for _, key := range []string{"sub", "user_id", "id"} {
		if id, err := claimUserID(claims[key]); err == nil {
			actor.ID = id
			break
		}
	}
	if actor.ID == 0 {
		return service.ActivityActor{}, errMissingSubject
	}

	role := claimRole(claims["role"])
	if role == "" {
		role = claimRole(claims["roles"])
	}
	switch {
	case role == service.RoleSystem:
		return service.ActivityActor{}, errReservedRole
	case service.IsCallerRole(role):
		actor.Role = role
	}
	return actor, nil
}

func claimUserID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v <= 0 || v != float64(uint(v)) {
			return 0, fmt.Errorf("invalid subject %v", v)
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil || parsed == 0 {
			return 0, fmt.Errorf("invalid subject %q", v)
		}
		return uint(parsed), nil
	default:
		return 0, fmt.Errorf("unsupported subject type %T", value)
	}
}

func claimRole(value interface{}) string {
	switch v := value.(type) {
	case string:
		return service.NormalizeRole(v)
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				if role := service.NormalizeRole(s); role != "" {
					return role
				}
			}
		}
	}
	return ""
}
