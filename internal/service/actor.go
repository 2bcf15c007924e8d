package service

import "strings"

// Roles understood by the engine. RoleSystem is reserved for the scheduler
// and can never be claimed by a caller.
const (
	RoleStudent = "student"
	RoleMentor  = "mentor"
	RoleAdmin   = "admin"
	RoleSystem  = "system"
)

// ActivityActor represents whoever triggered a lifecycle change.
type ActivityActor struct {
	ID   uint
	Role string
}

// SystemActor is used for changes made by the reconciler.
var SystemActor = ActivityActor{Role: RoleSystem}

// NormalizeRole folds a raw role value into the engine's vocabulary.
func NormalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// IsCallerRole reports whether role may be carried by an authenticated caller.
func IsCallerRole(role string) bool {
	switch NormalizeRole(role) {
	case RoleStudent, RoleMentor, RoleAdmin:
		return true
	default:
		return false
	}
}

// Is reports whether the actor holds role.
func (a ActivityActor) Is(role string) bool {
	return NormalizeRole(a.Role) == NormalizeRole(role)
}

func (a ActivityActor) auditRole() string {
	if role := NormalizeRole(a.Role); role != "" {
		return role
	}
	return RoleSystem
}
