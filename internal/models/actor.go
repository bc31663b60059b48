package models

import "github.com/golang-jwt/jwt/v5"

// Role represents the platform roles attached to authenticated actors.
type Role string

const (
	RoleParent     Role = "PARENT"
	RoleEducator   Role = "EDUCATOR"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// SystemActorID attributes scheduled jobs in the audit trail.
const SystemActorID = "system"

// ActorClaims is the JWT payload issued by the platform's session service.
// This API only consumes tokens; it never issues them.
type ActorClaims struct {
	UserID        string  `json:"user_id"`
	Role          Role    `json:"role"`
	Email         string  `json:"email"`
	FullName      string  `json:"full_name"`
	InstitutionID *string `json:"institution_id,omitempty"`
	jwt.RegisteredClaims
}

// SystemActor returns the claims used for scheduler-triggered operations.
func SystemActor() *ActorClaims {
	return &ActorClaims{UserID: SystemActorID, Role: RoleSuperAdmin, FullName: "Scheduled Job"}
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
