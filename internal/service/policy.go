package service

import (
	"github.com/kitahub/kita-api/internal/models"
	appErrors "github.com/kitahub/kita-api/pkg/errors"
)

// PolicyAction names a privacy operation gated by the authorization table.
type PolicyAction string

const (
	PolicySoftDelete            PolicyAction = "soft_delete"
	PolicyViewPendingDeletions  PolicyAction = "view_pending_deletions"
	PolicyRunPurge              PolicyAction = "run_purge"
	PolicyViewAuditTrail        PolicyAction = "view_audit_trail"
	PolicyViewCompliance        PolicyAction = "view_compliance"
	PolicyCreateDeletionRequest PolicyAction = "create_deletion_request"
	PolicyReviewDeletionRequest PolicyAction = "review_deletion_request"
	PolicyExportData            PolicyAction = "export_data"
	PolicyVerifyBackup          PolicyAction = "verify_backup"
)

// policyRules is the single authoritative role table. Route guards reuse it
// through AllowedRoles so handlers and services cannot drift apart.
var policyRules = map[PolicyAction][]models.Role{
	PolicySoftDelete:            {models.RoleAdmin, models.RoleSuperAdmin},
	PolicyViewPendingDeletions:  {models.RoleAdmin, models.RoleSuperAdmin},
	PolicyRunPurge:              {models.RoleSuperAdmin},
	PolicyViewAuditTrail:        {models.RoleAdmin, models.RoleSuperAdmin},
	PolicyViewCompliance:        {models.RoleAdmin, models.RoleSuperAdmin},
	PolicyCreateDeletionRequest: {models.RoleParent, models.RoleAdmin, models.RoleSuperAdmin},
	PolicyReviewDeletionRequest: {models.RoleAdmin, models.RoleSuperAdmin},
	PolicyExportData:            {models.RoleAdmin, models.RoleSuperAdmin},
	PolicyVerifyBackup:          {models.RoleSuperAdmin},
}

// Policy decides who may perform which privacy operation, and within which
// institution scope.
type Policy struct{}

// NewPolicy creates a new instance of Policy.
func NewPolicy() *Policy {
	return &Policy{}
}

// AllowedRoles returns the roles admitted to an action.
func (p *Policy) AllowedRoles(action PolicyAction) []models.Role {
	return policyRules[action]
}

// Allows reports whether the actor's role is admitted to an action.
func (p *Policy) Allows(claims *models.ActorClaims, action PolicyAction) bool {
	if claims == nil {
		return false
	}
	for _, role := range policyRules[action] {
		if claims.Role == role {
			return true
		}
	}
	return false
}

// Authorize returns ErrForbidden when the actor's role is not admitted.
func (p *Policy) Authorize(claims *models.ActorClaims, action PolicyAction) error {
	if !p.Allows(claims, action) {
		return appErrors.ErrForbidden
	}
	return nil
}

// AuthorizeInstitution additionally confines ADMIN actors to their own
// institution. SUPER_ADMIN operates platform-wide; records without an
// institution (users detached from any site) are SUPER_ADMIN territory.
func (p *Policy) AuthorizeInstitution(claims *models.ActorClaims, institutionID *string) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if claims.Role == models.RoleSuperAdmin || claims.UserID == models.SystemActorID {
		return nil
	}
	if claims.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}
	if claims.InstitutionID == nil || institutionID == nil || *claims.InstitutionID != *institutionID {
		return appErrors.ErrForbidden
	}
	return nil
}

// AuthorizeExport admits the subject themselves plus admitted roles.
func (p *Policy) AuthorizeExport(claims *models.ActorClaims, targetUserID string) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if claims.UserID == targetUserID {
		return nil
	}
	return p.Authorize(claims, PolicyExportData)
}

// AuthorizeDeletionRequest admits users requesting their own deletion plus
// admitted roles requesting on behalf of others.
func (p *Policy) AuthorizeDeletionRequest(claims *models.ActorClaims, targetUserID string) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if claims.UserID == targetUserID {
		return nil
	}
	if claims.Role == models.RoleAdmin || claims.Role == models.RoleSuperAdmin {
		return nil
	}
	return appErrors.ErrForbidden
}
