package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kitahub/kita-api/internal/models"
	appErrors "github.com/kitahub/kita-api/pkg/errors"
)

func TestPolicyRoleTable(t *testing.T) {
	policy := NewPolicy()
	cases := []struct {
		action  PolicyAction
		role    models.Role
		allowed bool
	}{
		{PolicySoftDelete, models.RoleParent, false},
		{PolicySoftDelete, models.RoleEducator, false},
		{PolicySoftDelete, models.RoleAdmin, true},
		{PolicySoftDelete, models.RoleSuperAdmin, true},
		{PolicyRunPurge, models.RoleAdmin, false},
		{PolicyRunPurge, models.RoleSuperAdmin, true},
		{PolicyVerifyBackup, models.RoleAdmin, false},
		{PolicyVerifyBackup, models.RoleSuperAdmin, true},
		{PolicyViewAuditTrail, models.RoleEducator, false},
		{PolicyViewAuditTrail, models.RoleAdmin, true},
		{PolicyViewCompliance, models.RoleAdmin, true},
		{PolicyCreateDeletionRequest, models.RoleParent, true},
		{PolicyCreateDeletionRequest, models.RoleEducator, false},
		{PolicyReviewDeletionRequest, models.RoleParent, false},
		{PolicyReviewDeletionRequest, models.RoleAdmin, true},
		{PolicyExportData, models.RoleParent, false},
		{PolicyExportData, models.RoleAdmin, true},
	}
	for _, tc := range cases {
		claims := &models.ActorClaims{UserID: "u", Role: tc.role}
		require.Equalf(t, tc.allowed, policy.Allows(claims, tc.action), "%s / %s", tc.action, tc.role)
	}
}

func TestPolicyAuthorizeInstitutionScopes(t *testing.T) {
	policy := NewPolicy()
	mine := "inst-1"
	other := "inst-2"

	require.NoError(t, policy.AuthorizeInstitution(superAdminActor(), &other))
	require.NoError(t, policy.AuthorizeInstitution(superAdminActor(), nil))
	require.NoError(t, policy.AuthorizeInstitution(models.SystemActor(), &other))

	admin := adminActor()
	require.NoError(t, policy.AuthorizeInstitution(admin, &mine))
	require.True(t, appErrors.Is(policy.AuthorizeInstitution(admin, &other), appErrors.ErrForbidden))
	require.True(t, appErrors.Is(policy.AuthorizeInstitution(admin, nil), appErrors.ErrForbidden))
	require.True(t, appErrors.Is(policy.AuthorizeInstitution(parentActor("p"), &mine), appErrors.ErrForbidden))
}

func TestPolicyAuthorizeExportAdmitsSelf(t *testing.T) {
	policy := NewPolicy()

	require.NoError(t, policy.AuthorizeExport(parentActor("user-1"), "user-1"))
	require.True(t, appErrors.Is(policy.AuthorizeExport(parentActor("user-1"), "user-2"), appErrors.ErrForbidden))
	require.NoError(t, policy.AuthorizeExport(adminActor(), "user-2"))
}
