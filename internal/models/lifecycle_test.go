package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPurgeOrderCoversEveryType(t *testing.T) {
	require.Len(t, PurgeOrder, len(AllEntityTypes()))
	seen := map[EntityType]bool{}
	for _, et := range PurgeOrder {
		require.False(t, seen[et], "duplicate %s", et)
		seen[et] = true
	}
}

func TestPurgeOrderDependentsBeforeOwners(t *testing.T) {
	pos := map[EntityType]int{}
	for i, et := range PurgeOrder {
		pos[et] = i
	}

	// Each pair is dependent first, owner second.
	pairs := [][2]EntityType{
		{EntityChild, EntityGroup},
		{EntityGroup, EntityInstitution},
		{EntityNote, EntityChild},
		{EntityNote, EntityUser},
		{EntityMessage, EntityUser},
		{EntityPersonalTask, EntityUser},
		{EntityNotification, EntityUser},
		{EntityClosedDay, EntityInstitution},
		{EntityFailedLogin, EntityUser},
	}
	for _, pair := range pairs {
		require.Lessf(t, pos[pair[0]], pos[pair[1]], "%s must purge before %s", pair[0], pair[1])
	}
	require.Equal(t, EntityAuditLog, PurgeOrder[len(PurgeOrder)-1])
}

func TestCascadeOrderOwnersFirst(t *testing.T) {
	require.Equal(t, []EntityType{EntityInstitution, EntityGroup, EntityChild}, CascadeOrder(EntityInstitution))
	require.Equal(t, []EntityType{EntityGroup}, CascadeOrder(EntityGroup))
	require.Equal(t, []EntityType{EntityChild}, CascadeOrder(EntityChild))
	require.Equal(t, []EntityType{EntityUser}, CascadeOrder(EntityUser))
	require.Nil(t, CascadeOrder(EntityMessage))
}

func TestRetentionCutoffWholeMonths(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2023, 9, 1, 12, 0, 0, 0, time.UTC), RetentionCutoff(now, 36))
	require.Equal(t, time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC), RetentionCutoff(now, 3))
}

func TestParseEntityType(t *testing.T) {
	et, ok := ParseEntityType(" Child ")
	require.True(t, ok)
	require.Equal(t, EntityChild, et)

	_, ok = ParseEntityType("dragon")
	require.False(t, ok)
}

func TestCascadeCountsSummaryStableOrder(t *testing.T) {
	counts := CascadeCounts{EntityGroup: 2, EntityChild: 5}
	require.Equal(t, "child=5, group=2", counts.Summary())
	require.Empty(t, CascadeCounts{}.Summary())
}

func TestSoftDeleteActionMapping(t *testing.T) {
	require.Equal(t, AuditActionUserSoftDeleted, SoftDeleteAction(EntityUser))
	require.Equal(t, AuditActionInstitutionSoftDeleted, SoftDeleteAction(EntityInstitution))
	require.Equal(t, AuditActionDataProcessed, SoftDeleteAction(EntityMessage))
}
