package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kitahub/kita-api/internal/models"
)

type retentionStoreStub struct {
	headers   map[models.EntityType][]models.RecordHeader
	lastScope *string
}

func (s *retentionStoreStub) ListSoftDeleted(ctx context.Context, t models.EntityType, institutionID *string, limit int) ([]models.RecordHeader, error) {
	s.lastScope = institutionID
	return s.headers[t], nil
}

func TestRetentionServiceDefaultsAndOverrides(t *testing.T) {
	svc := NewRetentionService(&retentionStoreStub{}, map[string]int{
		"user":    12,
		"unicorn": 99,
	}, nil)

	require.Equal(t, 12, svc.EffectiveRetention(models.EntityUser))
	require.Equal(t, 60, svc.EffectiveRetention(models.EntityChild))
	require.Equal(t, 120, svc.EffectiveRetention(models.EntityAuditLog))
}

func TestRetentionServicePeriodsCoverEveryType(t *testing.T) {
	svc := NewRetentionService(&retentionStoreStub{}, nil, nil)

	periods := svc.Periods()
	require.Len(t, periods, len(models.AllEntityTypes()))
	byType := map[string]int{}
	for _, p := range periods {
		byType[p.EntityType] = p.RetentionMonths
	}
	require.Equal(t, 36, byType["user"])
	require.Equal(t, 6, byType["notification"])
}

func TestRetentionServicePendingDeletionsHorizon(t *testing.T) {
	deletedAt := time.Now().UTC().AddDate(0, -35, 0)
	store := &retentionStoreStub{headers: map[models.EntityType][]models.RecordHeader{
		models.EntityUser: {{ID: "user-1", DisplayName: "Mara", DeletedAt: &deletedAt}},
	}}
	svc := NewRetentionService(store, nil, nil)

	pending, err := svc.PendingDeletions(context.Background(), []models.EntityType{models.EntityUser}, nil, 100)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, 36, pending[0].RetentionMonths)
	require.Equal(t, deletedAt.AddDate(0, 36, 0), pending[0].PermanentDeletionAt)
	require.Greater(t, pending[0].DaysUntilPermanentDeletion, 0)
	require.LessOrEqual(t, pending[0].DaysUntilPermanentDeletion, 31)
}

func TestRetentionServicePendingDeletionsPassesScope(t *testing.T) {
	store := &retentionStoreStub{}
	svc := NewRetentionService(store, nil, nil)

	inst := "inst-1"
	_, err := svc.PendingDeletions(context.Background(), []models.EntityType{models.EntityUser}, &inst, 100)
	require.NoError(t, err)
	require.NotNil(t, store.lastScope)
	require.Equal(t, "inst-1", *store.lastScope)
}

func TestRetentionServicePendingDeletionsOverdueGoesNegative(t *testing.T) {
	deletedAt := time.Now().UTC().AddDate(0, -40, 0)
	store := &retentionStoreStub{headers: map[models.EntityType][]models.RecordHeader{
		models.EntityUser: {{ID: "user-1", DeletedAt: &deletedAt}},
	}}
	svc := NewRetentionService(store, nil, nil)

	pending, err := svc.PendingDeletions(context.Background(), []models.EntityType{models.EntityUser}, nil, 100)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Negative(t, pending[0].DaysUntilPermanentDeletion)
}
