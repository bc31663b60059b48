package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kitahub/kita-api/internal/dto"
	"github.com/kitahub/kita-api/internal/models"
)

type retentionLifecycleStore interface {
	ListSoftDeleted(ctx context.Context, t models.EntityType, institutionID *string, limit int) ([]models.RecordHeader, error)
}

// RetentionService is the single source of truth for effective retention
// windows. Built-in defaults apply unless configuration overrides them.
type RetentionService struct {
	store     retentionLifecycleStore
	overrides map[string]int
	logger    *zap.Logger
}

// NewRetentionService creates a new instance of RetentionService.
func NewRetentionService(store retentionLifecycleStore, overrides map[string]int, logger *zap.Logger) *RetentionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	for name, months := range overrides {
		if _, ok := models.ParseEntityType(name); !ok {
			logger.Warn("ignoring retention override for unknown entity type", zap.String("entity_type", name))
			delete(overrides, name)
		} else {
			logger.Info("retention override active", zap.String("entity_type", name), zap.Int("months", months))
		}
	}
	return &RetentionService{store: store, overrides: overrides, logger: logger}
}

// EffectiveRetention returns the retention window in whole months for a type.
func (s *RetentionService) EffectiveRetention(t models.EntityType) int {
	if months, ok := s.overrides[string(t)]; ok {
		return months
	}
	desc, ok := models.Descriptor(t)
	if !ok {
		return 0
	}
	return desc.RetentionMonths
}

// Cutoff computes the purge threshold for a type as of now.
func (s *RetentionService) Cutoff(t models.EntityType, now time.Time) time.Time {
	return models.RetentionCutoff(now, s.EffectiveRetention(t))
}

// Periods dumps the full effective policy table in stable type order.
func (s *RetentionService) Periods() []dto.RetentionPeriod {
	types := models.AllEntityTypes()
	periods := make([]dto.RetentionPeriod, 0, len(types))
	for _, t := range types {
		periods = append(periods, dto.RetentionPeriod{
			EntityType:      string(t),
			RetentionMonths: s.EffectiveRetention(t),
		})
	}
	return periods
}

// PendingDeletions lists soft-deleted records of the given types annotated
// with their permanent-deletion horizon, most overdue first per type.
// Passing no types covers every soft-deletable type. A non-nil
// institutionID restricts the listing to that institution's records.
func (s *RetentionService) PendingDeletions(ctx context.Context, types []models.EntityType, institutionID *string, limit int) ([]models.PendingDeletion, error) {
	if len(types) == 0 {
		for _, t := range models.AllEntityTypes() {
			if desc, ok := models.Descriptor(t); ok && desc.SoftDeletable {
				types = append(types, t)
			}
		}
	}

	now := time.Now().UTC()
	var pending []models.PendingDeletion
	for _, t := range types {
		headers, err := s.store.ListSoftDeleted(ctx, t, institutionID, limit)
		if err != nil {
			return nil, err
		}
		months := s.EffectiveRetention(t)
		for _, h := range headers {
			if h.DeletedAt == nil {
				continue
			}
			horizon := h.DeletedAt.AddDate(0, months, 0)
			pending = append(pending, models.PendingDeletion{
				EntityType:                 t,
				ID:                         h.ID,
				DisplayName:                h.DisplayName,
				DeletedAt:                  *h.DeletedAt,
				RetentionMonths:            months,
				PermanentDeletionAt:        horizon,
				DaysUntilPermanentDeletion: int(horizon.Sub(now).Hours() / 24),
			})
		}
	}
	return pending, nil
}
