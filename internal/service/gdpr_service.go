package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kitahub/kita-api/internal/models"
	"github.com/kitahub/kita-api/internal/repository"
	appErrors "github.com/kitahub/kita-api/pkg/errors"
)

type lifecycleStore interface {
	GetHeader(ctx context.Context, t models.EntityType, id string) (*models.RecordHeader, error)
	CountActiveChildren(ctx context.Context, groupID string) (int, error)
	SoftDeleteCascade(ctx context.Context, root models.EntityType, id string, at time.Time, entry *models.PrivacyAuditLog) (models.CascadeCounts, error)
}

type cacheInvalidator interface {
	DeletePattern(ctx context.Context, pattern string) error
}

// reportCachePattern matches every cached compliance report.
const reportCachePattern = "gdpr:compliance:*"

// GDPRService performs soft-delete cascades. A cascade marks the root and
// its dependents in a single transaction together with the audit entry, so
// either everything becomes invisible at once or nothing does.
type GDPRService struct {
	store   lifecycleStore
	policy  *Policy
	metrics *MetricsService
	cache   cacheInvalidator
	logger  *zap.Logger
}

// SetReportCache wires the compliance report cache for invalidation after
// successful cascades.
func (s *GDPRService) SetReportCache(cache cacheInvalidator) {
	s.cache = cache
}

// NewGDPRService creates a new instance of GDPRService.
func NewGDPRService(store lifecycleStore, policy *Policy, metrics *MetricsService, logger *zap.Logger) *GDPRService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GDPRService{store: store, policy: policy, metrics: metrics, logger: logger}
}

// SoftDelete marks a record and its dependents as deleted.
//
// Re-deleting an already-deleted group or institution is a silent no-op,
// matching how bulk site teardowns are retried. Re-deleting a user is a
// conflict, because user deletions are individually reviewed and a second
// request signals a process error.
func (s *GDPRService) SoftDelete(ctx context.Context, actor *models.ActorClaims, t models.EntityType, id, reason string) (*models.CascadeResult, error) {
	desc, ok := models.Descriptor(t)
	if !ok || models.CascadeOrder(t) == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s records cannot be soft-deleted directly", t))
	}
	if err := s.policy.Authorize(actor, PolicySoftDelete); err != nil {
		return nil, err
	}

	header, err := s.store.GetHeader(ctx, t, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}
	if err := s.policy.AuthorizeInstitution(actor, header.InstitutionID); err != nil {
		return nil, err
	}

	if header.DeletedAt != nil {
		if desc.IdempotentSoftDelete {
			return &models.CascadeResult{Primary: *header, NoOp: true}, nil
		}
		return nil, appErrors.ErrAlreadyDeleted
	}

	if t == models.EntityGroup {
		active, err := s.store.CountActiveChildren(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
		}
		if active > 0 {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("group still has %d active children", active))
		}
	}

	at := time.Now().UTC()
	entry := &models.PrivacyAuditLog{
		ActorID:       actor.UserID,
		ActorName:     actor.FullName,
		Action:        models.SoftDeleteAction(t),
		EntityType:    t,
		EntityID:      id,
		Detail:        reason,
		InstitutionID: header.InstitutionID,
		CreatedAt:     at,
	}

	counts, err := s.store.SoftDeleteCascade(ctx, t, id, at, entry)
	if err != nil {
		if errors.Is(err, repository.ErrNothingMarked) {
			if desc.IdempotentSoftDelete {
				return &models.CascadeResult{Primary: *header, NoOp: true}, nil
			}
			return nil, appErrors.ErrAlreadyDeleted
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}

	s.metrics.RecordSoftDelete(t)
	if s.cache != nil {
		if err := s.cache.DeletePattern(ctx, reportCachePattern); err != nil {
			s.logger.Warn("failed to invalidate compliance cache", zap.Error(err))
		}
	}
	s.logger.Info("record soft-deleted",
		zap.String("entity_type", string(t)),
		zap.String("entity_id", id),
		zap.String("actor_id", actor.UserID),
		zap.String("cascaded", counts.Summary()))

	header.DeletedAt = &at
	return &models.CascadeResult{Primary: *header, Cascaded: counts}, nil
}
