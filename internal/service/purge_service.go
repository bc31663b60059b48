package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kitahub/kita-api/internal/models"
	appErrors "github.com/kitahub/kita-api/pkg/errors"
)

const purgeLockKey = "gdpr:purge:lock"

type purgeStore interface {
	PurgeExpired(ctx context.Context, t models.EntityType, cutoff time.Time, limit int) (int64, error)
}

type purgeAuditStore interface {
	Append(ctx context.Context, entry *models.PrivacyAuditLog) error
}

type purgeLocker interface {
	AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, owner string) error
}

// PurgeService permanently erases records whose retention window lapsed.
// Runs are single-flight: a local flag blocks concurrent runs in-process
// and a Redis lock blocks them across instances.
type PurgeService struct {
	store     purgeStore
	audit     purgeAuditStore
	retention *RetentionService
	locker    purgeLocker
	policy    *Policy
	metrics   *MetricsService
	cache     cacheInvalidator
	logger    *zap.Logger
	batchSize int
	lockTTL   time.Duration
	running   atomic.Bool
}

// SetReportCache wires the compliance report cache for invalidation after
// purge runs.
func (s *PurgeService) SetReportCache(cache cacheInvalidator) {
	s.cache = cache
}

// NewPurgeService creates a new instance of PurgeService. locker may be nil
// in single-instance deployments.
func NewPurgeService(store purgeStore, audit purgeAuditStore, retention *RetentionService, locker purgeLocker, policy *Policy, metrics *MetricsService, logger *zap.Logger, batchSize int, lockTTL time.Duration) *PurgeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	if lockTTL <= 0 {
		lockTTL = 30 * time.Minute
	}
	return &PurgeService{
		store:     store,
		audit:     audit,
		retention: retention,
		locker:    locker,
		policy:    policy,
		metrics:   metrics,
		logger:    logger,
		batchSize: batchSize,
		lockTTL:   lockTTL,
	}
}

// Run purges every purgeable type in dependency order, dependents strictly
// before owners. overrideMonths, when set, replaces every retention window
// for this run only. Per-type failures are collected, not fatal: one broken
// table must not stall the erasure of the rest.
func (s *PurgeService) Run(ctx context.Context, actor *models.ActorClaims, overrideMonths *int) (*models.PurgeResult, error) {
	if actor.UserID != models.SystemActorID {
		if err := s.policy.Authorize(actor, PolicyRunPurge); err != nil {
			return nil, err
		}
	}
	if overrideMonths != nil && *overrideMonths <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "retention_months must be positive")
	}

	if !s.running.CompareAndSwap(false, true) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a purge run is already in progress")
	}
	defer s.running.Store(false)

	owner := uuid.NewString()
	if s.locker != nil {
		acquired, err := s.locker.AcquireLock(ctx, purgeLockKey, owner, s.lockTTL)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "purge lock unavailable")
		}
		if !acquired {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a purge run is already in progress")
		}
		defer func() {
			if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), purgeLockKey, owner); err != nil {
				s.logger.Error("failed to release purge lock", zap.Error(err))
			}
		}()
	}

	now := time.Now().UTC()
	result := &models.PurgeResult{
		Purged:          make(map[models.EntityType]int64),
		RetentionMonths: make(map[models.EntityType]int),
		StartedAt:       now,
	}

	for _, t := range models.PurgeOrder {
		months := s.retention.EffectiveRetention(t)
		if overrideMonths != nil {
			months = *overrideMonths
		}
		result.RetentionMonths[t] = months
		cutoff := models.RetentionCutoff(now, months)

		for {
			n, err := s.store.PurgeExpired(ctx, t, cutoff, s.batchSize)
			if err != nil {
				s.logger.Error("purge batch failed",
					zap.String("entity_type", string(t)),
					zap.Error(err))
				result.Failures = append(result.Failures, models.PurgeFailure{
					EntityType: t,
					Error:      err.Error(),
				})
				break
			}
			result.Purged[t] += n
			result.TotalPurged += n
			if n < int64(s.batchSize) {
				break
			}
		}
	}
	result.FinishedAt = time.Now().UTC()

	outcome := "success"
	if len(result.Failures) > 0 {
		outcome = "partial"
	}
	s.metrics.ObservePurgeRun(result, outcome)
	if s.cache != nil && result.TotalPurged > 0 {
		if err := s.cache.DeletePattern(ctx, reportCachePattern); err != nil {
			s.logger.Warn("failed to invalidate compliance cache", zap.Error(err))
		}
	}

	entry := &models.PrivacyAuditLog{
		ActorID:    actor.UserID,
		ActorName:  actor.FullName,
		Action:     models.AuditActionRetentionPurgeRun,
		EntityType: models.EntityAuditLog,
		EntityID:   owner,
		Detail:     purgeDetail(result, overrideMonths),
		CreatedAt:  result.FinishedAt,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		return result, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "purge completed but audit write failed")
	}

	s.logger.Info("retention purge finished",
		zap.Int64("total_purged", result.TotalPurged),
		zap.Int("failures", len(result.Failures)),
		zap.Duration("took", result.FinishedAt.Sub(result.StartedAt)))
	return result, nil
}

func purgeDetail(result *models.PurgeResult, overrideMonths *int) string {
	counts := models.CascadeCounts{}
	for t, n := range result.Purged {
		counts[t] = n
	}
	detail := fmt.Sprintf("purged %d rows", result.TotalPurged)
	if summary := counts.Summary(); summary != "" {
		detail += " (" + summary + ")"
	}
	if overrideMonths != nil {
		detail += fmt.Sprintf(", retention override %d months", *overrideMonths)
	}
	if len(result.Failures) > 0 {
		detail += fmt.Sprintf(", %d type(s) failed", len(result.Failures))
	}
	return detail
}
