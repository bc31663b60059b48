package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kitahub/kita-api/internal/models"
	"github.com/kitahub/kita-api/internal/repository"
	appErrors "github.com/kitahub/kita-api/pkg/errors"
)

// anomalyMinCount keeps low-volume noise out of the anomaly list. A day
// needs at least this many events before it can be flagged at all.
const anomalyMinCount = 10

type complianceAuditStore interface {
	ActionCount(ctx context.Context, from, to time.Time, institutionID *string) (map[string]int, error)
	DailyActionCounts(ctx context.Context, from, to time.Time, institutionID *string) (map[string]map[string]int, error)
}

type complianceLifecycleStore interface {
	SoftDeletedCounts(ctx context.Context, t models.EntityType, cutoff time.Time) (total int, overdue int, err error)
}

type reportCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ComplianceService derives compliance reports from the audit trail and the
// soft-delete backlog. Reports are pure derivations and cached briefly;
// nothing here mutates state.
type ComplianceService struct {
	audit     complianceAuditStore
	lifecycle complianceLifecycleStore
	retention *RetentionService
	cache     reportCache
	policy    *Policy
	metrics   *MetricsService
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewComplianceService creates a new instance of ComplianceService. cache
// may be nil, which disables report caching.
func NewComplianceService(audit complianceAuditStore, lifecycle complianceLifecycleStore, retention *RetentionService, cache reportCache, policy *Policy, metrics *MetricsService, logger *zap.Logger, cacheTTL time.Duration) *ComplianceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &ComplianceService{
		audit:     audit,
		lifecycle: lifecycle,
		retention: retention,
		cache:     cache,
		policy:    policy,
		metrics:   metrics,
		logger:    logger,
		cacheTTL:  cacheTTL,
	}
}

// Report builds the compliance report for the trailing period. ADMIN actors
// get a report scoped to their institution regardless of what they ask for.
func (s *ComplianceService) Report(ctx context.Context, actor *models.ActorClaims, periodDays int, institutionID *string) (*models.ComplianceReport, error) {
	if err := s.policy.Authorize(actor, PolicyViewCompliance); err != nil {
		return nil, err
	}
	if actor.Role == models.RoleAdmin {
		institutionID = actor.InstitutionID
	}
	if periodDays < 1 || periodDays > 365 {
		periodDays = 30
	}

	key := reportCacheKey(periodDays, institutionID)
	if s.cache != nil {
		var cached models.ComplianceReport
		if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		} else if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn("compliance cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	report, err := s.generate(ctx, periodDays, institutionID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, report, s.cacheTTL); err != nil {
			s.logger.Warn("compliance cache write failed", zap.Error(err))
		}
	}
	return report, nil
}

func (s *ComplianceService) generate(ctx context.Context, periodDays int, institutionID *string) (*models.ComplianceReport, error) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -periodDays)

	actionCounts, err := s.audit.ActionCount(ctx, from, to, institutionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}
	daily, err := s.audit.DailyActionCounts(ctx, from, to, institutionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}

	report := &models.ComplianceReport{
		PeriodDays:    periodDays,
		From:          from,
		To:            to,
		InstitutionID: institutionID,
		ExportEvents:  actionCounts[models.AuditActionDataExported],
		Complaints:    actionCounts[models.AuditActionPrivacyComplaint],
		GeneratedAt:   to,
	}
	for _, action := range models.DeletionActions {
		report.DeletionEvents += actionCounts[action]
	}
	// Processing covers every other action: generic processing events,
	// request reviews, backup checks, future codes. Counting the remainder
	// keeps new audit actions from falling out of the report.
	for _, n := range actionCounts {
		report.ProcessingEvents += n
	}
	report.ProcessingEvents -= report.DeletionEvents + report.ExportEvents + report.Complaints

	for _, t := range models.AllEntityTypes() {
		desc, ok := models.Descriptor(t)
		if !ok || !desc.SoftDeletable {
			continue
		}
		total, overdue, err := s.lifecycle.SoftDeletedCounts(ctx, t, s.retention.Cutoff(t, to))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
		}
		report.SoftDeletedTotal += total
		report.OverdueUnpurged += overdue
	}

	report.Anomalies = detectAnomalies(daily, periodDays)
	report.ComplianceScore = complianceScore(report)
	report.Recommendations = buildRecommendations(report)
	return report, nil
}

// detectAnomalies flags days where an action's volume exceeds three times
// its period mean. Severity grows with the multiple of the mean.
func detectAnomalies(daily map[string]map[string]int, periodDays int) []models.Anomaly {
	var anomalies []models.Anomaly
	for action, days := range daily {
		total := 0
		for _, n := range days {
			total += n
		}
		mean := float64(total) / float64(periodDays)
		if mean <= 0 {
			continue
		}
		threshold := 3 * mean
		for day, count := range days {
			if count < anomalyMinCount || float64(count) <= threshold {
				continue
			}
			ratio := float64(count) / mean
			severity := models.SeverityLow
			switch {
			case ratio >= 8:
				severity = models.SeverityHigh
			case ratio >= 5:
				severity = models.SeverityMedium
			}
			anomalies = append(anomalies, models.Anomaly{
				Action:    action,
				Date:      day,
				Count:     count,
				Threshold: threshold,
				Severity:  severity,
			})
		}
	}
	return anomalies
}

// complianceScore starts at 100 and subtracts penalties for anomalies and
// for soft-deleted records kept past their retention window.
func complianceScore(report *models.ComplianceReport) int {
	score := 100
	for _, a := range report.Anomalies {
		switch a.Severity {
		case models.SeverityHigh:
			score -= 10
		case models.SeverityMedium:
			score -= 5
		default:
			score -= 2
		}
	}
	if report.SoftDeletedTotal > 0 {
		staleRatio := float64(report.OverdueUnpurged) / float64(report.SoftDeletedTotal)
		score -= int(30 * staleRatio)
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

func buildRecommendations(report *models.ComplianceReport) []models.Recommendation {
	var recs []models.Recommendation
	high := 0
	for _, a := range report.Anomalies {
		if a.Severity == models.SeverityHigh {
			high++
		}
	}
	if high > 0 {
		recs = append(recs, models.Recommendation{
			Priority: "HIGH",
			Message:  fmt.Sprintf("Investigate %d high-severity activity anomalies in the audit trail", high),
		})
	}
	if report.Complaints > 0 {
		recs = append(recs, models.Recommendation{
			Priority: "HIGH",
			Message:  fmt.Sprintf("Review %d open privacy complaints", report.Complaints),
		})
	}
	if report.OverdueUnpurged > 0 {
		recs = append(recs, models.Recommendation{
			Priority: "MEDIUM",
			Message:  fmt.Sprintf("Run a retention purge: %d soft-deleted records are past their retention window", report.OverdueUnpurged),
		})
	}
	if len(report.Anomalies) > high {
		recs = append(recs, models.Recommendation{
			Priority: "LOW",
			Message:  "Review remaining activity anomalies during the next compliance audit",
		})
	}
	return recs
}

func reportCacheKey(periodDays int, institutionID *string) string {
	scope := "all"
	if institutionID != nil {
		scope = *institutionID
	}
	return fmt.Sprintf("gdpr:compliance:%d:%s", periodDays, scope)
}
