package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kitahub/kita-api/internal/models"
)

type auditStore interface {
	Append(ctx context.Context, entry *models.PrivacyAuditLog) error
	Query(ctx context.Context, filter models.AuditLogFilter) ([]models.PrivacyAuditLog, error)
}

// AuditService exposes the privacy audit trail and records standalone
// events. Mutating operations audit themselves inside their own
// transactions and never go through here.
type AuditService struct {
	store  auditStore
	logger *zap.Logger
}

// NewAuditService creates a new instance of AuditService.
func NewAuditService(store auditStore, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{store: store, logger: logger}
}

// Query returns trail entries matching the filter, newest first. ADMIN
// actors are confined to their own institution by the caller-supplied
// filter.
func (s *AuditService) Query(ctx context.Context, filter models.AuditLogFilter) ([]models.PrivacyAuditLog, error) {
	return s.store.Query(ctx, filter)
}

// RecordProcessing appends a DATA_PROCESSED entry for a processing activity
// outside the built-in operations.
func (s *AuditService) RecordProcessing(ctx context.Context, actor *models.ActorClaims, entityType models.EntityType, entityID, detail string) error {
	return s.store.Append(ctx, &models.PrivacyAuditLog{
		ActorID:       actor.UserID,
		ActorName:     actor.FullName,
		Action:        models.AuditActionDataProcessed,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		InstitutionID: actor.InstitutionID,
		CreatedAt:     time.Now().UTC(),
	})
}

// RecordComplaint appends a PRIVACY_COMPLAINT entry. Complaints feed the
// compliance analyzer and always push recommendations.
func (s *AuditService) RecordComplaint(ctx context.Context, actor *models.ActorClaims, detail string) error {
	entry := &models.PrivacyAuditLog{
		ActorID:       actor.UserID,
		ActorName:     actor.FullName,
		Action:        models.AuditActionPrivacyComplaint,
		EntityType:    models.EntityUser,
		EntityID:      actor.UserID,
		Detail:        detail,
		InstitutionID: actor.InstitutionID,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.Append(ctx, entry); err != nil {
		return err
	}
	s.logger.Warn("privacy complaint recorded",
		zap.String("actor_id", actor.UserID),
		zap.String("entry_id", entry.ID))
	return nil
}
