package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kitahub/kita-api/internal/models"
	"github.com/kitahub/kita-api/internal/repository"
	appErrors "github.com/kitahub/kita-api/pkg/errors"
)

type deletionRequestStore interface {
	Create(ctx context.Context, req *models.DeletionRequest, entry *models.PrivacyAuditLog) error
	GetByID(ctx context.Context, id string) (*models.DeletionRequest, error)
	List(ctx context.Context, filter models.DeletionRequestFilter) ([]models.DeletionRequest, int, error)
	Approve(ctx context.Context, id, reviewerID string, at time.Time, entry *models.PrivacyAuditLog) error
	Reject(ctx context.Context, id, reviewerID, note string, at time.Time, entry *models.PrivacyAuditLog) error
}

type userHeaderStore interface {
	GetHeader(ctx context.Context, t models.EntityType, id string) (*models.RecordHeader, error)
}

type userSoftDeleter interface {
	SoftDelete(ctx context.Context, actor *models.ActorClaims, t models.EntityType, id, reason string) (*models.CascadeResult, error)
}

// DeletionRequestService runs the reviewed account-deletion workflow. A
// user account is only soft-deleted through an approved request or a direct
// administrative delete, never silently.
type DeletionRequestService struct {
	store     deletionRequestStore
	headers   userHeaderStore
	deleter   userSoftDeleter
	policy    *Policy
	validator *validator.Validate
	logger    *zap.Logger
}

type createDeletionInput struct {
	TargetUserID string `validate:"required"`
	Reason       string `validate:"required,max=500"`
}

// NewDeletionRequestService creates a new instance of DeletionRequestService.
func NewDeletionRequestService(store deletionRequestStore, headers userHeaderStore, deleter userSoftDeleter, policy *Policy, validate *validator.Validate, logger *zap.Logger) *DeletionRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeletionRequestService{store: store, headers: headers, deleter: deleter, policy: policy, validator: validate, logger: logger}
}

// Create opens a pending request for the target user. One pending request
// per user at a time.
func (s *DeletionRequestService) Create(ctx context.Context, actor *models.ActorClaims, targetUserID, reason string) (*models.DeletionRequest, error) {
	if err := s.validator.Struct(createDeletionInput{TargetUserID: targetUserID, Reason: reason}); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a reason of at most 500 characters is required")
	}
	if err := s.policy.AuthorizeDeletionRequest(actor, targetUserID); err != nil {
		return nil, err
	}

	header, err := s.headers.GetHeader(ctx, models.EntityUser, targetUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}
	if header.DeletedAt != nil {
		return nil, appErrors.ErrAlreadyDeleted
	}
	if actor.UserID != targetUserID {
		if err := s.policy.AuthorizeInstitution(actor, header.InstitutionID); err != nil {
			return nil, err
		}
	}

	req := &models.DeletionRequest{
		TargetUserID: targetUserID,
		RequesterID:  actor.UserID,
		Reason:       reason,
	}
	entry := &models.PrivacyAuditLog{
		ActorID:       actor.UserID,
		ActorName:     actor.FullName,
		Action:        models.AuditActionDeleteRequestCreated,
		EntityType:    models.EntityUser,
		EntityID:      targetUserID,
		Detail:        reason,
		InstitutionID: header.InstitutionID,
	}
	if err := s.store.Create(ctx, req, entry); err != nil {
		if errors.Is(err, repository.ErrPendingExists) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a pending deletion request already exists for this user")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}

	s.logger.Info("deletion request created",
		zap.String("request_id", req.ID),
		zap.String("target_user_id", targetUserID),
		zap.String("requester_id", actor.UserID))
	return req, nil
}

// Get loads one request. Non-reviewers may only see their own.
func (s *DeletionRequestService) Get(ctx context.Context, actor *models.ActorClaims, id string) (*models.DeletionRequest, error) {
	req, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}
	if !s.policy.Allows(actor, PolicyReviewDeletionRequest) &&
		actor.UserID != req.RequesterID && actor.UserID != req.TargetUserID {
		return nil, appErrors.ErrForbidden
	}
	return req, nil
}

// List returns requests matching the filter with pagination metadata.
// Non-reviewers are pinned to their own requests.
func (s *DeletionRequestService) List(ctx context.Context, actor *models.ActorClaims, filter models.DeletionRequestFilter) ([]models.DeletionRequest, *models.Pagination, error) {
	if !s.policy.Allows(actor, PolicyReviewDeletionRequest) {
		filter.TargetUserID = actor.UserID
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	requests, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}
	return requests, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Approve decides a pending request and soft-deletes the target account.
// The status flip and the cascade run as separate transactions; a crash in
// between leaves an APPROVED request whose user is still live, which the
// next direct delete resolves.
func (s *DeletionRequestService) Approve(ctx context.Context, actor *models.ActorClaims, id string) (*models.DeletionRequest, error) {
	if err := s.policy.Authorize(actor, PolicyReviewDeletionRequest); err != nil {
		return nil, err
	}
	req, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}
	if req.Status != models.DeletionRequestPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("request is already %s", req.Status))
	}

	at := time.Now().UTC()
	entry := &models.PrivacyAuditLog{
		ActorID:    actor.UserID,
		ActorName:  actor.FullName,
		Action:     models.AuditActionDeleteRequestApproved,
		EntityType: models.EntityUser,
		EntityID:   req.TargetUserID,
		Detail:     fmt.Sprintf("request %s approved", req.ID),
	}
	if err := s.store.Approve(ctx, id, actor.UserID, at, entry); err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "request was decided concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}

	reason := fmt.Sprintf("approved deletion request %s", req.ID)
	if _, err := s.deleter.SoftDelete(ctx, actor, models.EntityUser, req.TargetUserID, reason); err != nil {
		if !appErrors.Is(err, appErrors.ErrAlreadyDeleted) {
			return nil, err
		}
	}

	req.Status = models.DeletionRequestApproved
	req.ReviewerID = &actor.UserID
	req.ReviewedAt = &at
	return req, nil
}

// Reject decides a pending request without touching the target account.
// The reviewer's note is folded into the stored reason.
func (s *DeletionRequestService) Reject(ctx context.Context, actor *models.ActorClaims, id, note string) (*models.DeletionRequest, error) {
	if err := s.policy.Authorize(actor, PolicyReviewDeletionRequest); err != nil {
		return nil, err
	}
	req, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}
	if req.Status != models.DeletionRequestPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("request is already %s", req.Status))
	}

	at := time.Now().UTC()
	entry := &models.PrivacyAuditLog{
		ActorID:    actor.UserID,
		ActorName:  actor.FullName,
		Action:     models.AuditActionDeleteRequestRejected,
		EntityType: models.EntityUser,
		EntityID:   req.TargetUserID,
		Detail:     fmt.Sprintf("request %s rejected: %s", req.ID, note),
	}
	if err := s.store.Reject(ctx, id, actor.UserID, note, at, entry); err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "request was decided concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}

	req.Status = models.DeletionRequestRejected
	req.ReviewerID = &actor.UserID
	req.ReviewedAt = &at
	req.Reason = req.Reason + models.RejectionSeparator + note
	return req, nil
}
