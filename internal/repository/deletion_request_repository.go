package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/kitahub/kita-api/internal/models"
)

// ErrPendingExists signals that the target user already has an open request.
var ErrPendingExists = errors.New("pending deletion request exists")

// ErrNotPending signals a review attempt on a request already decided.
var ErrNotPending = errors.New("deletion request is not pending")

// DeletionRequestRepository persists the reviewed account-deletion workflow.
type DeletionRequestRepository struct {
	db    *sqlx.DB
	audit *AuditRepository
}

// NewDeletionRequestRepository creates a new instance of DeletionRequestRepository.
func NewDeletionRequestRepository(db *sqlx.DB, audit *AuditRepository) *DeletionRequestRepository {
	return &DeletionRequestRepository{db: db, audit: audit}
}

// Create opens a pending request and appends the audit entry in one
// transaction. At most one pending request may exist per target user: the
// count check gives concurrent callers a clean error early, and the partial
// unique index on (target_user_id) WHERE status = 'PENDING' closes the race
// two transactions passing the check at once would otherwise leave open.
func (r *DeletionRequestRepository) Create(ctx context.Context, req *models.DeletionRequest, entry *models.PrivacyAuditLog) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	req.Status = models.DeletionRequestPending

	return Tx(ctx, r.db, func(tx *sqlx.Tx) error {
		var open int
		if err := tx.GetContext(ctx, &open,
			`SELECT COUNT(*) FROM deletion_requests WHERE target_user_id = $1 AND status = $2`,
			req.TargetUserID, models.DeletionRequestPending); err != nil {
			return fmt.Errorf("check pending requests: %w", err)
		}
		if open > 0 {
			return ErrPendingExists
		}

		const query = `INSERT INTO deletion_requests (id, target_user_id, requester_id, reason, status, created_at)
			VALUES (:id, :target_user_id, :requester_id, :reason, :status, :created_at)`
		if _, err := sqlx.NamedExecContext(ctx, tx, query, req); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
				return ErrPendingExists
			}
			return fmt.Errorf("insert deletion request: %w", err)
		}
		return r.audit.Insert(ctx, tx, entry)
	})
}

// GetByID loads one request.
func (r *DeletionRequestRepository) GetByID(ctx context.Context, id string) (*models.DeletionRequest, error) {
	const query = `SELECT id, target_user_id, requester_id, reason, status, reviewer_id, reviewed_at, created_at
		FROM deletion_requests WHERE id = $1`
	var req models.DeletionRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns requests matching the filter, newest first, with the total
// count for pagination.
func (r *DeletionRequestRepository) List(ctx context.Context, filter models.DeletionRequestFilter) ([]models.DeletionRequest, int, error) {
	baseQuery := `FROM deletion_requests WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.TargetUserID != "" {
		conditions = append(conditions, fmt.Sprintf("target_user_id = $%d", len(args)+1))
		args = append(args, filter.TargetUserID)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count deletion requests: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	query := fmt.Sprintf(`SELECT id, target_user_id, requester_id, reason, status, reviewer_id, reviewed_at, created_at %s
		ORDER BY created_at DESC LIMIT %d OFFSET %d`, baseQuery, pageSize, (page-1)*pageSize)

	var requests []models.DeletionRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list deletion requests: %w", err)
	}
	return requests, total, nil
}

// Approve flips a pending request to APPROVED and appends the audit entry.
// The caller performs the actual soft delete afterwards; a guard on status
// keeps double reviews out.
func (r *DeletionRequestRepository) Approve(ctx context.Context, id, reviewerID string, at time.Time, entry *models.PrivacyAuditLog) error {
	return Tx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE deletion_requests SET status = $2, reviewer_id = $3, reviewed_at = $4 WHERE id = $1 AND status = $5`,
			id, models.DeletionRequestApproved, reviewerID, at, models.DeletionRequestPending)
		if err != nil {
			return fmt.Errorf("approve deletion request: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotPending
		}
		return r.audit.Insert(ctx, tx, entry)
	})
}

// Reject flips a pending request to REJECTED, folds the reviewer's note
// into the stored reason, and appends the audit entry.
func (r *DeletionRequestRepository) Reject(ctx context.Context, id, reviewerID, note string, at time.Time, entry *models.PrivacyAuditLog) error {
	return Tx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE deletion_requests SET status = $2, reviewer_id = $3, reviewed_at = $4,
				reason = reason || $5 WHERE id = $1 AND status = $6`,
			id, models.DeletionRequestRejected, reviewerID, at,
			models.RejectionSeparator+note, models.DeletionRequestPending)
		if err != nil {
			return fmt.Errorf("reject deletion request: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotPending
		}
		return r.audit.Insert(ctx, tx, entry)
	})
}
