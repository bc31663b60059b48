package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/kitahub/kita-api/internal/models"
)

func TestDeletionRequestRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDeletionRequestRepository(db, NewAuditRepository(db))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM deletion_requests")).
		WithArgs("user-1", models.DeletionRequestPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO deletion_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO privacy_audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	req := &models.DeletionRequest{
		TargetUserID: "user-1",
		RequesterID:  "user-1",
		Reason:       "leaving the platform",
	}
	entry := &models.PrivacyAuditLog{
		ActorID:    "user-1",
		Action:     models.AuditActionDeleteRequestCreated,
		EntityType: models.EntityUser,
		EntityID:   "user-1",
	}
	require.NoError(t, repo.Create(context.Background(), req, entry))
	require.NotEmpty(t, req.ID)
	require.Equal(t, models.DeletionRequestPending, req.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletionRequestRepositoryCreateRejectsDuplicatePending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDeletionRequestRepository(db, NewAuditRepository(db))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM deletion_requests")).
		WithArgs("user-1", models.DeletionRequestPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	req := &models.DeletionRequest{TargetUserID: "user-1", RequesterID: "user-1", Reason: "again"}
	err := repo.Create(context.Background(), req, &models.PrivacyAuditLog{})
	require.ErrorIs(t, err, ErrPendingExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletionRequestRepositoryCreateMapsUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDeletionRequestRepository(db, NewAuditRepository(db))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM deletion_requests")).
		WithArgs("user-1", models.DeletionRequestPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO deletion_requests")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "deletion_requests_one_pending_per_user"})
	mock.ExpectRollback()

	req := &models.DeletionRequest{TargetUserID: "user-1", RequesterID: "user-1", Reason: "racing"}
	err := repo.Create(context.Background(), req, &models.PrivacyAuditLog{})
	require.ErrorIs(t, err, ErrPendingExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletionRequestRepositoryListPaginates(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDeletionRequestRepository(db, NewAuditRepository(db))
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM deletion_requests")).
		WithArgs(models.DeletionRequestPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
	rows := sqlmock.NewRows([]string{"id", "target_user_id", "requester_id", "reason", "status", "reviewer_id", "reviewed_at", "created_at"}).
		AddRow("req-1", "user-1", "user-1", "leaving", models.DeletionRequestPending, nil, nil, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, target_user_id, requester_id, reason, status")).
		WithArgs(models.DeletionRequestPending).
		WillReturnRows(rows)

	requests, total, err := repo.List(context.Background(), models.DeletionRequestFilter{
		Status:   models.DeletionRequestPending,
		Page:     2,
		PageSize: 20,
	})
	require.NoError(t, err)
	require.Equal(t, 42, total)
	require.Len(t, requests, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletionRequestRepositoryApproveGuardsStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDeletionRequestRepository(db, NewAuditRepository(db))
	at := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE deletion_requests SET status")).
		WithArgs("req-1", models.DeletionRequestApproved, "admin-1", at, models.DeletionRequestPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Approve(context.Background(), "req-1", "admin-1", at, &models.PrivacyAuditLog{})
	require.ErrorIs(t, err, ErrNotPending)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletionRequestRepositoryRejectFoldsReason(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDeletionRequestRepository(db, NewAuditRepository(db))
	at := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE deletion_requests SET status")).
		WithArgs("req-1", models.DeletionRequestRejected, "admin-1", at,
			models.RejectionSeparator+"needs billing closure first", models.DeletionRequestPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO privacy_audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Reject(context.Background(), "req-1", "admin-1", "needs billing closure first", at, &models.PrivacyAuditLog{
		Action: models.AuditActionDeleteRequestRejected,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
