package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/kitahub/kita-api/internal/models"
)

func TestLifecycleRepositoryGetHeader(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLifecycleRepository(db, NewAuditRepository(db))
	rows := sqlmock.NewRows([]string{"id", "display_name", "institution_id", "deleted_at"}).
		AddRow("user-1", "Mara Muster", "inst-1", nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name AS display_name, institution_id, deleted_at FROM users")).
		WithArgs("user-1").
		WillReturnRows(rows)

	header, err := repo.GetHeader(context.Background(), models.EntityUser, "user-1")
	require.NoError(t, err)
	require.Equal(t, models.EntityUser, header.EntityType)
	require.Equal(t, "Mara Muster", header.DisplayName)
	require.Nil(t, header.DeletedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleRepositorySoftDeleteCascadeUser(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLifecycleRepository(db, NewAuditRepository(db))
	at := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET deleted_at")).
		WithArgs("user-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO privacy_audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	entry := &models.PrivacyAuditLog{
		ActorID:    "admin-1",
		ActorName:  "Ada Admin",
		Action:     models.AuditActionUserSoftDeleted,
		EntityType: models.EntityUser,
		EntityID:   "user-1",
		Detail:     "account closure",
	}
	counts, err := repo.SoftDeleteCascade(context.Background(), models.EntityUser, "user-1", at, entry)
	require.NoError(t, err)
	require.Empty(t, counts)
	require.Equal(t, "account closure", entry.Detail)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleRepositorySoftDeleteCascadeInstitution(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLifecycleRepository(db, NewAuditRepository(db))
	at := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE institutions SET deleted_at")).
		WithArgs("inst-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE groups SET deleted_at")).
		WithArgs("inst-1", at).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE children SET deleted_at")).
		WithArgs("inst-1", at).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO privacy_audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	entry := &models.PrivacyAuditLog{
		ActorID:    "admin-1",
		ActorName:  "Ada Admin",
		Action:     models.AuditActionInstitutionSoftDeleted,
		EntityType: models.EntityInstitution,
		EntityID:   "inst-1",
		Detail:     "site shut down",
	}
	counts, err := repo.SoftDeleteCascade(context.Background(), models.EntityInstitution, "inst-1", at, entry)
	require.NoError(t, err)
	require.Equal(t, int64(2), counts[models.EntityGroup])
	require.Equal(t, int64(5), counts[models.EntityChild])
	require.Contains(t, entry.Detail, "cascaded: child=5, group=2")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleRepositorySoftDeleteCascadeAlreadyDeleted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLifecycleRepository(db, NewAuditRepository(db))
	at := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET deleted_at")).
		WithArgs("user-1", at).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	entry := &models.PrivacyAuditLog{Action: models.AuditActionUserSoftDeleted, EntityType: models.EntityUser, EntityID: "user-1"}
	_, err := repo.SoftDeleteCascade(context.Background(), models.EntityUser, "user-1", at, entry)
	require.ErrorIs(t, err, ErrNothingMarked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleRepositorySoftDeleteAuditFailureRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLifecycleRepository(db, NewAuditRepository(db))
	at := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET deleted_at")).
		WithArgs("user-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO privacy_audit_logs")).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	entry := &models.PrivacyAuditLog{Action: models.AuditActionUserSoftDeleted, EntityType: models.EntityUser, EntityID: "user-1"}
	_, err := repo.SoftDeleteCascade(context.Background(), models.EntityUser, "user-1", at, entry)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleRepositoryPurgeExpiredSoftDeletable(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLifecycleRepository(db, NewAuditRepository(db))
	cutoff := time.Now().AddDate(0, -12, 0)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM messages WHERE id IN")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := repo.PurgeExpired(context.Background(), models.EntityMessage, cutoff, 500)
	require.NoError(t, err)
	require.Equal(t, int64(7), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleRepositoryPurgeExpiredGroupsSkipLiveChildren(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLifecycleRepository(db, NewAuditRepository(db))
	cutoff := time.Now().AddDate(0, -12, 0)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM groups WHERE id IN (SELECT id FROM groups WHERE deleted_at < $1 AND deleted_at IS NOT NULL AND NOT EXISTS (SELECT 1 FROM children c WHERE c.group_id = groups.id)")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.PurgeExpired(context.Background(), models.EntityGroup, cutoff, 500)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleRepositoryPurgeExpiredInstitutionsSkipLiveDependents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLifecycleRepository(db, NewAuditRepository(db))
	cutoff := time.Now().AddDate(0, -12, 0)

	mock.ExpectExec(regexp.QuoteMeta("NOT EXISTS (SELECT 1 FROM groups g WHERE g.institution_id = institutions.id) AND NOT EXISTS (SELECT 1 FROM users u WHERE u.institution_id = institutions.id) AND NOT EXISTS (SELECT 1 FROM closed_days d WHERE d.institution_id = institutions.id)")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.PurgeExpired(context.Background(), models.EntityInstitution, cutoff, 500)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleRepositoryListSoftDeletedScopedToInstitution(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLifecycleRepository(db, NewAuditRepository(db))
	deletedAt := time.Now().AddDate(0, -1, 0)

	rows := sqlmock.NewRows([]string{"id", "display_name", "deleted_at"}).
		AddRow("user-1", "Mara", deletedAt)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE deleted_at IS NOT NULL AND institution_id = $1")).
		WithArgs("inst-1").
		WillReturnRows(rows)

	inst := "inst-1"
	headers, err := repo.ListSoftDeleted(context.Background(), models.EntityUser, &inst, 100)
	require.NoError(t, err)
	require.Len(t, headers, 1)
	require.Equal(t, "user-1", headers[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleRepositoryListSoftDeletedScopedUnlinkedTypeEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLifecycleRepository(db, NewAuditRepository(db))

	inst := "inst-1"
	headers, err := repo.ListSoftDeleted(context.Background(), models.EntityNote, &inst, 100)
	require.NoError(t, err)
	require.Empty(t, headers)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleRepositoryPurgeExpiredAppendOnlyUsesCreatedAt(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLifecycleRepository(db, NewAuditRepository(db))
	cutoff := time.Now().AddDate(0, -3, 0)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM failed_logins WHERE id IN (SELECT id FROM failed_logins WHERE created_at <")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.PurgeExpired(context.Background(), models.EntityFailedLogin, cutoff, 500)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleRepositoryPurgeExpiredUsersErasesDependents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLifecycleRepository(db, NewAuditRepository(db))
	cutoff := time.Now().AddDate(0, -36, 0)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE deleted_at IS NOT NULL")).
		WithArgs(cutoff, 500).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("user-1").AddRow("user-2"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notes")).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM messages")).WillReturnResult(sqlmock.NewResult(0, 6))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM personal_tasks")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notifications")).WillReturnResult(sqlmock.NewResult(0, 9))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM failed_logins")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM deletion_requests")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE children SET parent_id = NULL")).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users")).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := repo.PurgeExpired(context.Background(), models.EntityUser, cutoff, 500)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleRepositorySoftDeletedCounts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLifecycleRepository(db, NewAuditRepository(db))
	cutoff := time.Now().AddDate(0, -36, 0)

	rows := sqlmock.NewRows([]string{"total", "overdue"}).AddRow(10, 4)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE deleted_at IS NOT NULL")).
		WithArgs(cutoff).
		WillReturnRows(rows)

	total, overdue, err := repo.SoftDeletedCounts(context.Background(), models.EntityUser, cutoff)
	require.NoError(t, err)
	require.Equal(t, 10, total)
	require.Equal(t, 4, overdue)
	require.NoError(t, mock.ExpectationsWereMet())
}
