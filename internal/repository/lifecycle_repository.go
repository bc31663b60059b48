package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/kitahub/kita-api/internal/models"
)

// ErrNothingMarked signals that a guarded soft-delete update matched no
// live row; the caller decides whether that is AlreadyDeleted or a no-op.
var ErrNothingMarked = errors.New("no live row marked")

// LifecycleRepository implements soft-delete marking and retention purges
// for every lifecycle-managed table.
type LifecycleRepository struct {
	db    *sqlx.DB
	audit *AuditRepository
}

// NewLifecycleRepository creates a new instance of LifecycleRepository.
func NewLifecycleRepository(db *sqlx.DB, audit *AuditRepository) *LifecycleRepository {
	return &LifecycleRepository{db: db, audit: audit}
}

func headerQuery(t models.EntityType) (string, bool) {
	switch t {
	case models.EntityUser:
		return `SELECT id, full_name AS display_name, institution_id, deleted_at FROM users WHERE id = $1`, true
	case models.EntityChild:
		return `SELECT c.id, c.full_name AS display_name, g.institution_id, c.deleted_at
			FROM children c LEFT JOIN groups g ON g.id = c.group_id WHERE c.id = $1`, true
	case models.EntityGroup:
		return `SELECT id, name AS display_name, institution_id, deleted_at FROM groups WHERE id = $1`, true
	case models.EntityInstitution:
		return `SELECT id, name AS display_name, id AS institution_id, deleted_at FROM institutions WHERE id = $1`, true
	default:
		return "", false
	}
}

// GetHeader loads the lifecycle view of a record regardless of its
// deletion state.
func (r *LifecycleRepository) GetHeader(ctx context.Context, t models.EntityType, id string) (*models.RecordHeader, error) {
	query, ok := headerQuery(t)
	if !ok {
		return nil, fmt.Errorf("entity type %s has no header view", t)
	}
	var header models.RecordHeader
	if err := r.db.GetContext(ctx, &header, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get %s header: %w", t, err)
	}
	header.EntityType = t
	return &header, nil
}

// CountActiveChildren reports live children still assigned to a group.
func (r *LifecycleRepository) CountActiveChildren(ctx context.Context, groupID string) (int, error) {
	const query = `SELECT COUNT(*) FROM children WHERE group_id = $1 AND deleted_at IS NULL`
	var n int
	if err := r.db.GetContext(ctx, &n, query, groupID); err != nil {
		return 0, fmt.Errorf("count active children: %w", err)
	}
	return n, nil
}

// SoftDeleteCascade marks the root record and its dependents as deleted and
// appends the audit entry, all in one transaction. The entry's detail is
// extended with per-type cascade counts before insertion so the trail
// documents the full blast radius.
func (r *LifecycleRepository) SoftDeleteCascade(ctx context.Context, root models.EntityType, id string, at time.Time, entry *models.PrivacyAuditLog) (models.CascadeCounts, error) {
	counts := models.CascadeCounts{}

	err := Tx(ctx, r.db, func(tx *sqlx.Tx) error {
		marked, err := r.markRoot(ctx, tx, root, id, at)
		if err != nil {
			return err
		}
		if marked == 0 {
			return ErrNothingMarked
		}

		if root == models.EntityInstitution {
			res, err := tx.ExecContext(ctx,
				`UPDATE groups SET deleted_at = $2, updated_at = $2 WHERE institution_id = $1 AND deleted_at IS NULL`, id, at)
			if err != nil {
				return fmt.Errorf("cascade groups: %w", err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				counts[models.EntityGroup] = n
			}

			res, err = tx.ExecContext(ctx,
				`UPDATE children SET deleted_at = $2, updated_at = $2
				 WHERE group_id IN (SELECT id FROM groups WHERE institution_id = $1) AND deleted_at IS NULL`, id, at)
			if err != nil {
				return fmt.Errorf("cascade children: %w", err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				counts[models.EntityChild] = n
			}
		}

		if summary := counts.Summary(); summary != "" {
			entry.Detail = fmt.Sprintf("%s (cascaded: %s)", entry.Detail, summary)
		}
		return r.audit.Insert(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *LifecycleRepository) markRoot(ctx context.Context, tx *sqlx.Tx, root models.EntityType, id string, at time.Time) (int64, error) {
	var query string
	switch root {
	case models.EntityUser:
		query = `UPDATE users SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	case models.EntityChild:
		query = `UPDATE children SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	case models.EntityGroup:
		query = `UPDATE groups SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	case models.EntityInstitution:
		query = `UPDATE institutions SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	default:
		return 0, fmt.Errorf("entity type %s cannot be a cascade root", root)
	}
	res, err := tx.ExecContext(ctx, query, id, at)
	if err != nil {
		return 0, fmt.Errorf("mark %s: %w", root, err)
	}
	return res.RowsAffected()
}

// ListSoftDeleted returns soft-deleted rows of one type, oldest first, so
// the records closest to permanent erasure surface first. A non-nil
// institutionID narrows the listing to that institution; types without an
// institution link are invisible to scoped listings.
func (r *LifecycleRepository) ListSoftDeleted(ctx context.Context, t models.EntityType, institutionID *string, limit int) ([]models.RecordHeader, error) {
	desc, ok := models.Descriptor(t)
	if !ok || !desc.SoftDeletable {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	scope := ""
	var args []interface{}
	if institutionID != nil {
		cond, ok := institutionScope(t)
		if !ok {
			return nil, nil
		}
		scope = " AND " + cond
		args = append(args, *institutionID)
	}

	nameCol := displayNameColumn(t)
	query := fmt.Sprintf(`SELECT id, %s AS display_name, deleted_at FROM %s WHERE deleted_at IS NOT NULL%s ORDER BY deleted_at ASC LIMIT %d`,
		nameCol, desc.Table, scope, limit)

	var headers []models.RecordHeader
	if err := r.db.SelectContext(ctx, &headers, query, args...); err != nil {
		return nil, fmt.Errorf("list soft-deleted %s: %w", t, err)
	}
	for i := range headers {
		headers[i].EntityType = t
	}
	return headers, nil
}

func institutionScope(t models.EntityType) (string, bool) {
	switch t {
	case models.EntityUser, models.EntityGroup:
		return "institution_id = $1", true
	case models.EntityInstitution:
		return "id = $1", true
	case models.EntityChild:
		return "group_id IN (SELECT id FROM groups WHERE institution_id = $1)", true
	default:
		return "", false
	}
}

func displayNameColumn(t models.EntityType) string {
	switch t {
	case models.EntityUser, models.EntityChild:
		return "full_name"
	case models.EntityGroup, models.EntityInstitution:
		return "name"
	case models.EntityNote, models.EntityMessage:
		return "LEFT(body, 40)"
	case models.EntityNotification, models.EntityPersonalTask:
		return "title"
	case models.EntityClosedDay:
		return "reason"
	default:
		return "id"
	}
}

// SoftDeletedCounts returns, for one type, the number of soft-deleted rows
// and how many of them are already past the given cutoff.
func (r *LifecycleRepository) SoftDeletedCounts(ctx context.Context, t models.EntityType, cutoff time.Time) (total int, overdue int, err error) {
	desc, ok := models.Descriptor(t)
	if !ok || !desc.SoftDeletable {
		return 0, 0, nil
	}
	query := fmt.Sprintf(`SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE deleted_at < $1) AS overdue
		FROM %s WHERE deleted_at IS NOT NULL`, desc.Table)
	row := r.db.QueryRowxContext(ctx, query, cutoff)
	if err := row.Scan(&total, &overdue); err != nil {
		return 0, 0, fmt.Errorf("count soft-deleted %s: %w", t, err)
	}
	return total, overdue, nil
}

// PurgeExpired permanently erases up to limit rows of one type whose
// retention window lapsed before cutoff. Each call is one transaction;
// remaining candidates survive for the next invocation, which makes purge
// runs resumable by construction.
//
// Purging users also erases their still-live owned records and detaches
// their children inside the same transaction, so no dependent row survives
// its owner's erasure. Groups and institutions are only candidates once no
// live row references them.
func (r *LifecycleRepository) PurgeExpired(ctx context.Context, t models.EntityType, cutoff time.Time, limit int) (int64, error) {
	desc, ok := models.Descriptor(t)
	if !ok {
		return 0, fmt.Errorf("unknown entity type %s", t)
	}
	if limit <= 0 {
		limit = 500
	}

	if t == models.EntityUser {
		return r.purgeUsers(ctx, cutoff, limit)
	}

	tsColumn := "deleted_at"
	if !desc.SoftDeletable {
		tsColumn = "created_at"
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id IN (SELECT id FROM %s WHERE %s < $1`, desc.Table, desc.Table, tsColumn)
	if desc.SoftDeletable {
		query += " AND deleted_at IS NOT NULL"
	}
	query += dependentGuard(t)
	query += fmt.Sprintf(" ORDER BY %s ASC LIMIT %d)", tsColumn, limit)

	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge %s: %w", t, err)
	}
	return res.RowsAffected()
}

// dependentGuard keeps owners with live referencing rows out of the purge
// candidate set. Dependents can run on longer retention clocks than their
// owner (children outlive their group by four years), so an owner past its
// cutoff must wait until every row pointing at it has been purged, or the
// DELETE trips the foreign key and the type never purges.
func dependentGuard(t models.EntityType) string {
	switch t {
	case models.EntityGroup:
		return " AND NOT EXISTS (SELECT 1 FROM children c WHERE c.group_id = groups.id)"
	case models.EntityInstitution:
		return " AND NOT EXISTS (SELECT 1 FROM groups g WHERE g.institution_id = institutions.id)" +
			" AND NOT EXISTS (SELECT 1 FROM users u WHERE u.institution_id = institutions.id)" +
			" AND NOT EXISTS (SELECT 1 FROM closed_days d WHERE d.institution_id = institutions.id)"
	default:
		return ""
	}
}

func (r *LifecycleRepository) purgeUsers(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	var purged int64
	err := Tx(ctx, r.db, func(tx *sqlx.Tx) error {
		var ids []string
		if err := tx.SelectContext(ctx, &ids,
			`SELECT id FROM users WHERE deleted_at IS NOT NULL AND deleted_at < $1 ORDER BY deleted_at ASC LIMIT $2`,
			cutoff, limit); err != nil {
			return fmt.Errorf("select expired users: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		owned := []string{
			`DELETE FROM notes WHERE author_id = ANY($1)`,
			`DELETE FROM messages WHERE sender_id = ANY($1) OR recipient_id = ANY($1)`,
			`DELETE FROM personal_tasks WHERE user_id = ANY($1)`,
			`DELETE FROM notifications WHERE user_id = ANY($1)`,
			`DELETE FROM failed_logins WHERE user_id = ANY($1)`,
			`DELETE FROM deletion_requests WHERE target_user_id = ANY($1)`,
			`UPDATE children SET parent_id = NULL WHERE parent_id = ANY($1)`,
		}
		for _, q := range owned {
			if _, err := tx.ExecContext(ctx, q, pq.Array(ids)); err != nil {
				return fmt.Errorf("purge user dependents: %w", err)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ANY($1)`, pq.Array(ids))
		if err != nil {
			return fmt.Errorf("purge users: %w", err)
		}
		purged, err = res.RowsAffected()
		return err
	})
	return purged, err
}
