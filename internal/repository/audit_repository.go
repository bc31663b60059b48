package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kitahub/kita-api/internal/models"
)

// AuditRepository persists the append-only privacy audit trail.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new instance of AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert appends an entry using the provided executor, which may be a
// transaction shared with the mutation being audited.
func (r *AuditRepository) Insert(ctx context.Context, q sqlx.ExtContext, entry *models.PrivacyAuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO privacy_audit_logs (id, actor_id, actor_name, action, entity_type, entity_id, detail, institution_id, created_at)
		VALUES (:id, :actor_id, :actor_name, :action, :entity_type, :entity_id, :detail, :institution_id, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, entry); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// Append writes an entry in its own implicit transaction.
func (r *AuditRepository) Append(ctx context.Context, entry *models.PrivacyAuditLog) error {
	return r.Insert(ctx, r.db, entry)
}

// Query returns entries matching the filter, newest first.
func (r *AuditRepository) Query(ctx context.Context, filter models.AuditLogFilter) ([]models.PrivacyAuditLog, error) {
	baseQuery := `SELECT id, actor_id, actor_name, action, entity_type, entity_id, detail, institution_id, created_at FROM privacy_audit_logs WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if filter.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)+1))
		args = append(args, filter.Action)
	}
	if filter.ActorNameContains != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(actor_name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.ActorNameContains)+"%")
	}
	if filter.InstitutionID != nil {
		conditions = append(conditions, fmt.Sprintf("institution_id = $%d", len(args)+1))
		args = append(args, *filter.InstitutionID)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query := fmt.Sprintf("%s ORDER BY created_at DESC LIMIT %d", baseQuery, limit)

	var entries []models.PrivacyAuditLog
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	return entries, nil
}

// ActionCount sums entries per action over a period, optionally scoped to
// one institution.
func (r *AuditRepository) ActionCount(ctx context.Context, from, to time.Time, institutionID *string) (map[string]int, error) {
	query := `SELECT action, COUNT(*) AS n FROM privacy_audit_logs WHERE created_at >= $1 AND created_at < $2`
	args := []interface{}{from, to}
	if institutionID != nil {
		query += " AND institution_id = $3"
		args = append(args, *institutionID)
	}
	query += " GROUP BY action"

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count audit actions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			return nil, fmt.Errorf("scan action count: %w", err)
		}
		counts[action] = n
	}
	return counts, rows.Err()
}

// DailyActionCounts buckets entries per action per UTC day over a period.
func (r *AuditRepository) DailyActionCounts(ctx context.Context, from, to time.Time, institutionID *string) (map[string]map[string]int, error) {
	query := `SELECT action, TO_CHAR(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*) AS n
		FROM privacy_audit_logs WHERE created_at >= $1 AND created_at < $2`
	args := []interface{}{from, to}
	if institutionID != nil {
		query += " AND institution_id = $3"
		args = append(args, *institutionID)
	}
	query += " GROUP BY action, day"

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("bucket audit actions: %w", err)
	}
	defer rows.Close()

	buckets := make(map[string]map[string]int)
	for rows.Next() {
		var action, day string
		var n int
		if err := rows.Scan(&action, &day, &n); err != nil {
			return nil, fmt.Errorf("scan action bucket: %w", err)
		}
		if buckets[action] == nil {
			buckets[action] = make(map[string]int)
		}
		buckets[action][day] = n
	}
	return buckets, rows.Err()
}
