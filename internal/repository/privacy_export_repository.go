package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kitahub/kita-api/internal/models"
)

// PrivacyExportRepository collects every personal record held for one user.
type PrivacyExportRepository struct {
	db *sqlx.DB
}

// NewPrivacyExportRepository creates a new instance of PrivacyExportRepository.
func NewPrivacyExportRepository(db *sqlx.DB) *PrivacyExportRepository {
	return &PrivacyExportRepository{db: db}
}

// GetUser loads the account row regardless of deletion state. Exports stay
// available while the record sits in its retention window.
func (r *PrivacyExportRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	const query = `SELECT id, email, full_name, role, institution_id, created_at, updated_at, deleted_at
		FROM users WHERE id = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, userID); err != nil {
		return nil, err
	}
	return &user, nil
}

// CollectOwnedRecords loads all user-owned rows, soft-deleted ones included.
func (r *PrivacyExportRepository) CollectOwnedRecords(ctx context.Context, userID string, export *models.PrivacyExport) error {
	if err := r.db.SelectContext(ctx, &export.Notes,
		`SELECT id, author_id, child_id, body, created_at, deleted_at FROM notes WHERE author_id = $1 ORDER BY created_at ASC`,
		userID); err != nil {
		return fmt.Errorf("collect notes: %w", err)
	}
	if err := r.db.SelectContext(ctx, &export.Messages,
		`SELECT id, sender_id, recipient_id, body, created_at, deleted_at FROM messages
			WHERE sender_id = $1 OR recipient_id = $1 ORDER BY created_at ASC`,
		userID); err != nil {
		return fmt.Errorf("collect messages: %w", err)
	}
	if err := r.db.SelectContext(ctx, &export.Notifications,
		`SELECT id, user_id, title, body, read_at, created_at, deleted_at FROM notifications
			WHERE user_id = $1 ORDER BY created_at ASC`,
		userID); err != nil {
		return fmt.Errorf("collect notifications: %w", err)
	}
	if err := r.db.SelectContext(ctx, &export.PersonalTasks,
		`SELECT id, user_id, title, due_at, done_at, created_at, deleted_at FROM personal_tasks
			WHERE user_id = $1 ORDER BY created_at ASC`,
		userID); err != nil {
		return fmt.Errorf("collect personal tasks: %w", err)
	}
	return nil
}
