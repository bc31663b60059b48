package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kitahub/kita-api/internal/models"
)

// BackupRepository reads backup run metadata and live table statistics for
// the verifier.
type BackupRepository struct {
	db *sqlx.DB
}

// NewBackupRepository creates a new instance of BackupRepository.
func NewBackupRepository(db *sqlx.DB) *BackupRepository {
	return &BackupRepository{db: db}
}

// LatestArtifact returns the most recent completed backup run, or
// sql.ErrNoRows when none exist.
func (r *BackupRepository) LatestArtifact(ctx context.Context) (*models.BackupArtifact, error) {
	const query = `SELECT id, location, size_bytes, checksum, finished_at FROM backup_artifacts
		ORDER BY finished_at DESC LIMIT 1`
	var artifact models.BackupArtifact
	if err := r.db.GetContext(ctx, &artifact, query); err != nil {
		return nil, err
	}
	return &artifact, nil
}

// TableRowCounts returns live row counts for each lifecycle-managed table.
func (r *BackupRepository) TableRowCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, t := range models.AllEntityTypes() {
		desc, ok := models.Descriptor(t)
		if !ok {
			continue
		}
		var n int
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", desc.Table)
		if err := r.db.GetContext(ctx, &n, query); err != nil {
			return nil, fmt.Errorf("count rows of %s: %w", desc.Table, err)
		}
		counts[desc.Table] = n
	}
	return counts, nil
}

// Ping checks database reachability.
func (r *BackupRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
