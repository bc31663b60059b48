package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Tx runs fn inside a transaction, rolling back on error or panic. Every
// multi-step lifecycle mutation goes through here so a failed audit write
// aborts the whole operation.
func Tx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
