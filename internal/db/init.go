package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// Init creates the required tables and indexes inside one transaction.
func (r *SQLite) Init(ctx context.Context) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, s := range tablesAndSchemas {
			if err := tableCreate(ctx, tx, s.Name, s.SQL); err != nil {
				return fmt.Errorf("creating %q table: %w", s.Name, err)
			}

			if s.Index != "" {
				if _, err := tx.ExecContext(ctx, s.Index); err != nil {
					return fmt.Errorf("creating %q index: %w", s.Name, err)
				}
			}
		}

		return nil
	})
}

// tableCreate creates a new table with the specified name in the SQLite
// database.
func tableCreate(ctx context.Context, tx *sqlx.Tx, name, schema string) error {
	slog.Debug("creating table", "name", name)

	_, err := tx.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("error creating table: %w", err)
	}

	return nil
}

// tableExists checks whether a table with the specified name exists.
func tableExists(r *SQLite, name string) (bool, error) {
	var count int
	err := r.DB.Get(&count, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name = ?", name)
	if err != nil {
		return false, fmt.Errorf("tableExists: %w", err)
	}

	return count > 0, nil
}
