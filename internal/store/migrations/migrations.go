// Package migrations creates the schema of the inspection database.
package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type migration struct {
	version int
	name    string
	stmt    string
}

var migrations = []migration{
	{
		version: 1,
		name:    "create_inspection_results",
		stmt: `CREATE TABLE IF NOT EXISTS inspection_results (
			machine_id          VARCHAR PRIMARY KEY,
			attempt_id          VARCHAR NOT NULL,
			machine_name        VARCHAR,
			connection_uri      VARCHAR,
			outcome             VARCHAR NOT NULL,
			root                VARCHAR,
			os_type             VARCHAR,
			distro              VARCHAR,
			major_version       INTEGER,
			minor_version       INTEGER,
			hostname            VARCHAR,
			product_name        VARCHAR,
			product_variant     VARCHAR,
			filesystems_mounted BOOLEAN NOT NULL DEFAULT false,
			icon                BLOB,
			applications        VARCHAR,
			error               VARCHAR,
			started_at          TIMESTAMP NOT NULL,
			finished_at         TIMESTAMP NOT NULL,
			sequence            INTEGER DEFAULT nextval('inspection_results_seq')
		)`,
	},
}

// Run applies the migrations not applied yet. It is idempotent.
func Run(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       VARCHAR NOT NULL,
		applied_at TIMESTAMP DEFAULT current_timestamp
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE SEQUENCE IF NOT EXISTS inspection_results_seq START 1`); err != nil {
		return fmt.Errorf("creating sequence: %w", err)
	}

	for _, m := range migrations {
		applied, err := isApplied(ctx, db, m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		if err := apply(ctx, db, m); err != nil {
			return fmt.Errorf("applying migration %d (%s): %w", m.version, m.name, err)
		}
		zap.S().Named("migrations").Debugw("migration applied", "version", m.version, "name", m.name)
	}

	return nil
}

func isApplied(ctx context.Context, db *sql.DB, version int) (bool, error) {
	var v int
	err := db.QueryRowContext(ctx, "SELECT version FROM schema_migrations WHERE version = ?", version).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking migration %d: %w", version, err)
	}
	return true, nil
}

func apply(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.stmt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
		return err
	}

	return tx.Commit()
}
