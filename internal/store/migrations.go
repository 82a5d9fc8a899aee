package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrSchemaTooNew is returned when the database was written by a newer build.
var ErrSchemaTooNew = errors.New("database schema is newer than this build supports")

// MigrationError reports a failed upgrade step. The database must be treated as
// unusable for the target version.
type MigrationError struct {
	From int
	To   int
	Err  error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %d -> %d failed: %v", e.From, e.To, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// Migration upgrades the schema by one step. Up runs inside the transaction that
// also records To in schema_migrations and must tolerate being re-run.
type Migration struct {
	From int
	To   int
	Name string
	Up   func(ctx context.Context, tx *sql.Tx) error
}

type migrationKey struct {
	from, to int
}

var migrations = []Migration{
	{From: 1, To: 2, Name: "add item image, barcode, location and notes", Up: addItemDetails},
}

func migrationIndex() map[migrationKey]Migration {
	index := make(map[migrationKey]Migration, len(migrations))
	for _, m := range migrations {
		index[migrationKey{m.From, m.To}] = m
	}
	return index
}

func addItemDetails(ctx context.Context, tx *sql.Tx) error {
	columns := []struct {
		name       string
		definition string
	}{
		{"image_path", "TEXT"},
		{"barcode", "TEXT"},
		{"location", "TEXT NOT NULL DEFAULT ''"},
		{"notes", "TEXT NOT NULL DEFAULT ''"},
	}

	for _, c := range columns {
		if err := addColumnIfMissing(ctx, tx, "inventory_items", c.name, c.definition); err != nil {
			return err
		}
	}
	return nil
}

func addColumnIfMissing(ctx context.Context, tx *sql.Tx, table, column, definition string) error {
	exists, err := columnExists(ctx, tx, table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to add column %s.%s: %w", table, column, err)
	}
	return nil
}

func columnExists(ctx context.Context, tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return false, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// migrate brings the schema up to target, creating version 1 on an empty database.
func (s *Store) migrate(ctx context.Context, target int) error {
	if target < 1 || target > LatestVersion {
		return fmt.Errorf("unsupported target schema version %d", target)
	}

	if _, err := s.db.ExecContext(ctx, createSchemaMigrations); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if current > LatestVersion {
		return fmt.Errorf("%w: found %d, latest %d", ErrSchemaTooNew, current, LatestVersion)
	}

	if current == 0 {
		if err := s.applyStep(ctx, 0, 1, func(ctx context.Context, tx *sql.Tx) error {
			for _, stmt := range schemaV1 {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("failed to create schema: %w", err)
				}
			}
			return nil
		}); err != nil {
			return err
		}
		current = 1
	}

	index := migrationIndex()
	for current < target {
		m, ok := index[migrationKey{current, current + 1}]
		if !ok {
			return &MigrationError{From: current, To: current + 1, Err: errors.New("no migration registered")}
		}

		if err := s.applyStep(ctx, m.From, m.To, m.Up); err != nil {
			return err
		}

		s.logger.WithFields(logrus.Fields{
			"from": m.From,
			"to":   m.To,
			"name": m.Name,
		}).Info("schema migration applied")
		current = m.To
	}

	return nil
}

func (s *Store) applyStep(ctx context.Context, from, to int, up func(ctx context.Context, tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &MigrationError{From: from, To: to, Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}
	defer tx.Rollback()

	if err := up(ctx, tx); err != nil {
		return &MigrationError{From: from, To: to, Err: err}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
		to, time.Now().UnixMilli())
	if err != nil {
		return &MigrationError{From: from, To: to, Err: fmt.Errorf("failed to record schema version: %w", err)}
	}

	if err := tx.Commit(); err != nil {
		return &MigrationError{From: from, To: to, Err: fmt.Errorf("failed to commit transaction: %w", err)}
	}
	return nil
}
