package snapshot_store

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations[i] moves the schema from version i to i+1.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS history (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		key       TEXT    NOT NULL,
		value     TEXT    NOT NULL,
		timestamp INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS current_code (
		k TEXT PRIMARY KEY,
		v TEXT NOT NULL
	)`,
}

// SchemaVersion is the user_version a fully migrated database carries.
var SchemaVersion = len(migrations)

func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return version, nil
}

// migrate applies every pending migration, each in its own transaction.
// Tables of lower versions are never dropped.
func migrate(ctx context.Context, db *sql.DB) (from, to int, err error) {
	from, err = schemaVersion(ctx, db)
	if err != nil {
		return 0, 0, err
	}
	if from > SchemaVersion {
		return from, from, fmt.Errorf("database schema version %d is newer than supported version %d", from, SchemaVersion)
	}

	for version := from; version < SchemaVersion; version++ {
		stmt := migrations[version]
		next := version + 1
		err := runTx(ctx, db, fmt.Sprintf("migrate to version %d", next), func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", next))
			return err
		})
		if err != nil {
			return from, version, err
		}
	}
	return from, SchemaVersion, nil
}
