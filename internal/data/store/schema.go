package store

import (
	"database/sql"
	"fmt"
)

const SchemaVersion = 1

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS snapshots (
  id TEXT PRIMARY KEY,
  project_key TEXT NOT NULL DEFAULT 'default',
  source_hash TEXT NOT NULL DEFAULT '',
  type_count INTEGER NOT NULL,
  method_count INTEGER NOT NULL,
  created_at_utc TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_project_key ON snapshots(project_key);

CREATE TABLE IF NOT EXISTS types (
  snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
  type_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  file TEXT NOT NULL DEFAULT '',
  line INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (snapshot_id, type_id)
);

-- position 0 holds the superclass when there is one; interfaces follow in
-- declaration order.
CREATE TABLE IF NOT EXISTS supertypes (
  snapshot_id TEXT NOT NULL,
  type_id TEXT NOT NULL,
  position INTEGER NOT NULL,
  super_id TEXT NOT NULL,
  is_class INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (snapshot_id, type_id, position),
  FOREIGN KEY (snapshot_id, type_id) REFERENCES types(snapshot_id, type_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS methods (
  snapshot_id TEXT NOT NULL,
  type_id TEXT NOT NULL,
  position INTEGER NOT NULL,
  name TEXT NOT NULL,
  flags INTEGER NOT NULL DEFAULT 0,
  is_constructor INTEGER NOT NULL DEFAULT 0,
  parameters TEXT NOT NULL DEFAULT '',
  line INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (snapshot_id, type_id, position),
  FOREIGN KEY (snapshot_id, type_id) REFERENCES types(snapshot_id, type_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_methods_name ON methods(snapshot_id, name);
`,
	},
}

func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);
`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema_migrations version: %w", err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported version %d", current, SchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}
