package store

import (
	"database/sql"
	"fmt"

	"github.com/hughpyle/keep/internal/logging"
)

// Migration adds a single column to an existing table if missing. Forward
// only: there is no down migration, matching how a content-addressed store
// is meant to evolve.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists columns added after the initial v1 tables, applied
// idempotently on every open regardless of the schema_versions row.
var pendingMigrations = []Migration{
	{"items", "accessed_at", "DATETIME"},
}

// RunMigrations applies schema migrations and ensures the schema_versions
// bookkeeping row reflects CurrentSchemaVersion.
func RunMigrations(db *sql.DB) error {
	timer := logging.StartTimer(logging.CategoryStore, "RunMigrations")
	defer timer.Stop()

	applied, skipped := 0, 0
	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			skipped++
			continue
		}
		if columnExists(db, m.Table, m.Column) {
			skipped++
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(stmt); err != nil {
			logging.Get(logging.CategoryStore).Warn("migration failed %s.%s: %v", m.Table, m.Column, err)
			skipped++
			continue
		}
		logging.StoreDebug("migration applied: %s.%s", m.Table, m.Column)
		applied++
	}
	logging.Store("schema migrations complete: applied=%d skipped=%d", applied, skipped)

	if GetSchemaVersion(db) >= CurrentSchemaVersion {
		return nil
	}
	return SetSchemaVersion(db, CurrentSchemaVersion)
}

func tableExists(db *sql.DB, table string) bool {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table','view') AND name = ?`, table).Scan(&count)
	return err == nil && count > 0
}

func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

// GetSchemaVersion returns the version recorded in schema_versions, or 0 if
// the store predates that bookkeeping table.
func GetSchemaVersion(db *sql.DB) int {
	if !tableExists(db, "schema_versions") {
		return 0
	}
	var version int
	if err := db.QueryRow(`SELECT version FROM schema_versions ORDER BY applied_at DESC, id DESC LIMIT 1`).Scan(&version); err != nil {
		return 0
	}
	return version
}

// SetSchemaVersion records a new current schema version.
func SetSchemaVersion(db *sql.DB, version int) error {
	create := `
	CREATE TABLE IF NOT EXISTS schema_versions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		version INTEGER NOT NULL,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.Exec(create); err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}
	if _, err := db.Exec(`INSERT INTO schema_versions (version) VALUES (?)`, version); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}
