// Package store implements RecordStore, the relational source of truth for
// keep: items, their version history, analyzer-produced parts, graph edges,
// and the deferred-work queue table shared with internal/queue.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/hughpyle/keep/internal/logging"
)

// ErrNotFound is returned when an item, version, or part does not exist.
var ErrNotFound = errors.New("keep: not found")

// ErrStorageCorruption is returned when a database file cannot be recovered.
var ErrStorageCorruption = errors.New("keep: storage corruption")

// RecordStore is the SQLite-backed relational store.
type RecordStore struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
}

// Open opens (creating if necessary) the RecordStore at path. A malformed
// existing file is recovered in place before RunMigrations; if recovery
// cannot salvage any data, ErrStorageCorruption wraps the underlying error.
func Open(path string) (*RecordStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory %s: %w", dir, err)
	}

	db, err := openAndCheck(path)
	if err != nil {
		if !isMalformed(err) {
			return nil, err
		}
		logging.Get(logging.CategoryStore).Warn("detected malformed database at %s, attempting recovery: %v", path, err)
		if recErr := recoverMalformed(path); recErr != nil {
			return nil, fmt.Errorf("%w: %v (original: %v)", ErrStorageCorruption, recErr, err)
		}
		db, err = openAndCheck(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageCorruption, err)
		}
	}

	rs := &RecordStore{db: db, path: path}
	if err := rs.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := rs.rebuildFTSIfEmpty(); err != nil {
		logging.Get(logging.CategoryStore).Warn("FTS rebuild check failed: %v", err)
	}

	logging.Store("RecordStore open at %s (schema v%d)", path, CurrentSchemaVersion)
	return rs, nil
}

func openAndCheck(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA quick_check"); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func isMalformed(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") ||
		strings.Contains(msg, "file is not a database")
}

// recoverMalformed renames the corrupt file aside, removes stale WAL/SHM
// siblings, and dumps+replays whatever rows the corrupt file will still
// yield into a freshly created file at the original path. A file so corrupt
// that its items table cannot even be read returns an error, with no
// replacement file created.
func recoverMalformed(path string) error {
	corruptPath := path + ".corrupt"
	if err := os.Rename(path, corruptPath); err != nil {
		return fmt.Errorf("rename corrupt file aside: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}

	oldDB, err := sql.Open("sqlite", corruptPath)
	if err != nil {
		return fmt.Errorf("reopen corrupt file for dump: %w", err)
	}
	defer oldDB.Close()
	if len(tableColumns(oldDB, "items")) == 0 {
		return fmt.Errorf("no readable items table in %s", corruptPath)
	}

	newDB, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("create replacement database: %w", err)
	}
	defer newDB.Close()

	recovered := dumpAndReplayTable(oldDB, newDB, "items", schemaItems)
	_ = dumpAndReplayTable(oldDB, newDB, "versions", schemaVersions)
	_ = dumpAndReplayTable(oldDB, newDB, "parts", schemaParts)
	_ = dumpAndReplayTable(oldDB, newDB, "edges", schemaEdges)
	_ = dumpAndReplayTable(oldDB, newDB, "pending_tasks", schemaPendingTasks)

	logging.Get(logging.CategoryStore).Warn("recovered %d item rows from %s into fresh database", recovered, corruptPath)
	return nil
}

// dumpAndReplayTable copies every readable row of table from src into dst,
// skipping rows that error on scan (the remaining corrupt pages). Returns
// the count of rows successfully replayed.
func dumpAndReplayTable(src, dst *sql.DB, table, createSQL string) int {
	if _, err := dst.Exec(createSQL); err != nil {
		return 0
	}
	cols := tableColumns(src, table)
	if len(cols) == 0 {
		return 0
	}
	rows, err := src.Query(fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), table))
	if err != nil {
		return 0
	}
	defer rows.Close()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	insertSQL := fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), placeholders)

	count := 0
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			continue
		}
		if _, err := dst.Exec(insertSQL, vals...); err != nil {
			continue
		}
		count++
	}
	return count
}

func tableColumns(db *sql.DB, table string) []string {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		cols = append(cols, name)
	}
	return cols
}

func (rs *RecordStore) initSchema() error {
	for _, stmt := range baseTables {
		if err := execMulti(rs.db, stmt); err != nil {
			return fmt.Errorf("create base tables: %w", err)
		}
	}
	if err := execMulti(rs.db, schemaFTS); err != nil {
		logging.Get(logging.CategoryStore).Warn("FTS5 virtual table unavailable, full-text search disabled: %v", err)
	}
	return nil
}

// execMulti runs a semicolon-separated batch of DDL statements. database/sql
// does not support multi-statement Exec on every driver, so split explicitly.
func execMulti(db *sql.DB, script string) error {
	for _, stmt := range strings.Split(script, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (rs *RecordStore) Close() error {
	return rs.db.Close()
}

// Path returns the backing file path, used by the coherence layer to derive
// the lock and epoch sentinel paths.
func (rs *RecordStore) Path() string { return rs.path }

// tryRuntimeRecover attempts recovery after a non-critical operation hits a
// malformed-database error mid-session. Returns whether recovery succeeded;
// callers of non-critical paths (Touch) swallow a false return rather than
// propagating it.
func (rs *RecordStore) tryRuntimeRecover(cause error) bool {
	if !isMalformed(cause) {
		return false
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	_ = rs.db.Close()
	if err := recoverMalformed(rs.path); err != nil {
		logging.Get(logging.CategoryStore).Error("runtime recovery failed: %v", err)
		return false
	}
	db, err := openAndCheck(rs.path)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("runtime recovery reopen failed: %v", err)
		return false
	}
	rs.db = db
	if err := rs.initSchema(); err != nil {
		logging.Get(logging.CategoryStore).Error("runtime recovery schema init failed: %v", err)
		return false
	}
	logging.Get(logging.CategoryStore).Warn("runtime recovery succeeded for %s", rs.path)
	return true
}
