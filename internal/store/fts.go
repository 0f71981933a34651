package store

import (
	"fmt"
	"strings"

	"github.com/hughpyle/keep/internal/logging"
)

// indexFTS (re)indexes an item's summary + content into items_fts. Best
// effort: FTS5 may be unavailable (initSchema already warned), in which case
// this is a silent no-op.
func (rs *RecordStore) indexFTS(collection, id, summary, content string) {
	rs.removeFTS(collection, id)
	if _, err := rs.db.Exec(
		`INSERT INTO items_fts (id, collection, body) VALUES (?, ?, ?)`,
		id, collection, summary+"\n"+content,
	); err != nil {
		logging.StoreDebug("fts index skipped for %s/%s: %v", collection, id, err)
	}
}

func (rs *RecordStore) removeFTS(collection, id string) {
	_, _ = rs.db.Exec(`DELETE FROM items_fts WHERE id = ? AND collection = ?`, id, collection)
}

// rebuildFTSIfEmpty repopulates items_fts from items if the FTS table exists
// but is empty — covers the case of a store created before FTS was added to
// the schema (migrated in place) or a manual restore from a backup that
// didn't carry the FTS shadow tables.
func (rs *RecordStore) rebuildFTSIfEmpty() error {
	if !tableExists(rs.db, "items_fts") {
		return nil
	}
	var ftsCount, itemCount int
	if err := rs.db.QueryRow(`SELECT COUNT(*) FROM items_fts`).Scan(&ftsCount); err != nil {
		return err
	}
	if err := rs.db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&itemCount); err != nil {
		return err
	}
	if ftsCount > 0 || itemCount == 0 {
		return nil
	}

	rows, err := rs.db.Query(`SELECT id, collection, summary, content FROM items`)
	if err != nil {
		return err
	}
	defer rows.Close()
	rebuilt := 0
	for rows.Next() {
		var id, collection, summary, content string
		if err := rows.Scan(&id, &collection, &summary, &content); err != nil {
			continue
		}
		rs.indexFTS(collection, id, summary, content)
		rebuilt++
	}
	if rebuilt > 0 {
		logging.Store("rebuilt items_fts index for %d items", rebuilt)
	}
	return rows.Err()
}

// FTSHit is one full-text search result: an item id scored by FTS5's bm25
// rank (more negative is a better match).
type FTSHit struct {
	ID    string
	Score float64
}

// QueryFullText runs a case-insensitive OR-token match over item summaries
// and content, returning hits ordered best-first.
func (rs *RecordStore) QueryFullText(collection, query string, limit int) ([]FTSHit, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	if !tableExists(rs.db, "items_fts") {
		return nil, fmt.Errorf("full-text search unavailable: FTS5 virtual table not present")
	}

	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return nil, nil
	}
	matchExpr := strings.Join(tokens, " OR ")

	sqlQuery := `SELECT id, bm25(items_fts) AS rank FROM items_fts
	             WHERE collection = ? AND items_fts MATCH ? ORDER BY rank LIMIT ?`
	if limit <= 0 {
		limit = 50
	}
	rows, err := rs.db.Query(sqlQuery, collection, matchExpr, limit)
	if err != nil {
		return nil, fmt.Errorf("fts query: %w", err)
	}
	defer rows.Close()

	var hits []FTSHit
	seen := make(map[string]bool)
	for rows.Next() {
		var id string
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		hits = append(hits, FTSHit{ID: id, Score: score})
	}
	return hits, rows.Err()
}
