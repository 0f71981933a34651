package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/hughpyle/keep/internal/model"
)

// QueryTag returns items in collection whose tags match every key/value
// pair in want exactly, ordered by updated_at descending. An empty value in
// want matches any value for that key (existence-only check).
func (rs *RecordStore) QueryTag(collection string, want map[string]string, limit int) ([]model.Item, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	query := `SELECT id, summary, tags_json, content_hash, content_hash_full, created_at, updated_at, accessed_at
	          FROM items WHERE collection = ?`
	args := []interface{}{collection}
	for key, value := range want {
		if value == "" {
			query += ` AND json_extract(tags_json, ?) IS NOT NULL`
			args = append(args, "$."+key)
		} else {
			query += ` AND json_extract(tags_json, ?) = ?`
			args = append(args, "$."+key, value)
		}
	}
	query += ` ORDER BY updated_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := rs.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tags in %s: %w", collection, err)
	}
	defer rows.Close()

	var out []model.Item
	for rows.Next() {
		var id, summary, tagsJSON, hash, hashFull string
		var createdAt, updatedAt, accessedAt time.Time
		if err := rows.Scan(&id, &summary, &tagsJSON, &hash, &hashFull, &createdAt, &updatedAt, &accessedAt); err != nil {
			return nil, err
		}
		out = append(out, model.Item{
			ID: id, Collection: collection, Summary: summary, Tags: unmarshalTags(tagsJSON),
			CreatedAt: createdAt, UpdatedAt: updatedAt, AccessedAt: accessedAt,
			ContentHash: hash, ContentHashFull: hashFull,
		})
	}
	return out, rows.Err()
}

// ListDistinctTagKeys returns sorted non-system tag keys used anywhere in a
// collection.
func (rs *RecordStore) ListDistinctTagKeys(collection string) ([]string, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	rows, err := rs.db.Query(`SELECT tags_json FROM items WHERE collection = ?`, collection)
	if err != nil {
		return nil, fmt.Errorf("list tag keys in %s: %w", collection, err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var tagsJSON string
		if err := rows.Scan(&tagsJSON); err != nil {
			return nil, err
		}
		var m map[string]string
		if err := json.Unmarshal([]byte(tagsJSON), &m); err != nil {
			continue
		}
		for key := range m {
			if !model.IsSystemTag(key) {
				seen[key] = true
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// ListDistinctTagValues returns sorted distinct values seen for key across a
// collection.
func (rs *RecordStore) ListDistinctTagValues(collection, key string) ([]string, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	rows, err := rs.db.Query(`SELECT tags_json FROM items WHERE collection = ?`, collection)
	if err != nil {
		return nil, fmt.Errorf("list tag values in %s: %w", collection, err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var tagsJSON string
		if err := rows.Scan(&tagsJSON); err != nil {
			return nil, err
		}
		var m map[string]string
		if err := json.Unmarshal([]byte(tagsJSON), &m); err != nil {
			continue
		}
		if v, ok := m[key]; ok {
			seen[v] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values, nil
}
