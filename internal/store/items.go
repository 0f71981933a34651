package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hughpyle/keep/internal/logging"
	"github.com/hughpyle/keep/internal/model"
)

func marshalTags(tags model.Tags) (string, error) {
	data, err := json.Marshal(tags.Map())
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}
	return string(data), nil
}

func unmarshalTags(raw string) model.Tags {
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return model.NewTags(nil)
	}
	return model.NewTags(m)
}

// PutResult reports what Put actually did, so Engine knows whether to
// enqueue deferred embed/analyze work and whether an overview part needs
// resynthesizing.
type PutResult struct {
	Item          model.Item
	ContentChanged bool
	PriorVersion  int // 0 if this is a new item
}

// Put inserts a new item or, if (id, collection) already exists, archives
// the current row to versions and overwrites it — unless content is
// unchanged, in which case only tags/summary are merged and no version is
// archived (spec: unchanged content is a no-op on the content side of put).
func (rs *RecordStore) Put(collection, id, content, summary string, tags model.Tags, now time.Time) (PutResult, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	shortHash, fullHash := model.ContentHashes(content)
	tagsJSON, err := marshalTags(tags)
	if err != nil {
		return PutResult{}, err
	}

	existing, err := rs.getLocked(collection, id)
	if err == ErrNotFound {
		item := model.Item{
			ID: id, Collection: collection, Summary: summary, Tags: tags,
			CreatedAt: now, UpdatedAt: now, AccessedAt: now,
			ContentHash: shortHash, ContentHashFull: fullHash,
		}
		_, execErr := rs.db.Exec(
			`INSERT INTO items (id, collection, summary, tags_json, content, content_hash, content_hash_full, version, created_at, updated_at, accessed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`,
			id, collection, summary, tagsJSON, content, shortHash, fullHash, now, now, now,
		)
		if execErr != nil {
			return PutResult{}, fmt.Errorf("insert item: %w", execErr)
		}
		rs.indexFTS(collection, id, summary, content)
		logging.StoreDebug("put: created %s/%s", collection, id)
		return PutResult{Item: item, ContentChanged: true, PriorVersion: 0}, nil
	}
	if err != nil {
		return PutResult{}, err
	}

	contentChanged := existing.ContentHashFull != fullHash
	mergedTags := existing.Tags.Clone()
	mergedTags.Merge(tags)
	mergedTagsJSON, err := marshalTags(mergedTags)
	if err != nil {
		return PutResult{}, err
	}

	nextVersion := existing.currentVersion
	if contentChanged {
		if err := rs.archiveVersionLocked(collection, id, existing); err != nil {
			return PutResult{}, err
		}
		nextVersion++
	}

	finalSummary := summary
	if finalSummary == "" {
		finalSummary = existing.Summary
	}
	finalContent := content
	if !contentChanged {
		finalContent = existing.content
	}

	_, err = rs.db.Exec(
		`UPDATE items SET summary = ?, tags_json = ?, content = ?, content_hash = ?, content_hash_full = ?, version = ?, updated_at = ?, accessed_at = ?
		 WHERE id = ? AND collection = ?`,
		finalSummary, mergedTagsJSON, finalContent, shortHash, fullHash, nextVersion, now, now, id, collection,
	)
	if err != nil {
		return PutResult{}, fmt.Errorf("update item: %w", err)
	}
	if contentChanged {
		rs.indexFTS(collection, id, finalSummary, finalContent)
	}

	logging.StoreDebug("put: updated %s/%s content_changed=%v version=%d", collection, id, contentChanged, nextVersion)
	return PutResult{
		Item: model.Item{
			ID: id, Collection: collection, Summary: finalSummary, Tags: mergedTags,
			CreatedAt: existing.CreatedAt, UpdatedAt: now, AccessedAt: now,
			ContentHash: shortHash, ContentHashFull: fullHash,
		},
		ContentChanged: contentChanged,
		PriorVersion:   existing.currentVersion,
	}, nil
}

// itemRow augments model.Item with store-internal fields needed by Put.
type itemRow struct {
	model.Item
	content        string
	currentVersion int
}

func (rs *RecordStore) getLocked(collection, id string) (itemRow, error) {
	row := rs.db.QueryRow(
		`SELECT summary, tags_json, content, content_hash, content_hash_full, version, created_at, updated_at, accessed_at
		 FROM items WHERE id = ? AND collection = ?`, id, collection)

	var summary, tagsJSON, content, hash, hashFull string
	var version int
	var createdAt, updatedAt, accessedAt time.Time
	err := row.Scan(&summary, &tagsJSON, &content, &hash, &hashFull, &version, &createdAt, &updatedAt, &accessedAt)
	if err == sql.ErrNoRows {
		return itemRow{}, ErrNotFound
	}
	if err != nil {
		return itemRow{}, fmt.Errorf("get item %s/%s: %w", collection, id, err)
	}
	return itemRow{
		Item: model.Item{
			ID: id, Collection: collection, Summary: summary, Tags: unmarshalTags(tagsJSON),
			CreatedAt: createdAt, UpdatedAt: updatedAt, AccessedAt: accessedAt,
			ContentHash: hash, ContentHashFull: hashFull,
		},
		content:        content,
		currentVersion: version,
	}, nil
}

func (rs *RecordStore) archiveVersionLocked(collection, id string, existing itemRow) error {
	tagsJSON, err := marshalTags(existing.Tags)
	if err != nil {
		return err
	}
	_, err = rs.db.Exec(
		`INSERT INTO versions (id, collection, version, summary, tags_json, content, content_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, collection, existing.currentVersion, existing.Summary, tagsJSON, existing.content, existing.ContentHash, existing.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("archive version %s/%s v%d: %w", collection, id, existing.currentVersion, err)
	}
	return nil
}

// Get fetches an item without updating accessed_at. Callers that want the
// content body too should use GetWithContent.
func (rs *RecordStore) Get(collection, id string) (model.Item, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	row, err := rs.getLocked(collection, id)
	if err != nil {
		return model.Item{}, err
	}
	return row.Item, nil
}

// GetWithContent fetches an item plus its raw content body.
func (rs *RecordStore) GetWithContent(collection, id string) (model.Item, string, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	row, err := rs.getLocked(collection, id)
	if err != nil {
		return model.Item{}, "", err
	}
	return row.Item, row.content, nil
}

// Exists reports whether (collection, id) is present.
func (rs *RecordStore) Exists(collection, id string) (bool, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	var count int
	err := rs.db.QueryRow(`SELECT COUNT(*) FROM items WHERE id = ? AND collection = ?`, id, collection).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("exists check %s/%s: %w", collection, id, err)
	}
	return count > 0, nil
}

// Touch refreshes accessed_at. Non-critical: a malformed-database error is
// logged and swallowed rather than returned, matching the original store's
// touch() behavior under runtime corruption.
func (rs *RecordStore) Touch(collection, id string, now time.Time) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	_, err := rs.db.Exec(`UPDATE items SET accessed_at = ? WHERE id = ? AND collection = ?`, now, id, collection)
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("touch %s/%s failed (non-fatal): %v", collection, id, err)
		rs.tryRuntimeRecover(err)
	}
}

// Delete removes an item and cascades to its versions, parts, edges (either
// endpoint), and pending tasks.
func (rs *RecordStore) Delete(collection, id string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	tx, err := rs.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback()

	stmts := []struct {
		sql  string
		args []interface{}
	}{
		{`DELETE FROM items WHERE id = ? AND collection = ?`, []interface{}{id, collection}},
		{`DELETE FROM versions WHERE id = ? AND collection = ?`, []interface{}{id, collection}},
		{`DELETE FROM parts WHERE id = ? AND collection = ?`, []interface{}{id, collection}},
		{`DELETE FROM edges WHERE collection = ? AND (source_id = ? OR target_id = ?)`, []interface{}{collection, id, id}},
		{`DELETE FROM pending_tasks WHERE id = ? AND collection = ?`, []interface{}{id, collection}},
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s.sql, s.args...); err != nil {
			return fmt.Errorf("delete cascade: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}
	rs.removeFTS(collection, id)
	logging.StoreDebug("delete: removed %s/%s and cascaded children", collection, id)
	return nil
}

// ListOptions filters List.
type ListOptions struct {
	IDPrefix string
	Since    time.Time
	Until    time.Time
	Limit    int
}

// List returns items in a collection ordered by updated_at descending,
// filtered by id prefix and/or time window.
func (rs *RecordStore) List(collection string, opts ListOptions) ([]model.Item, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	query := `SELECT id, summary, tags_json, content_hash, content_hash_full, created_at, updated_at, accessed_at
	          FROM items WHERE collection = ?`
	args := []interface{}{collection}

	if opts.IDPrefix != "" {
		query += ` AND id LIKE ?`
		args = append(args, opts.IDPrefix+"%")
	}
	if !opts.Since.IsZero() {
		query += ` AND updated_at >= ?`
		args = append(args, opts.Since)
	}
	if !opts.Until.IsZero() {
		query += ` AND updated_at <= ?`
		args = append(args, opts.Until)
	}
	query += ` ORDER BY updated_at DESC`
	if opts.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, opts.Limit)
	}

	rows, err := rs.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items in %s: %w", collection, err)
	}
	defer rows.Close()

	var out []model.Item
	for rows.Next() {
		var id, summary, tagsJSON, hash, hashFull string
		var createdAt, updatedAt, accessedAt time.Time
		if err := rows.Scan(&id, &summary, &tagsJSON, &hash, &hashFull, &createdAt, &updatedAt, &accessedAt); err != nil {
			return nil, fmt.Errorf("scan list row: %w", err)
		}
		out = append(out, model.Item{
			ID: id, Collection: collection, Summary: summary, Tags: unmarshalTags(tagsJSON),
			CreatedAt: createdAt, UpdatedAt: updatedAt, AccessedAt: accessedAt,
			ContentHash: hash, ContentHashFull: hashFull,
		})
	}
	return out, rows.Err()
}

// Count returns the number of items in a collection.
func (rs *RecordStore) Count(collection string) (int, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	var n int
	err := rs.db.QueryRow(`SELECT COUNT(*) FROM items WHERE collection = ?`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count items in %s: %w", collection, err)
	}
	return n, nil
}

// ListCollections returns all distinct collection names present.
func (rs *RecordStore) ListCollections() ([]string, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	rows, err := rs.db.Query(`SELECT DISTINCT collection FROM items ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
