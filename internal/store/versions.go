package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hughpyle/keep/internal/model"
)

// ListVersions returns archived versions of an item, oldest first. The
// current row in items is version N and is not included here.
func (rs *RecordStore) ListVersions(collection, id string) ([]model.Version, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	rows, err := rs.db.Query(
		`SELECT version, summary, tags_json, content_hash, created_at FROM versions
		 WHERE id = ? AND collection = ? ORDER BY version ASC`, id, collection)
	if err != nil {
		return nil, fmt.Errorf("list versions %s/%s: %w", collection, id, err)
	}
	defer rows.Close()

	var out []model.Version
	for rows.Next() {
		var version int
		var summary, tagsJSON, hash string
		var createdAt time.Time
		if err := rows.Scan(&version, &summary, &tagsJSON, &hash, &createdAt); err != nil {
			return nil, err
		}
		out = append(out, model.Version{
			ID: id, Collection: collection, Version: version, Summary: summary,
			Tags: unmarshalTags(tagsJSON), ContentHash: hash, CreatedAt: createdAt,
		})
	}
	return out, rows.Err()
}

// CurrentVersion returns an item's current version number (the version
// column on its items row, not the versions table).
func (rs *RecordStore) CurrentVersion(collection, id string) (int, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	var version int
	err := rs.db.QueryRow(`SELECT version FROM items WHERE id = ? AND collection = ?`, id, collection).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("current version %s/%s: %w", collection, id, err)
	}
	return version, nil
}

// GetVersionContent fetches the content body archived for one version,
// separate from GetVersion's metadata-only result since content can be
// large and most callers (version listings) don't need it.
func (rs *RecordStore) GetVersionContent(collection, id string, version int) (string, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	var content string
	err := rs.db.QueryRow(
		`SELECT content FROM versions WHERE id = ? AND collection = ? AND version = ?`, id, collection, version,
	).Scan(&content)
	if err != nil {
		return "", ErrNotFound
	}
	return content, nil
}

// DeleteVersion removes a single archived version, for move's extraction
// semantics. It does not touch the item's current row or its other
// versions.
func (rs *RecordStore) DeleteVersion(collection, id string, version int) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	_, err := rs.db.Exec(
		`DELETE FROM versions WHERE id = ? AND collection = ? AND version = ?`, id, collection, version,
	)
	if err != nil {
		return fmt.Errorf("delete version %s/%s v%d: %w", collection, id, version, err)
	}
	return nil
}

// GetVersion fetches one archived version.
func (rs *RecordStore) GetVersion(collection, id string, version int) (model.Version, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	var summary, tagsJSON, hash string
	var createdAt time.Time
	err := rs.db.QueryRow(
		`SELECT summary, tags_json, content_hash, created_at FROM versions
		 WHERE id = ? AND collection = ? AND version = ?`, id, collection, version,
	).Scan(&summary, &tagsJSON, &hash, &createdAt)
	if err != nil {
		return model.Version{}, ErrNotFound
	}
	return model.Version{
		ID: id, Collection: collection, Version: version, Summary: summary,
		Tags: unmarshalTags(tagsJSON), ContentHash: hash, CreatedAt: createdAt,
	}, nil
}
