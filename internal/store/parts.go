package store

import (
	"fmt"
	"time"

	"github.com/hughpyle/keep/internal/model"
)

// ReplaceParts atomically replaces all parts of an item with a new ordered
// set, as produced by an analyzer run. part_num 0 (the overview) is
// supplied separately by SetOverviewPart since it is synthesized from
// version history rather than analyzer output.
func (rs *RecordStore) ReplaceParts(collection, id string, parts []model.Part, now time.Time) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	tx, err := rs.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace parts tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM parts WHERE id = ? AND collection = ? AND part_num > 0`, id, collection); err != nil {
		return fmt.Errorf("clear old parts: %w", err)
	}
	for _, p := range parts {
		tagsJSON, err := marshalTags(p.Tags)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO parts (id, collection, part_num, summary, content, tags_json, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, collection, p.PartNum, p.Summary, p.Content, tagsJSON, now,
		); err != nil {
			return fmt.Errorf("insert part %d: %w", p.PartNum, err)
		}
	}
	return tx.Commit()
}

// SetOverviewPart writes (or replaces) the reserved part_num=0 overview,
// synthesized by Engine from version history once an item has accumulated
// at least two versions. tags is typically the parent item's non-system
// tags plus _part_type=overview; callers that don't care about tag
// inheritance can pass an empty Tags and get just the part-type marker.
func (rs *RecordStore) SetOverviewPart(collection, id, summary, content string, tags model.Tags, now time.Time) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	tags = tags.Clone()
	tags.Set(model.TagPartType, model.PartTypeOverview)
	tagsJSON, err := marshalTags(tags)
	if err != nil {
		return err
	}
	_, err = rs.db.Exec(
		`INSERT INTO parts (id, collection, part_num, summary, content, tags_json, created_at) VALUES (?, ?, 0, ?, ?, ?, ?)
		 ON CONFLICT (id, collection, part_num) DO UPDATE SET summary = excluded.summary, content = excluded.content, created_at = excluded.created_at`,
		id, collection, summary, content, tagsJSON, now,
	)
	if err != nil {
		return fmt.Errorf("set overview part %s/%s: %w", collection, id, err)
	}
	return nil
}

// ListParts returns all parts of an item ordered by part_num ascending,
// including part 0 (the overview) if present.
func (rs *RecordStore) ListParts(collection, id string) ([]model.Part, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	rows, err := rs.db.Query(
		`SELECT part_num, summary, content, tags_json, created_at FROM parts
		 WHERE id = ? AND collection = ? ORDER BY part_num ASC`, id, collection)
	if err != nil {
		return nil, fmt.Errorf("list parts %s/%s: %w", collection, id, err)
	}
	defer rows.Close()

	var out []model.Part
	for rows.Next() {
		var partNum int
		var summary, content, tagsJSON string
		var createdAt time.Time
		if err := rows.Scan(&partNum, &summary, &content, &tagsJSON, &createdAt); err != nil {
			return nil, err
		}
		out = append(out, model.Part{
			ID: id, Collection: collection, PartNum: partNum, Summary: summary,
			Content: content, Tags: unmarshalTags(tagsJSON), CreatedAt: createdAt,
		})
	}
	return out, rows.Err()
}

// PartCount returns how many non-overview parts an item has.
func (rs *RecordStore) PartCount(collection, id string) (int, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	var n int
	err := rs.db.QueryRow(
		`SELECT COUNT(*) FROM parts WHERE id = ? AND collection = ? AND part_num > 0`, id, collection,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count parts %s/%s: %w", collection, id, err)
	}
	return n, nil
}
