package store

import (
	"fmt"
	"time"

	"github.com/hughpyle/keep/internal/model"
)

// PutEdge creates or replaces a labeled edge between two items. Predicate is
// unique per (collection, source_id); re-putting the same predicate retargets
// the edge.
func (rs *RecordStore) PutEdge(collection, sourceID, predicate, targetID, inverse string, now time.Time) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if _, err := rs.db.Exec(
		`DELETE FROM edges WHERE collection = ? AND source_id = ? AND predicate = ? AND target_id <> ?`,
		collection, sourceID, predicate, targetID,
	); err != nil {
		return fmt.Errorf("retarget edge %s -%s->: %w", sourceID, predicate, err)
	}
	_, err := rs.db.Exec(
		`INSERT INTO edges (collection, source_id, predicate, target_id, inverse, created_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (collection, source_id, predicate, target_id) DO UPDATE SET inverse = excluded.inverse`,
		collection, sourceID, predicate, targetID, inverse, now,
	)
	if err != nil {
		return fmt.Errorf("put edge %s -%s-> %s: %w", sourceID, predicate, targetID, err)
	}
	return nil
}

// Edges returns every outgoing edge from sourceID.
func (rs *RecordStore) Edges(collection, sourceID string) ([]model.Edge, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	rows, err := rs.db.Query(
		`SELECT source_id, predicate, target_id, inverse, created_at FROM edges
		 WHERE collection = ? AND source_id = ?`, collection, sourceID)
	if err != nil {
		return nil, fmt.Errorf("list edges from %s: %w", sourceID, err)
	}
	defer rows.Close()

	var out []model.Edge
	for rows.Next() {
		var src, pred, tgt, inv string
		var createdAt time.Time
		if err := rows.Scan(&src, &pred, &tgt, &inv, &createdAt); err != nil {
			return nil, err
		}
		out = append(out, model.Edge{Collection: collection, SourceID: src, Predicate: pred, TargetID: tgt, Inverse: inv, Created: createdAt})
	}
	return out, rows.Err()
}

// InverseEdges returns every edge that targets targetID, for callers that
// need to navigate a relation backwards.
func (rs *RecordStore) InverseEdges(collection, targetID string) ([]model.Edge, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	rows, err := rs.db.Query(
		`SELECT source_id, predicate, target_id, inverse, created_at FROM edges
		 WHERE collection = ? AND target_id = ?`, collection, targetID)
	if err != nil {
		return nil, fmt.Errorf("list inverse edges to %s: %w", targetID, err)
	}
	defer rows.Close()

	var out []model.Edge
	for rows.Next() {
		var src, pred, tgt, inv string
		var createdAt time.Time
		if err := rows.Scan(&src, &pred, &tgt, &inv, &createdAt); err != nil {
			return nil, err
		}
		out = append(out, model.Edge{Collection: collection, SourceID: src, Predicate: pred, TargetID: tgt, Inverse: inv, Created: createdAt})
	}
	return out, rows.Err()
}

// DeleteEdge removes a single edge.
func (rs *RecordStore) DeleteEdge(collection, sourceID, predicate, targetID string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	_, err := rs.db.Exec(
		`DELETE FROM edges WHERE collection = ? AND source_id = ? AND predicate = ? AND target_id = ?`,
		collection, sourceID, predicate, targetID,
	)
	if err != nil {
		return fmt.Errorf("delete edge: %w", err)
	}
	return nil
}
