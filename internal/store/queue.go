package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hughpyle/keep/internal/model"
)

// Enqueue inserts or replaces a pending task keyed by (id, collection,
// task_type). A re-enqueue of the same triple coalesces onto the prior row:
// the new content and metadata win, and queued_at resets, so a burst of
// edits to the same item produces exactly one deferred task per type.
func (rs *RecordStore) Enqueue(task model.PendingTask) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	metaJSON, err := json.Marshal(task.Metadata)
	if err != nil {
		return fmt.Errorf("marshal task metadata: %w", err)
	}
	_, err = rs.db.Exec(
		`INSERT INTO pending_tasks (id, collection, task_type, content, metadata_json, queued_at, dequeued_at)
		 VALUES (?, ?, ?, ?, ?, ?, NULL)
		 ON CONFLICT (id, collection, task_type) DO UPDATE SET
		   content = excluded.content, metadata_json = excluded.metadata_json,
		   queued_at = excluded.queued_at, dequeued_at = NULL`,
		task.ID, task.Collection, string(task.Type), task.Content, string(metaJSON), task.QueuedAt,
	)
	if err != nil {
		return fmt.Errorf("enqueue %s/%s/%s: %w", task.Collection, task.ID, task.Type, err)
	}
	return nil
}

// Dequeue returns up to limit not-yet-dequeued tasks, oldest first, and
// marks them dequeued_at = now. Dequeuing is non-destructive: the row stays
// until Complete deletes it, so a worker that crashes mid-task leaves the
// task recoverable rather than silently dropped.
func (rs *RecordStore) Dequeue(now time.Time, limit int) ([]model.PendingTask, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := rs.db.Query(
		`SELECT id, collection, task_type, content, metadata_json, queued_at FROM pending_tasks
		 WHERE dequeued_at IS NULL ORDER BY queued_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending tasks: %w", err)
	}

	var out []model.PendingTask
	var keys [][3]string
	for rows.Next() {
		var id, collection, taskType, content, metaJSON string
		var queuedAt time.Time
		if err := rows.Scan(&id, &collection, &taskType, &content, &metaJSON, &queuedAt); err != nil {
			rows.Close()
			return nil, err
		}
		var meta map[string]string
		_ = json.Unmarshal([]byte(metaJSON), &meta)
		out = append(out, model.PendingTask{
			ID: id, Collection: collection, Type: model.TaskType(taskType),
			Content: content, Metadata: meta, QueuedAt: queuedAt,
		})
		keys = append(keys, [3]string{id, collection, taskType})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, k := range keys {
		if _, err := rs.db.Exec(
			`UPDATE pending_tasks SET dequeued_at = ? WHERE id = ? AND collection = ? AND task_type = ?`,
			now, k[0], k[1], k[2],
		); err != nil {
			return nil, fmt.Errorf("mark dequeued %v: %w", k, err)
		}
	}
	return out, nil
}

// Complete removes a task after its deferred work finishes successfully.
func (rs *RecordStore) Complete(id, collection string, taskType model.TaskType) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	_, err := rs.db.Exec(
		`DELETE FROM pending_tasks WHERE id = ? AND collection = ? AND task_type = ?`,
		id, collection, string(taskType),
	)
	if err != nil {
		return fmt.Errorf("complete task %s/%s/%s: %w", collection, id, taskType, err)
	}
	return nil
}

// Requeue clears dequeued_at without deleting the row, returning a task to
// the front of the queue — used when a worker fails a task and wants it
// retried rather than lost.
func (rs *RecordStore) Requeue(id, collection string, taskType model.TaskType) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	_, err := rs.db.Exec(
		`UPDATE pending_tasks SET dequeued_at = NULL WHERE id = ? AND collection = ? AND task_type = ?`,
		id, collection, string(taskType),
	)
	if err != nil {
		return fmt.Errorf("requeue task %s/%s/%s: %w", collection, id, taskType, err)
	}
	return nil
}

// PendingCount returns the number of tasks not yet dequeued.
func (rs *RecordStore) PendingCount() (int, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	var n int
	err := rs.db.QueryRow(`SELECT COUNT(*) FROM pending_tasks WHERE dequeued_at IS NULL`).Scan(&n)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("count pending tasks: %w", err)
	}
	return n, nil
}
