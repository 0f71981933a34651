// Package queue provides the deferred-work abstraction Engine uses to push
// embedding/summarization/analysis work off the synchronous Put path. The
// default PendingQueue is table-backed on RecordStore's connection;
// NullPendingQueue discards everything immediately for local/synchronous
// mode where deferred work never runs.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/hughpyle/keep/internal/logging"
	"github.com/hughpyle/keep/internal/model"
)

// PendingQueue is the interface Engine depends on, so local mode can swap in
// NullPendingQueue without any caller-side branching.
type PendingQueue interface {
	Enqueue(task model.PendingTask) error
	Dequeue(now time.Time, limit int) ([]model.PendingTask, error)
	Complete(id, collection string, taskType model.TaskType) error
	Requeue(id, collection string, taskType model.TaskType) error
	PendingCount() (int, error)
}

// recordStoreQueue is the storage interface this package needs from
// RecordStore, narrowed so tests can fake it without a real database.
type recordStoreQueue interface {
	Enqueue(task model.PendingTask) error
	Dequeue(now time.Time, limit int) ([]model.PendingTask, error)
	Complete(id, collection string, taskType model.TaskType) error
	Requeue(id, collection string, taskType model.TaskType) error
	PendingCount() (int, error)
}

// DeferredQueue wraps a RecordStore's pending_tasks table, attaching a
// correlation id to every enqueue for log tracing. The correlation id is
// additive: it plays no part in the (id, collection, task_type) primary key
// that task coalescing relies on.
type DeferredQueue struct {
	store recordStoreQueue
}

// New wraps store as a DeferredQueue. store is typically *store.RecordStore.
func New(store recordStoreQueue) *DeferredQueue {
	return &DeferredQueue{store: store}
}

func (q *DeferredQueue) Enqueue(task model.PendingTask) error {
	correlationID := uuid.NewString()
	if task.Metadata == nil {
		task.Metadata = map[string]string{}
	}
	task.Metadata["_correlation_id"] = correlationID
	if err := q.store.Enqueue(task); err != nil {
		return err
	}
	logging.QueueDebug("enqueued %s/%s/%s correlation=%s", task.Collection, task.ID, task.Type, correlationID)
	return nil
}

func (q *DeferredQueue) Dequeue(now time.Time, limit int) ([]model.PendingTask, error) {
	tasks, err := q.store.Dequeue(now, limit)
	if err != nil {
		return nil, err
	}
	if len(tasks) > 0 {
		logging.QueueDebug("dequeued %d task(s)", len(tasks))
	}
	return tasks, nil
}

func (q *DeferredQueue) Complete(id, collection string, taskType model.TaskType) error {
	return q.store.Complete(id, collection, taskType)
}

func (q *DeferredQueue) Requeue(id, collection string, taskType model.TaskType) error {
	logging.Queue("requeuing %s/%s/%s", collection, id, taskType)
	return q.store.Requeue(id, collection, taskType)
}

func (q *DeferredQueue) PendingCount() (int, error) {
	return q.store.PendingCount()
}

// NullPendingQueue discards every enqueue and never returns work, for
// local/synchronous mode where Put embeds and summarizes inline instead of
// deferring that work.
type NullPendingQueue struct{}

func (NullPendingQueue) Enqueue(model.PendingTask) error { return nil }

func (NullPendingQueue) Dequeue(time.Time, int) ([]model.PendingTask, error) { return nil, nil }

func (NullPendingQueue) Complete(string, string, model.TaskType) error { return nil }

func (NullPendingQueue) Requeue(string, string, model.TaskType) error { return nil }

func (NullPendingQueue) PendingCount() (int, error) { return 0, nil }

var (
	_ PendingQueue = (*DeferredQueue)(nil)
	_ PendingQueue = NullPendingQueue{}
)
