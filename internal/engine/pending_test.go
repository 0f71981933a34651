package engine

import (
	"context"
	"testing"
	"time"

	"github.com/hughpyle/keep/internal/model"
)

func TestProcessPending_RunsDeferredEmbedTask(t *testing.T) {
	e := newTestEngine(t)
	e.localMode = false
	e.pending = newFakeQueue()

	if _, err := e.Put(context.Background(), "deferred content", PutOptions{ID: "a"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	if _, ok, _ := e.vindex.GetEmbedding("default", model.VectorKey("a")); ok {
		t.Fatalf("expected no inline embedding in cloud mode before processing")
	}

	result, err := e.ProcessPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("process pending: %v", err)
	}
	// A cloud-mode put with no summary enqueues a summarize task alongside
	// the embed task.
	if result.Processed != 2 || result.Failed != 0 {
		t.Fatalf("expected 2 processed tasks (summarize and embed), got %+v", result)
	}

	if _, ok, _ := e.vindex.GetEmbedding("default", model.VectorKey("a")); !ok {
		t.Fatalf("expected embedding to exist after processing the deferred task")
	}
}

// fakeQueue is an in-memory PendingQueue for tests that need real deferred
// behavior without a RecordStore round trip.
type fakeQueue struct {
	tasks []model.PendingTask
}

func newFakeQueue() *fakeQueue { return &fakeQueue{} }

func (q *fakeQueue) Enqueue(task model.PendingTask) error {
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *fakeQueue) Dequeue(now time.Time, limit int) ([]model.PendingTask, error) {
	if limit <= 0 || limit > len(q.tasks) {
		limit = len(q.tasks)
	}
	out := q.tasks[:limit]
	q.tasks = q.tasks[limit:]
	return out, nil
}

func (q *fakeQueue) Complete(id, collection string, taskType model.TaskType) error { return nil }

func (q *fakeQueue) Requeue(id, collection string, taskType model.TaskType) error {
	return nil
}

func (q *fakeQueue) PendingCount() (int, error) { return len(q.tasks), nil }
