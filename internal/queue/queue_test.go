package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hughpyle/keep/internal/model"
)

type fakeStore struct {
	enqueued   []model.PendingTask
	dequeue    []model.PendingTask
	dequeueErr error
	completed  [][3]string
	requeued   [][3]string
	pending    int
}

func (f *fakeStore) Enqueue(task model.PendingTask) error {
	f.enqueued = append(f.enqueued, task)
	return nil
}

func (f *fakeStore) Dequeue(now time.Time, limit int) ([]model.PendingTask, error) {
	return f.dequeue, f.dequeueErr
}

func (f *fakeStore) Complete(id, collection string, taskType model.TaskType) error {
	f.completed = append(f.completed, [3]string{id, collection, string(taskType)})
	return nil
}

func (f *fakeStore) Requeue(id, collection string, taskType model.TaskType) error {
	f.requeued = append(f.requeued, [3]string{id, collection, string(taskType)})
	return nil
}

func (f *fakeStore) PendingCount() (int, error) { return f.pending, nil }

func TestDeferredQueue_EnqueueAttachesCorrelationID(t *testing.T) {
	fs := &fakeStore{}
	q := New(fs)

	require.NoError(t, q.Enqueue(model.PendingTask{ID: "a", Collection: "default", Type: model.TaskEmbed}))
	require.Len(t, fs.enqueued, 1)

	corrID, ok := fs.enqueued[0].Metadata["_correlation_id"]
	assert.True(t, ok)
	assert.NotEmpty(t, corrID)
}

func TestDeferredQueue_EnqueuePreservesCallerMetadata(t *testing.T) {
	fs := &fakeStore{}
	q := New(fs)

	require.NoError(t, q.Enqueue(model.PendingTask{
		ID: "a", Collection: "default", Type: model.TaskAnalyze,
		Metadata: map[string]string{"model": "text-embedding-3"},
	}))

	assert.Equal(t, "text-embedding-3", fs.enqueued[0].Metadata["model"])
}

func TestDeferredQueue_DelegatesDequeueCompleteRequeue(t *testing.T) {
	fs := &fakeStore{dequeue: []model.PendingTask{{ID: "a"}}, pending: 3}
	q := New(fs)

	tasks, err := q.Dequeue(time.Now(), 10)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	require.NoError(t, q.Complete("a", "default", model.TaskEmbed))
	assert.Len(t, fs.completed, 1)

	require.NoError(t, q.Requeue("a", "default", model.TaskEmbed))
	assert.Len(t, fs.requeued, 1)

	count, err := q.PendingCount()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestNullPendingQueue_DiscardsEverything(t *testing.T) {
	var q NullPendingQueue

	require.NoError(t, q.Enqueue(model.PendingTask{ID: "a"}))

	tasks, err := q.Dequeue(time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	require.NoError(t, q.Complete("a", "default", model.TaskEmbed))
	require.NoError(t, q.Requeue("a", "default", model.TaskEmbed))

	count, err := q.PendingCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}
