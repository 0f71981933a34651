package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hughpyle/keep/internal/model"
)

func openTestStore(t *testing.T) *RecordStore {
	t.Helper()
	dir := t.TempDir()
	rs, err := Open(filepath.Join(dir, "keep.db"))
	require.NoError(t, err)
	t.Cleanup(func() { rs.Close() })
	return rs
}

func TestPut_RoundTrip(t *testing.T) {
	rs := openTestStore(t)
	now := time.Now()

	tags := model.NewTags(map[string]string{"topic": "go"})
	res, err := rs.Put("default", "note1", "hello world", "a greeting", tags, now)
	require.NoError(t, err)
	assert.True(t, res.ContentChanged)
	assert.Equal(t, 0, res.PriorVersion)

	item, content, err := rs.GetWithContent("default", "note1")
	require.NoError(t, err)
	assert.Equal(t, "hello world", content)
	assert.Equal(t, "a greeting", item.Summary)
	v, ok := item.Tags.Get("topic")
	assert.True(t, ok)
	assert.Equal(t, "go", v)
}

func TestPut_UnchangedContentIsNoOp(t *testing.T) {
	rs := openTestStore(t)
	now := time.Now()

	_, err := rs.Put("default", "note1", "same content", "s1", model.NewTags(nil), now)
	require.NoError(t, err)

	res, err := rs.Put("default", "note1", "same content", "s2", model.NewTags(nil), now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, res.ContentChanged)

	versions, err := rs.ListVersions("default", "note1")
	require.NoError(t, err)
	assert.Empty(t, versions, "unchanged content must not archive a version")
}

func TestPut_ContentChangeArchivesVersion(t *testing.T) {
	rs := openTestStore(t)
	now := time.Now()

	_, err := rs.Put("default", "note1", "v1 content", "s1", model.NewTags(nil), now)
	require.NoError(t, err)

	res, err := rs.Put("default", "note1", "v2 content", "s2", model.NewTags(nil), now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, res.ContentChanged)

	versions, err := rs.ListVersions("default", "note1")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].Version)

	archived, err := rs.GetVersion("default", "note1", 1)
	require.NoError(t, err)
	assert.Equal(t, "s1", archived.Summary)

	item, err := rs.Get("default", "note1")
	require.NoError(t, err)
	assert.Equal(t, "s2", item.Summary)
}

func TestGetVersionContent_ReturnsArchivedBody(t *testing.T) {
	rs := openTestStore(t)
	now := time.Now()

	_, err := rs.Put("default", "note1", "v1 content", "s1", model.NewTags(nil), now)
	require.NoError(t, err)
	_, err = rs.Put("default", "note1", "v2 content", "s2", model.NewTags(nil), now.Add(time.Minute))
	require.NoError(t, err)

	content, err := rs.GetVersionContent("default", "note1", 1)
	require.NoError(t, err)
	assert.Equal(t, "v1 content", content)

	_, err = rs.GetVersionContent("default", "note1", 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteVersion_RemovesOnlyThatVersion(t *testing.T) {
	rs := openTestStore(t)
	now := time.Now()

	_, err := rs.Put("default", "note1", "v1 content", "s1", model.NewTags(nil), now)
	require.NoError(t, err)
	_, err = rs.Put("default", "note1", "v2 content", "s2", model.NewTags(nil), now.Add(time.Minute))
	require.NoError(t, err)
	_, err = rs.Put("default", "note1", "v3 content", "s3", model.NewTags(nil), now.Add(2*time.Minute))
	require.NoError(t, err)

	require.NoError(t, rs.DeleteVersion("default", "note1", 1))

	versions, err := rs.ListVersions("default", "note1")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, 2, versions[0].Version)

	item, err := rs.Get("default", "note1")
	require.NoError(t, err)
	assert.Equal(t, "s3", item.Summary)
}

func TestContentHash_StableForIdenticalContent(t *testing.T) {
	shortA, fullA := model.ContentHashes("identical")
	shortB, fullB := model.ContentHashes("identical")
	assert.Equal(t, shortA, shortB)
	assert.Equal(t, fullA, fullB)
	assert.Len(t, shortA, 10)
	assert.Len(t, fullA, 64)
}

func TestDelete_CascadesVersionsPartsEdges(t *testing.T) {
	rs := openTestStore(t)
	now := time.Now()

	_, err := rs.Put("default", "a", "content a", "sa", model.NewTags(nil), now)
	require.NoError(t, err)
	_, err = rs.Put("default", "a", "content a2", "sa2", model.NewTags(nil), now.Add(time.Minute))
	require.NoError(t, err)
	_, err = rs.Put("default", "b", "content b", "sb", model.NewTags(nil), now)
	require.NoError(t, err)

	require.NoError(t, rs.PutEdge("default", "a", "relates_to", "b", "related_from", now))
	require.NoError(t, rs.ReplaceParts("default", "a", []model.Part{
		{PartNum: 1, Summary: "p1", Content: "part one", Tags: model.NewTags(nil)},
	}, now))

	require.NoError(t, rs.Delete("default", "a"))

	_, err = rs.Get("default", "a")
	assert.ErrorIs(t, err, ErrNotFound)

	versions, err := rs.ListVersions("default", "a")
	require.NoError(t, err)
	assert.Empty(t, versions)

	parts, err := rs.ListParts("default", "a")
	require.NoError(t, err)
	assert.Empty(t, parts)

	edges, err := rs.Edges("default", "a")
	require.NoError(t, err)
	assert.Empty(t, edges)

	edgesB, err := rs.Edges("default", "b")
	require.NoError(t, err)
	assert.Empty(t, edgesB, "edge with a as target must also be removed when a is deleted")
}

func TestQueryTag_ExactAndExistenceMatch(t *testing.T) {
	rs := openTestStore(t)
	now := time.Now()

	_, err := rs.Put("default", "n1", "c1", "s1", model.NewTags(map[string]string{"topic": "go", "status": "draft"}), now)
	require.NoError(t, err)
	_, err = rs.Put("default", "n2", "c2", "s2", model.NewTags(map[string]string{"topic": "rust"}), now)
	require.NoError(t, err)

	exact, err := rs.QueryTag("default", map[string]string{"topic": "go"}, 10)
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, "n1", exact[0].ID)

	existence, err := rs.QueryTag("default", map[string]string{"status": ""}, 10)
	require.NoError(t, err)
	require.Len(t, existence, 1)
	assert.Equal(t, "n1", existence[0].ID)
}

func TestQueue_CoalescesOnReenqueue(t *testing.T) {
	rs := openTestStore(t)
	now := time.Now()

	task := model.PendingTask{ID: "n1", Collection: "default", Type: model.TaskEmbed, Content: "first", QueuedAt: now}
	require.NoError(t, rs.Enqueue(task))

	task.Content = "second"
	task.QueuedAt = now.Add(time.Minute)
	require.NoError(t, rs.Enqueue(task))

	count, err := rs.PendingCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count, "re-enqueue of the same (id, collection, task_type) must coalesce, not duplicate")

	dequeued, err := rs.Dequeue(now.Add(2*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, dequeued, 1)
	assert.Equal(t, "second", dequeued[0].Content)
}

func TestQueue_DequeueIsNonDestructiveUntilComplete(t *testing.T) {
	rs := openTestStore(t)
	now := time.Now()

	require.NoError(t, rs.Enqueue(model.PendingTask{ID: "n1", Collection: "default", Type: model.TaskEmbed, Content: "x", QueuedAt: now}))

	_, err := rs.Dequeue(now, 10)
	require.NoError(t, err)

	count, err := rs.PendingCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count, "dequeued tasks drop out of the pending count but the row survives")

	require.NoError(t, rs.Requeue("n1", "default", model.TaskEmbed))
	count, err = rs.PendingCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, rs.Complete("n1", "default", model.TaskEmbed))
	count, err = rs.PendingCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMigrations_Idempotent(t *testing.T) {
	rs := openTestStore(t)
	require.NoError(t, RunMigrations(rs.db))
	require.NoError(t, RunMigrations(rs.db))
	assert.Equal(t, CurrentSchemaVersion, GetSchemaVersion(rs.db))
}

func TestQueryFullText_MatchesSummaryAndContent(t *testing.T) {
	rs := openTestStore(t)
	now := time.Now()

	_, err := rs.Put("default", "n1", "the quick brown fox", "about foxes", model.NewTags(nil), now)
	require.NoError(t, err)
	_, err = rs.Put("default", "n2", "an unrelated document", "about cars", model.NewTags(nil), now)
	require.NoError(t, err)

	hits, err := rs.QueryFullText("default", "fox", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "n1", hits[0].ID)
}
