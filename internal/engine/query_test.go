package engine

import (
	"context"
	"testing"

	"github.com/hughpyle/keep/internal/model"
)

func TestTag_MergesWithoutTouchingContent(t *testing.T) {
	e := newTestEngine(t)
	mustPut(t, e, "a", "original content")

	tags := model.NewTags(nil)
	tags.Set("project", "keep")
	item, err := e.Tag("default", "a", tags)
	if err != nil {
		t.Fatalf("tag: %v", err)
	}
	if v, ok := item.Tags.Get("project"); !ok || v != "keep" {
		t.Fatalf("expected project=keep tag, got %v", item.Tags.Map())
	}

	_, content, err := e.GetContent("default", "a")
	if err != nil {
		t.Fatalf("get content: %v", err)
	}
	if content != "original content" {
		t.Fatalf("tag must not alter content, got %q", content)
	}

	versions, _ := e.store.ListVersions("default", "a")
	if len(versions) != 0 {
		t.Fatalf("tag-only update must not archive a version")
	}
}

func TestTag_EmptyValueDeletesKey(t *testing.T) {
	e := newTestEngine(t)
	tags := model.NewTags(nil)
	tags.Set("project", "keep")
	mustPutTagged(t, e, "a", "content", tags)

	clear := model.NewTags(nil)
	clear.Set("project", "")
	item, err := e.Tag("default", "a", clear)
	if err != nil {
		t.Fatalf("tag: %v", err)
	}
	if _, ok := item.Tags.Get("project"); ok {
		t.Fatalf("expected project tag to be deleted")
	}
}

func mustPutTagged(t *testing.T, e *Engine, id, content string, tags model.Tags) {
	t.Helper()
	if _, err := e.Put(context.Background(), content, PutOptions{ID: id, Tags: tags}); err != nil {
		t.Fatalf("put %s: %v", id, err)
	}
}

func TestTag_StripsCallerSuppliedSystemTags(t *testing.T) {
	e := newTestEngine(t)
	mustPut(t, e, "a", "original content")

	updates := model.NewTags(nil)
	updates.Set("project", "keep")
	updates.Set("_base_id", "forged")
	item, err := e.Tag("default", "a", updates)
	if err != nil {
		t.Fatalf("tag: %v", err)
	}
	if v, ok := item.Tags.Get("_base_id"); ok {
		t.Fatalf("expected caller-supplied _base_id to be stripped, got %q", v)
	}
	if v, ok := item.Tags.Get("project"); !ok || v != "keep" {
		t.Fatalf("expected project=keep tag, got %v", item.Tags.Map())
	}
}

func TestDelete_CascadesVectorEntriesAndReturnsFalseIfMissing(t *testing.T) {
	e := newTestEngine(t)
	mustPut(t, e, "a", "content one")
	mustPut(t, e, "a", "content two")

	existed, err := e.Delete("default", "a")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !existed {
		t.Fatalf("expected delete to report the item existed")
	}

	if _, _, err := e.store.GetWithContent("default", "a"); err == nil {
		t.Fatalf("expected item to be gone after delete")
	}
	if _, ok, _ := e.vindex.GetEmbedding("default", model.VectorKey("a")); ok {
		t.Fatalf("expected current embedding to be removed")
	}

	existed, err = e.Delete("default", "a")
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if existed {
		t.Fatalf("expected second delete of already-gone item to report false")
	}
}

func TestQueryTag_ExactMatch(t *testing.T) {
	e := newTestEngine(t)
	tags := model.NewTags(nil)
	tags.Set("kind", "note")
	mustPutTagged(t, e, "a", "note body", tags)
	mustPut(t, e, "b", "other body")

	hits, err := e.QueryTag("default", map[string]string{"kind": "note"}, 0)
	if err != nil {
		t.Fatalf("query tag: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "a" {
		t.Fatalf("expected exactly item a, got %+v", hits)
	}
}

func TestListItems_FiltersByPrefix(t *testing.T) {
	e := newTestEngine(t)
	mustPut(t, e, "note-1", "first note")
	mustPut(t, e, "note-2", "second note")
	mustPut(t, e, "task-1", "a task")

	items, err := e.ListItems(ListOptions{IDPrefix: "note-"})
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items with note- prefix, got %d", len(items))
	}
}
