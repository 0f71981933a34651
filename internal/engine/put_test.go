package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/hughpyle/keep/internal/model"
)

func TestPut_AutoGeneratesContentHashID(t *testing.T) {
	e := newTestEngine(t)
	item, err := e.Put(context.Background(), "hello world", PutOptions{})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if item.ID == "" || item.ID[0] != '%' {
		t.Fatalf("expected auto id with %% prefix, got %q", item.ID)
	}
}

func TestPut_IdenticalContentIsNoOpOnContent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	first, err := e.Put(ctx, "same content", PutOptions{ID: "a"})
	if err != nil {
		t.Fatalf("first put: %v", err)
	}
	second, err := e.Put(ctx, "same content", PutOptions{ID: "a"})
	if err != nil {
		t.Fatalf("second put: %v", err)
	}
	if second.ContentHashFull != first.ContentHashFull {
		t.Fatalf("content hash changed on identical re-put")
	}

	versions, err := e.store.ListVersions("default", "a")
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(versions) != 0 {
		t.Fatalf("expected no archived versions for unchanged content, got %d", len(versions))
	}
}

func TestPut_ChangedContentArchivesPriorVersion(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	if _, err := e.Put(ctx, "version one", PutOptions{ID: "a"}); err != nil {
		t.Fatalf("put v1: %v", err)
	}
	if _, err := e.Put(ctx, "version two", PutOptions{ID: "a"}); err != nil {
		t.Fatalf("put v2: %v", err)
	}

	versions, err := e.store.ListVersions("default", "a")
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("expected 1 archived version, got %d", len(versions))
	}
	if versions[0].Summary == "" && versions[0].ContentHash == "" {
		t.Fatalf("archived version looks empty")
	}
}

func TestPut_LocalModeWritesEmbeddingInline(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	if _, err := e.Put(ctx, "embed me", PutOptions{ID: "a"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	vec, ok, err := e.vindex.GetEmbedding("default", model.VectorKey("a"))
	if err != nil {
		t.Fatalf("get embedding: %v", err)
	}
	if !ok || len(vec) == 0 {
		t.Fatalf("expected inline embedding to be written in local mode")
	}
}

func TestPut_MissingSummaryIsSummarizedInline(t *testing.T) {
	e := newTestEngine(t)
	item, err := e.Put(context.Background(), "some content here", PutOptions{ID: "a"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if item.Summary == "" {
		t.Fatalf("expected inline summary to be computed in local mode")
	}
}

func TestSetNow_PutsUnderNowID(t *testing.T) {
	e := newTestEngine(t)
	item, err := e.SetNow(context.Background(), "current context", model.NewTags(nil))
	if err != nil {
		t.Fatalf("set now: %v", err)
	}
	if item.ID != "now" {
		t.Fatalf("expected id 'now', got %q", item.ID)
	}
}

func TestPut_StripsCallerSuppliedSystemTags(t *testing.T) {
	e := newTestEngine(t)
	tags := model.NewTags(map[string]string{"topic": "go", "_base_id": "forged"})
	item, err := e.Put(context.Background(), "hello", PutOptions{ID: "a", Tags: tags})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if v, ok := item.Tags.Get("_base_id"); ok {
		t.Fatalf("expected caller-supplied _base_id to be stripped, got %q", v)
	}
	if _, ok := item.Tags.Get("topic"); !ok {
		t.Fatalf("expected non-system tag to survive")
	}
	if _, ok := item.Tags.Get("_created"); !ok {
		t.Fatalf("expected Engine-owned _created tag to still be set")
	}
}

func TestPut_RejectsMalformedCollectionName(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Put(context.Background(), "hello", PutOptions{Collection: "Not Valid!"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
