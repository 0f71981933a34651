package engine

import (
	"context"
	"testing"
)

func TestGet_TouchesAccessedAt(t *testing.T) {
	e := newTestEngine(t)
	mustPut(t, e, "a", "content")

	before, err := e.store.Get("default", "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	item, err := e.Get("default", "a")
	if err != nil {
		t.Fatalf("engine get: %v", err)
	}
	if item.AccessedAt.Before(before.AccessedAt) {
		t.Fatalf("expected accessed_at to advance or stay equal")
	}
}

func TestGetContext_IncludesSiblingsPartsVersionsAndEdges(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	mustPut(t, e, "a", "quick brown fox jumps over the lazy dog")
	mustPut(t, e, "b", "quick brown fox jumps over a fence")
	mustPut(t, e, "a", "quick brown fox jumps over the lazy dog and runs")

	if err := e.store.PutEdge("default", "a", "relates_to", "b", "related_from", nowUTC()); err != nil {
		t.Fatalf("put edge: %v", err)
	}

	itemCtx, err := e.GetContext(ctx, "default", "a")
	if err != nil {
		t.Fatalf("get context: %v", err)
	}
	if itemCtx.Item.ID != "a" {
		t.Fatalf("expected item a, got %s", itemCtx.Item.ID)
	}
	if itemCtx.Versions.Current != 2 {
		t.Fatalf("expected current version 2, got %d", itemCtx.Versions.Current)
	}
	if len(itemCtx.Versions.Before) != 1 {
		t.Fatalf("expected one archived version before current, got %d", len(itemCtx.Versions.Before))
	}
	if len(itemCtx.Edges) != 1 || itemCtx.Edges[0].TargetID != "b" {
		t.Fatalf("expected one outgoing edge to b, got %+v", itemCtx.Edges)
	}
}

func TestGetContext_MissingItemErrors(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.GetContext(context.Background(), "default", "missing"); err == nil {
		t.Fatalf("expected error for missing item")
	}
}
