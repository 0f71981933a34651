package engine

import (
	"context"
	"testing"
)

func TestMove_ExtractsAllVersionsIntoNewTarget(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	mustPut(t, e, "now", "first draft of the note")
	mustPut(t, e, "now", "second draft of the note")
	mustPut(t, e, "now", "third draft of the note")

	target, err := e.Move(ctx, "archived-note", MoveOptions{SourceID: "now"})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if target.ID != "archived-note" {
		t.Fatalf("expected target id archived-note, got %s", target.ID)
	}

	versions, err := e.store.ListVersions("default", "archived-note")
	if err != nil {
		t.Fatalf("list target versions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 archived versions on target (3 states minus current), got %d", len(versions))
	}

	if _, err := e.store.Get("default", "now"); err == nil {
		t.Fatalf("expected source 'now' to be gone once every state was moved")
	}
}

func TestMove_OnlyCurrentLeavesSourceRestoredFromPriorVersion(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	mustPut(t, e, "now", "first draft")
	mustPut(t, e, "now", "second draft")

	if _, err := e.Move(ctx, "snapshot", MoveOptions{SourceID: "now", OnlyCurrent: true}); err != nil {
		t.Fatalf("move: %v", err)
	}

	_, content, err := e.store.GetWithContent("default", "now")
	if err != nil {
		t.Fatalf("expected source to still exist after only_current move: %v", err)
	}
	if content != "first draft" {
		t.Fatalf("expected source restored to its prior version content, got %q", content)
	}

	_, targetContent, err := e.store.GetWithContent("default", "snapshot")
	if err != nil {
		t.Fatalf("get target content: %v", err)
	}
	if targetContent != "second draft" {
		t.Fatalf("expected target to hold the extracted current content, got %q", targetContent)
	}
}
