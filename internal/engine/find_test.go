package engine

import (
	"context"
	"testing"
	"time"

	"github.com/hughpyle/keep/internal/model"
)

func TestFind_ReturnsClosestMatchFirst(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	mustPut(t, e, "a", "apples and oranges are fruit")
	mustPut(t, e, "b", "oranges are citrus fruit")
	mustPut(t, e, "c", "rockets and satellites orbit the earth")

	hits, err := e.Find(ctx, "oranges are fruit", FindOptions{Limit: 2})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(hits) == 0 {
		t.Fatalf("expected at least one hit")
	}
	if hits[0].Item.ID == "c" {
		t.Fatalf("expected an unrelated item to rank last, got it first")
	}
}

func TestApplyDecay_MonotonicallyDecreasesWithAge(t *testing.T) {
	item := mustItem(t)
	now := item.UpdatedAt
	fresh := applyDecay(0.9, item, now, 30)
	aWeek := applyDecay(0.9, item, now.Add(7*24*time.Hour), 30)
	aMonth := applyDecay(0.9, item, now.Add(30*24*time.Hour), 30)
	if !(fresh > aWeek && aWeek > aMonth) {
		t.Fatalf("expected strictly decreasing scores with age: fresh=%v week=%v month=%v", fresh, aWeek, aMonth)
	}
	if aMonth > fresh/1.9 {
		t.Fatalf("expected score to roughly halve after one half-life, got fresh=%v month=%v", fresh, aMonth)
	}
}

func TestApplyDecay_DisabledWhenHalfLifeNonPositive(t *testing.T) {
	item := mustItem(t)
	got := applyDecay(0.5, item, item.UpdatedAt.Add(365*24*time.Hour), 0)
	if got != 0.5 {
		t.Fatalf("expected decay disabled to keep raw score, got %v", got)
	}
}

func TestFindSimilar_ExcludesSelfByDefault(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	mustPut(t, e, "a", "the quick brown fox")
	mustPut(t, e, "b", "the quick brown fox jumps")

	hits, err := e.FindSimilar(ctx, "default", "a", 5, false)
	if err != nil {
		t.Fatalf("find similar: %v", err)
	}
	for _, h := range hits {
		if h.Item.ID == "a" {
			t.Fatalf("expected self to be excluded")
		}
	}
}

func TestFindSimilar_UnknownIDReturnsEmpty(t *testing.T) {
	e := newTestEngine(t)
	hits, err := e.FindSimilar(context.Background(), "default", "missing", 5, false)
	if err != nil {
		t.Fatalf("find similar: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits for an item with no embedding")
	}
}

func TestFindSimilar_RefreshesVectorIndexAfterAnotherInstanceWrites(t *testing.T) {
	dir := t.TempDir()
	writer := newTestEngineAtDir(t, dir)
	reader := newTestEngineAtDir(t, dir)
	ctx := context.Background()

	before := reader.vindexHandle()

	time.Sleep(5 * time.Millisecond) // ensure epoch sentinel mtime resolution advances
	mustPut(t, writer, "a", "the quick brown fox")

	if _, err := reader.FindSimilar(ctx, "default", "missing", 5, false); err != nil {
		t.Fatalf("find similar: %v", err)
	}

	if reader.vindexHandle() == before {
		t.Fatalf("expected reader's VectorIndex to be reopened after writer's epoch bump")
	}
}

func TestFindSimilar_NoRefreshWhenNoOtherWriterCommitted(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	mustPut(t, e, "a", "the quick brown fox")

	before := e.vindexHandle()
	if _, err := e.FindSimilar(ctx, "default", "a", 5, false); err != nil {
		t.Fatalf("find similar: %v", err)
	}
	if e.vindexHandle() != before {
		t.Fatalf("expected no VectorIndex reopen when this Engine's own writes are the only ones observed")
	}
}

func mustItem(t *testing.T) model.Item {
	t.Helper()
	return model.Item{UpdatedAt: time.Now().UTC()}
}
