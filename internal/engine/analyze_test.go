package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/hughpyle/keep/internal/model"
)

func TestAnalyze_ProducesPartsAndEmbedsThem(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	content := strings.Repeat("first section with plenty of words to fill a chunk. ", 20) +
		"\n\n" + strings.Repeat("second section also long enough to be its own chunk. ", 20)
	mustPut(t, e, "a", content)

	parts, err := e.Analyze(ctx, "default", "a", false)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(parts) == 0 {
		t.Fatalf("expected at least one part from paragraph chunking")
	}
	for _, p := range parts {
		vec, ok, err := e.vindex.GetEmbedding("default", model.VectorPartKey("a", p.PartNum))
		if err != nil {
			t.Fatalf("get part embedding: %v", err)
		}
		if !ok || len(vec) == 0 {
			t.Fatalf("expected part %d to have an embedding", p.PartNum)
		}
	}
}

func TestAnalyze_WithoutForceReturnsExistingParts(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	content := strings.Repeat("alpha beta gamma delta epsilon zeta eta theta. ", 20) +
		"\n\n" + strings.Repeat("iota kappa lambda mu nu xi omicron pi. ", 20)
	mustPut(t, e, "a", content)

	first, err := e.Analyze(ctx, "default", "a", false)
	if err != nil {
		t.Fatalf("first analyze: %v", err)
	}
	if len(first) == 0 {
		t.Fatalf("expected the fixture to actually produce parts")
	}
	second, err := e.Analyze(ctx, "default", "a", false)
	if err != nil {
		t.Fatalf("second analyze: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("expected repeated analyze without force to be a no-op, got %d vs %d parts", len(second), len(first))
	}
}

func TestAnalyze_SynthesizesOverviewAfterTwoVersions(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	content := strings.Repeat("consistent body text for chunking purposes only. ", 20)
	mustPut(t, e, "a", content+" v1")
	mustPut(t, e, "a", content+" v2 extended")

	if _, err := e.Analyze(ctx, "default", "a", true); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	parts, err := e.store.ListParts("default", "a")
	if err != nil {
		t.Fatalf("list parts: %v", err)
	}
	found := false
	for _, p := range parts {
		if p.PartNum == 0 {
			found = true
			if v, ok := p.Tags.Get("_part_type"); !ok || v != "overview" {
				t.Fatalf("expected overview part to carry _part_type=overview tag")
			}
		}
	}
	if !found {
		t.Fatalf("expected @p0 overview part once an item has 2+ versions")
	}
}
