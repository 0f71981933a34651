package engine

import (
	"context"
	"testing"

	"github.com/hughpyle/keep/internal/coherence"
	"github.com/hughpyle/keep/internal/config"
	"github.com/hughpyle/keep/internal/providers/analyzer"
	"github.com/hughpyle/keep/internal/providers/document"
	"github.com/hughpyle/keep/internal/providers/summarization"
	"github.com/hughpyle/keep/internal/queue"
	"github.com/hughpyle/keep/internal/store"
	"github.com/hughpyle/keep/internal/vectorindex"
)

// fakeEmbedder produces deterministic low-dimension vectors from content so
// cosine similarity between related fixtures is meaningful without a real
// embedding backend. Each rune contributes to one of embedDim buckets.
type fakeEmbedder struct{ dim int }

const embedDim = 8

func newFakeEmbedder() *fakeEmbedder { return &fakeEmbedder{dim: embedDim} }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, f.dim)
	for i, r := range text {
		vec[i%f.dim] += float32(r%31 + 1)
	}
	return vec, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return f.dim }
func (f *fakeEmbedder) Name() string   { return "fake" }

// newTestEngine builds an Engine over a fresh temp directory, with a fake
// embedder (no network) and the real truncation summarizer / chunk
// analyzer / composite document provider, matching how keep actually wires
// the default (no-provider-configured) store.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return newTestEngineAtDir(t, t.TempDir())
}

// newTestEngineAtDir is newTestEngine over a caller-chosen directory, so a
// test can open two independent Engine instances against the same store
// directory to exercise cross-process coherence.
func newTestEngineAtDir(t *testing.T, dir string) *Engine {
	t.Helper()

	rs, err := store.Open(dir + "/keep.db")
	if err != nil {
		t.Fatalf("open record store: %v", err)
	}
	vi, err := vectorindex.Open(dir, embedDim)
	if err != nil {
		t.Fatalf("open vector index: %v", err)
	}
	coh, err := coherence.Open(dir)
	if err != nil {
		t.Fatalf("open coherence: %v", err)
	}

	e := &Engine{
		cfg:               config.DefaultConfig(dir),
		storeDir:          dir,
		store:             rs,
		vindex:            vi,
		coherence:         coh,
		pending:           queue.NullPendingQueue{},
		embedder:          newFakeEmbedder(),
		summarizer:        summarization.TruncationSummarizer{},
		documents:         document.NewComposite(),
		analyzer:          analyzer.NewDefaultAnalyzer(nil),
		defaultCollection: "default",
		localMode:         true,
		decayHalfLife:     30,
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func mustPut(t *testing.T, e *Engine, id, content string) {
	t.Helper()
	ctx := context.Background()
	if _, err := e.Put(ctx, content, PutOptions{ID: id}); err != nil {
		t.Fatalf("put %s: %v", id, err)
	}
}
