// Package engine orchestrates RecordStore, VectorIndex, the coherence
// layer, the deferred-work queue, and the configured providers behind the
// public operations keep exposes: put, get, find, tag, delete, analyze,
// move, and their neighbors.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hughpyle/keep/internal/config"
	"github.com/hughpyle/keep/internal/coherence"
	"github.com/hughpyle/keep/internal/logging"
	"github.com/hughpyle/keep/internal/model"
	"github.com/hughpyle/keep/internal/providers"
	"github.com/hughpyle/keep/internal/providers/analyzer"
	"github.com/hughpyle/keep/internal/providers/document"
	"github.com/hughpyle/keep/internal/providers/embedding"
	"github.com/hughpyle/keep/internal/providers/summarization"
	"github.com/hughpyle/keep/internal/queue"
	"github.com/hughpyle/keep/internal/store"
	"github.com/hughpyle/keep/internal/vectorindex"
)

// Engine is the orchestrator. One Engine owns one store directory's five
// substores for the lifetime of the process; Close releases all of them.
type Engine struct {
	cfg       *config.Config
	storeDir  string
	store     *store.RecordStore
	vindexMu  sync.Mutex
	vindex    *vectorindex.VectorIndex
	coherence *coherence.Coherence
	pending   queue.PendingQueue

	embedder   embedding.Provider
	summarizer summarization.Provider
	documents  document.Provider
	analyzer   analyzer.Provider

	defaultCollection string
	localMode         bool
	decayHalfLife     float64
}

// dbFileName is RecordStore's file inside a store directory, sitting
// alongside vectorindex.FileName.
const dbFileName = "keep.db"

// Open constructs an Engine over storeDir, loading or creating keep.toml,
// opening RecordStore and VectorIndex, and wiring the configured providers.
func Open(ctx context.Context, storeDir string) (*Engine, error) {
	cfg, err := config.LoadOrCreate(storeDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return OpenWithConfig(ctx, storeDir, cfg)
}

// OpenWithConfig constructs an Engine using an already-loaded config,
// useful for tests that want to override provider settings without writing
// a keep.toml.
func OpenWithConfig(ctx context.Context, storeDir string, cfg *config.Config) (*Engine, error) {
	if err := logging.Initialize(storeDir, cfg.ToLoggingConfig()); err != nil {
		return nil, fmt.Errorf("initialize logging: %w", err)
	}

	rs, err := store.Open(storeDir + "/" + dbFileName)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}

	embedder, err := providers.NewEmbeddingProvider(ctx, cfg.Embedding, storeDir)
	if err != nil {
		rs.Close()
		return nil, fmt.Errorf("build embedding provider: %w", err)
	}
	summarizer, err := providers.NewSummarizationProvider(cfg.Summarization)
	if err != nil {
		rs.Close()
		return nil, fmt.Errorf("build summarization provider: %w", err)
	}
	documents, err := providers.NewDocumentProvider(cfg.Document)
	if err != nil {
		rs.Close()
		return nil, fmt.Errorf("build document provider: %w", err)
	}

	var generator analyzer.Generator
	if g, ok := summarizer.(analyzer.Generator); ok {
		generator = g
	}
	analyzerProvider, err := providers.NewAnalyzerProvider(cfg.Analyzer, generator)
	if err != nil {
		rs.Close()
		return nil, fmt.Errorf("build analyzer provider: %w", err)
	}

	vi, err := vectorindex.Open(storeDir, embedder.Dimension())
	if err != nil {
		rs.Close()
		return nil, fmt.Errorf("open vector index: %w", err)
	}

	coh, err := coherence.Open(storeDir)
	if err != nil {
		rs.Close()
		vi.Close()
		return nil, fmt.Errorf("open coherence layer: %w", err)
	}

	var pendingQueue queue.PendingQueue
	if cfg.LocalMode {
		pendingQueue = queue.NullPendingQueue{}
	} else {
		pendingQueue = queue.New(rs)
	}

	return &Engine{
		cfg:               cfg,
		storeDir:          storeDir,
		store:             rs,
		vindex:            vi,
		coherence:         coh,
		pending:           pendingQueue,
		embedder:          embedder,
		summarizer:        summarizer,
		documents:         documents,
		analyzer:          analyzerProvider,
		defaultCollection: cfg.Collection,
		localMode:         cfg.LocalMode,
		decayHalfLife:     cfg.DecayHalfLifeDays,
	}, nil
}

// Close releases RecordStore, VectorIndex, the coherence lock handle, and
// (if wired) the embedding cache's own database handle.
func (e *Engine) Close() error {
	if closer, ok := e.embedder.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	var firstErr error
	for _, closeFn := range []func() error{e.store.Close, e.vindex.Close, e.coherence.Close} {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// resolveCollection substitutes the store's default when collection is
// empty, then validates the result against model.CollectionNamePattern.
func (e *Engine) resolveCollection(collection string) (string, error) {
	if collection == "" {
		collection = e.defaultCollection
	}
	if !model.CollectionNamePattern.MatchString(collection) {
		return "", fmt.Errorf("%w: malformed collection name %q", ErrInvalidInput, collection)
	}
	return collection, nil
}

// refreshOnEpoch implements the coherence layer's read protocol: before a
// stale-sensitive read, check whether another process committed a write
// group since this Engine last observed the epoch sentinel, and if so,
// reopen the VectorIndex so it doesn't keep serving a cached view of the
// file as it stood before that write.
func (e *Engine) refreshOnEpoch() error {
	changed, err := e.coherence.CheckEpoch()
	if err != nil {
		return fmt.Errorf("check epoch: %w", err)
	}
	if !changed {
		return nil
	}

	vi, err := vectorindex.Open(e.storeDir, e.embedder.Dimension())
	if err != nil {
		return fmt.Errorf("reopen vector index after epoch advance: %w", err)
	}

	e.vindexMu.Lock()
	old := e.vindex
	e.vindex = vi
	e.vindexMu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			logging.Get(logging.CategoryEngine).Warn("close stale vector index: %v", err)
		}
	}
	logging.CoherenceDebug("vector index reopened after epoch advance")
	return nil
}

// vindexHandle returns the current VectorIndex under the swap lock, so a
// reader never observes a half-swapped pointer during refreshOnEpoch.
func (e *Engine) vindexHandle() *vectorindex.VectorIndex {
	e.vindexMu.Lock()
	defer e.vindexMu.Unlock()
	return e.vindex
}

func nowUTC() time.Time { return time.Now().UTC() }
