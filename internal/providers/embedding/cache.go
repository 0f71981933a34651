package embedding

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"github.com/hughpyle/keep/internal/logging"
	"github.com/hughpyle/keep/internal/model"
)

// CacheFileName is the SQLite file CachingProvider keeps inside the store
// directory, separate from RecordStore's and VectorIndex's files.
const CacheFileName = "embedding_cache.db"

// CachingProvider decorates a Provider with a content-hash-keyed cache so
// re-embedding unchanged content (e.g. after a tag-only edit) is a lookup
// instead of an API call.
type CachingProvider struct {
	inner Provider
	db    *sql.DB
	mu    sync.Mutex

	hits   int64
	misses int64
}

// NewCachingProvider opens (or creates) storeDir/CacheFileName and wraps inner.
func NewCachingProvider(inner Provider, storeDir string) (*CachingProvider, error) {
	if err := os.MkdirAll(storeDir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory %s: %w", storeDir, err)
	}
	path := filepath.Join(storeDir, CacheFileName)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache %s: %w", path, err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cache (
		content_hash_full TEXT NOT NULL,
		model_name        TEXT NOT NULL,
		embedding         BLOB NOT NULL,
		PRIMARY KEY (content_hash_full, model_name)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache table: %w", err)
	}

	return &CachingProvider{inner: inner, db: db}, nil
}

func (c *CachingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	_, full := model.ContentHashes(text)
	modelName := c.inner.Name()

	c.mu.Lock()
	var blob []byte
	err := c.db.QueryRow(
		`SELECT embedding FROM cache WHERE content_hash_full = ? AND model_name = ?`, full, modelName,
	).Scan(&blob)
	c.mu.Unlock()

	if err == nil {
		atomic.AddInt64(&c.hits, 1)
		logging.EmbeddingDebug("cache hit for %s (model=%s)", full[:10], modelName)
		return decodeFloat32Slice(blob), nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("query embedding cache: %w", err)
	}

	atomic.AddInt64(&c.misses, 1)
	emb, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	_, execErr := c.db.Exec(
		`INSERT OR REPLACE INTO cache (content_hash_full, model_name, embedding) VALUES (?, ?, ?)`,
		full, modelName, encodeFloat32Slice(emb),
	)
	c.mu.Unlock()
	if execErr != nil {
		logging.Get(logging.CategoryEmbedding).Warn("cache store failed for %s: %v", full[:10], execErr)
	}
	return emb, nil
}

func (c *CachingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := c.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed batch item %d: %w", i, err)
		}
		out[i] = emb
	}
	return out, nil
}

func (c *CachingProvider) Dimension() int { return c.inner.Dimension() }

func (c *CachingProvider) Name() string { return c.inner.Name() }

// Stats reports cache effectiveness counters.
type Stats struct {
	Entries int
	Hits    int64
	Misses  int64
	HitRate float64
}

// CacheStats reconciles the in-memory hit/miss counters with a fresh row
// count from the cache table.
func (c *CachingProvider) CacheStats() (Stats, error) {
	var entries int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM cache`).Scan(&entries); err != nil {
		return Stats{}, fmt.Errorf("count cache entries: %w", err)
	}
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{Entries: entries, Hits: hits, Misses: misses, HitRate: rate}, nil
}

// Close releases the cache database handle.
func (c *CachingProvider) Close() error { return c.db.Close() }

func encodeFloat32Slice(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeFloat32Slice(buf []byte) []float32 {
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}

var _ Provider = (*CachingProvider)(nil)
