// Package vectorindex implements VectorIndex, keep's approximate-nearest-
// neighbor index over item, version, and part embeddings. It lives in its
// own SQLite file, separate from RecordStore, so the two stores can be
// rebuilt or restored independently; internal/coherence keeps them
// consistent across processes.
package vectorindex

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/hughpyle/keep/internal/logging"
)

// SearchResult is one nearest-neighbor hit.
type SearchResult struct {
	Key        string
	Similarity float64 // cosine similarity in [-1, 1], higher is closer
}

// VectorIndex wraps a SQLite-backed embedding store. When built with
// -tags sqlite_vec,cgo against a keep built with mattn/go-sqlite3, Query
// uses the real vec0 virtual table for ANN; otherwise it falls back to an
// exact brute-force cosine scan, correct but O(n) per query.
type VectorIndex struct {
	db     *sql.DB
	mu     sync.RWMutex
	path   string
	dim    int
	vecExt bool
}

// FileName is the conventional VectorIndex filename inside a store
// directory, sitting alongside RecordStore's keep.db.
const FileName = "vectors.db"

// Open opens (creating if necessary) the VectorIndex at storeDir/vectors.db
// for vectors of the given dimensionality.
func Open(storeDir string, dim int) (*VectorIndex, error) {
	path := filepath.Join(storeDir, FileName)
	if err := os.MkdirAll(storeDir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory %s: %w", storeDir, err)
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open vector index at %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, err
	}

	vi := &VectorIndex{db: db, path: path, dim: dim}
	if err := vi.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Vector("VectorIndex open at %s dim=%d vec_ext=%v", path, dim, vi.vecExt)
	return vi, nil
}

func (vi *VectorIndex) initSchema() error {
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS embeddings (collection TEXT NOT NULL, key TEXT NOT NULL, embedding BLOB NOT NULL, PRIMARY KEY (collection, key))`,
		`CREATE INDEX IF NOT EXISTS idx_embeddings_collection ON embeddings(collection)`,
	} {
		if _, err := vi.db.Exec(stmt); err != nil {
			return fmt.Errorf("create embeddings table: %w", err)
		}
	}

	vecStmt := fmt.Sprintf("CREATE VIRTUAL TABLE IF NOT EXISTS vec_index USING vec0(embedding float[%d])", vi.dim)
	if _, err := vi.db.Exec(vecStmt); err == nil {
		vi.vecExt = true
	} else {
		logging.VectorDebug("vec0 virtual table unavailable, using brute-force scan: %v", err)
	}
	return nil
}

// Upsert stores or replaces the embedding for (collection, key).
func (vi *VectorIndex) Upsert(collection, key string, embedding []float32) error {
	vi.mu.Lock()
	defer vi.mu.Unlock()

	blob := encodeFloat32Slice(embedding)
	_, err := vi.db.Exec(
		`INSERT INTO embeddings (collection, key, embedding) VALUES (?, ?, ?)
		 ON CONFLICT (collection, key) DO UPDATE SET embedding = excluded.embedding`,
		collection, key, blob,
	)
	if err != nil {
		return fmt.Errorf("upsert embedding %s/%s: %w", collection, key, err)
	}

	if vi.vecExt {
		rowid := vecRowID(collection, key)
		if _, err := vi.db.Exec(
			`INSERT INTO vec_index (rowid, embedding) VALUES (?, ?) ON CONFLICT (rowid) DO UPDATE SET embedding = excluded.embedding`,
			rowid, blob,
		); err != nil {
			logging.VectorDebug("vec_index upsert skipped for %s/%s: %v", collection, key, err)
		}
	}
	return nil
}

// GetEmbedding returns the stored embedding for (collection, key), or
// (nil, false) if none is stored.
func (vi *VectorIndex) GetEmbedding(collection, key string) ([]float32, bool, error) {
	vi.mu.RLock()
	defer vi.mu.RUnlock()

	var blob []byte
	err := vi.db.QueryRow(`SELECT embedding FROM embeddings WHERE collection = ? AND key = ?`, collection, key).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get embedding %s/%s: %w", collection, key, err)
	}
	return decodeFloat32Slice(blob), true, nil
}

// Delete removes the embedding for (collection, key), if present.
func (vi *VectorIndex) Delete(collection, key string) error {
	vi.mu.Lock()
	defer vi.mu.Unlock()

	if _, err := vi.db.Exec(`DELETE FROM embeddings WHERE collection = ? AND key = ?`, collection, key); err != nil {
		return fmt.Errorf("delete embedding %s/%s: %w", collection, key, err)
	}
	if vi.vecExt {
		_, _ = vi.db.Exec(`DELETE FROM vec_index WHERE rowid = ?`, vecRowID(collection, key))
	}
	return nil
}

// Query returns the limit nearest neighbors to queryVec within collection,
// ordered by similarity descending.
func (vi *VectorIndex) Query(collection string, queryVec []float32, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if vi.vecExt {
		hits, err := vi.queryVec0(collection, queryVec, limit)
		if err == nil {
			return hits, nil
		}
		logging.VectorDebug("vec0 query failed, falling back to brute force: %v", err)
	}
	return vi.queryBruteForce(collection, queryVec, limit)
}

// Close releases the underlying database handle.
func (vi *VectorIndex) Close() error {
	return vi.db.Close()
}

// Path returns the backing file path.
func (vi *VectorIndex) Path() string { return vi.path }

func encodeFloat32Slice(vec []float32) []byte {
	buf := &bytes.Buffer{}
	buf.Grow(len(vec) * 4)
	_ = binary.Write(buf, binary.LittleEndian, vec)
	return buf.Bytes()
}

func decodeFloat32Slice(data []byte) []float32 {
	n := len(data) / 4
	out := make([]float32, n)
	_ = binary.Read(bytes.NewReader(data), binary.LittleEndian, &out)
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// vecRowID derives a stable rowid for the vec0 table from (collection, key),
// since vec0 keys rows by integer rowid rather than a composite string key.
func vecRowID(collection, key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(collection))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64() &^ (1 << 63)) // force non-negative
}
