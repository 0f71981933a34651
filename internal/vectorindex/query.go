package vectorindex

import (
	"fmt"
	"sort"
)

// queryVec0 uses the real sqlite-vec ANN path: vec_distance_cosine against
// the vec0 virtual table, restricted afterward to rows that belong to
// collection (vec0 itself carries no collection column).
func (vi *VectorIndex) queryVec0(collection string, queryVec []float32, limit int) ([]SearchResult, error) {
	vi.mu.RLock()
	defer vi.mu.RUnlock()

	blob := encodeFloat32Slice(queryVec)
	rows, err := vi.db.Query(
		`SELECT rowid, vec_distance_cosine(embedding, ?) AS dist FROM vec_index ORDER BY dist ASC LIMIT ?`,
		blob, limit*4+limit, // overfetch: some rowids won't belong to this collection
	)
	if err != nil {
		return nil, fmt.Errorf("vec0 query: %w", err)
	}
	defer rows.Close()

	keysByRowID, err := vi.keysForCollection(collection)
	if err != nil {
		return nil, err
	}

	var hits []SearchResult
	for rows.Next() {
		var rowid int64
		var dist float64
		if err := rows.Scan(&rowid, &dist); err != nil {
			return nil, err
		}
		key, ok := keysByRowID[rowid]
		if !ok {
			continue
		}
		hits = append(hits, SearchResult{Key: key, Similarity: 1 - dist})
		if len(hits) >= limit {
			break
		}
	}
	return hits, rows.Err()
}

func (vi *VectorIndex) keysForCollection(collection string) (map[int64]string, error) {
	rows, err := vi.db.Query(`SELECT key FROM embeddings WHERE collection = ?`, collection)
	if err != nil {
		return nil, fmt.Errorf("list keys for collection %s: %w", collection, err)
	}
	defer rows.Close()

	out := make(map[int64]string)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		out[vecRowID(collection, key)] = key
	}
	return out, rows.Err()
}

// queryBruteForce scans every embedding in collection and ranks by exact
// cosine similarity. Used when the vec0 extension is unavailable, and as
// the fallback if queryVec0 errors.
func (vi *VectorIndex) queryBruteForce(collection string, queryVec []float32, limit int) ([]SearchResult, error) {
	vi.mu.RLock()
	defer vi.mu.RUnlock()

	rows, err := vi.db.Query(`SELECT key, embedding FROM embeddings WHERE collection = ?`, collection)
	if err != nil {
		return nil, fmt.Errorf("brute-force scan of %s: %w", collection, err)
	}
	defer rows.Close()

	var hits []SearchResult
	for rows.Next() {
		var key string
		var blob []byte
		if err := rows.Scan(&key, &blob); err != nil {
			return nil, err
		}
		vec := decodeFloat32Slice(blob)
		hits = append(hits, SearchResult{Key: key, Similarity: cosineSimilarity(queryVec, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
