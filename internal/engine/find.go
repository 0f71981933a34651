package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/hughpyle/keep/internal/model"
)

// SearchHit pairs an item with the score it was ranked by: raw cosine
// similarity for a vector search, decay-adjusted if a half-life is
// configured.
type SearchHit struct {
	Item  model.Item
	Score float64
}

// FindOptions filters Find's candidate set before ranking.
type FindOptions struct {
	Collection string
	Tags       map[string]string
	Since      time.Time
	Until      time.Time
	Limit      int
}

// Find embeds query and returns its nearest neighbors by cosine similarity,
// re-weighted by ACT-R-style time decay when the store has a configured
// half-life, and filtered by tags/time window.
func (e *Engine) Find(ctx context.Context, query string, opts FindOptions) ([]SearchHit, error) {
	collection, err := e.resolveCollection(opts.Collection)
	if err != nil {
		return nil, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	if err := e.refreshOnEpoch(); err != nil {
		return nil, err
	}

	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	fetchLimit := limit
	if e.decayHalfLife > 0 {
		fetchLimit = limit * 2
	}
	hits, err := e.vindexHandle().Query(collection, vec, fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("query vector index: %w", err)
	}

	out := make([]SearchHit, 0, len(hits))
	now := nowUTC()
	for _, h := range hits {
		id, ok := versionlessKey(h.Key)
		if !ok {
			continue
		}
		item, err := e.store.Get(collection, id)
		if err != nil {
			continue
		}
		if !matchesFilters(item, opts) {
			continue
		}
		score := applyDecay(h.Similarity, item, now, e.decayHalfLife)
		out = append(out, SearchHit{Item: item, Score: score})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FindSimilar returns the nearest neighbors of an already-stored item's
// embedding. includeSelf controls whether the item itself may appear in
// its own results (it always has similarity 1.0, so including it is mostly
// useful as a sanity check).
func (e *Engine) FindSimilar(ctx context.Context, collection, id string, limit int, includeSelf bool) ([]SearchHit, error) {
	collection, err := e.resolveCollection(collection)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	if err := e.refreshOnEpoch(); err != nil {
		return nil, err
	}

	vec, ok, err := e.vindexHandle().GetEmbedding(collection, model.VectorKey(id))
	if err != nil {
		return nil, fmt.Errorf("load embedding for %s/%s: %w", collection, id, err)
	}
	if !ok {
		return nil, nil
	}

	fetchLimit := limit + 1
	hits, err := e.vindexHandle().Query(collection, vec, fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("query vector index: %w", err)
	}

	now := nowUTC()
	out := make([]SearchHit, 0, len(hits))
	for _, h := range hits {
		neighborID, ok := versionlessKey(h.Key)
		if !ok {
			continue
		}
		if !includeSelf && neighborID == id {
			continue
		}
		item, err := e.store.Get(collection, neighborID)
		if err != nil {
			continue
		}
		score := applyDecay(h.Similarity, item, now, e.decayHalfLife)
		out = append(out, SearchHit{Item: item, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// versionlessKey strips a VectorIndex key down to its base item id,
// skipping version (@v) and part (@p) keys which Find and FindSimilar
// treat as belonging to whole items, not separate results.
func versionlessKey(key string) (string, bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == '@' {
			return "", false
		}
	}
	return key, true
}

// applyDecay weights a raw similarity score by ACT-R-style exponential
// decay based on how long ago the item was last updated (its UpdatedAt
// field). Disabled when halfLifeDays <= 0; an item with no recorded update
// time keeps its raw score rather than being penalized for missing metadata.
func applyDecay(raw float64, item model.Item, now time.Time, halfLifeDays float64) float64 {
	if halfLifeDays <= 0 || item.UpdatedAt.IsZero() {
		return raw
	}
	daysElapsed := now.Sub(item.UpdatedAt).Hours() / 24
	if daysElapsed < 0 {
		daysElapsed = 0
	}
	return raw * math.Pow(0.5, daysElapsed/halfLifeDays)
}

func matchesFilters(item model.Item, opts FindOptions) bool {
	if !opts.Since.IsZero() && item.UpdatedAt.Before(opts.Since) {
		return false
	}
	if !opts.Until.IsZero() && item.UpdatedAt.After(opts.Until) {
		return false
	}
	for k, v := range opts.Tags {
		got, ok := item.Tags.Get(k)
		if !ok {
			return false
		}
		if v != "" && got != v {
			return false
		}
	}
	return true
}
