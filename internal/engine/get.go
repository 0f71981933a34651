package engine

import (
	"context"
	"fmt"

	"github.com/hughpyle/keep/internal/logging"
	"github.com/hughpyle/keep/internal/model"
	"github.com/hughpyle/keep/internal/store"
)

// Get fetches an item, refreshing its accessed_at timestamp on a
// best-effort basis. Returns store.ErrNotFound if absent.
func (e *Engine) Get(collection, id string) (model.Item, error) {
	collection, err := e.resolveCollection(collection)
	if err != nil {
		return model.Item{}, err
	}
	if err := e.refreshOnEpoch(); err != nil {
		return model.Item{}, err
	}
	item, err := e.store.Get(collection, id)
	if err != nil {
		return model.Item{}, err
	}
	e.store.Touch(collection, id, nowUTC())
	return item, nil
}

// GetContent fetches an item along with its raw content body.
func (e *Engine) GetContent(collection, id string) (model.Item, string, error) {
	collection, err := e.resolveCollection(collection)
	if err != nil {
		return model.Item{}, "", err
	}
	if err := e.refreshOnEpoch(); err != nil {
		return model.Item{}, "", err
	}
	item, content, err := e.store.GetWithContent(collection, id)
	if err != nil {
		return model.Item{}, "", err
	}
	e.store.Touch(collection, id, nowUTC())
	return item, content, nil
}

// Exists reports whether (collection, id) is present, refreshing the
// coherence epoch first so a recent write from another process isn't
// missed.
func (e *Engine) Exists(collection, id string) (bool, error) {
	collection, err := e.resolveCollection(collection)
	if err != nil {
		return false, err
	}
	if err := e.refreshOnEpoch(); err != nil {
		return false, err
	}
	return e.store.Exists(collection, id)
}

// VersionWindow is a slice of an item's version history centered on its
// current version, for context display.
type VersionWindow struct {
	Current int
	Before  []model.Version
	After   []model.Version
}

// ItemContext bundles everything keep shows alongside a single item: its
// closest vector neighbors, its decomposed parts, a window of its version
// history, and the graph edges touching it in either direction.
type ItemContext struct {
	Item     model.Item
	Siblings []SearchHit
	Parts    []model.Part
	Versions VersionWindow
	Edges    []model.Edge
	Inverse  []model.Edge
}

// versionWindowRadius bounds how many versions on either side of current
// GetContext surfaces, keeping the response bounded for long-lived items.
const versionWindowRadius = 2

// siblingLimit bounds how many vector neighbors GetContext surfaces.
const siblingLimit = 5

// GetContext assembles an item's full navigational context: nearby
// siblings by embedding similarity, its parts, a version-history window,
// and its graph edges.
func (e *Engine) GetContext(ctx context.Context, collection, id string) (ItemContext, error) {
	collection, err := e.resolveCollection(collection)
	if err != nil {
		return ItemContext{}, err
	}
	if err := e.refreshOnEpoch(); err != nil {
		return ItemContext{}, err
	}

	item, err := e.store.Get(collection, id)
	if err != nil {
		return ItemContext{}, err
	}

	siblings, err := e.FindSimilar(ctx, collection, id, siblingLimit, false)
	if err != nil {
		logging.Get(logging.CategoryEngine).Warn("get_context: find_similar failed for %s/%s: %v", collection, id, err)
		siblings = nil
	}

	parts, err := e.store.ListParts(collection, id)
	if err != nil {
		return ItemContext{}, fmt.Errorf("list parts: %w", err)
	}

	versions, err := e.versionWindow(collection, id)
	if err != nil {
		return ItemContext{}, fmt.Errorf("version window: %w", err)
	}

	edges, err := e.store.Edges(collection, id)
	if err != nil {
		return ItemContext{}, fmt.Errorf("edges: %w", err)
	}
	inverse, err := e.store.InverseEdges(collection, id)
	if err != nil {
		return ItemContext{}, fmt.Errorf("inverse edges: %w", err)
	}

	return ItemContext{
		Item:     item,
		Siblings: siblings,
		Parts:    parts,
		Versions: versions,
		Edges:    edges,
		Inverse:  inverse,
	}, nil
}

// versionWindow returns up to versionWindowRadius archived versions on
// either side of an item's current version.
func (e *Engine) versionWindow(collection, id string) (VersionWindow, error) {
	current, err := e.store.CurrentVersion(collection, id)
	if err == store.ErrNotFound {
		return VersionWindow{}, err
	}
	if err != nil {
		return VersionWindow{}, err
	}

	all, err := e.store.ListVersions(collection, id)
	if err != nil {
		return VersionWindow{}, err
	}

	var before, after []model.Version
	for _, v := range all {
		if v.Version < current && v.Version >= current-versionWindowRadius {
			before = append(before, v)
		}
		if v.Version > current && v.Version <= current+versionWindowRadius {
			after = append(after, v)
		}
	}
	return VersionWindow{Current: current, Before: before, After: after}, nil
}
