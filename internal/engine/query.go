package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/hughpyle/keep/internal/model"
	"github.com/hughpyle/keep/internal/store"
)

// Tag merges updates into an item's tags without touching its content,
// summary, or version history. An empty-string value deletes the key.
func (e *Engine) Tag(collection, id string, updates model.Tags) (model.Item, error) {
	collection, err := e.resolveCollection(collection)
	if err != nil {
		return model.Item{}, err
	}
	updates = model.FilterNonSystemTags(updates)

	var result model.Item
	err = e.coherence.WithWriteLock(func() error {
		item, content, err := e.store.GetWithContent(collection, id)
		if err != nil {
			return err
		}
		merged := item.Tags.Clone()
		merged.Merge(updates)
		putRes, err := e.store.Put(collection, id, content, item.Summary, merged, nowUTC())
		if err != nil {
			return err
		}
		result = putRes.Item
		return nil
	})
	if err != nil {
		return model.Item{}, err
	}
	return result, nil
}

// Delete removes an item and every trace of it: its RecordStore row
// (which cascades versions, parts, edges, and pending tasks) and its
// VectorIndex entries across the current, version, and part key spaces.
// Returns false if the item did not exist.
func (e *Engine) Delete(collection, id string) (bool, error) {
	collection, err := e.resolveCollection(collection)
	if err != nil {
		return false, err
	}

	existed := false
	err = e.coherence.WithWriteLock(func() error {
		var err error
		existed, err = e.deleteLocked(collection, id)
		return err
	})
	if err != nil {
		return false, err
	}
	return existed, nil
}

// deleteLocked does Delete's work assuming the caller already holds the
// write lock, so other write-group operations (move's source pruning) can
// compose it without re-entering WithWriteLock.
func (e *Engine) deleteLocked(collection, id string) (bool, error) {
	ok, err := e.store.Exists(collection, id)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	versions, err := e.store.ListVersions(collection, id)
	if err != nil {
		return false, err
	}
	parts, err := e.store.ListParts(collection, id)
	if err != nil {
		return false, err
	}

	if err := e.store.Delete(collection, id); err != nil {
		return false, err
	}

	_ = e.vindex.Delete(collection, model.VectorKey(id))
	for _, v := range versions {
		_ = e.vindex.Delete(collection, model.VectorVersionKey(id, v.Version))
	}
	for _, p := range parts {
		_ = e.vindex.Delete(collection, model.VectorPartKey(id, p.PartNum))
	}
	return true, nil
}

// CollectionInfo summarizes one collection for the `collections` command.
type CollectionInfo struct {
	Name  string
	Count int
}

// Collections lists every collection that has at least one item, with its
// item count.
func (e *Engine) Collections() ([]CollectionInfo, error) {
	names, err := e.store.ListCollections()
	if err != nil {
		return nil, err
	}
	out := make([]CollectionInfo, 0, len(names))
	for _, name := range names {
		n, err := e.store.Count(name)
		if err != nil {
			return nil, err
		}
		out = append(out, CollectionInfo{Name: name, Count: n})
	}
	return out, nil
}

// QueryTag returns items in collection whose tags match every key/value
// pair in want; an empty value matches any value for that key.
func (e *Engine) QueryTag(collection string, want map[string]string, limit int) ([]model.Item, error) {
	collection, err := e.resolveCollection(collection)
	if err != nil {
		return nil, err
	}
	return e.store.QueryTag(collection, want, limit)
}

// QueryFullText runs a full-text search over item summaries and content.
func (e *Engine) QueryFullText(collection, query string, limit int) ([]store.FTSHit, error) {
	collection, err := e.resolveCollection(collection)
	if err != nil {
		return nil, err
	}
	return e.store.QueryFullText(collection, query, limit)
}

// ListOptions filters ListItems. IDPrefix may contain a single trailing
// "*" glob, matching keep's CLI convention for prefix listing.
type ListOptions struct {
	Collection string
	IDPrefix   string
	Tags       map[string]string
	Since      string // ISO-8601 duration or date
	Until      string
	Limit      int
}

// ListItems lists items in a collection, optionally filtered by id prefix,
// tags, and a since/until time window.
func (e *Engine) ListItems(opts ListOptions) ([]model.Item, error) {
	collection, err := e.resolveCollection(opts.Collection)
	if err != nil {
		return nil, err
	}
	now := nowUTC()

	var since, until time.Time
	if opts.Since != "" {
		since, err = model.ParseSinceUntil(opts.Since, now)
		if err != nil {
			return nil, fmt.Errorf("parse since: %w", err)
		}
	}
	if opts.Until != "" {
		until, err = model.ParseSinceUntil(opts.Until, now)
		if err != nil {
			return nil, fmt.Errorf("parse until: %w", err)
		}
	}

	if len(opts.Tags) > 0 {
		items, err := e.store.QueryTag(collection, opts.Tags, 0)
		if err != nil {
			return nil, err
		}
		return filterListed(items, opts.IDPrefix, since, until, opts.Limit), nil
	}

	items, err := e.store.List(collection, store.ListOptions{
		IDPrefix: strings.TrimSuffix(opts.IDPrefix, "*"),
		Since:    since,
		Until:    until,
		Limit:    opts.Limit,
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// filterListed applies the filters ListItems can't push down to
// RecordStore.QueryTag (which has no id-prefix or time-window arguments).
func filterListed(items []model.Item, idPrefix string, since, until time.Time, limit int) []model.Item {
	prefix := strings.TrimSuffix(idPrefix, "*")
	out := items[:0]
	for _, it := range items {
		if prefix != "" && !strings.HasPrefix(it.ID, prefix) {
			continue
		}
		if !since.IsZero() && it.UpdatedAt.Before(since) {
			continue
		}
		if !until.IsZero() && it.UpdatedAt.After(until) {
			continue
		}
		out = append(out, it)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
