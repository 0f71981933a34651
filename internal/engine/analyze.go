package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/hughpyle/keep/internal/model"
)

// overviewMinVersions is the version count, the current state included, at
// which Analyze starts synthesizing a @p0 overview part summarizing version
// history.
const overviewMinVersions = 2

// Analyze decomposes an item's content into parts via the configured
// analyzer provider, embeds each part, and replaces any prior decomposition.
// With force=false, an item that already has parts is returned unchanged.
func (e *Engine) Analyze(ctx context.Context, collection, id string, force bool) ([]model.Part, error) {
	collection, err := e.resolveCollection(collection)
	if err != nil {
		return nil, err
	}

	if !force {
		existing, err := e.store.ListParts(collection, id)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			return existing, nil
		}
	}

	item, content, err := e.store.GetWithContent(collection, id)
	if err != nil {
		return nil, err
	}

	chunks, err := e.analyzer.Analyze(ctx, content, item.Summary)
	if err != nil {
		return nil, fmt.Errorf("analyze %s/%s: %w", collection, id, err)
	}

	parts := make([]model.Part, 0, len(chunks))
	for i, c := range chunks {
		parts = append(parts, model.Part{
			ID: id, Collection: collection, PartNum: i + 1,
			Summary: c.Summary, Content: c.Content, Tags: model.NewTags(c.Tags),
		})
	}

	now := nowUTC()
	err = e.coherence.WithWriteLock(func() error {
		if err := e.store.ReplaceParts(collection, id, parts, now); err != nil {
			return err
		}
		for _, p := range parts {
			if err := e.embedPart(ctx, collection, id, p); err != nil {
				return err
			}
		}
		return e.maybeSynthesizeOverview(ctx, collection, id)
	})
	if err != nil {
		return nil, err
	}

	return e.store.ListParts(collection, id)
}

func (e *Engine) embedPart(ctx context.Context, collection, id string, p model.Part) error {
	text := p.Summary
	if text == "" {
		text = p.Content
	}
	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed part %d of %s/%s: %w", p.PartNum, collection, id, err)
	}
	return e.vindex.Upsert(collection, model.VectorPartKey(id, p.PartNum), vec)
}

// maybeSynthesizeOverview builds the @p0 overview part from version history
// once an item has accumulated overviewMinVersions or more versions. The
// overview's content concatenates each archived version's summary under a
// date marker; its own summary is produced the same way the rest of the
// system summarizes content (LLM-backed if configured, truncation
// otherwise), and it inherits the parent item's non-system tags plus
// _part_type=overview.
func (e *Engine) maybeSynthesizeOverview(ctx context.Context, collection, id string) error {
	versions, err := e.store.ListVersions(collection, id)
	if err != nil {
		return err
	}
	if len(versions)+1 < overviewMinVersions {
		return nil
	}

	var b strings.Builder
	for _, v := range versions {
		fmt.Fprintf(&b, "[%s] %s\n\n", v.CreatedAt.Format("2006-01-02"), v.Summary)
	}
	content := b.String()

	summary, err := e.summarizer.Summarize(ctx, content, 280)
	if err != nil {
		summary = content
		if len(summary) > 280 {
			summary = summary[:280]
		}
	}

	item, err := e.store.Get(collection, id)
	if err != nil {
		return err
	}
	overviewTags := model.FilterNonSystemTags(item.Tags)

	now := nowUTC()
	if err := e.store.SetOverviewPart(collection, id, summary, content, overviewTags, now); err != nil {
		return err
	}

	vec, err := e.embedder.Embed(ctx, summary)
	if err != nil {
		return fmt.Errorf("embed overview part: %w", err)
	}
	return e.vindex.Upsert(collection, model.VectorPartKey(id, 0), vec)
}
