package engine

import (
	"context"
	"fmt"

	"github.com/hughpyle/keep/internal/logging"
	"github.com/hughpyle/keep/internal/model"
)

// PutOptions carries put's optional arguments. Collection defaults to the
// store's configured default when empty; ID is auto-derived from content
// hash when empty.
type PutOptions struct {
	ID         string
	Collection string
	Summary    string
	Tags       model.Tags
	FetchURI   bool // treat content as a URI to resolve via the document provider
}

// Put stores content under id (or an auto-derived content-hash id),
// archiving the previous version when content changes, and either embeds
// inline (local mode) or enqueues deferred embed/summarize work (cloud
// mode). Identical content re-put under the same id is a tag/summary-only
// no-op on the content side.
func (e *Engine) Put(ctx context.Context, content string, opts PutOptions) (model.Item, error) {
	collection, err := e.resolveCollection(opts.Collection)
	if err != nil {
		return model.Item{}, err
	}
	tags := model.FilterNonSystemTags(opts.Tags)

	if opts.FetchURI {
		doc, err := e.documents.Fetch(ctx, content)
		if err != nil {
			return model.Item{}, fmt.Errorf("fetch document %q: %w", content, err)
		}
		content = doc.Content
		tags.Set(model.TagSource, doc.URI)
		if doc.ContentType != "" {
			tags.Set(model.TagMimeType, doc.ContentType)
		}
	}

	id := opts.ID
	if id == "" {
		_, full := model.ContentHashes(content)
		id = model.AutoID(full)
	}

	summary := opts.Summary
	needsSummary := summary == ""
	if needsSummary {
		if e.localMode {
			s, err := e.summarizer.Summarize(ctx, content, 280)
			if err != nil {
				logging.Get(logging.CategoryEngine).Warn("inline summarize failed for %s/%s: %v", collection, id, err)
			} else {
				summary = s
			}
			needsSummary = summary == ""
		} else {
			summary = placeholderSummary(content, 280)
		}
	}

	now := nowUTC()
	tags.Set(model.TagUpdated, now.Format("2006-01-02T15:04:05Z"))
	if _, ok := tags.Get(model.TagCreated); !ok {
		tags.Set(model.TagCreated, now.Format("2006-01-02T15:04:05Z"))
	}

	var result model.Item
	err = e.coherence.WithWriteLock(func() error {
		putRes, err := e.store.Put(collection, id, content, summary, tags, now)
		if err != nil {
			return err
		}
		result = putRes.Item

		if needsSummary && !e.localMode {
			if err := e.pending.Enqueue(model.PendingTask{
				ID: id, Collection: collection, Content: content, QueuedAt: now,
				Type: model.TaskSummarize,
			}); err != nil {
				return fmt.Errorf("enqueue summarize task: %w", err)
			}
		}

		if !putRes.ContentChanged {
			return nil
		}

		if e.localMode {
			vec, err := e.embedder.Embed(ctx, content)
			if err != nil {
				logging.Get(logging.CategoryEngine).Warn("inline embed failed for %s/%s: %v", collection, id, err)
				return nil
			}
			if err := e.vindex.Upsert(collection, model.VectorKey(id), vec); err != nil {
				return fmt.Errorf("upsert embedding: %w", err)
			}
			return nil
		}

		meta := map[string]string{}
		if putRes.PriorVersion > 0 {
			meta["content_changed"] = "true"
		}
		return e.pending.Enqueue(model.PendingTask{
			ID: id, Collection: collection, Content: content, QueuedAt: now,
			Type: model.TaskEmbed, Metadata: meta,
		})
	})
	if err != nil {
		return model.Item{}, err
	}
	return result, nil
}

// SetNow is a shorthand for Put(content, id="now"), the item keep's CLI
// treats as the current working context.
func (e *Engine) SetNow(ctx context.Context, content string, tags model.Tags) (model.Item, error) {
	return e.Put(ctx, content, PutOptions{ID: "now", Tags: tags})
}

// placeholderSummary stands in for a real summary in cloud mode until the
// deferred summarize task runs, the first maxLen characters of content.
func placeholderSummary(content string, maxLen int) string {
	if len(content) <= maxLen {
		return content
	}
	return content[:maxLen]
}

