package engine

import (
	"context"
	"fmt"

	"github.com/hughpyle/keep/internal/logging"
	"github.com/hughpyle/keep/internal/model"
)

// ProcessPendingResult summarizes one ProcessPending run.
type ProcessPendingResult struct {
	Processed int
	Failed    int
}

// ProcessPending dequeues up to limit deferred tasks and runs each against
// its provider: embed computes and upserts a vector, summarize computes and
// merges a real summary over the placeholder, analyze runs decomposition.
// A task whose provider call fails is left in place (requeued) rather than
// retried automatically; the caller decides whether to run ProcessPending
// again.
func (e *Engine) ProcessPending(ctx context.Context, limit int) (ProcessPendingResult, error) {
	tasks, err := e.pending.Dequeue(nowUTC(), limit)
	if err != nil {
		return ProcessPendingResult{}, fmt.Errorf("dequeue pending tasks: %w", err)
	}

	var result ProcessPendingResult
	for _, task := range tasks {
		if err := e.processTask(ctx, task); err != nil {
			logging.Get(logging.CategoryEngine).Warn("process_pending: %s/%s/%s failed: %v", task.Collection, task.ID, task.Type, err)
			result.Failed++
			if rqErr := e.pending.Requeue(task.ID, task.Collection, task.Type); rqErr != nil {
				logging.Get(logging.CategoryEngine).Error("process_pending: requeue %s/%s/%s failed: %v", task.Collection, task.ID, task.Type, rqErr)
			}
			continue
		}
		if err := e.pending.Complete(task.ID, task.Collection, task.Type); err != nil {
			return result, fmt.Errorf("complete task %s/%s/%s: %w", task.Collection, task.ID, task.Type, err)
		}
		result.Processed++
	}
	return result, nil
}

func (e *Engine) processTask(ctx context.Context, task model.PendingTask) error {
	switch task.Type {
	case model.TaskEmbed:
		return e.processEmbedTask(ctx, task)
	case model.TaskSummarize:
		return e.processSummarizeTask(ctx, task)
	case model.TaskAnalyze:
		_, err := e.Analyze(ctx, task.Collection, task.ID, true)
		return err
	default:
		return fmt.Errorf("unknown task type %q", task.Type)
	}
}

func (e *Engine) processEmbedTask(ctx context.Context, task model.PendingTask) error {
	vec, err := e.embedder.Embed(ctx, task.Content)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	return e.coherence.WithWriteLock(func() error {
		return e.vindex.Upsert(task.Collection, model.VectorKey(task.ID), vec)
	})
}

func (e *Engine) processSummarizeTask(ctx context.Context, task model.PendingTask) error {
	summary, err := e.summarizer.Summarize(ctx, task.Content, 280)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	return e.coherence.WithWriteLock(func() error {
		item, err := e.store.Get(task.Collection, task.ID)
		if err != nil {
			return err
		}
		_, err = e.store.Put(task.Collection, task.ID, task.Content, summary, item.Tags, nowUTC())
		return err
	})
}
