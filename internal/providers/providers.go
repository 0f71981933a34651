// Package providers builds the concrete embedding, summarization, document,
// and analyzer implementations Engine depends on, selecting among them by
// name from a store's configuration.
package providers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hughpyle/keep/internal/config"
	"github.com/hughpyle/keep/internal/providers/analyzer"
	"github.com/hughpyle/keep/internal/providers/document"
	"github.com/hughpyle/keep/internal/providers/embedding"
	"github.com/hughpyle/keep/internal/providers/summarization"
)

// NewEmbeddingProvider builds an embedding.Provider from cfg, wrapped in a
// content-hash cache stored alongside the rest of storeDir.
func NewEmbeddingProvider(ctx context.Context, cfg config.ProviderConfig, storeDir string) (embedding.Provider, error) {
	dim, _ := strconv.Atoi(cfg.Params["dimension"])

	var base embedding.Provider
	switch cfg.Name {
	case "", "ollama":
		base = embedding.NewOllamaProvider(cfg.Params["endpoint"], cfg.Params["model"], dim)
	case "genai":
		p, err := embedding.NewGenAIProvider(ctx, cfg.Params["api_key"], cfg.Params["model"], dim)
		if err != nil {
			return nil, fmt.Errorf("build genai embedding provider: %w", err)
		}
		base = p
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Name)
	}

	cached, err := embedding.NewCachingProvider(base, storeDir)
	if err != nil {
		return nil, fmt.Errorf("wrap embedding provider in cache: %w", err)
	}
	return cached, nil
}

// NewSummarizationProvider builds a summarization.Provider from cfg.
func NewSummarizationProvider(cfg config.ProviderConfig) (summarization.Provider, error) {
	switch cfg.Name {
	case "", "truncate":
		return summarization.TruncationSummarizer{}, nil
	case "first_paragraph":
		return summarization.FirstParagraphSummarizer{}, nil
	case "ollama":
		return summarization.NewOllamaSummarizer(cfg.Params["endpoint"], cfg.Params["model"]), nil
	default:
		return nil, fmt.Errorf("unknown summarization provider %q", cfg.Name)
	}
}

// NewDocumentProvider builds a document.Provider from cfg.
func NewDocumentProvider(cfg config.ProviderConfig) (document.Provider, error) {
	switch cfg.Name {
	case "", "composite":
		return document.NewComposite(), nil
	case "file":
		return document.FileProvider{}, nil
	case "http":
		return document.NewHTTPProvider(), nil
	default:
		return nil, fmt.Errorf("unknown document provider %q", cfg.Name)
	}
}

// NewAnalyzerProvider builds an analyzer.Provider from cfg. When cfg names
// "default" or "llm" and generator is non-nil, decomposition is LLM-backed
// with a paragraph-chunking fallback; "chunk" always uses the fallback.
func NewAnalyzerProvider(cfg config.ProviderConfig, generator analyzer.Generator) (analyzer.Provider, error) {
	switch cfg.Name {
	case "chunk":
		return analyzer.NewDefaultAnalyzer(nil), nil
	case "", "default", "llm":
		return analyzer.NewDefaultAnalyzer(generator), nil
	default:
		return nil, fmt.Errorf("unknown analyzer provider %q", cfg.Name)
	}
}
