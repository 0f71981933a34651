// Package embedding provides pluggable EmbeddingProvider implementations:
// a local Ollama HTTP backend, Google's GenAI cloud API, and a
// content-hash-keyed caching decorator shared by both.
package embedding

import "context"

// Provider turns text into a fixed-dimension vector.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Name() string
}
