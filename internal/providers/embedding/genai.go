package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/hughpyle/keep/internal/logging"
)

// genaiMaxBatch is the GenAI API's per-request content limit.
const genaiMaxBatch = 100

// GenAIProvider generates embeddings through Google's Gemini API.
type GenAIProvider struct {
	client *genai.Client
	model  string
	dim    int
}

// NewGenAIProvider builds a provider against apiKey/model, requesting
// output vectors of dimension dim.
func NewGenAIProvider(ctx context.Context, apiKey, model string, dim int) (*GenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai embedding provider requires an API key")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	if dim == 0 {
		dim = 3072
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	logging.Embedding("genai embedding provider: model=%s dim=%d", model, dim)
	return &GenAIProvider{client: client, model: model, dim: dim}, nil
}

func (p *GenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	embs, err := p.embedChunk(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embs) == 0 {
		return nil, fmt.Errorf("genai embed returned no vectors")
	}
	return embs[0], nil
}

// EmbedBatch chunks texts into genaiMaxBatch-sized requests.
func (p *GenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) <= genaiMaxBatch {
		return p.embedChunk(ctx, texts)
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += genaiMaxBatch {
		end := start + genaiMaxBatch
		if end > len(texts) {
			end = len(texts)
		}
		chunk, err := p.embedChunk(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch chunk [%d:%d]: %w", start, end, err)
		}
		out = append(out, chunk...)
	}
	return out, nil
}

func (p *GenAIProvider) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	dim := int32(p.dim)
	result, err := p.client.Models.EmbedContent(ctx, p.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("genai embed content: %w", err)
	}

	out := make([][]float32, len(result.Embeddings))
	for i, e := range result.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

func (p *GenAIProvider) Dimension() int { return p.dim }

func (p *GenAIProvider) Name() string { return fmt.Sprintf("genai:%s", p.model) }
