package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hughpyle/keep/internal/logging"
)

// OllamaProvider generates embeddings via a local Ollama server's
// /api/embeddings endpoint.
type OllamaProvider struct {
	endpoint string
	model    string
	dim      int
	client   *http.Client
}

// NewOllamaProvider builds a provider against endpoint using model, which
// produces vectors of dimension dim.
func NewOllamaProvider(endpoint, model string, dim int) *OllamaProvider {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	if model == "" {
		model = "embeddinggemma"
	}
	if dim == 0 {
		dim = 768
	}
	logging.Embedding("ollama embedding provider: endpoint=%s model=%s dim=%d", endpoint, model, dim)
	return &OllamaProvider{
		endpoint: endpoint,
		model:    model,
		dim:      dim,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal ollama embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ollama embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama embed returned status %d: %s", resp.StatusCode, msg)
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode ollama embed response: %w", err)
	}
	logging.EmbeddingDebug("ollama embed: %d chars -> %d dims", len(text), len(result.Embedding))
	return result.Embedding, nil
}

// EmbedBatch calls Embed sequentially; Ollama has no native batch endpoint.
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := p.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed batch item %d: %w", i, err)
		}
		out[i] = emb
	}
	return out, nil
}

func (p *OllamaProvider) Dimension() int { return p.dim }

func (p *OllamaProvider) Name() string { return fmt.Sprintf("ollama:%s", p.model) }
