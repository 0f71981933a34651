// Package summarization provides SummarizationProvider implementations
// ranging from cheap string truncation to LLM-backed generation.
package summarization

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hughpyle/keep/internal/logging"
)

// Provider reduces content to a summary of about maxLength characters; the
// truncating implementations cut at maxLength and then append "...".
type Provider interface {
	Summarize(ctx context.Context, content string, maxLength int) (string, error)
	Name() string
}

// TruncationSummarizer cuts content at maxLength characters on a word
// boundary where possible, appending an ellipsis.
type TruncationSummarizer struct{}

func (TruncationSummarizer) Summarize(_ context.Context, content string, maxLength int) (string, error) {
	return truncateAtWord(content, maxLength), nil
}

func (TruncationSummarizer) Name() string { return "truncate" }

func truncateAtWord(content string, maxLength int) string {
	if maxLength <= 0 || len(content) <= maxLength {
		return content
	}
	cut := content[:maxLength]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}

// FirstParagraphSummarizer returns the first paragraph (text before the
// first blank line), truncated to maxLength if still too long.
type FirstParagraphSummarizer struct{}

func (FirstParagraphSummarizer) Summarize(_ context.Context, content string, maxLength int) (string, error) {
	content = strings.TrimSpace(content)
	if idx := strings.Index(content, "\n\n"); idx >= 0 {
		content = content[:idx]
	}
	return truncateAtWord(content, maxLength), nil
}

func (FirstParagraphSummarizer) Name() string { return "first_paragraph" }

// OllamaSummarizer asks a local Ollama model to summarize content via the
// /api/generate endpoint.
type OllamaSummarizer struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewOllamaSummarizer builds a summarizer against endpoint/model.
func NewOllamaSummarizer(endpoint, model string) *OllamaSummarizer {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2:3b"
	}
	return &OllamaSummarizer{
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

func (o *OllamaSummarizer) Summarize(ctx context.Context, content string, maxLength int) (string, error) {
	prompt := fmt.Sprintf(
		"Summarize the following text in at most %d characters. Return only the summary, no commentary.\n\n%s",
		maxLength, content,
	)
	body, err := json.Marshal(ollamaGenerateRequest{Model: o.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("marshal ollama generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ollama generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama generate returned status %d", resp.StatusCode)
	}

	var result ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode ollama generate response: %w", err)
	}
	summary := truncateAtWord(strings.TrimSpace(result.Response), maxLength)
	logging.EngineDebug("ollama summarize: %d chars -> %d chars", len(content), len(summary))
	return summary, nil
}

func (o *OllamaSummarizer) Name() string { return fmt.Sprintf("ollama:%s", o.model) }

// Generate issues a single system+user prompt completion against the same
// Ollama endpoint, satisfying analyzer.Generator so the analyzer provider
// can reuse whatever LLM backend summarization is configured with.
func (o *OllamaSummarizer) Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	prompt := userPrompt
	if systemPrompt != "" {
		prompt = systemPrompt + "\n\n" + userPrompt
	}
	body, err := json.Marshal(ollamaGenerateRequest{Model: o.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("marshal ollama generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ollama generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama generate returned status %d", resp.StatusCode)
	}

	var result ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode ollama generate response: %w", err)
	}
	return strings.TrimSpace(result.Response), nil
}
