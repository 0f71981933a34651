// Package analyzer decomposes item content into structural parts: an
// LLM-backed decomposition with a paragraph-chunking fallback when no
// generator is configured or the LLM's output can't be parsed.
package analyzer

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/hughpyle/keep/internal/logging"
)

// Chunk is one section an analyzer returns from decomposing content.
type Chunk struct {
	Summary string
	Content string
	Tags    map[string]string
}

// Generator is the subset of a summarization/completion provider an
// analyzer needs: a single free-form prompt/response call.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// Provider decomposes content into Chunks.
type Provider interface {
	Analyze(ctx context.Context, content, guideContext string) ([]Chunk, error)
}

const decompositionSystemPrompt = `You are a document analysis assistant. Your task is to decompose a document into its meaningful structural sections.

For each section, provide:
- "summary": A concise summary of the section (1-3 sentences)
- "content": The exact text of the section
- "tags": A dict of relevant tags for this section (optional)

Return a JSON array of section objects. Example:
[
  {"summary": "Introduction and overview of the topic", "content": "The text of section 1...", "tags": {"topic": "overview"}},
  {"summary": "Detailed analysis of the main argument", "content": "The text of section 2...", "tags": {"topic": "analysis"}}
]

Guidelines:
- Identify natural section boundaries (headings, topic shifts, structural breaks)
- Each section should be a coherent unit of meaning
- Preserve the original text exactly in the "content" field
- Keep summaries concise but descriptive
- Tags should capture the essence of each section's subject matter
- Return valid JSON only, no commentary outside the JSON array`

const maxDecompositionInput = 80000

// DefaultAnalyzer decomposes via a single LLM call, falling back to
// paragraph-based chunking when no generator is set or the call fails.
type DefaultAnalyzer struct {
	generator Generator
}

// NewDefaultAnalyzer builds an analyzer. generator may be nil, in which
// case Analyze always uses the paragraph-chunking fallback.
func NewDefaultAnalyzer(generator Generator) *DefaultAnalyzer {
	return &DefaultAnalyzer{generator: generator}
}

func (a *DefaultAnalyzer) Analyze(ctx context.Context, content, guideContext string) ([]Chunk, error) {
	chunks := a.callLLM(ctx, content, guideContext)
	if chunks == nil {
		chunks = simpleChunkDecomposition(content)
	}
	return chunks, nil
}

func (a *DefaultAnalyzer) callLLM(ctx context.Context, content, guideContext string) []Chunk {
	if a.generator == nil {
		return nil
	}

	truncated := content
	if len(truncated) > maxDecompositionInput {
		truncated = truncated[:maxDecompositionInput]
	}

	userPrompt := truncated
	if guideContext != "" {
		userPrompt = "Decompose this document into meaningful sections.\n\n" +
			"Use these tag definitions to guide your tagging:\n\n" + guideContext +
			"\n\n---\n\nDocument to analyze:\n\n" + truncated
	}

	raw, err := a.generator.Generate(ctx, decompositionSystemPrompt, userPrompt, 4096)
	if err != nil {
		logging.Get(logging.CategoryEngine).Warn("llm decomposition failed: %v", err)
		return nil
	}
	if raw == "" {
		return nil
	}
	return parseDecompositionJSON(raw)
}

func parseDecompositionJSON(text string) []Chunk {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		if strings.HasPrefix(lines[0], "```") {
			lines = lines[1:]
		}
		if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
			lines = lines[:len(lines)-1]
		}
		text = strings.TrimSpace(strings.Join(lines, "\n"))
	}

	var raw interface{}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		logging.Get(logging.CategoryEngine).Warn("failed to parse decomposition json: %v", err)
		return nil
	}

	items, ok := raw.([]interface{})
	if !ok {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return nil
		}
		for _, key := range []string{"sections", "parts", "chunks", "result", "data"} {
			if list, ok := obj[key].([]interface{}); ok {
				items = list
				break
			}
		}
		if items == nil {
			return nil
		}
	}

	var out []Chunk
	for _, entry := range items {
		fields, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		summary, _ := fields["summary"].(string)
		content, _ := fields["content"].(string)
		if summary == "" && content == "" {
			continue
		}
		chunk := Chunk{Summary: summary, Content: content}
		if tagsRaw, ok := fields["tags"].(map[string]interface{}); ok {
			chunk.Tags = make(map[string]string, len(tagsRaw))
			for k, v := range tagsRaw {
				if s, ok := v.(string); ok {
					chunk.Tags[k] = s
				}
			}
		}
		out = append(out, chunk)
	}
	return out
}

var blankLinePattern = regexp.MustCompile(`\n\s*\n`)

const minChunkChars = 500
const chunkSummaryChars = 200

// simpleChunkDecomposition splits content on blank lines and groups
// consecutive paragraphs until each group reaches minChunkChars, used when
// no LLM is configured or its output can't be parsed.
func simpleChunkDecomposition(content string) []Chunk {
	paragraphs := blankLinePattern.Split(strings.TrimSpace(content), -1)

	var groups []string
	var current []string
	currentLen := 0
	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		current = append(current, para)
		currentLen += len(para)
		if currentLen >= minChunkChars {
			groups = append(groups, strings.Join(current, "\n\n"))
			current = nil
			currentLen = 0
		}
	}
	if len(current) > 0 {
		groups = append(groups, strings.Join(current, "\n\n"))
	}
	if len(groups) <= 1 {
		return nil
	}

	out := make([]Chunk, len(groups))
	for i, group := range groups {
		out[i] = Chunk{Summary: truncateSummary(group), Content: group}
	}
	return out
}

func truncateSummary(chunk string) string {
	if len(chunk) <= chunkSummaryChars {
		return chunk
	}
	cut := chunk[:chunkSummaryChars]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}

var _ Provider = (*DefaultAnalyzer)(nil)
