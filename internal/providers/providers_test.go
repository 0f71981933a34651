package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hughpyle/keep/internal/config"
)

func TestNewSummarizationProvider_DispatchesByName(t *testing.T) {
	p, err := NewSummarizationProvider(config.ProviderConfig{Name: "truncate"})
	require.NoError(t, err)
	assert.Equal(t, "truncate", p.Name())

	p, err = NewSummarizationProvider(config.ProviderConfig{Name: "first_paragraph"})
	require.NoError(t, err)
	assert.Equal(t, "first_paragraph", p.Name())

	_, err = NewSummarizationProvider(config.ProviderConfig{Name: "nonexistent"})
	assert.Error(t, err)
}

func TestNewDocumentProvider_DispatchesByName(t *testing.T) {
	p, err := NewDocumentProvider(config.ProviderConfig{Name: "file"})
	require.NoError(t, err)
	assert.True(t, p.Supports("/tmp/x.txt"))

	p, err = NewDocumentProvider(config.ProviderConfig{Name: "composite"})
	require.NoError(t, err)
	assert.True(t, p.Supports("https://example.com"))

	_, err = NewDocumentProvider(config.ProviderConfig{Name: "nonexistent"})
	assert.Error(t, err)
}

func TestNewAnalyzerProvider_ChunkNeverUsesGenerator(t *testing.T) {
	p, err := NewAnalyzerProvider(config.ProviderConfig{Name: "chunk"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, p)
}
