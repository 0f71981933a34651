package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.Collection)
	assert.Equal(t, 30.0, cfg.DecayHalfLifeDays)
	assert.Equal(t, "ollama", cfg.Embedding.Name)
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.Collection = "notes"
	cfg.DecayHalfLifeDays = 14
	cfg.Embedding = ProviderConfig{Name: "genai", Params: map[string]string{"model": "gemini-embedding-001"}}

	require.NoError(t, cfg.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "notes", loaded.Collection)
	assert.Equal(t, 14.0, loaded.DecayHalfLifeDays)
	assert.Equal(t, "genai", loaded.Embedding.Name)
	assert.Equal(t, "gemini-embedding-001", loaded.Embedding.Params["model"])
}

func TestLoadOrCreate_WritesDefaultsOnce(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadOrCreate(dir)
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.Collection)

	cfg.Collection = "changed"
	require.NoError(t, cfg.Save(dir))

	reloaded, err := LoadOrCreate(dir)
	require.NoError(t, err)
	assert.Equal(t, "changed", reloaded.Collection, "LoadOrCreate must not overwrite an existing file")
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	require.NoError(t, cfg.Save(dir))

	w, err := NewWatcher(dir, cfg)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	reloaded := make(chan *Config, 1)
	w.OnReload(func(c *Config) { reloaded <- c })

	updated := DefaultConfig(dir)
	updated.Collection = "reloaded-collection"
	require.NoError(t, updated.Save(dir))

	select {
	case c := <-reloaded:
		assert.Equal(t, "reloaded-collection", c.Collection)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
