package document

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileProvider_FetchesContentAndDetectsType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(path, []byte("# Title\n\nbody"), 0644))

	p := FileProvider{}
	assert.True(t, p.Supports(path))

	doc, err := p.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nbody", doc.Content)
	assert.Equal(t, "text/markdown", doc.ContentType)
}

func TestFileProvider_MissingFileErrors(t *testing.T) {
	p := FileProvider{}
	_, err := p.Fetch(context.Background(), "/no/such/path.txt")
	assert.Error(t, err)
}

func TestHTTPProvider_FetchesBodyAndContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("hello from server"))
	}))
	defer srv.Close()

	p := NewHTTPProvider()
	assert.True(t, p.Supports(srv.URL))

	doc, err := p.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "hello from server", doc.Content)
	assert.Equal(t, "text/plain", doc.ContentType)
}

func TestHTTPProvider_ErrorStatusReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewHTTPProvider()
	_, err := p.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestComposite_DispatchesByScheme(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("file content"), 0644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("http content"))
	}))
	defer srv.Close()

	c := NewComposite()
	assert.True(t, c.Supports(path))
	assert.True(t, c.Supports(srv.URL))
	assert.False(t, c.Supports("ftp://example.com/file"))

	doc, err := c.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "file content", doc.Content)

	doc, err = c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "http content", doc.Content)
}

func TestComposite_UnsupportedURIErrors(t *testing.T) {
	c := NewComposite()
	_, err := c.Fetch(context.Background(), "ftp://example.com/file")
	assert.Error(t, err)
}
