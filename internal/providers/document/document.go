// Package document provides DocumentProvider implementations that fetch
// content by URI: local files, HTTP(S), and a composite that dispatches
// between registered providers by scheme.
package document

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Document is fetched content plus a little metadata about its origin.
type Document struct {
	URI         string
	Content     string
	ContentType string
	Metadata    map[string]string
}

// Provider fetches a Document for a URI it supports.
type Provider interface {
	Supports(uri string) bool
	Fetch(ctx context.Context, uri string) (Document, error)
}

var extensionTypes = map[string]string{
	".md": "text/markdown", ".markdown": "text/markdown",
	".txt": "text/plain", ".py": "text/x-python", ".js": "text/javascript",
	".ts": "text/typescript", ".json": "application/json",
	".yaml": "text/yaml", ".yml": "text/yaml", ".html": "text/html",
	".css": "text/css", ".xml": "application/xml", ".rst": "text/x-rst",
}

// FileProvider fetches file:// URIs and bare absolute paths.
type FileProvider struct{}

func (FileProvider) Supports(uri string) bool {
	return strings.HasPrefix(uri, "file://") || strings.HasPrefix(uri, "/")
}

func (FileProvider) Fetch(_ context.Context, uri string) (Document, error) {
	path := strings.TrimPrefix(uri, "file://")

	info, err := os.Stat(path)
	if err != nil {
		return Document{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Document{}, fmt.Errorf("not a file: %s", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	contentType := extensionTypes[strings.ToLower(filepath.Ext(path))]
	if contentType == "" {
		contentType = "text/plain"
	}

	return Document{
		URI:         "file://" + abs,
		Content:     string(content),
		ContentType: contentType,
		Metadata: map[string]string{
			"name": filepath.Base(path),
			"size": fmt.Sprintf("%d", info.Size()),
		},
	}, nil
}

// HTTPProvider fetches http:// and https:// URIs, capping response size.
type HTTPProvider struct {
	MaxBytes int64
	client   *http.Client
}

// NewHTTPProvider builds an HTTPProvider with a 10MB cap and 30s timeout.
func NewHTTPProvider() *HTTPProvider {
	return &HTTPProvider{
		MaxBytes: 10_000_000,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (HTTPProvider) Supports(uri string) bool {
	return strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://")
}

func (p *HTTPProvider) Fetch(ctx context.Context, uri string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return Document{}, fmt.Errorf("build request for %s: %w", uri, err)
	}
	req.Header.Set("User-Agent", "keep/0.1")

	resp, err := p.client.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("fetch %s: %w", uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Document{}, fmt.Errorf("fetch %s: status %d", uri, resp.StatusCode)
	}

	maxBytes := p.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 10_000_000
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return Document{}, fmt.Errorf("read body of %s: %w", uri, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	if contentType == "" {
		contentType = "text/plain"
	}

	return Document{
		URI:         uri,
		Content:     string(body),
		ContentType: contentType,
		Metadata:    map[string]string{"status_code": fmt.Sprintf("%d", resp.StatusCode)},
	}, nil
}

// Composite dispatches to the first registered Provider that supports a
// given URI. This is the default DocumentProvider wired into Engine.
type Composite struct {
	providers []Provider
}

// NewComposite builds a Composite over FileProvider and HTTPProvider, the
// default pair; callers can Add more specialized providers ahead of them.
func NewComposite() *Composite {
	return &Composite{providers: []Provider{FileProvider{}, NewHTTPProvider()}}
}

// Add registers provider ahead of the existing ones, so it is tried first.
func (c *Composite) Add(provider Provider) {
	c.providers = append([]Provider{provider}, c.providers...)
}

func (c *Composite) Supports(uri string) bool {
	for _, p := range c.providers {
		if p.Supports(uri) {
			return true
		}
	}
	return false
}

func (c *Composite) Fetch(ctx context.Context, uri string) (Document, error) {
	for _, p := range c.providers {
		if p.Supports(uri) {
			return p.Fetch(ctx, uri)
		}
	}
	return Document{}, fmt.Errorf("no document provider supports uri: %s", uri)
}

var (
	_ Provider = FileProvider{}
	_ Provider = (*HTTPProvider)(nil)
	_ Provider = (*Composite)(nil)
)
