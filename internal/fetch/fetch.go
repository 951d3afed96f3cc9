// Package fetch provides the fetch_url capability: it downloads a
// URL's content and extracts readable text, optionally verifying the
// raw body against an expected SHA-256 digest.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/deskwork/deskwork/internal/httpkit"
)

// DefaultTimeout is the HTTP request timeout for fetching pages.
const DefaultTimeout = 30 * time.Second

// DefaultMaxBytes is the maximum response body size (5 MB).
const DefaultMaxBytes int64 = 5 * 1024 * 1024

// DefaultMaxChars is the default character limit for extracted text.
const DefaultMaxChars = 50000

// Fetcher downloads and extracts readable content from web pages.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// New creates a Fetcher with default settings.
func New() *Fetcher {
	return &Fetcher{
		client: httpkit.NewClient(
			httpkit.WithTimeout(DefaultTimeout),
		),
		maxBytes: DefaultMaxBytes,
	}
}

// Fetch downloads rawURL and returns its readable text. When
// expectedHash is non-empty, the raw body's SHA-256 hex digest must
// match it or the fetch fails. This guards pinned downloads against
// content drift.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, expectedHash string) (string, error) {
	if rawURL == "" {
		return "", fmt.Errorf("fetch_url: url is required")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("fetch_url: invalid url: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.8,*/*;q=0.7")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch_url: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		httpkit.DrainAndClose(resp.Body, 1024)
		return "", fmt.Errorf("fetch_url: status %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return "", fmt.Errorf("fetch_url: read response: %w", err)
	}

	if expectedHash != "" {
		sum := sha256.Sum256(body)
		got := hex.EncodeToString(sum[:])
		if !strings.EqualFold(got, expectedHash) {
			return "", fmt.Errorf("fetch_url: content hash mismatch (got %s)", got)
		}
	}

	contentType := resp.Header.Get("Content-Type")
	var title, content string
	switch {
	case strings.Contains(contentType, "html"):
		title, content = extractHTML(string(body))
	case strings.HasPrefix(contentType, "text/"):
		content = string(body)
	default:
		if !utf8.Valid(body) {
			return "", fmt.Errorf("fetch_url: unsupported content type %q", contentType)
		}
		content = string(body)
	}

	if len(content) > DefaultMaxChars {
		content = content[:DefaultMaxChars] + "\n[... truncated ...]"
	}
	if title != "" {
		return title + "\n\n" + content, nil
	}
	return content, nil
}
