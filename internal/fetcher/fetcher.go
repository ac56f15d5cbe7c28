// Package fetcher handles downloading and parsing the NodeSeek RSS feed.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultFeedURL is the feed endpoint polled by the pipeline.
const DefaultFeedURL = "https://rss.nodeseek.com/"

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads the raw feed document.
type Fetcher struct {
	client HTTPClient
	url    string
}

// New creates a Fetcher with the given HTTP client and feed URL.
// An empty url falls back to DefaultFeedURL.
func New(client HTTPClient, url string) *Fetcher {
	if url == "" {
		url = DefaultFeedURL
	}
	return &Fetcher{client: client, url: url}
}

// NewDefault creates a Fetcher with a timeout-bounded default client.
func NewDefault(url string) *Fetcher {
	return New(&http.Client{Timeout: 30 * time.Second}, url)
}

// Fetch downloads the raw feed document. The feed source rejects plain
// bot requests, so the request carries a browser-like header set.
// Any transport error or non-2xx status is a fetch failure, which the
// pipeline treats as fatal for the run.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9")
	req.Header.Set("Cache-Control", "max-age=0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}
