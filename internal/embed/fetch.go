package embed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Fetcher retrieves remote images for inlining.
type Fetcher struct {
	client  *http.Client
	maxSize int64
}

// NewFetcher builds a Fetcher with the given per-request timeout and response
// size cap (0 disables the cap).
func NewFetcher(timeout time.Duration, maxSize int64) *Fetcher {
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		maxSize: maxSize,
	}
}

// Fetch downloads an image and reports its content type. Non-200 responses
// are errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if f.maxSize > 0 {
		// One extra byte so the inliner can detect an over-limit image.
		body = io.LimitReader(resp.Body, f.maxSize+1)
	}
	content, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("read image body: %w", err)
	}

	mimetype := resp.Header.Get("Content-Type")
	if mimetype == "" {
		return nil, "", fmt.Errorf("response has no content type")
	}
	return content, mimetype, nil
}
