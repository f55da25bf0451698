// Package storage is the narrow contract to the media storage/serving
// collaborator: upload local media to a publicly fetchable URL and fetch
// media with byte-range support.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ByteRange selects a portion of a remote object. A nil range fetches the
// whole object.
type ByteRange struct {
	Start int64
	End   int64 // inclusive, per the HTTP Range header
}

// Store uploads and serves media. Every uploaded object must be reachable by
// the remote compute layer, so Upload always returns a fully qualified URL.
type Store interface {
	Upload(ctx context.Context, body io.Reader, contentType string) (string, error)
	Fetch(ctx context.Context, url string, rng *ByteRange) (io.ReadCloser, error)
}

// Client talks to an HTTP upload/serving endpoint.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a Client for the given base URL.
func NewClient(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{
			Timeout:   60 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Upload streams media to the storage endpoint and returns its public URL.
func (c *Client) Upload(ctx context.Context, body io.Reader, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/uploads", body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("upload: unexpected status %s", res.Status)
	}

	var p struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if p.URL == "" {
		return "", fmt.Errorf("upload response is missing url")
	}
	return p.URL, nil
}

// Fetch retrieves an object, optionally a byte range of it. The caller owns
// the returned body.
func (c *Client) Fetch(ctx context.Context, url string, rng *ByteRange) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}
	if rng != nil {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", rng.Start, rng.End))
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusPartialContent {
		res.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, res.Status)
	}
	return res.Body, nil
}
