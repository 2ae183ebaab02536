package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrFetch marks any failure to retrieve a remote resource (network
// error, timeout, non-2xx status, oversized body). The request handler
// turns these into user-facing apologies instead of protocol errors.
var ErrFetch = errors.New("fetch failed")

const userAgent = "Mozilla/5.0"

// Fetcher retrieves remote pages and files with bounded wait times so a
// stalled resource cannot hold a request open indefinitely.
type Fetcher struct {
	pages     *http.Client
	downloads *http.Client
	maxBytes  int64
}

func NewFetcher(fetchTimeout, downloadTimeout time.Duration, maxBytes int64) *Fetcher {
	return &Fetcher{
		pages:     &http.Client{Timeout: fetchTimeout},
		downloads: &http.Client{Timeout: downloadTimeout},
		maxBytes:  maxBytes,
	}
}

// FetchPage retrieves a web page body as a string.
func (f *Fetcher) FetchPage(ctx context.Context, url string) (string, error) {
	body, err := f.get(ctx, f.pages, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Download retrieves a file's raw bytes, capped at the configured size.
func (f *Fetcher) Download(ctx context.Context, url string) ([]byte, error) {
	return f.get(ctx, f.downloads, url)
}

func (f *Fetcher) get(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d from %s", ErrFetch, res.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrFetch, err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrFetch, f.maxBytes)
	}
	return body, nil
}
