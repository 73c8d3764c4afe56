package ingest

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// FetchConfig carries the HTTP settings shared by the feed fetcher and the
// web scraper. It is passed explicitly into every fetch; there is no
// process-wide mutable client state.
type FetchConfig struct {
	UserAgent string
	// Timeout bounds each individual fetch, not the whole run. A hung
	// source must not stall the others.
	Timeout time.Duration
	// Client is the shared HTTP client (connection pooling enabled).
	Client *http.Client

	// SummaryMaxLen bounds the plain-text summary extracted per item.
	SummaryMaxLen int
}

// DefaultFetchConfig returns the fetch settings used by both entry points.
func DefaultFetchConfig() FetchConfig {
	timeout := 10 * time.Second
	return FetchConfig{
		UserAgent:     "Mozilla/5.0 (compatible; daily-digest/1.0)",
		Timeout:       timeout,
		SummaryMaxLen: 500,
		Client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// httpGet performs a GET with the configured User-Agent and per-fetch
// timeout. The caller must close the response body. Non-2xx responses are
// returned as an error with the body already closed.
func httpGet(ctx context.Context, rawURL string, cfg FetchConfig) (*http.Response, context.CancelFunc, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("request creation failed: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml,*/*")

	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		cancel()
		return nil, nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return resp, cancel, nil
}
