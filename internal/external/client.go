// Package external provides clients for the free upstream data sources: the
// ESPN scoreboard API and RSS news feeds.
package external

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ---------------------------------------------------------------------------
// Constants
// ---------------------------------------------------------------------------

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "Mozilla/5.0 (compatible; ScoracleAlerts/1.0)"
	maxBodyBytes     = 5 << 20

	// Upstreams are free and unauthenticated; stay polite.
	requestsPerSecond = 5
	requestBurst      = 5
)

// fetcher is the shared rate-limited GET helper behind both sources.
type fetcher struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func newFetcher(timeout time.Duration, logger *slog.Logger) *fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &fetcher{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		logger:     logger,
	}
}

// get performs a rate-limited GET and returns the body of a 2xx response.
func (f *fetcher) get(ctx context.Context, u, accept string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", accept)

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: u, StatusCode: resp.StatusCode, Body: truncate(body, 200)}
	}

	f.logger.Debug("upstream fetch", "url", u, "status", resp.StatusCode,
		"bytes", len(body), "duration", time.Since(start).Round(time.Millisecond))
	return body, nil
}

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.URL, e.StatusCode, e.Body)
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
