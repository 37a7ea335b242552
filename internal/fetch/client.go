// SPDX-License-Identifier: MIT

// Package fetch downloads multi-chapter stories from supported sites and
// extracts their content via configurable selector profiles.
package fetch

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/litkeeper/litkeeper/internal/cache"
	xklog "github.com/litkeeper/litkeeper/internal/log"
	"github.com/litkeeper/litkeeper/internal/metrics"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// userAgents is the pool of browser identities rotated across sessions.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/111.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/111.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/111.0.0.0 Safari/537.36",
}

// maxPageBytes caps a single page body to keep a hostile or broken upstream
// from exhausting memory.
const maxPageBytes = 8 * 1024 * 1024

// ClientConfig holds tunables for the page fetcher.
type ClientConfig struct {
	Timeout  time.Duration // per-request deadline
	Retries  int           // retries per page on failure
	Delay    time.Duration // politeness delay between upstream requests
	Cache    cache.Cache   // optional page cache
	CacheTTL time.Duration
}

// Client fetches story pages with politeness pacing, retries and caching.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	cache     cache.Cache
	cacheTTL  time.Duration
	retries   int
	userAgent string
}

// NewClient creates a page fetcher. Each client picks one User-Agent for its
// lifetime so a single story walk looks like one browser session.
func NewClient(cfg ClientConfig) *Client {
	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter:   rate.NewLimiter(limit, 1),
		cache:     cfg.Cache,
		cacheTTL:  cfg.CacheTTL,
		retries:   cfg.Retries,
		userAgent: userAgents[rand.IntN(len(userAgents))],
	}
}

// FetchPage retrieves one page body, consulting the cache first and retrying
// transient failures with exponential backoff.
func (c *Client) FetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	logger := xklog.WithComponentFromContext(ctx, "fetch")

	if c.cache != nil {
		if body, ok := c.cache.Get(ctx, pageURL); ok {
			metrics.IncPageFetched("cached")
			logger.Debug().Str("url", pageURL).Msg("page served from cache")
			return body, nil
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := time.Duration(attempt*attempt*500) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		// Politeness pacing applies to every upstream request, retries included.
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.fetchOnce(ctx, pageURL)
		if err == nil {
			metrics.IncPageFetched("success")
			if c.cache != nil {
				c.cache.Set(ctx, pageURL, body, c.cacheTTL)
			}
			return body, nil
		}
		lastErr = err
		logger.Debug().
			Err(err).
			Str("url", pageURL).
			Int("attempt", attempt).
			Msg("page fetch failed")
	}

	metrics.IncPageFetched("error")
	return nil, fmt.Errorf("fetch %s after %d retries: %w", pageURL, c.retries, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Connection", "keep-alive")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxPageBytes {
		return nil, fmt.Errorf("page %s exceeds %d bytes", pageURL, maxPageBytes)
	}
	return body, nil
}
