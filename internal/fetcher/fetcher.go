// Package fetcher issues bounded, proxy-aware HTTP GETs and hands parsed
// documents to the extractor.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"pepperwatch/internal/config"
	"pepperwatch/internal/util"
)

// Rotator yields the outbound proxy address for the next request, or "" for a
// direct connection.
type Rotator interface {
	Current() string
}

type Client struct {
	baseURL   string
	userAgent string
	rotator   Rotator
	direct    *http.Client
	timeout   time.Duration
	sem       *semaphore.Weighted
	limiter   *rate.Limiter
}

func New(cfg *config.Config, rotator Rotator) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		rotator:   rotator,
		timeout:   cfg.RequestTimeout,
		direct:    &http.Client{Timeout: cfg.RequestTimeout},
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrentRequests)),
		// One request per second keeps the source from seeing bursts even
		// when many monitors tick at once.
		limiter: rate.NewLimiter(rate.Limit(1), cfg.MaxConcurrentRequests),
	}
}

// Fetch GETs rawURL and parses the body. The first attempt goes through the
// current proxy when one is available; any failure is retried exactly once
// over a direct connection. Both attempts failing is reported as an error the
// caller treats as "no content", never as something to crash on.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	target := util.NormalizeURL(rawURL, c.baseURL)

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if proxyURL := c.rotator.Current(); proxyURL != "" {
		doc, err := c.get(ctx, target, proxyURL)
		if err == nil {
			return doc, nil
		}
		slog.Warn("Proxied fetch failed, retrying direct", "url", target, "error", err)
	}

	doc, err := c.get(ctx, target, "")
	if err != nil {
		slog.Warn("Fetch failed", "url", target, "error", err)
		return nil, err
	}
	return doc, nil
}

// ResolveRedirect follows at most one redirect hop from rawURL and returns
// the hop target, or rawURL unchanged when there is none or the request
// fails.
func (c *Client) ResolveRedirect(ctx context.Context, rawURL string) string {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return rawURL
	}
	defer c.sem.Release(1)
	if err := c.limiter.Wait(ctx); err != nil {
		return rawURL
	}

	client := &http.Client{
		Timeout: c.timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	req, err := c.newRequest(ctx, rawURL)
	if err != nil {
		return rawURL
	}
	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("Redirect probe failed", "url", rawURL, "error", err)
		return rawURL
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		if loc, err := resp.Location(); err == nil {
			return loc.String()
		}
	}
	return rawURL
}

func (c *Client) get(ctx context.Context, target, proxyURL string) (*goquery.Document, error) {
	client := c.direct
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy URL: %w", err)
		}
		client = &http.Client{
			Timeout:   c.timeout,
			Transport: &http.Transport{Proxy: http.ProxyURL(parsed)},
		}
	}

	req, err := c.newRequest(ctx, target)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: status %d", target, resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

func (c *Client) newRequest(ctx context.Context, target string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request for %s: %w", target, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "pl-PL,pl;q=0.9,en-US;q=0.8")
	return req, nil
}
