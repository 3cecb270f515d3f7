// Package flipp is a read-only client for the Flipp flyer aggregation feed.
package flipp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://backflipp.wishabi.com/flipp"
	DefaultLocale    = "en-us"
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

	maxBodyBytes = 32 << 20
)

// Config configures a Client.
type Config struct {
	BaseURL   string
	Locale    string
	UserAgent string
	Timeout   time.Duration // per request

	// RequestsPerSecond throttles outbound calls; zero disables throttling.
	RequestsPerSecond float64
	Burst             int
}

// StatusError is returned when the feed answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s from %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// StatusCode extracts the upstream status from err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Client fetches flyers and flyer items.
type Client struct {
	baseURL    string
	locale     string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Locale == "" {
		cfg.Locale = DefaultLocale
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		locale:     cfg.Locale,
		userAgent:  cfg.UserAgent,
		timeout:    cfg.Timeout,
		httpClient: httpClient,
		limiter:    limiter,
	}
}

// Flyers returns the active flyers published for a postal code.
func (c *Client) Flyers(ctx context.Context, postalCode string) ([]Flyer, error) {
	body, err := c.get(ctx, "/flyers", url.Values{"postal_code": {postalCode}})
	if err != nil {
		return nil, err
	}
	flyers, err := DecodeFlyers(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse flyers: %w", err)
	}
	return flyers, nil
}

// Items returns the line items of one flyer. Feeds without the items
// endpoint are read from the flyer detail instead.
func (c *Client) Items(ctx context.Context, flyerID string) ([]Item, error) {
	path := "/flyers/" + url.PathEscape(flyerID)
	body, err := c.get(ctx, path+"/items", nil)
	if StatusCode(err) == http.StatusNotFound {
		body, err = c.get(ctx, path, nil)
	}
	if err != nil {
		return nil, err
	}
	items, err := DecodeItems(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse items of flyer %s: %w", flyerID, err)
	}
	return items, nil
}

// URL builds the absolute URL for path with the locale applied.
func (c *Client) URL(path string, query url.Values) string {
	q := url.Values{"locale": {c.locale}}
	for k, v := range query {
		q[k] = v
	}
	return c.baseURL + path + "?" + q.Encode()
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	body, status, err := c.do(ctx, c.URL(path, query))
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &StatusError{URL: c.URL(path, query), StatusCode: status}
	}
	return body, nil
}

// do performs one throttled GET and returns the body whatever the status.
func (c *Client) do(ctx context.Context, rawURL string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("rate limiter: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, resp.StatusCode, nil
}
