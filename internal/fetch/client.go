// Package fetch downloads price and weather extracts from public HTTP APIs.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"energy_harmonizer/internal/logger"
)

// Client performs rate-limited GET requests, retrying rate-limit and server
// errors with linear backoff.
type Client struct {
	http       *http.Client
	limiter    *rate.Limiter
	log        logger.Logger
	MaxRetries int
	Backoff    time.Duration
}

// NewClient returns a client allowing perSecond requests per second.
func NewClient(perSecond float64, log logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		http:       &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(perSecond), 1),
		log:        log,
		MaxRetries: 5,
		Backoff:    5 * time.Second,
	}
}

// StatusError is returned for a non-retryable or exhausted non-200 response.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned %d: %s", e.URL, e.Status, e.Body)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// Get returns the body of url.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var last error
	for attempt := range c.MaxRetries {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		body, status, err := c.get(ctx, url)
		if err != nil {
			return nil, err
		}
		if status == http.StatusOK {
			return body, nil
		}
		last = &StatusError{URL: url, Status: status, Body: truncate(string(body), 200)}
		if !retryable(status) {
			return nil, last
		}

		wait := time.Duration(attempt+1) * c.Backoff
		c.log.Warnf("GET %s returned %d, waiting %s (attempt %d/%d)", url, status, wait, attempt+1, c.MaxRetries)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, last
}

func (c *Client) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
