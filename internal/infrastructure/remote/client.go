package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrNotFound is returned when the remote endpoint answers 404
var ErrNotFound = errors.New("remote resource not found")

// ErrStatus is returned when the remote endpoint keeps answering a non-200 status
var ErrStatus = errors.New("unexpected status from remote")

const (
	maxAttempts = 3
	baseBackoff = 500 * time.Millisecond
	maxBodySize = 10 << 20
)

// Options configures a Client
type Options struct {
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	UserAgent     string
}

// Client issues rate-limited JSON GET requests with retries
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	userAgent   string
	debug       bool
	logger      zerolog.Logger
}

// NewClient creates a new remote client
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "QuickPick/1.0"
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: rate.NewLimiter(limit, burst),
		userAgent:   userAgent,
		logger:      logger,
	}
}

// SetDebug enables logging of successful requests
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// exponentialBackoff returns the wait before retrying after the given attempt
func exponentialBackoff(attempt int) time.Duration {
	return baseBackoff * time.Duration(1<<(attempt-1))
}

// GetJSON fetches reqURL and decodes the JSON body into out.
// Transport errors, 5xx and 429 are retried up to three times; other 4xx
// fail at once, 404 as ErrNotFound.
func (c *Client) GetJSON(ctx context.Context, reqURL string, out any) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
		}

		// Wait for rate limiter
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		body, status, err := c.doRequest(ctx, reqURL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logAttempt(attempt, reqURL, 0, err)
			lastErr = err
			continue
		}

		if status == http.StatusNotFound {
			return ErrNotFound
		}
		if status != http.StatusOK {
			lastErr = fmt.Errorf("%w: status %d", ErrStatus, status)
			c.logAttempt(attempt, reqURL, status, lastErr)
			if !retryable(status) {
				return lastErr
			}
			continue
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		if c.debug {
			c.logger.Debug().Int("attempt", attempt).Str("url", redact(reqURL)).Int("bytes", len(body)).Msg("remote request ok")
		}
		return nil
	}

	return lastErr
}

// doRequest executes an HTTP GET request and reads the body
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// retryable reports whether a status is worth another attempt
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func (c *Client) logAttempt(attempt int, reqURL string, status int, err error) {
	c.logger.Warn().Err(err).
		Int("attempt", attempt).
		Int("status", status).
		Str("url", redact(reqURL)).
		Msg("remote request failed")
}
