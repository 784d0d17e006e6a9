package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/quickpick/backend/internal/domain"
	"github.com/quickpick/backend/internal/infrastructure/remote"
)

const defaultMaxProducts = 25

// Options configures a scraper Client
type Options struct {
	Timeout       time.Duration
	RatePerSecond float64
	MaxProducts   int
}

// Client fetches one provider's raw listing from its scraper service.
// The scraper drives the storefront in a browser and answers
// GET {baseURL}?q=&pincode=&lat=&lon= with the extracted product tiles.
type Client struct {
	provider    domain.ProviderID
	baseURL     string
	remote      *remote.Client
	maxProducts int
	logger      zerolog.Logger
}

// NewClient creates a provider source backed by a scraper endpoint
func NewClient(provider domain.ProviderID, baseURL string, opts Options, logger zerolog.Logger) *Client {
	logger = logger.With().Str("component", "scraper").Str("provider", string(provider)).Logger()

	timeout := opts.Timeout
	if timeout <= 0 {
		// Browser scrapes routinely take tens of seconds
		timeout = 60 * time.Second
	}

	maxProducts := opts.MaxProducts
	if maxProducts <= 0 {
		maxProducts = defaultMaxProducts
	}

	return &Client{
		provider: provider,
		baseURL:  baseURL,
		remote: remote.NewClient(remote.Options{
			Timeout:       timeout,
			RatePerSecond: opts.RatePerSecond,
			Burst:         1,
		}, logger),
		maxProducts: maxProducts,
		logger:      logger,
	}
}

// SetDebug enables request logging
func (c *Client) SetDebug(debug bool) {
	c.remote.SetDebug(debug)
}

// Provider returns the provider this client scrapes
func (c *Client) Provider() domain.ProviderID {
	return c.provider
}

// Fetch returns the provider's raw records for a query near a location.
// A 404 from the scraper means the storefront had no results.
func (c *Client) Fetch(ctx context.Context, query string, location domain.Location) ([]domain.RawRecord, error) {
	reqURL, err := c.buildURL(query, location)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}

	var body json.RawMessage
	if err := c.remote.GetJSON(ctx, reqURL, &body); err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			return []domain.RawRecord{}, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrProviderFailure, c.provider, err)
	}

	records, err := decodeRecords(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrProviderFailure, c.provider, err)
	}

	if len(records) > c.maxProducts {
		records = records[:c.maxProducts]
	}

	c.logger.Debug().Str("query", query).Int("records", len(records)).Msg("listing fetched")
	return records, nil
}

func (c *Client) buildURL(query string, location domain.Location) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid scraper url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid scraper url: %q", c.baseURL)
	}

	params := u.Query()
	params.Set("q", query)
	params.Set("pincode", location.Pincode)
	params.Set("lat", strconv.FormatFloat(location.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(location.Longitude, 'f', -1, 64))
	u.RawQuery = params.Encode()
	return u.String(), nil
}

// decodeRecords accepts either a bare JSON array or an object with a "products" array
func decodeRecords(body json.RawMessage) ([]domain.RawRecord, error) {
	var records []domain.RawRecord
	if err := json.Unmarshal(body, &records); err == nil {
		return nonNil(records), nil
	}

	var wrapped struct {
		Products []domain.RawRecord `json:"products"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}
	return nonNil(wrapped.Products), nil
}

// nonNil drops null entries and never returns a nil slice
func nonNil(records []domain.RawRecord) []domain.RawRecord {
	out := make([]domain.RawRecord, 0, len(records))
	for _, r := range records {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
