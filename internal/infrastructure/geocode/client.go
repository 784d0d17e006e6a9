package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quickpick/backend/internal/domain"
	"github.com/quickpick/backend/internal/infrastructure/remote"
)

// Client resolves pincodes through the geocode.maps.co search API
type Client struct {
	remote  *remote.Client
	apiKey  string
	baseURL string
	logger  zerolog.Logger
}

// NewClient creates a new geocoding client.
// The free tier of geocode.maps.co allows one request per second.
func NewClient(apiKey, baseURL string, ratePerSecond float64, logger zerolog.Logger) *Client {
	logger = logger.With().Str("component", "geocode").Logger()
	return &Client{
		remote: remote.NewClient(remote.Options{
			Timeout:       15 * time.Second,
			RatePerSecond: ratePerSecond,
			Burst:         1,
		}, logger),
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// SetDebug enables request logging
func (c *Client) SetDebug(debug bool) {
	c.remote.SetDebug(debug)
}

// Lookup resolves a pincode to the coordinates of the first search result
func (c *Client) Lookup(ctx context.Context, pincode string) (*domain.Location, error) {
	pincode = strings.TrimSpace(pincode)
	if pincode == "" {
		return nil, domain.ErrInvalidRequest
	}

	// Quoting the pincode keeps the search from matching house numbers
	params := url.Values{}
	params.Add("q", fmt.Sprintf("%q", pincode))
	params.Add("api_key", c.apiKey)
	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	var places []Place
	if err := c.remote.GetJSON(ctx, reqURL, &places); err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			return nil, domain.ErrLocationNotFound
		}
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrGeocodeFailure, err)
	}

	location, err := MapToLocation(pincode, places)
	if err != nil {
		c.logger.Info().Str("pincode", pincode).Int("results", len(places)).Msg("pincode not resolved")
		return nil, err
	}

	c.logger.Debug().
		Str("pincode", pincode).
		Float64("lat", location.Latitude).
		Float64("lon", location.Longitude).
		Msg("pincode resolved")
	return location, nil
}
