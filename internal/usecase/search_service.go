package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/quickpick/backend/internal/domain"
)

// Package-level compiled regex patterns for performance
var (
	nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
)

// SearchServiceConfig holds configuration for the search service
type SearchServiceConfig struct {
	LocationTTL time.Duration
}

// SearchService resolves the location, fetches every provider's listing and compares them.
// Flow: check cache -> geocode pincode -> cache -> fetch providers concurrently -> compare
type SearchService struct {
	cache       domain.CacheRepository
	geocoder    domain.Geocoder
	sources     map[domain.ProviderID]domain.ProviderSource
	comparator  *Comparator
	locationTTL time.Duration
	logger      zerolog.Logger
}

// NewSearchService creates a new search service with dependencies.
// Providers without a source are reported as disabled.
func NewSearchService(
	cache domain.CacheRepository,
	geocoder domain.Geocoder,
	sources []domain.ProviderSource,
	comparator *Comparator,
	config SearchServiceConfig,
	logger zerolog.Logger,
) *SearchService {
	locationTTL := config.LocationTTL
	if locationTTL == 0 {
		locationTTL = 720 * time.Hour // Default 30 days
	}

	bySource := make(map[domain.ProviderID]domain.ProviderSource, len(sources))
	for _, source := range sources {
		if source != nil {
			bySource[source.Provider()] = source
		}
	}

	return &SearchService{
		cache:       cache,
		geocoder:    geocoder,
		sources:     bySource,
		comparator:  comparator,
		locationTTL: locationTTL,
		logger:      logger.With().Str("component", "search").Logger(),
	}
}

// Search compares the listings of every configured provider for a query near a pincode.
// A provider that fails is reported as failed and treated as empty; the search only
// fails when no provider returned anything.
func (s *SearchService) Search(ctx context.Context, request *domain.SearchRequest) (*domain.ComparisonResult, error) {
	if request == nil {
		return nil, domain.ErrInvalidRequest
	}
	query := strings.TrimSpace(request.Query)
	pincode := strings.TrimSpace(request.Pincode)
	if query == "" || pincode == "" {
		return nil, fmt.Errorf("%w: query and pincode required", domain.ErrInvalidRequest)
	}

	location, err := s.resolveLocation(ctx, pincode)
	if err != nil {
		return nil, err
	}

	raw, statuses, err := s.fetchAll(ctx, query, *location)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, records := range raw {
		total += len(records)
	}
	if total == 0 {
		return nil, domain.ErrNoResults
	}

	rows := s.comparator.Compare(raw)
	s.logger.Info().
		Str("query", query).
		Str("pincode", pincode).
		Int("records", total).
		Int("rows", len(rows)).
		Msg("comparison complete")

	return &domain.ComparisonResult{
		Query:     query,
		Location:  location,
		Providers: statuses,
		Rows:      rows,
	}, nil
}

// Compare runs the comparison on caller-supplied raw listings
func (s *SearchService) Compare(request *domain.CompareRequest) (*domain.ComparisonResult, error) {
	if request == nil {
		return nil, domain.ErrInvalidRequest
	}

	raw := make(map[domain.ProviderID][]domain.RawRecord, len(request.Providers))
	statuses := make(map[domain.ProviderID]domain.ProviderStatus, len(domain.Providers))
	for _, provider := range domain.Providers {
		statuses[provider] = domain.ProviderStatusEmpty
	}

	for key, records := range request.Providers {
		provider, err := domain.ParseProviderID(string(key))
		if err != nil {
			return nil, err
		}
		raw[provider] = append(raw[provider], records...)
		if len(raw[provider]) > 0 {
			statuses[provider] = domain.ProviderStatusOK
		}
	}

	return &domain.ComparisonResult{
		Providers: statuses,
		Rows:      s.comparator.Compare(raw),
	}, nil
}

// Sources reports which known providers have a configured source
func (s *SearchService) Sources() map[domain.ProviderID]bool {
	enabled := make(map[domain.ProviderID]bool, len(domain.Providers))
	for _, provider := range domain.Providers {
		_, ok := s.sources[provider]
		enabled[provider] = ok
	}
	return enabled
}

// fetchAll queries every configured provider concurrently.
// Each provider fails independently; a failure yields an empty list. Only the
// caller's context ending aborts the whole fan-out.
func (s *SearchService) fetchAll(ctx context.Context, query string, location domain.Location) (map[domain.ProviderID][]domain.RawRecord, map[domain.ProviderID]domain.ProviderStatus, error) {
	providers := domain.Providers
	lists := make([][]domain.RawRecord, len(providers))
	errs := make([]error, len(providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, provider := range providers {
		source, ok := s.sources[provider]
		if !ok {
			continue
		}
		g.Go(func() error {
			lists[i], errs[i] = source.Fetch(gctx, query, location)
			if errs[i] != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	raw := make(map[domain.ProviderID][]domain.RawRecord, len(providers))
	statuses := make(map[domain.ProviderID]domain.ProviderStatus, len(providers))
	for i, provider := range providers {
		switch {
		case s.sources[provider] == nil:
			statuses[provider] = domain.ProviderStatusDisabled
		case errs[i] != nil:
			s.logger.Warn().Err(errs[i]).Str("provider", string(provider)).Msg("provider fetch failed")
			statuses[provider] = domain.ProviderStatusFailed
		case len(lists[i]) == 0:
			statuses[provider] = domain.ProviderStatusEmpty
		default:
			statuses[provider] = domain.ProviderStatusOK
		}

		if errs[i] == nil {
			raw[provider] = lists[i]
		} else {
			raw[provider] = nil
		}
	}
	return raw, statuses, nil
}

// resolveLocation returns the pincode's coordinates, from cache when possible
func (s *SearchService) resolveLocation(ctx context.Context, pincode string) (*domain.Location, error) {
	cacheKey := generateLocationKey(pincode)

	if cached, err := s.getFromCache(ctx, cacheKey); err == nil && cached != nil {
		return cached, nil
	}

	location, err := s.geocoder.Lookup(ctx, pincode)
	if err != nil {
		if errors.Is(err, domain.ErrLocationNotFound) || errors.Is(err, domain.ErrGeocodeFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrGeocodeFailure, err)
	}

	if err := s.cache.Set(ctx, cacheKey, location, s.locationTTL); err != nil {
		// A cache failure only costs a repeat lookup
		s.logger.Warn().Err(err).Str("pincode", pincode).Msg("failed to cache location")
	}

	return location, nil
}

// generateLocationKey creates a normalized cache key for a pincode.
// Format: "location:{normalized_pincode}"
func generateLocationKey(pincode string) string {
	normalized := strings.ToLower(pincode)
	normalized = nonAlphanumericRegex.ReplaceAllString(normalized, "")
	normalized = multipleSpacesRegex.ReplaceAllString(normalized, "")
	return fmt.Sprintf("location:%s", normalized)
}

// getFromCache retrieves a location from cache
func (s *SearchService) getFromCache(ctx context.Context, key string) (*domain.Location, error) {
	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	location, ok := value.(*domain.Location)
	if !ok {
		// The memory cache stores JSON-decoded maps
		if dataMap, ok := value.(map[string]interface{}); ok {
			return mapToLocation(dataMap)
		}
		return nil, domain.ErrCacheMiss
	}
	return location, nil
}

// mapToLocation converts a map (from JSON cache) to a Location
func mapToLocation(data map[string]interface{}) (*domain.Location, error) {
	lat, latOK := data["latitude"].(float64)
	lon, lonOK := data["longitude"].(float64)
	if !latOK || !lonOK {
		return nil, domain.ErrCacheMiss
	}

	result := &domain.Location{Latitude: lat, Longitude: lon}
	if v, ok := data["pincode"].(string); ok {
		result.Pincode = v
	}
	return result, nil
}
