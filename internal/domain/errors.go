package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrLocationNotFound is returned when a pincode cannot be resolved to coordinates
	ErrLocationNotFound = errors.New("location not found for pincode")

	// ErrGeocodeFailure is returned when the geocoding API request fails
	ErrGeocodeFailure = errors.New("geocoding request failed")

	// ErrProviderFailure is returned when a provider source cannot supply its listing
	ErrProviderFailure = errors.New("provider request failed")

	// ErrNoResults is returned when no provider returned any listing for a query
	ErrNoResults = errors.New("no data found from any provider")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)
