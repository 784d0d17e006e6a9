package geocode

import (
	"math"
	"strconv"
	"strings"

	"github.com/quickpick/backend/internal/domain"
)

// Place is one search result of the geocoding API. Coordinates arrive as strings.
type Place struct {
	PlaceID     int64  `json:"place_id"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
}

// MapToLocation converts the first search result to our domain Location.
// An empty result set or unparseable coordinates mean the pincode is unknown.
func MapToLocation(pincode string, places []Place) (*domain.Location, error) {
	if len(places) == 0 {
		return nil, domain.ErrLocationNotFound
	}

	lat, ok := parseCoordinate(places[0].Lat, 90)
	if !ok {
		return nil, domain.ErrLocationNotFound
	}
	lon, ok := parseCoordinate(places[0].Lon, 180)
	if !ok {
		return nil, domain.ErrLocationNotFound
	}

	return &domain.Location{
		Pincode:   pincode,
		Latitude:  lat,
		Longitude: lon,
	}, nil
}

// parseCoordinate parses a coordinate and checks it lies within ±limit
func parseCoordinate(s string, limit float64) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.Abs(v) > limit {
		return 0, false
	}
	return v, true
}
