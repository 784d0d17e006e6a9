package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ProviderID identifies one grocery-delivery storefront
type ProviderID string

const (
	ProviderBlinkit   ProviderID = "blinkit"
	ProviderZepto     ProviderID = "zepto"
	ProviderInstamart ProviderID = "instamart"
)

// Providers lists every known provider in canonical priority order.
// Display names and best-price ties resolve in this order.
var Providers = []ProviderID{ProviderBlinkit, ProviderZepto, ProviderInstamart}

// ParseProviderID returns the known provider matching s (case-insensitive)
func ParseProviderID(s string) (ProviderID, error) {
	id := ProviderID(strings.ToLower(strings.TrimSpace(s)))
	if id.Valid() {
		return id, nil
	}
	return "", fmt.Errorf("%w: unknown provider %q", ErrInvalidRequest, s)
}

// Valid reports whether the provider is one of the known providers
func (p ProviderID) Valid() bool {
	return p.Priority() >= 0
}

// Priority returns the provider's position in the canonical priority order, or -1
func (p ProviderID) Priority() int {
	for i, known := range Providers {
		if known == p {
			return i
		}
	}
	return -1
}

func (p ProviderID) String() string {
	return string(p)
}

// RawRecord is one listing as returned by a provider scraper.
// Keys and value types differ per provider; only the normalizer reads it.
type RawRecord map[string]any

// Text returns the value at key as trimmed text. Numbers are formatted without
// exponent so price-like numeric values survive a round trip through text.
func (r RawRecord) Text(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}

	var s string
	switch val := v.(type) {
	case string:
		s = val
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		s = strconv.Itoa(val)
	case int64:
		s = strconv.FormatInt(val, 10)
	case bool:
		s = strconv.FormatBool(val)
	default:
		s = fmt.Sprint(val)
	}

	s = strings.TrimSpace(s)
	return s, s != ""
}

// Flag returns the value at key interpreted as a boolean.
// The second result is false when the key is absent or not boolean-like.
func (r RawRecord) Flag(key string) (value bool, ok bool) {
	v, exists := r[key]
	if !exists || v == nil {
		return false, false
	}

	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return false, false
		}
		return b, true
	case float64:
		return val != 0, true
	case int:
		return val != 0, true
	}
	return false, false
}
