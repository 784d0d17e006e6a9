package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/quickpick/backend/internal/domain"
)

var (
	multiSpacePattern = regexp.MustCompile(`\s+`)

	// Currency markers providers put around prices: "₹120", "Rs. 120", "INR 120", "MRP ₹150"
	currencyPattern = regexp.MustCompile(`(?i)₹|\brs\.?|\binr\b|\bmrp\b:?`)

	// A price left after stripping currency must be a plain number
	plainNumberPattern = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
)

// defaultUnavailableMarkers are availability texts that mean the listing cannot be bought
var defaultUnavailableMarkers = []string{"sold out", "out of stock", "unavailable", "not available"}

// ProviderRules describes where one provider keeps each field in its raw records.
// Field lists are tried in order; the first non-empty value wins.
type ProviderRules struct {
	NameFields          []string
	QuantityFields      []string
	QuantityPatterns    []*regexp.Regexp
	PriceFields         []string
	OriginalPriceFields []string
	// OutOfStockFlags are boolean fields that are true when the item is unavailable
	OutOfStockFlags []string
	// AvailabilityFields hold free text compared against UnavailableMarkers
	AvailabilityFields []string
	UnavailableMarkers []string
	LinkFields         []string
	ImageFields        []string
	DeliveryTimeFields []string
}

// DefaultProviderRules returns the field layout of each provider's scraper output
func DefaultProviderRules() map[domain.ProviderID]ProviderRules {
	return map[domain.ProviderID]ProviderRules{
		domain.ProviderBlinkit: {
			NameFields:          []string{"name"},
			QuantityFields:      []string{"quantity"},
			QuantityPatterns:    DefaultQuantityPatterns(),
			PriceFields:         []string{"price"},
			OriginalPriceFields: []string{"originalPrice"},
			OutOfStockFlags:     []string{"outOfStock"},
			UnavailableMarkers:  defaultUnavailableMarkers,
			LinkFields:          []string{"link"},
			ImageFields:         []string{"image"},
			DeliveryTimeFields:  []string{"deliveryTime"},
		},
		domain.ProviderZepto: {
			NameFields:          []string{"name"},
			QuantityFields:      []string{"quantity", "packSize"},
			QuantityPatterns:    DefaultQuantityPatterns(),
			PriceFields:         []string{"price"},
			OriginalPriceFields: []string{"mrp"},
			OutOfStockFlags:     []string{"outOfStock"},
			UnavailableMarkers:  defaultUnavailableMarkers,
			LinkFields:          []string{"link"},
			ImageFields:         []string{"image"},
		},
		domain.ProviderInstamart: {
			NameFields:         []string{"name"},
			QuantityFields:     []string{"quantity"},
			QuantityPatterns:   DefaultQuantityPatterns(),
			PriceFields:        []string{"price"},
			AvailabilityFields: []string{"availability"},
			UnavailableMarkers: defaultUnavailableMarkers,
			LinkFields:         []string{"link"},
			ImageFields:        []string{"image", "productImg"},
			DeliveryTimeFields: []string{"deliveryTime"},
		},
	}
}

// genericRules applies to providers without configured rules
var genericRules = ProviderRules{
	NameFields:          []string{"name", "title"},
	QuantityFields:      []string{"quantity", "size"},
	QuantityPatterns:    DefaultQuantityPatterns(),
	PriceFields:         []string{"price"},
	OriginalPriceFields: []string{"originalPrice", "mrp"},
	OutOfStockFlags:     []string{"outOfStock"},
	AvailabilityFields:  []string{"availability"},
	UnavailableMarkers:  defaultUnavailableMarkers,
	LinkFields:          []string{"link", "url"},
	ImageFields:         []string{"image"},
	DeliveryTimeFields:  []string{"deliveryTime"},
}

// Normalizer converts raw provider records into canonical records
type Normalizer struct {
	rules map[domain.ProviderID]ProviderRules
}

// NewNormalizer creates a normalizer; nil rules fall back to DefaultProviderRules
func NewNormalizer(rules map[domain.ProviderID]ProviderRules) *Normalizer {
	if rules == nil {
		rules = DefaultProviderRules()
	}
	return &Normalizer{rules: rules}
}

// Normalize converts one raw record. The boolean is false when the record is
// dropped: no usable name, or a price that fails to parse while nothing marks
// the item unavailable. A dropped record is not an error.
func (n *Normalizer) Normalize(raw domain.RawRecord, provider domain.ProviderID) (domain.CanonicalRecord, bool) {
	rules, ok := n.rules[provider]
	if !ok {
		rules = genericRules
	}

	name := collapseWhitespace(firstText(raw, rules.NameFields))
	if name == "" {
		return domain.CanonicalRecord{}, false
	}

	record := domain.CanonicalRecord{
		Provider:     provider,
		Name:         name,
		Available:    !isUnavailable(raw, rules),
		Link:         firstText(raw, rules.LinkFields),
		DeliveryTime: collapseWhitespace(firstText(raw, rules.DeliveryTimeFields)),
	}

	price, priced := parsePrice(firstText(raw, rules.PriceFields))
	switch {
	case priced:
		record.Price = &price
	case record.Available:
		// Never show an item as buyable at a made-up price
		return domain.CanonicalRecord{}, false
	}

	if original, ok := parsePrice(firstText(raw, rules.OriginalPriceFields)); ok {
		record.OriginalPrice = &original
	}

	if image := firstText(raw, rules.ImageFields); image != "" {
		record.Image = &image
	}

	if amount, unit, ok := extractQuantity(raw, name, rules); ok {
		record.QuantityAmount = &amount
		record.QuantityUnit = &unit
	}

	return record, true
}

// NormalizeAll normalizes a provider's list, preserving input order.
// It returns the kept records and the number of dropped ones.
func (n *Normalizer) NormalizeAll(raws []domain.RawRecord, provider domain.ProviderID) ([]domain.CanonicalRecord, int) {
	records := make([]domain.CanonicalRecord, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		record, ok := n.Normalize(raw, provider)
		if !ok {
			dropped++
			continue
		}
		records = append(records, record)
	}
	return records, dropped
}

// extractQuantity looks in the dedicated quantity fields first, then in the name
func extractQuantity(raw domain.RawRecord, name string, rules ProviderRules) (float64, domain.Unit, bool) {
	patterns := rules.QuantityPatterns
	if len(patterns) == 0 {
		patterns = DefaultQuantityPatterns()
	}

	for _, field := range rules.QuantityFields {
		if text, ok := raw.Text(field); ok {
			if amount, unit, ok := ParseQuantity(text, patterns); ok {
				return amount, unit, true
			}
		}
	}
	return ParseQuantity(name, patterns)
}

// isUnavailable reports whether any configured flag or availability text marks the item unavailable
func isUnavailable(raw domain.RawRecord, rules ProviderRules) bool {
	for _, field := range rules.OutOfStockFlags {
		if outOfStock, ok := raw.Flag(field); ok && outOfStock {
			return true
		}
	}

	for _, field := range rules.AvailabilityFields {
		text, ok := raw.Text(field)
		if !ok {
			continue
		}
		text = strings.ToLower(text)
		for _, marker := range rules.UnavailableMarkers {
			if strings.Contains(text, marker) {
				return true
			}
		}
	}
	return false
}

// parsePrice strips currency markers and thousands separators and parses the rest.
// Anything other than exactly one plain non-negative number fails, so "₹120 ₹150"
// and "1 200" are unparseable rather than read as one joined number.
func parsePrice(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}

	cleaned := currencyPattern.ReplaceAllString(s, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if !plainNumberPattern.MatchString(cleaned) {
		return 0, false
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// firstText returns the first non-empty text among fields
func firstText(raw domain.RawRecord, fields []string) string {
	for _, field := range fields {
		if text, ok := raw.Text(field); ok {
			return text
		}
	}
	return ""
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(multiSpacePattern.ReplaceAllString(s, " "))
}
