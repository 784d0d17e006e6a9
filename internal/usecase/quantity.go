package usecase

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/quickpick/backend/internal/domain"
)

// unitTokens maps the unit spellings seen across providers to a normalized unit
var unitTokens = map[string]domain.Unit{
	"g": domain.UnitGram, "gm": domain.UnitGram, "gms": domain.UnitGram, "gr": domain.UnitGram,
	"gram": domain.UnitGram, "grams": domain.UnitGram, "gramme": domain.UnitGram,
	"kg": domain.UnitKilogram, "kgs": domain.UnitKilogram, "kilo": domain.UnitKilogram,
	"kilos": domain.UnitKilogram, "kilogram": domain.UnitKilogram, "kilograms": domain.UnitKilogram,
	"ml": domain.UnitMillilitre, "mls": domain.UnitMillilitre, "millilitre": domain.UnitMillilitre,
	"millilitres": domain.UnitMillilitre, "milliliter": domain.UnitMillilitre, "milliliters": domain.UnitMillilitre,
	"l": domain.UnitLitre, "lt": domain.UnitLitre, "ltr": domain.UnitLitre, "ltrs": domain.UnitLitre,
	"litre": domain.UnitLitre, "litres": domain.UnitLitre, "liter": domain.UnitLitre, "liters": domain.UnitLitre,
	"pc": domain.UnitPiece, "pcs": domain.UnitPiece, "piece": domain.UnitPiece, "pieces": domain.UnitPiece,
	"unit": domain.UnitPiece, "units": domain.UnitPiece, "n": domain.UnitPiece, "nos": domain.UnitPiece,
	"dozen": domain.UnitPiece,
}

// unitMultipliers holds count units that stand for more than one piece
var unitMultipliers = map[string]float64{
	"dozen": 12,
}

// unitAlternation lists unit spellings longest first so the regexp prefers "gms" over "g"
const unitAlternation = `kilograms|kilogram|millilitres|millilitre|milliliters|milliliter|` +
	`gramme|grams|gram|kilos|kilo|kgs|kg|litres|litre|liters|liter|ltrs|ltr|lt|` +
	`mls|ml|gms|gm|gr|g|l|pieces|piece|pcs|pc|units|unit|nos|n|dozen`

// amountExpr matches "500", "0.5" and "1,000"
const amountExpr = `\d+(?:,\d{3})*(?:\.\d+)?`

// Quantity patterns use named groups: amount and unit are required for a match,
// count multiplies the amount (multipacks). A pattern without a unit group
// yields a count in pieces.
var (
	// "2 x 500 g", "4×100ml"
	multipackPattern = regexp.MustCompile(`(?i)(?P<count>\d+)\s*[x×*]\s*(?P<amount>` + amountExpr + `)\s*(?P<unit>` + unitAlternation + `)\b`)

	// "500 g", "0.5kg", "500gm", "1 dozen"
	amountUnitPattern = regexp.MustCompile(`(?i)(?P<amount>` + amountExpr + `)\s*(?P<unit>` + unitAlternation + `)\b`)

	// "pack of 6"
	packOfPattern = regexp.MustCompile(`(?i)\bpack\s+of\s+(?P<amount>\d+)\b`)

	// Strips every quantity mention from a product name before tokenizing
	quantityStripPattern = regexp.MustCompile(`(?i)(?:\d+\s*[x×*]\s*)?` + amountExpr + `\s*(?:` + unitAlternation + `)\b|\bpack\s+of\s+\d+\b`)
)

// DefaultQuantityPatterns returns the ordered quantity patterns shared by all providers
func DefaultQuantityPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{multipackPattern, amountUnitPattern, packOfPattern}
}

// ParseQuantity extracts a quantity from text using the first pattern that matches.
// The amount is returned in the base unit of its dimension (g, ml or unit).
func ParseQuantity(text string, patterns []*regexp.Regexp) (float64, domain.Unit, bool) {
	if strings.TrimSpace(text) == "" {
		return 0, "", false
	}

	for _, pattern := range patterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}

		amount, unit, ok := quantityFromMatch(pattern, match)
		if ok {
			return amount, unit, true
		}
	}

	return 0, "", false
}

func quantityFromMatch(pattern *regexp.Regexp, match []string) (float64, domain.Unit, bool) {
	var amountText, unitText, countText string
	for i, name := range pattern.SubexpNames() {
		switch name {
		case "amount":
			amountText = match[i]
		case "unit":
			unitText = strings.ToLower(match[i])
		case "count":
			countText = match[i]
		}
	}

	amount, err := strconv.ParseFloat(strings.ReplaceAll(amountText, ",", ""), 64)
	if err != nil {
		return 0, "", false
	}

	if countText != "" {
		count, err := strconv.ParseFloat(countText, 64)
		if err != nil {
			return 0, "", false
		}
		amount *= count
	}

	unit := domain.UnitPiece
	if unitText != "" {
		u, known := unitTokens[unitText]
		if !known {
			return 0, "", false
		}
		unit = u
		if m, ok := unitMultipliers[unitText]; ok {
			amount *= m
		}
	}

	base, factor := unit.Base()
	amount *= factor

	if !validAmount(amount) {
		return 0, "", false
	}
	return amount, base, true
}

// validAmount rejects NaN, infinities and non-positive amounts
func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// QuantitySimilarity scores two quantities in [0,1]: 0 when either is missing or the
// dimensions differ, otherwise 1 - |a-b| / max(a,b).
func QuantitySimilarity(a, b *domain.CanonicalRecord) float64 {
	if a == nil || b == nil || !a.HasQuantity() || !b.HasQuantity() {
		return 0
	}

	ua, ub := *a.QuantityUnit, *b.QuantityUnit
	if ua.Dimension() == domain.DimensionNone || ua.Dimension() != ub.Dimension() {
		return 0
	}

	// Records built outside the normalizer may still carry kg or l
	baseA, fa := ua.Base()
	baseB, fb := ub.Base()
	if baseA != baseB {
		return 0
	}
	qa, qb := *a.QuantityAmount*fa, *b.QuantityAmount*fb
	if !validAmount(qa) || !validAmount(qb) {
		return 0
	}

	return 1 - math.Abs(qa-qb)/math.Max(qa, qb)
}
