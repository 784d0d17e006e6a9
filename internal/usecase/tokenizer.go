package usecase

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Package-level compiled regex pattern for performance
var punctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// nameStopWords holds English stop words plus listing noise that says nothing
// about which product a listing is
var nameStopWords = map[string]bool{
	// Basic English stop words
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "with": true, "by": true, "from": true, "is": true,
	// Size/quantity units
	"g": true, "gm": true, "gms": true, "gram": true, "grams": true,
	"kg": true, "kgs": true, "ml": true, "l": true, "ltr": true, "litre": true,
	"liter": true, "pc": true, "pcs": true, "piece": true, "pieces": true,
	"unit": true, "units": true, "x": true,
	// Packaging terms
	"pack": true, "packet": true, "pouch": true, "bottle": true, "box": true,
	"bag": true, "jar": true, "tin": true, "can": true, "carton": true, "tetra": true,
	"combo": true,
	// Marketing terms
	"new": true, "offer": true, "value": true, "save": true, "extra": true, "free": true,
}

// NameTokenizer turns product names into normalized, stemmed token sets.
// It holds no mutable state and is safe for concurrent use.
type NameTokenizer struct {
	language string
}

// NewNameTokenizer creates a tokenizer stemming with the Snowball English stemmer
func NewNameTokenizer() *NameTokenizer {
	return &NameTokenizer{language: "english"}
}

// Tokens returns the sorted, de-duplicated tokens of a product name.
// Matching is case, diacritic and punctuation insensitive; quantity mentions
// and pure numbers are dropped because quantity is scored separately.
func (t *NameTokenizer) Tokens(name string) []string {
	cleaned := foldDiacritics(name)
	cleaned = quantityStripPattern.ReplaceAllString(cleaned, " ")
	cleaned = punctuationRegex.ReplaceAllString(strings.ToLower(cleaned), " ")

	seen := make(map[string]bool)
	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		// Skip short tokens (1 char or less)
		if len([]rune(word)) <= 1 {
			continue
		}
		if nameStopWords[word] || isNumeric(word) {
			continue
		}

		stem := t.stem(word)
		if stem == "" || seen[stem] {
			continue
		}
		seen[stem] = true
		tokens = append(tokens, stem)
	}

	sort.Strings(tokens)
	return tokens
}

func (t *NameTokenizer) stem(word string) string {
	stemmed, err := snowball.Stem(word, t.language, true)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}

// foldDiacritics strips combining marks so "Café" and "Cafe" tokenize alike
func foldDiacritics(s string) string {
	tr := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(tr, s)
	if err != nil {
		return s
	}
	return folded
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if !unicode.IsDigit(c) {
			return false
		}
	}
	return len(s) > 0
}

// TokenSetSimilarity is the Jaccard index of two token sets: shared tokens over all
// distinct tokens. Two empty sets score 0, since nothing identifies them as equal.
func TokenSetSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	matched, _ := findIntersection(a, b)
	union := findUnion(a, b)
	if union == 0 {
		return 0
	}
	return float64(matched) / float64(union)
}

// findIntersection returns the count of common tokens and the list of matched tokens
func findIntersection(tokens1, tokens2 []string) (int, []string) {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}

	var matched []string
	seen := make(map[string]bool)
	for _, t := range tokens2 {
		if set[t] && !seen[t] {
			matched = append(matched, t)
			seen[t] = true
		}
	}

	return len(matched), matched
}

// findUnion returns the count of unique tokens across both sets
func findUnion(tokens1, tokens2 []string) int {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}
	for _, t := range tokens2 {
		set[t] = true
	}
	return len(set)
}
