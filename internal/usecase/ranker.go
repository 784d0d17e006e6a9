package usecase

import (
	"sort"

	"github.com/quickpick/backend/internal/domain"
)

// Rank orders rows by ascending best price. Rows nobody can sell sort last;
// equal prices fall back to the display name so output is reproducible.
// The input slice is not reordered.
func Rank(rows []domain.ComparisonRow) []domain.ComparisonRow {
	ranked := make([]domain.ComparisonRow, len(rows))
	copy(ranked, rows)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].BestPrice, ranked[j].BestPrice
		switch {
		case a == nil && b == nil:
			return ranked[i].DisplayName < ranked[j].DisplayName
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a < *b
		}
		return ranked[i].DisplayName < ranked[j].DisplayName
	})

	return ranked
}
