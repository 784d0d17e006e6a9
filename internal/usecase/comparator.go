package usecase

import (
	"github.com/rs/zerolog"

	"github.com/quickpick/backend/internal/domain"
)

// ComparatorConfig holds configuration for the comparison pipeline
type ComparatorConfig struct {
	// Rules override the per-provider field layout; nil uses DefaultProviderRules
	Rules map[domain.ProviderID]ProviderRules
	Match MatchConfig
	// Providers are the providers every row reports on; nil means all known providers
	Providers []domain.ProviderID
}

// Comparator runs the full pipeline: normalize, match, aggregate, rank.
// It keeps no state between calls and is safe for concurrent use.
type Comparator struct {
	normalizer *Normalizer
	matcher    *MatchingService
	aggregator *Aggregator
	logger     zerolog.Logger
}

// NewComparator creates a comparator
func NewComparator(config ComparatorConfig, logger zerolog.Logger) *Comparator {
	return &Comparator{
		normalizer: NewNormalizer(config.Rules),
		matcher:    NewMatchingService(config.Match, logger),
		aggregator: NewAggregator(config.Providers),
		logger:     logger.With().Str("component", "comparator").Logger(),
	}
}

// Compare turns the raw lists of each provider into ordered comparison rows.
// Missing or empty lists are valid and simply leave that provider absent;
// records that cannot be normalized are skipped.
func (c *Comparator) Compare(raw map[domain.ProviderID][]domain.RawRecord) []domain.ComparisonRow {
	canonical := make(map[domain.ProviderID][]domain.CanonicalRecord, len(raw))
	for provider, records := range raw {
		kept, dropped := c.normalizer.NormalizeAll(records, provider)
		if dropped > 0 {
			c.logger.Debug().
				Str("provider", string(provider)).
				Int("dropped", dropped).
				Int("kept", len(kept)).
				Msg("dropped unusable records")
		}
		canonical[provider] = kept
	}

	clusters := c.matcher.Match(canonical)
	rows := c.aggregator.Aggregate(clusters)
	return Rank(rows)
}
