package usecase

import (
	"sort"

	"github.com/quickpick/backend/internal/domain"
)

// Aggregator turns match clusters into comparison rows
type Aggregator struct {
	providers []domain.ProviderID
}

// NewAggregator creates an aggregator reporting on the given providers, in priority
// order. Nil means every known provider.
func NewAggregator(providers []domain.ProviderID) *Aggregator {
	if len(providers) == 0 {
		providers = domain.Providers
	}
	return &Aggregator{providers: providers}
}

// Aggregate builds one row per cluster. Every row carries the same provider keys:
// the reported providers followed by any other provider some cluster holds.
// Providers missing from a cluster map to nil. Clusters are left untouched.
func (a *Aggregator) Aggregate(clusters []domain.MatchCluster) []domain.ComparisonRow {
	order := a.providerOrder(clusters)
	rows := make([]domain.ComparisonRow, 0, len(clusters))
	for _, cluster := range clusters {
		rows = append(rows, buildRow(cluster, order))
	}
	return rows
}

func buildRow(cluster domain.MatchCluster, order []domain.ProviderID) domain.ComparisonRow {
	row := domain.ComparisonRow{
		Providers: make(map[domain.ProviderID]*domain.CanonicalRecord, len(order)),
	}

	for _, provider := range order {
		record := cluster.Records[provider]
		if record == nil {
			row.Providers[provider] = nil
			continue
		}

		entry := *record
		row.Providers[provider] = &entry

		if row.DisplayName == "" {
			row.DisplayName = entry.Name
		}

		if !entry.Available || entry.Price == nil {
			continue
		}
		if row.BestPrice == nil || *entry.Price < *row.BestPrice {
			price := *entry.Price
			p := provider
			row.BestPrice = &price
			row.BestProvider = &p
		}
	}

	return row
}

// providerOrder returns the reported providers followed, alphabetically, by every
// extra provider held by any cluster
func (a *Aggregator) providerOrder(clusters []domain.MatchCluster) []domain.ProviderID {
	order := append([]domain.ProviderID(nil), a.providers...)
	var extra []domain.ProviderID
	for _, cluster := range clusters {
		for provider := range cluster.Records {
			if !containsProvider(order, provider) && !containsProvider(extra, provider) {
				extra = append(extra, provider)
			}
		}
	}
	sortProviders(extra)
	return append(order, extra...)
}

func containsProvider(list []domain.ProviderID, p domain.ProviderID) bool {
	for _, item := range list {
		if item == p {
			return true
		}
	}
	return false
}

func sortProviders(list []domain.ProviderID) {
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
}
