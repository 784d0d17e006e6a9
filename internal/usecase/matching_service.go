package usecase

import (
	"github.com/rs/zerolog"

	"github.com/quickpick/backend/internal/domain"
)

// Default scoring parameters. Vendor naming drifts, so all three are configurable.
const (
	defaultThreshold       = 0.55
	defaultNameWeight      = 0.7
	defaultQuantityWeight  = 0.3
	defaultIndexMinRecords = 100

	// scoreEpsilon treats scores closer than this as equal
	scoreEpsilon = 1e-9
)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	Threshold      float64
	NameWeight     float64
	QuantityWeight float64
	// PivotProvider seeds the clusters when set and non-empty; otherwise the
	// provider with the most records does
	PivotProvider domain.ProviderID
	// IndexMinRecords is the pivot list size from which the candidate index is used
	IndexMinRecords    int
	EnableDebugLogging bool
}

// MatchingService groups canonical records from different providers into clusters
// of listings that denote the same product
type MatchingService struct {
	threshold          float64
	nameWeight         float64
	quantityWeight     float64
	pivotProvider      domain.ProviderID
	indexMinRecords    int
	enableDebugLogging bool
	tokenizer          *NameTokenizer
	logger             zerolog.Logger
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(config MatchConfig, logger zerolog.Logger) *MatchingService {
	threshold := config.Threshold
	if threshold <= 0 || threshold > 1 {
		threshold = defaultThreshold
	}

	nameWeight, quantityWeight := config.NameWeight, config.QuantityWeight
	if nameWeight < 0 || quantityWeight < 0 || nameWeight+quantityWeight <= 0 {
		nameWeight, quantityWeight = defaultNameWeight, defaultQuantityWeight
	}

	indexMin := config.IndexMinRecords
	if indexMin <= 0 {
		indexMin = defaultIndexMinRecords
	}

	return &MatchingService{
		threshold:          threshold,
		nameWeight:         nameWeight,
		quantityWeight:     quantityWeight,
		pivotProvider:      config.PivotProvider,
		indexMinRecords:    indexMin,
		enableDebugLogging: config.EnableDebugLogging,
		tokenizer:          NewNameTokenizer(),
		logger:             logger.With().Str("component", "matcher").Logger(),
	}
}

// Similarity is the composite score of two records with its name and quantity parts
type Similarity struct {
	Score    float64
	Name     float64
	Quantity float64
}

// Similarity scores two records: weighted token-set overlap of the names plus
// weighted closeness of the normalized quantities
func (s *MatchingService) Similarity(a, b *domain.CanonicalRecord) Similarity {
	return s.similarity(s.candidate(a), s.candidate(b))
}

// candidate is a record with its name tokens computed once
type candidate struct {
	record *domain.CanonicalRecord
	tokens []string
}

func (s *MatchingService) candidate(r *domain.CanonicalRecord) candidate {
	return candidate{record: r, tokens: s.tokenizer.Tokens(r.Name)}
}

func (s *MatchingService) similarity(a, b candidate) Similarity {
	name := TokenSetSimilarity(a.tokens, b.tokens)
	quantity := QuantitySimilarity(a.record, b.record)
	return Similarity{
		Score:    (s.nameWeight*name + s.quantityWeight*quantity) / (s.nameWeight + s.quantityWeight),
		Name:     name,
		Quantity: quantity,
	}
}

// clusterState tracks one cluster while matching is in progress
type clusterState struct {
	representative candidate
	members        map[domain.ProviderID]candidate
}

// proposal is the cluster a record would join, before same-provider conflicts are resolved
type proposal struct {
	cluster int
	sim     Similarity
}

// Match partitions the records of all providers into clusters. Each cluster holds
// at most one record per provider and every pair of members scores at least the
// threshold. Records that match nothing form single-provider clusters.
// The input is not modified.
func (s *MatchingService) Match(lists map[domain.ProviderID][]domain.CanonicalRecord) []domain.MatchCluster {
	order := providerOrder(lists)
	pivot, ok := s.choosePivot(lists, order)
	if !ok {
		return []domain.MatchCluster{}
	}

	var clusters []*clusterState
	var index *CandidateIndex
	if s.useIndex(len(lists[pivot])) {
		index = NewCandidateIndex()
	}

	seed := func(c candidate) {
		clusters = append(clusters, &clusterState{
			representative: c,
			members:        map[domain.ProviderID]candidate{c.record.Provider: c},
		})
		if index != nil {
			index.Add(len(clusters)-1, c.tokens)
		}
	}

	for _, c := range s.candidates(pivot, lists[pivot]) {
		seed(c)
	}

	for _, provider := range order {
		if provider == pivot || len(lists[provider]) == 0 {
			continue
		}

		records := s.candidates(provider, lists[provider])
		proposals := make([]*proposal, len(records))
		for i, c := range records {
			proposals[i] = s.bestCluster(c, provider, clusters, index)
		}

		winners := resolveConflicts(proposals)
		for i, c := range records {
			p := proposals[i]
			if p != nil && winners[p.cluster] == i {
				clusters[p.cluster].members[provider] = c
				if s.enableDebugLogging {
					s.logger.Debug().
						Str("provider", string(provider)).
						Str("name", c.record.Name).
						Str("matched", clusters[p.cluster].representative.record.Name).
						Float64("score", p.sim.Score).
						Msg("record matched")
				}
				continue
			}
			seed(c)
			if s.enableDebugLogging {
				s.logger.Debug().
					Str("provider", string(provider)).
					Str("name", c.record.Name).
					Bool("conflict", p != nil).
					Msg("record seeded new cluster")
			}
		}
	}

	result := make([]domain.MatchCluster, len(clusters))
	for i, cl := range clusters {
		records := make(map[domain.ProviderID]*domain.CanonicalRecord, len(cl.members))
		for provider, m := range cl.members {
			records[provider] = m.record
		}
		result[i] = domain.MatchCluster{
			Representative: cl.representative.record.Provider,
			Records:        records,
		}
	}
	return result
}

// candidates copies a provider's records and tokenizes their names.
// Records are tagged with the provider they were listed under.
func (s *MatchingService) candidates(provider domain.ProviderID, records []domain.CanonicalRecord) []candidate {
	out := make([]candidate, len(records))
	for i := range records {
		rec := records[i]
		rec.Provider = provider
		out[i] = s.candidate(&rec)
	}
	return out
}

// bestCluster finds the highest-scoring cluster the record may join, or nil
func (s *MatchingService) bestCluster(c candidate, provider domain.ProviderID, clusters []*clusterState, index *CandidateIndex) *proposal {
	var ids []int
	if index != nil {
		ids = index.Candidates(c.tokens)
	} else {
		ids = make([]int, len(clusters))
		for i := range clusters {
			ids[i] = i
		}
	}

	var best *proposal
	for _, id := range ids {
		cl := clusters[id]
		if _, taken := cl.members[provider]; taken {
			continue
		}

		sim := s.similarity(c, cl.representative)
		if sim.Score+scoreEpsilon < s.threshold {
			continue
		}
		if !s.compatibleWithMembers(c, cl) {
			continue
		}

		if best == nil || sim.Score > best.sim.Score+scoreEpsilon ||
			(sim.Score > best.sim.Score-scoreEpsilon && sim.Quantity > best.sim.Quantity+scoreEpsilon) {
			best = &proposal{cluster: id, sim: sim}
		}
	}
	return best
}

// compatibleWithMembers checks the record against every member, not only the representative
func (s *MatchingService) compatibleWithMembers(c candidate, cl *clusterState) bool {
	for provider, member := range cl.members {
		if provider == cl.representative.record.Provider {
			continue
		}
		if s.similarity(c, member).Score+scoreEpsilon < s.threshold {
			return false
		}
	}
	return true
}

// resolveConflicts picks, per cluster, the proposing record with the highest score.
// Equal scores go to the record listed first.
func resolveConflicts(proposals []*proposal) map[int]int {
	winners := make(map[int]int)
	for i, p := range proposals {
		if p == nil {
			continue
		}
		current, ok := winners[p.cluster]
		if !ok || p.sim.Score > proposals[current].sim.Score+scoreEpsilon {
			winners[p.cluster] = i
		}
	}
	return winners
}

// choosePivot returns the configured pivot when it has records, otherwise the
// provider with the most records, ties going to the earlier provider in order
func (s *MatchingService) choosePivot(lists map[domain.ProviderID][]domain.CanonicalRecord, order []domain.ProviderID) (domain.ProviderID, bool) {
	if s.pivotProvider != "" && len(lists[s.pivotProvider]) > 0 {
		return s.pivotProvider, true
	}

	var pivot domain.ProviderID
	most := 0
	for _, provider := range order {
		if n := len(lists[provider]); n > most {
			pivot, most = provider, n
		}
	}
	return pivot, most > 0
}

// useIndex reports whether candidate pruning is both worthwhile and lossless.
// Pruning drops clusters sharing no name token, whose score cannot exceed the
// quantity weight, so it only applies when the threshold is above that.
func (s *MatchingService) useIndex(pivotSize int) bool {
	maxWithoutName := s.quantityWeight / (s.nameWeight + s.quantityWeight)
	return pivotSize >= s.indexMinRecords && s.threshold > maxWithoutName
}

// providerOrder lists the providers present in lists: known providers in priority
// order first, then any others alphabetically
func providerOrder(lists map[domain.ProviderID][]domain.CanonicalRecord) []domain.ProviderID {
	order := make([]domain.ProviderID, 0, len(lists))
	for _, provider := range domain.Providers {
		if _, ok := lists[provider]; ok {
			order = append(order, provider)
		}
	}

	var others []domain.ProviderID
	for provider := range lists {
		if !provider.Valid() {
			others = append(others, provider)
		}
	}
	sortProviders(others)
	return append(order, others...)
}
