package usecase

import "sort"

// CandidateIndex is an inverted index from name token to cluster ids.
// It narrows the clusters a record is scored against to those sharing at
// least one name token with the cluster's representative.
type CandidateIndex struct {
	postings map[string][]int
	size     int
}

// NewCandidateIndex creates an empty index
func NewCandidateIndex() *CandidateIndex {
	return &CandidateIndex{postings: make(map[string][]int)}
}

// Add indexes cluster id under each of its representative's tokens
func (ix *CandidateIndex) Add(id int, tokens []string) {
	for _, token := range tokens {
		ix.postings[token] = append(ix.postings[token], id)
	}
	ix.size++
}

// Candidates returns the ids sharing a token with tokens, in ascending order
// so callers visit clusters in the same order as a full scan would
func (ix *CandidateIndex) Candidates(tokens []string) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, token := range tokens {
		for _, id := range ix.postings[token] {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Ints(ids)
	return ids
}

// Len returns the number of indexed clusters
func (ix *CandidateIndex) Len() int {
	return ix.size
}
