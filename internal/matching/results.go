package matching

import (
	"math"
	"sort"
)

// Result describes how well a single candidate matches the current user.
type Result struct {
	CandidateID              string   `json:"candidateId"`
	DisplayName              string   `json:"displayName"`
	MainMatchPercentage      float64  `json:"mainMatchPercentage"`
	CandidateMatchPercentage float64  `json:"candidateMatchPercentage"`
	CommonQualifications     []string `json:"commonQualifications"`
}

// RankKey selects the percentage used to order results for display.
type RankKey string

const (
	RankByMain      RankKey = "main"
	RankByCandidate RankKey = "candidate"
)

// Results holds match results in candidate pool order.
type Results struct {
	items []*Result
	index map[string]int
}

func newResults(capacity int) *Results {
	return &Results{
		items: make([]*Result, 0, capacity),
		index: make(map[string]int, capacity),
	}
}

func (r *Results) add(result *Result) {
	r.index[result.CandidateID] = len(r.items)
	r.items = append(r.items, result)
}

func (r *Results) Len() int {
	if r == nil {
		return 0
	}
	return len(r.items)
}

func (r *Results) Get(id string) *Result {
	if r == nil {
		return nil
	}
	idx, ok := r.index[id]
	if !ok {
		return nil
	}
	return r.items[idx]
}

// Items returns results in pool order.
func (r *Results) Items() []*Result {
	if r == nil {
		return nil
	}
	return r.items
}

func (r *Results) IDs() []string {
	ids := make([]string, 0, r.Len())
	for _, result := range r.Items() {
		ids = append(ids, result.CandidateID)
	}
	return ids
}

// Map returns the results keyed by candidate ID.
func (r *Results) Map() map[string]*Result {
	m := make(map[string]*Result, r.Len())
	for _, result := range r.Items() {
		m[result.CandidateID] = result
	}
	return m
}

// Filter returns a new Results with the entries keep accepts. Result values are shared, not copied.
func (r *Results) Filter(keep func(*Result) bool) *Results {
	filtered := newResults(r.Len())
	for _, result := range r.Items() {
		if keep(result) {
			filtered.add(result)
		}
	}
	return filtered
}

// Without drops the given candidate IDs and returns the IDs actually removed.
func (r *Results) Without(ids []string) (*Results, []string) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	removed := make([]string, 0)
	filtered := r.Filter(func(result *Result) bool {
		if _, ok := drop[result.CandidateID]; ok {
			removed = append(removed, result.CandidateID)
			return false
		}
		return true
	})

	return filtered, removed
}

// Top keeps the n best results by the given key, preserving pool order among survivors.
func (r *Results) Top(n int, by RankKey) *Results {
	if n <= 0 || n >= r.Len() {
		return r.Filter(func(*Result) bool { return true })
	}

	keep := make(map[string]struct{}, n)
	for _, result := range r.Ranked(by)[:n] {
		keep[result.CandidateID] = struct{}{}
	}

	return r.Filter(func(result *Result) bool {
		_, ok := keep[result.CandidateID]
		return ok
	})
}

// Ranked returns a sorted copy, best match first.
// Ties fall back to the number of common qualifications and then to the candidate ID.
func (r *Results) Ranked(by RankKey) []*Result {
	ranked := make([]*Result, r.Len())
	copy(ranked, r.Items())

	value := func(result *Result) float64 {
		if by == RankByCandidate {
			return result.CandidateMatchPercentage
		}
		return result.MainMatchPercentage
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if value(a) != value(b) {
			return value(a) > value(b)
		}
		if len(a.CommonQualifications) != len(b.CommonQualifications) {
			return len(a.CommonQualifications) > len(b.CommonQualifications)
		}
		return a.CandidateID < b.CandidateID
	})

	return ranked
}

// RoundPercentage rounds to one decimal place for display.
func RoundPercentage(v float64) float64 {
	return math.Round(v*10) / 10
}
