// Package matching compares one user's qualifications against a pool of candidates.
package matching

import (
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// UnknownDisplayName is reported for candidates without a name.
const UnknownDisplayName = "Unknown User"

type options struct {
	deduplicate bool
	workers     int
	logger      *zap.Logger
}

type Option func(*options)

// WithDeduplication counts every distinct token once on both sides.
// Without it a candidate repeating a shared qualification can push the main percentage over 100.
func WithDeduplication() Option {
	return func(o *options) { o.deduplicate = true }
}

// WithWorkers spreads candidates over n goroutines. Result order does not change.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Compute matches mainText against every candidate in the pool.
// Candidates without any common qualification are left out of the result.
func Compute(mainText string, pool *Pool, opts ...Option) *Results {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	mainTokens := Tokenize(mainText)
	if o.deduplicate {
		mainTokens = dedupe(mainTokens)
	}

	members := make(map[string]struct{}, len(mainTokens))
	for _, token := range mainTokens {
		members[token] = struct{}{}
	}

	candidates := pool.Items()
	slots := make([]*Result, len(candidates))

	evaluate := func(idx int) {
		slots[idx] = o.evaluate(mainTokens, members, candidates[idx])
	}

	if o.workers > 1 && len(candidates) > 1 {
		var g errgroup.Group
		g.SetLimit(o.workers)
		for idx := range candidates {
			g.Go(func() error {
				evaluate(idx)
				return nil
			})
		}
		// evaluate never fails.
		_ = g.Wait()
	} else {
		for idx := range candidates {
			evaluate(idx)
		}
	}

	results := newResults(len(candidates))
	for _, result := range slots {
		if result != nil {
			results.add(result)
		}
	}

	o.logger.Debug("matching completed",
		zap.Int("main_qualifications", len(mainTokens)),
		zap.Int("candidates", len(candidates)),
		zap.Int("matched", results.Len()),
	)

	return results
}

func (o *options) evaluate(mainTokens []string, members map[string]struct{}, candidate *Candidate) *Result {
	candidateTokens := Tokenize(candidate.Qualifications)
	if o.deduplicate {
		candidateTokens = dedupe(candidateTokens)
	}

	if len(mainTokens) == 0 || len(candidateTokens) == 0 {
		o.logger.Debug("skipping candidate with empty qualifications",
			zap.String("candidate_id", candidate.ID),
			zap.Int("main_qualifications", len(mainTokens)),
			zap.Int("candidate_qualifications", len(candidateTokens)),
		)
		return nil
	}

	common := make([]string, 0)
	for _, token := range candidateTokens {
		if _, ok := members[token]; ok {
			common = append(common, token)
		}
	}

	if len(common) == 0 {
		return nil
	}

	name := candidate.DisplayName
	if name == "" {
		name = UnknownDisplayName
	}

	return &Result{
		CandidateID:              candidate.ID,
		DisplayName:              name,
		MainMatchPercentage:      percentage(len(common), len(mainTokens)),
		CandidateMatchPercentage: percentage(len(common), len(candidateTokens)),
		CommonQualifications:     common,
	}
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}

	value := float64(part) / float64(total) * 100
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}

	return value
}
