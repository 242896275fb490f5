package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/matchning/internal/matching"
)

type minimumMatchFilter struct {
	disabled  bool
	reason    string
	main      float64
	candidate float64
}

// NewMinimumMatch creates a filter that drops results under the configured percentages.
func NewMinimumMatch() Filter {
	return &minimumMatchFilter{}
}

func (f *minimumMatchFilter) Name() string { return "minimum_match" }

func (f *minimumMatchFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *minimumMatchFilter) IsEnabled() bool { return !f.disabled }

func (f *minimumMatchFilter) Validate(cfg *Config) error {
	f.main, f.candidate = 0, 0
	if cfg == nil {
		return nil
	}

	for name, v := range map[string]float64{
		"minimum-match":           cfg.MinimumMatch,
		"minimum-candidate-match": cfg.MinimumCandidateMatch,
	} {
		// Duplicate tokens can push a match above 100, so only the lower bound is checked.
		if v < 0 {
			return fmt.Errorf("%s must not be negative, got %v", name, v)
		}
	}

	f.main = cfg.MinimumMatch
	f.candidate = cfg.MinimumCandidateMatch
	return nil
}

func (f *minimumMatchFilter) Apply(_ context.Context, deps Deps, r *matching.Results) (*matching.Results, Step, error) {
	initial := r.Len()
	if f.main == 0 && f.candidate == 0 {
		return r, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	dropped := make([]string, 0)
	left := r.Filter(func(result *matching.Result) bool {
		if result.MainMatchPercentage < f.main || result.CandidateMatchPercentage < f.candidate {
			dropped = append(dropped, result.CandidateID)
			return false
		}
		return true
	})

	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Debug("excluding weak matches",
			zap.Float64("minimum_match", f.main),
			zap.Float64("minimum_candidate_match", f.candidate),
			zap.Strings("excluded_candidates", dropped),
		)
	}

	return left, stepOf(initial, left), nil
}

func (f *minimumMatchFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{
			"minimum_match":           strconv.FormatFloat(f.main, 'f', -1, 64),
			"minimum_candidate_match": strconv.FormatFloat(f.candidate, 'f', -1, 64),
		},
	}
}
