package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/matchning/internal/matching"
)

type excludedCandidatesFilter struct {
	disabled bool
	reason   string
	ids      []string
}

// NewExcludedCandidates creates a filter that removes candidates listed in the config.
func NewExcludedCandidates() Filter {
	return &excludedCandidatesFilter{}
}

func (f *excludedCandidatesFilter) Name() string { return "excluded_candidates" }

func (f *excludedCandidatesFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *excludedCandidatesFilter) IsEnabled() bool { return !f.disabled }

func (f *excludedCandidatesFilter) Validate(cfg *Config) error {
	f.ids = nil
	if cfg == nil {
		return nil
	}
	for _, id := range cfg.Exclude {
		if id = strings.TrimSpace(id); id != "" {
			f.ids = append(f.ids, id)
		}
	}
	return nil
}

func (f *excludedCandidatesFilter) Apply(_ context.Context, deps Deps, r *matching.Results) (*matching.Results, Step, error) {
	initial := r.Len()
	if len(f.ids) == 0 {
		return r, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	left, removed := r.Without(f.ids)
	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Info("excluding candidates by config",
			zap.Strings("excluded_candidates", removed),
			zap.Int("candidates_left", left.Len()),
		)
	}

	return left, stepOf(initial, left), nil
}

func (f *excludedCandidatesFilter) Status() Status {
	details := map[string]string{}
	if len(f.ids) > 0 {
		details["candidates"] = strings.Join(f.ids, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
