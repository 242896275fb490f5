package filtering

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spigell/matchning/internal/matching"
)

type topFilter struct {
	disabled bool
	reason   string
	n        int
	by       matching.RankKey
}

// NewTop creates a filter that keeps only the best N results.
func NewTop() Filter {
	return &topFilter{}
}

func (f *topFilter) Name() string { return "top" }

func (f *topFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *topFilter) IsEnabled() bool { return !f.disabled }

func (f *topFilter) Validate(cfg *Config) error {
	f.n, f.by = 0, matching.RankByMain
	if cfg == nil {
		return nil
	}
	if cfg.Top < 0 {
		return fmt.Errorf("top must not be negative, got %d", cfg.Top)
	}

	switch cfg.RankBy {
	case "", matching.RankByMain:
	case matching.RankByCandidate:
		f.by = matching.RankByCandidate
	default:
		return fmt.Errorf("unknown rank key %q", cfg.RankBy)
	}

	f.n = cfg.Top
	return nil
}

func (f *topFilter) Apply(_ context.Context, _ Deps, r *matching.Results) (*matching.Results, Step, error) {
	initial := r.Len()
	if f.n == 0 {
		return r, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	left := r.Top(f.n, f.by)
	return left, stepOf(initial, left), nil
}

func (f *topFilter) Status() Status {
	details := map[string]string{"rank_by": string(f.by)}
	if f.n > 0 {
		details["limit"] = strconv.Itoa(f.n)
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
