package filtering

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/matchning/internal/matching"
)

func sampleResults(t *testing.T) *matching.Results {
	t.Helper()

	pool := matching.NewPool()
	for _, c := range []matching.Candidate{
		{ID: "u1", DisplayName: "Ann", Qualifications: "go, sql, rust, java"},
		{ID: "u2", DisplayName: "Bob", Qualifications: "go"},
		{ID: "u3", DisplayName: "Cid", Qualifications: "go, sql"},
		{ID: "u4", DisplayName: "Dan", Qualifications: "cobol"},
	} {
		if err := pool.Add(c); err != nil {
			t.Fatalf("add candidate: %v", err)
		}
	}

	// u1: main 66.6, candidate 50; u2: 33.3 / 100; u3: 66.6 / 100.
	return matching.Compute("go, sql, python", pool)
}

func TestRun(t *testing.T) {
	t.Parallel()

	excludePath := filepath.Join(t.TempDir(), "excluded.json")
	excluded := &ExcludedCandidates{Items: []*ExcludedCandidate{{ID: "u2", DisplayName: "Bob"}}}
	if err := excluded.ToFile(excludePath); err != nil {
		t.Fatalf("write exclude file: %v", err)
	}

	tests := []struct {
		name   string
		cfg    *Config
		expect []string
	}{
		{
			name:   "no configuration keeps everything",
			cfg:    &Config{},
			expect: []string{"u1", "u2", "u3"},
		},
		{
			name:   "minimum main percentage",
			cfg:    &Config{MinimumMatch: 50},
			expect: []string{"u1", "u3"},
		},
		{
			name:   "minimum candidate percentage",
			cfg:    &Config{MinimumCandidateMatch: 75},
			expect: []string{"u2", "u3"},
		},
		{
			name:   "excluded by config",
			cfg:    &Config{Exclude: []string{" u3 ", ""}},
			expect: []string{"u1", "u2"},
		},
		{
			name:   "excluded by file",
			cfg:    &Config{ExcludeFile: excludePath},
			expect: []string{"u1", "u3"},
		},
		{
			name:   "top by candidate keeps pool order",
			cfg:    &Config{Top: 2, RankBy: matching.RankByCandidate},
			expect: []string{"u2", "u3"},
		},
		{
			name:   "top runs after exclusions",
			cfg:    &Config{Top: 1, ExcludeFile: excludePath, MinimumMatch: 50},
			expect: []string{"u1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Run(context.Background(), tt.cfg, Deps{}, Default(), sampleResults(t))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got.IDs(), tt.expect) {
				t.Fatalf("unexpected ids: got %q, expected %q", got.IDs(), tt.expect)
			}
		})
	}
}

func TestRunValidation(t *testing.T) {
	t.Parallel()

	tests := map[string]*Config{
		"negative minimum": {MinimumMatch: -1},
		"negative top":     {Top: -3},
		"unknown rank key": {RankBy: "salary"},
	}

	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if _, err := Run(context.Background(), cfg, Deps{}, Default(), sampleResults(t)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestRunLogsSteps(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.InfoLevel)
	steps := Default()
	DisableByName(steps, "minimum_match", "testing")

	_, err := Run(context.Background(), &Config{MinimumMatch: 99, Exclude: []string{"u1"}}, Deps{Logger: zap.New(core)}, steps, sampleResults(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if observed.FilterMessage("filter disabled").Len() != 1 {
		t.Fatalf("expected minimum_match to be reported as disabled")
	}

	var excludedStep map[string]any
	for _, entry := range observed.FilterMessage("filter step").All() {
		if entry.ContextMap()["name"] == "excluded_candidates" {
			excludedStep = entry.ContextMap()
		}
	}
	if excludedStep == nil {
		t.Fatalf("expected excluded_candidates step to be logged")
	}
	if excludedStep["initial"] != int64(3) || excludedStep["dropped"] != int64(1) || excludedStep["left"] != int64(2) {
		t.Fatalf("unexpected step counts: %v", excludedStep)
	}
}

func TestRunDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	results := sampleResults(t)
	if _, err := Run(context.Background(), &Config{Exclude: []string{"u1", "u2"}}, Deps{}, Default(), results); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results.Len() != 3 {
		t.Fatalf("input results changed: %q", results.IDs())
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	steps := Default()
	DisableByName(steps, "minimum_match", "not needed")
	for _, step := range steps {
		if err := step.Validate(&Config{Top: 5, ExcludeFile: "x.json"}); err != nil {
			t.Fatalf("validate %s: %v", step.Name(), err)
		}
	}

	statuses := Describe(steps)
	if len(statuses) != 4 {
		t.Fatalf("expected 4 statuses, got %d", len(statuses))
	}
	if statuses[0].Enabled || statuses[0].Reason != "not needed" {
		t.Fatalf("unexpected minimum_match status: %+v", statuses[0])
	}
	if statuses[2].Details["path"] != "x.json" {
		t.Fatalf("unexpected exclude_file status: %+v", statuses[2])
	}
	if statuses[3].Details["limit"] != "5" || statuses[3].Details["rank_by"] != "main" {
		t.Fatalf("unexpected top status: %+v", statuses[3])
	}
}

func TestDisableByName(t *testing.T) {
	t.Parallel()

	cfg := &Config{MinimumMatch: 99, Exclude: []string{"u1"}, Top: 1}

	for _, name := range []string{"minimum_match", "excluded_candidates", "exclude_file", "top"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			steps := Default()
			if !DisableByName(steps, name, "skipped") {
				t.Fatalf("expected %s to be found", name)
			}

			for _, status := range Describe(steps) {
				if status.Name == name && (status.Enabled || status.Reason != "skipped") {
					t.Fatalf("unexpected status: %+v", status)
				}
				if status.Name != name && !status.Enabled {
					t.Fatalf("only %s must be disabled, got %+v", name, status)
				}
			}

			if _, err := Run(context.Background(), cfg, Deps{}, steps, sampleResults(t)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}

	steps := Default()
	if DisableByName(steps, "unknown", "skipped") {
		t.Fatalf("expected unknown filter not to be found")
	}
	for _, status := range Describe(steps) {
		if !status.Enabled {
			t.Fatalf("unexpected disabled filter: %+v", status)
		}
	}

	results, err := Run(context.Background(), cfg, Deps{}, onlyEnabled(t, "top"), sampleResults(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results.Len() != 1 {
		t.Fatalf("expected only top to apply, got %q", results.IDs())
	}
}

func onlyEnabled(t *testing.T, name string) []Filter {
	t.Helper()

	steps := Default()
	for _, step := range steps {
		if step.Name() != name {
			step.Disable("skipped")
		}
	}
	return steps
}

func TestExcludeFileRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "excluded.json")

	missing, err := ReadExcludeFile(path)
	if err != nil {
		t.Fatalf("missing file must not fail: %v", err)
	}
	if len(missing.Items) != 0 {
		t.Fatalf("expected no entries, got %d", len(missing.Items))
	}

	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	missing.Append(ToExcluded(sampleResults(t), now))
	missing.Append(&ExcludedCandidates{Items: []*ExcludedCandidate{{ID: "u1"}, {ID: "u9"}}})

	if err := missing.ToFile(path); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := ReadExcludeFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(loaded.IDs(), []string{"u1", "u2", "u3", "u9"}) {
		t.Fatalf("unexpected ids: %q", loaded.IDs())
	}
	if loaded.Items[1].DisplayName != "Bob" || !loaded.Items[1].ExcludedAt.Equal(now) {
		t.Fatalf("unexpected entry: %+v", loaded.Items[1])
	}

	// Rewriting a shorter list must not leave stale bytes behind.
	if err := (&ExcludedCandidates{Items: []*ExcludedCandidate{{ID: "u1"}}}).ToFile(path); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if loaded, err = ReadExcludeFile(path); err != nil || len(loaded.Items) != 1 {
		t.Fatalf("unexpected rewrite result: %v %v", loaded, err)
	}
}
