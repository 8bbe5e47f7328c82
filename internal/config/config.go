// Package config loads the tunable thresholds used by the diagnosis,
// recommendation and snapshot stages.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Diagnosis tunes the structural diagnosis rules.
type Diagnosis struct {
	// SecondaryMarginPct is how far (in percent of the primary score) the
	// second-lowest lens may sit above the primary and still be reported.
	SecondaryMarginPct float64 `yaml:"secondary_margin_pct"`
	// AccumulationRatio is the aged/open share at or above which the backlog is "accumulation".
	AccumulationRatio float64 `yaml:"accumulation_ratio"`
	// TurnoverRatio is the aged/open share at or below which the backlog is "healthy turnover".
	TurnoverRatio float64 `yaml:"turnover_ratio"`
	// HealthyScore is the lens score from which throughput counts as healthy.
	HealthyScore float64 `yaml:"healthy_score"`
	// Keywords select the risk flags cited as evidence for each lens.
	Keywords map[string][]string `yaml:"keywords"`
}

// Recommendation tunes goal sizes and counts.
type Recommendation struct {
	AgedReductionPct      int `yaml:"aged_reduction_pct"`
	MedianAgeReductionPct int `yaml:"median_age_reduction_pct"`
	MaxPrimary            int `yaml:"max_primary"`
	MaxSecondary          int `yaml:"max_secondary"`
}

// Weights are the overall-score weights of the snapshot scorer.
type Weights struct {
	Execution float64 `yaml:"execution"`
	Community float64 `yaml:"community"`
	Backlog   float64 `yaml:"backlog"`
}

// Snapshot tunes how raw exports are turned into a report.
type Snapshot struct {
	StalePRRatio       float64 `yaml:"stale_pr_ratio"`
	StaleIssueRatio    float64 `yaml:"stale_issue_ratio"`
	LargeBacklogIssues int     `yaml:"large_backlog_issues"`
	ReturnWindowDays   int     `yaml:"return_window_days"`
	Weights            Weights `yaml:"weights"`
}

// Validation tunes how strictly report payloads are checked.
type Validation struct {
	RequireBacklogScore bool `yaml:"require_backlog_score"`
}

// Config is the complete tunable configuration.
type Config struct {
	Validation     Validation     `yaml:"validation"`
	Diagnosis      Diagnosis      `yaml:"diagnosis"`
	Recommendation Recommendation `yaml:"recommendation"`
	Snapshot       Snapshot       `yaml:"snapshot"`
}

// Default returns the built-in thresholds.
func Default() Config {
	return Config{
		Diagnosis: Diagnosis{
			SecondaryMarginPct: 15,
			AccumulationRatio:  0.5,
			TurnoverRatio:      0.2,
			HealthyScore:       60,
			Keywords: map[string][]string{
				"execution_systems":        {"pr", "pull request", "merge", "review", "stale", "ci", "release"},
				"community_sustainability": {"contributor", "community", "maintainer", "bus factor", "response", "newcomer"},
				"strategy_value":           {"roadmap", "strategy", "intent", "priority", "priorities", "scope", "vision"},
			},
		},
		Recommendation: Recommendation{
			AgedReductionPct:      25,
			MedianAgeReductionPct: 20,
			MaxPrimary:            3,
			MaxSecondary:          2,
		},
		Snapshot: Snapshot{
			StalePRRatio:       0.35,
			StaleIssueRatio:    0.6,
			LargeBacklogIssues: 20,
			ReturnWindowDays:   90,
			Weights:            Weights{Execution: 0.4, Community: 0.4, Backlog: 0.2},
		},
	}
}

// Load reads a YAML file and overlays it on Default. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse overlays YAML data on Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every threshold is usable.
func (c Config) Validate() error {
	d := c.Diagnosis
	switch {
	case d.SecondaryMarginPct < 0:
		return fieldError("diagnosis.secondary_margin_pct", "must not be negative")
	case d.AccumulationRatio <= 0 || d.AccumulationRatio > 1:
		return fieldError("diagnosis.accumulation_ratio", "must be in (0, 1]")
	case d.TurnoverRatio < 0 || d.TurnoverRatio >= d.AccumulationRatio:
		return fieldError("diagnosis.turnover_ratio", "must be in [0, accumulation_ratio)")
	}
	r := c.Recommendation
	switch {
	case r.AgedReductionPct <= 0 || r.AgedReductionPct >= 100:
		return fieldError("recommendation.aged_reduction_pct", "must be in (0, 100)")
	case r.MedianAgeReductionPct <= 0 || r.MedianAgeReductionPct >= 100:
		return fieldError("recommendation.median_age_reduction_pct", "must be in (0, 100)")
	case r.MaxPrimary < 1 || r.MaxPrimary > 3:
		return fieldError("recommendation.max_primary", "must be between 1 and 3")
	case r.MaxSecondary < 1 || r.MaxSecondary > 2:
		return fieldError("recommendation.max_secondary", "must be between 1 and 2")
	}
	s := c.Snapshot
	if s.ReturnWindowDays <= 0 {
		return fieldError("snapshot.return_window_days", "must be positive")
	}
	if sum := s.Weights.Execution + s.Weights.Community + s.Weights.Backlog; sum < 0.999 || sum > 1.001 {
		return fieldError("snapshot.weights", "must sum to 1")
	}
	return nil
}

// Percentages lists the configured percentages that may appear in rendered goals.
func (c Config) Percentages() []int {
	return []int{c.Recommendation.AgedReductionPct, c.Recommendation.MedianAgeReductionPct}
}

func fieldError(key, reason string) error {
	return fmt.Errorf("invalid config %s: %s", key, reason)
}
