// Package reconciliation implements the matching engine that pairs GL postings with
// order-revenue forecast lines: scoring, exact and fuzzy matching, the per-period run
// orchestrator, manual overrides and account summaries.
package reconciliation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/revenue-reconciliation/internal/config"
	"github.com/revenue-reconciliation/internal/domain/reconlog"
)

// Config tunes scoring and persistence of reconciliation runs
type Config struct {
	AmountWeight     float64
	ReferenceWeight  float64
	DateWeight       float64
	DateWindowMonths int     // months after which date proximity reaches zero
	MinFuzzyScore    float64 // fuzzy cells below this score are discarded
	BatchSize        int     // pairs committed per transaction
}

// DefaultConfig returns the weights and thresholds the engine ships with
func DefaultConfig() Config {
	return Config{
		AmountWeight:     0.5,
		ReferenceWeight:  0.3,
		DateWeight:       0.2,
		DateWindowMonths: 2,
		MinFuzzyScore:    0.6,
		BatchSize:        100,
	}
}

// NewConfig maps the application's matching settings onto the engine configuration
func NewConfig(cfg *config.MatchingConfig) Config {
	return Config{
		AmountWeight:     cfg.AmountWeight,
		ReferenceWeight:  cfg.ReferenceWeight,
		DateWeight:       cfg.DateWeight,
		DateWindowMonths: cfg.DateWindowMonths,
		MinFuzzyScore:    cfg.MinFuzzyScore,
		BatchSize:        cfg.BatchSize,
	}
}

// Validate checks weights and thresholds, reporting every violation at once
func (c Config) Validate() error {
	var problems []string

	for name, w := range map[string]float64{
		"amount weight":    c.AmountWeight,
		"reference weight": c.ReferenceWeight,
		"date weight":      c.DateWeight,
	} {
		if w < 0 || w > 1 {
			problems = append(problems, fmt.Sprintf("%s must be between 0 and 1: %f", name, w))
		}
	}
	if total := c.AmountWeight + c.ReferenceWeight + c.DateWeight; total <= 0 {
		problems = append(problems, "at least one weight must be positive")
	}
	if c.DateWindowMonths < 0 {
		problems = append(problems, fmt.Sprintf("date window cannot be negative: %d", c.DateWindowMonths))
	}
	if c.MinFuzzyScore < 0 || c.MinFuzzyScore > 1 {
		problems = append(problems, fmt.Sprintf("minimum fuzzy score must be between 0 and 1: %f", c.MinFuzzyScore))
	}
	if c.BatchSize <= 0 {
		problems = append(problems, fmt.Sprintf("batch size must be positive: %d", c.BatchSize))
	}

	if len(problems) > 0 {
		return errors.New("invalid matching configuration: " + strings.Join(problems, ", "))
	}
	return nil
}

// Settings snapshots the configuration for the reconciliation log
func (c Config) Settings() reconlog.Settings {
	return reconlog.Settings{
		AmountWeight:     c.AmountWeight,
		ReferenceWeight:  c.ReferenceWeight,
		DateWeight:       c.DateWeight,
		DateWindowMonths: c.DateWindowMonths,
		MinFuzzyScore:    c.MinFuzzyScore,
		BatchSize:        c.BatchSize,
	}
}
