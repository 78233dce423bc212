package qa

import (
	"fmt"
	"sort"
)

// ScoringConfig carries the rule weights and pass thresholds. Weights are
// renormalized at scoring time, so editing one weight never silently shifts
// the scale of the others.
type ScoringConfig struct {
	Weights    map[string]float64
	Thresholds map[string]float64
}

// DefaultScoringConfig returns the default rule weights and thresholds.
// toc_contamination carries a threshold of 1.0: any table-of-contents text
// leaking into the paragraph tree fails the report outright.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Weights: map[string]float64{
			RuleTOCContamination:         0.20,
			RuleStructureCompleteness:    0.15,
			RuleNumberingContinuity:      0.20,
			RuleTableWellformedness:      0.15,
			RuleDefinitionBackrefs:       0.10,
			RuleFootnoteResolution:       0.10,
			RuleClassificationConfidence: 0.05,
			RuleExcludedFraction:         0.05,
		},
		Thresholds: map[string]float64{
			RuleTOCContamination:         1.00,
			RuleStructureCompleteness:    0.60,
			RuleNumberingContinuity:      0.70,
			RuleTableWellformedness:      0.80,
			RuleDefinitionBackrefs:       0.50,
			RuleFootnoteResolution:       0.60,
			RuleClassificationConfidence: 0.50,
			RuleExcludedFraction:         0.50,
		},
	}
}

// Validate checks the configuration. A broken scoring configuration fails
// only the candidate carrying it.
func (c ScoringConfig) Validate() error {
	if len(c.Weights) == 0 {
		return fmt.Errorf("scoring config has no rule weights")
	}
	for rule, w := range c.Weights {
		if w < 0 {
			return fmt.Errorf("weight for %s must be non-negative, got %v", rule, w)
		}
	}
	if c.totalWeight() <= 0 {
		return fmt.Errorf("rule weights must sum to a positive value")
	}
	for rule, t := range c.Thresholds {
		if t < 0 || t > 1 {
			return fmt.Errorf("threshold for %s must be in [0,1], got %v", rule, t)
		}
	}
	return nil
}

// totalWeight sums the rule weights in sorted rule order. Summing floats in
// map iteration order would make the total vary in the last bit between runs.
func (c ScoringConfig) totalWeight() float64 {
	rules := make([]string, 0, len(c.Weights))
	for rule := range c.Weights {
		rules = append(rules, rule)
	}
	sort.Strings(rules)
	total := 0.0
	for _, rule := range rules {
		total += c.Weights[rule]
	}
	return total
}

// weight returns the renormalized weight of a rule against a precomputed
// weight total.
func (c ScoringConfig) weight(rule string, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return c.Weights[rule] / total
}
