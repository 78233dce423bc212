// Package qa scores a reconstructed document against a configurable rule set
// and produces the pass/fail report that gates candidate selection.
package qa

import "sort"

// Rule identifiers. Each rule yields one sub-score in [0,1].
const (
	RuleTOCContamination         = "toc_contamination"
	RuleStructureCompleteness    = "structure_completeness"
	RuleNumberingContinuity      = "numbering_continuity"
	RuleTableWellformedness      = "table_wellformedness"
	RuleDefinitionBackrefs       = "definition_backrefs"
	RuleFootnoteResolution       = "footnote_resolution"
	RuleClassificationConfidence = "classification_confidence"
	RuleExcludedFraction         = "excluded_fraction"
)

// Severity orders issues in a report: errors first, then warnings, then info.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

func severityRank(s Severity) int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Issue is one finding attributed to a rule and a document location.
type Issue struct {
	RuleID   string   `json:"rule_id"`
	Severity Severity `json:"severity"`
	Location string   `json:"location"`
	Message  string   `json:"message,omitempty"`
}

// Report is the scored outcome for one candidate document.
type Report struct {
	Scores       map[string]float64 `json:"scores"`
	OverallScore float64            `json:"overall_score"`
	Passed       bool               `json:"passed"`
	Issues       []Issue            `json:"issues"`
	Thresholds   map[string]float64 `json:"thresholds"`
}

// IssueCount returns the number of issues, the selector's second-order
// tiebreak.
func (r *Report) IssueCount() int {
	return len(r.Issues)
}

// dedupeAndSort removes duplicate (rule, location) findings and orders issues
// by severity, then location, then rule.
func dedupeAndSort(issues []Issue) []Issue {
	type key struct {
		rule     string
		location string
	}
	seen := make(map[key]bool, len(issues))
	out := make([]Issue, 0, len(issues))
	for _, issue := range issues {
		k := key{rule: issue.RuleID, location: issue.Location}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, issue)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := severityRank(out[i].Severity), severityRank(out[j].Severity)
		if ri != rj {
			return ri < rj
		}
		if out[i].Location != out[j].Location {
			return out[i].Location < out[j].Location
		}
		return out[i].RuleID < out[j].RuleID
	})
	return out
}
