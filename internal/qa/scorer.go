package qa

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/finstd/standard2json/internal/structure"
)

// tocLeakPattern matches text that reads like a table-of-contents entry:
// dot leaders followed by a page number.
var tocLeakPattern = regexp.MustCompile(`\.{3,}\s*\d+\s*$`)

// Scorer runs every rule over a built document and assembles the report.
// Scoring is pure: it never mutates the document.
type Scorer struct {
	config ScoringConfig
}

// NewScorer creates a scorer with the given scoring configuration.
func NewScorer(config ScoringConfig) *Scorer {
	return &Scorer{config: config}
}

// ruleResult is the outcome of one rule evaluation.
type ruleResult struct {
	score  float64
	issues []Issue
}

// Score evaluates the full rule set and computes the weighted overall score.
// The report passes only when every configured threshold is met.
func (s *Scorer) Score(doc *structure.Document) *Report {
	results := map[string]ruleResult{
		RuleTOCContamination:         s.scoreTOCContamination(doc),
		RuleStructureCompleteness:    s.scoreStructureCompleteness(doc),
		RuleNumberingContinuity:      s.scoreNumberingContinuity(doc),
		RuleTableWellformedness:      s.scoreTableWellformedness(doc),
		RuleDefinitionBackrefs:       s.scoreDefinitionBackrefs(doc),
		RuleFootnoteResolution:       s.scoreFootnoteResolution(doc),
		RuleClassificationConfidence: s.scoreClassificationConfidence(doc),
		RuleExcludedFraction:         s.scoreExcludedFraction(doc),
	}

	report := &Report{
		Scores:     make(map[string]float64, len(results)),
		Thresholds: make(map[string]float64, len(s.config.Thresholds)),
		Issues:     []Issue{},
		Passed:     true,
	}
	for rule, threshold := range s.config.Thresholds {
		report.Thresholds[rule] = threshold
	}

	// Accumulate in sorted rule order: float addition is not associative,
	// so map iteration order would leak into the last bits of the overall
	// score and break run-to-run reproducibility.
	rules := make([]string, 0, len(results))
	for rule := range results {
		rules = append(rules, rule)
	}
	sort.Strings(rules)

	totalWeight := s.config.totalWeight()
	for _, rule := range rules {
		result := results[rule]
		score := clamp01(result.score)
		report.Scores[rule] = score
		report.OverallScore += s.config.weight(rule, totalWeight) * score
		report.Issues = append(report.Issues, result.issues...)
		if threshold, gated := s.config.Thresholds[rule]; gated && score < threshold {
			report.Passed = false
		}
	}

	report.Issues = dedupeAndSort(report.Issues)
	return report
}

// scoreTOCContamination measures how much of the paragraph tree reads like
// table-of-contents text. The default threshold of 1.0 makes any leak fatal.
func (s *Scorer) scoreTOCContamination(doc *structure.Document) ruleResult {
	total, leaked := 0, 0
	var issues []Issue
	doc.WalkParagraphs(func(_ *structure.Section, p *structure.Paragraph) {
		total++
		if tocLeakPattern.MatchString(p.Text) {
			leaked++
			issues = append(issues, Issue{
				RuleID:   RuleTOCContamination,
				Severity: SeverityError,
				Location: p.ID,
				Message:  "paragraph text resembles a table-of-contents entry",
			})
		}
	})
	if total == 0 {
		return ruleResult{score: 1.0}
	}
	return ruleResult{score: 1.0 - float64(leaked)/float64(total), issues: issues}
}

// scoreStructureCompleteness checks that the reconstruction produced a real
// document: paragraphs exist, a title was found, and a healthy share of
// paragraphs carry numbering labels.
func (s *Scorer) scoreStructureCompleteness(doc *structure.Document) ruleResult {
	total, numbered := 0, 0
	doc.WalkParagraphs(func(_ *structure.Section, p *structure.Paragraph) {
		total++
		if p.Numbered() {
			numbered++
		}
	})

	if total == 0 {
		return ruleResult{score: 0, issues: []Issue{{
			RuleID:   RuleStructureCompleteness,
			Severity: SeverityError,
			Location: doc.StandardID,
			Message:  "document contains no paragraphs",
		}}}
	}

	score := 0.4
	var issues []Issue

	if doc.Title.Hebrew != "" || doc.Title.English != "" {
		score += 0.2
	} else {
		issues = append(issues, Issue{
			RuleID:   RuleStructureCompleteness,
			Severity: SeverityWarning,
			Location: doc.StandardID,
			Message:  "no standard title detected",
		})
	}

	numberedFraction := float64(numbered) / float64(total)
	score += 0.4 * numberedFraction
	if numberedFraction < 0.3 {
		issues = append(issues, Issue{
			RuleID:   RuleStructureCompleteness,
			Severity: SeverityWarning,
			Location: doc.StandardID,
			Message:  fmt.Sprintf("only %d of %d paragraphs carry numbering labels", numbered, total),
		})
	}

	return ruleResult{score: score, issues: issues}
}

// scoreNumberingContinuity penalizes gaps, regressions, depth jumps, and
// duplicate identifiers, proportionally to the numbered paragraph count.
func (s *Scorer) scoreNumberingContinuity(doc *structure.Document) ruleResult {
	numbered := 0
	doc.WalkParagraphs(func(_ *structure.Section, p *structure.Paragraph) {
		if p.Numbered() {
			numbered++
		}
	})

	var issues []Issue
	for _, anomaly := range doc.Anomalies {
		if anomaly.Rule != RuleNumberingContinuity {
			continue
		}
		issues = append(issues, Issue{
			RuleID:   RuleNumberingContinuity,
			Severity: SeverityWarning,
			Location: anomaly.Location,
			Message:  anomaly.Message,
		})
	}

	if numbered == 0 {
		if len(issues) > 0 {
			return ruleResult{score: 0, issues: issues}
		}
		return ruleResult{score: 1.0}
	}
	return ruleResult{score: 1.0 - float64(len(issues))/float64(numbered), issues: issues}
}

// scoreTableWellformedness is the fraction of tables whose rows all match the
// declared column count.
func (s *Scorer) scoreTableWellformedness(doc *structure.Document) ruleResult {
	total, wellFormed := 0, 0
	var issues []Issue
	doc.WalkParagraphs(func(_ *structure.Section, p *structure.Paragraph) {
		for _, table := range p.Tables {
			total++
			if table.WellFormed() {
				wellFormed++
				continue
			}
			issues = append(issues, Issue{
				RuleID:   RuleTableWellformedness,
				Severity: SeverityError,
				Location: p.ID,
				Message:  "table rows do not match declared column count",
			})
		}
	})
	if total == 0 {
		return ruleResult{score: 1.0}
	}
	return ruleResult{score: float64(wellFormed) / float64(total), issues: issues}
}

// scoreDefinitionBackrefs is the fraction of definitions referenced from at
// least one paragraph.
func (s *Scorer) scoreDefinitionBackrefs(doc *structure.Document) ruleResult {
	if len(doc.Definitions) == 0 {
		return ruleResult{score: 1.0}
	}
	referenced := 0
	var issues []Issue
	for _, def := range doc.Definitions {
		if len(def.Refs) > 0 {
			referenced++
			continue
		}
		issues = append(issues, Issue{
			RuleID:   RuleDefinitionBackrefs,
			Severity: SeverityWarning,
			Location: def.Term,
			Message:  "unused definition",
		})
	}
	for _, anomaly := range doc.Anomalies {
		if anomaly.Rule != RuleDefinitionBackrefs {
			continue
		}
		issues = append(issues, Issue{
			RuleID:   RuleDefinitionBackrefs,
			Severity: SeverityWarning,
			Location: anomaly.Location,
			Message:  anomaly.Message,
		})
	}
	return ruleResult{score: float64(referenced) / float64(len(doc.Definitions)), issues: issues}
}

// scoreFootnoteResolution measures anchored footnotes against the total of
// footnote entries and unresolved inline markers.
func (s *Scorer) scoreFootnoteResolution(doc *structure.Document) ruleResult {
	unresolved := 0
	var issues []Issue
	for _, anomaly := range doc.Anomalies {
		if anomaly.Rule != RuleFootnoteResolution {
			continue
		}
		severity := SeverityWarning
		if anomaly.Message == "unresolved footnote reference" {
			severity = SeverityError
			unresolved++
		}
		issues = append(issues, Issue{
			RuleID:   RuleFootnoteResolution,
			Severity: severity,
			Location: anomaly.Location,
			Message:  anomaly.Message,
		})
	}

	anchored := 0
	for _, note := range doc.Footnotes {
		if note.Anchor != "" {
			anchored++
		}
	}
	denominator := len(doc.Footnotes) + unresolved
	if denominator == 0 {
		return ruleResult{score: 1.0}
	}
	return ruleResult{score: float64(anchored) / float64(denominator), issues: issues}
}

// scoreClassificationConfidence passes the classifier's mean confidence
// through, flagging documents with many low-confidence lines.
func (s *Scorer) scoreClassificationConfidence(doc *structure.Document) ruleResult {
	stats := doc.Stats
	if stats.Lines == 0 {
		return ruleResult{score: 0, issues: []Issue{{
			RuleID:   RuleClassificationConfidence,
			Severity: SeverityError,
			Location: doc.StandardID,
			Message:  "no lines were classified",
		}}}
	}
	var issues []Issue
	if stats.LowConfidence*10 > stats.Lines {
		issues = append(issues, Issue{
			RuleID:   RuleClassificationConfidence,
			Severity: SeverityWarning,
			Location: doc.StandardID,
			Message:  fmt.Sprintf("%d of %d lines classified with low confidence", stats.LowConfidence, stats.Lines),
		})
	}
	return ruleResult{score: stats.MeanConfidence, issues: issues}
}

// scoreExcludedFraction is the fraction of pages that survived exclusion.
// Excluded content is legitimate, but a document that is mostly untranslated
// is not a usable reconstruction.
func (s *Scorer) scoreExcludedFraction(doc *structure.Document) ruleResult {
	pageCount := doc.PageCount
	if pageCount == 0 {
		doc.WalkParagraphs(func(_ *structure.Section, p *structure.Paragraph) {
			if p.Page > pageCount {
				pageCount = p.Page
			}
		})
	}
	if pageCount == 0 {
		return ruleResult{score: 1.0}
	}

	excluded := make(map[int]bool)
	for _, rng := range doc.ExcludedRanges {
		for page := rng.StartPage; page <= rng.EndPage; page++ {
			excluded[page] = true
		}
	}
	fraction := float64(len(excluded)) / float64(pageCount)

	var issues []Issue
	if fraction > 0.2 {
		issues = append(issues, Issue{
			RuleID:   RuleExcludedFraction,
			Severity: SeverityWarning,
			Location: doc.StandardID,
			Message:  fmt.Sprintf("%d of %d pages excluded as untranslated", len(excluded), pageCount),
		})
	}
	return ruleResult{score: 1.0 - fraction, issues: issues}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
