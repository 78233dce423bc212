// Package pipeline runs the reconstruction engine once per configuration
// variant and selects the best-scoring candidate deterministically.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/finstd/standard2json/internal/extract"
	"github.com/finstd/standard2json/internal/qa"
	"github.com/finstd/standard2json/internal/structure"
)

// Variant is one named engine/scoring configuration pair. Variant order is
// significant: the list index is the final tiebreak during selection.
type Variant struct {
	Name    string
	Engine  structure.Config
	Scoring qa.ScoringConfig
}

// DefaultVariants returns the ordered default configuration list. Each
// variant perturbs one tolerance of the baseline.
func DefaultVariants() []Variant {
	baseline := structure.DefaultConfig()

	tightLines := baseline
	tightLines.LineBand = 2.0

	looseColumns := baseline
	looseColumns.ColumnGap = 28.0

	boldHeadings := baseline
	boldHeadings.HeadingFontRatio = 1.30

	scoring := qa.DefaultScoringConfig()
	return []Variant{
		{Name: "baseline", Engine: baseline, Scoring: scoring},
		{Name: "tight-lines", Engine: tightLines, Scoring: scoring},
		{Name: "loose-columns", Engine: looseColumns, Scoring: scoring},
		{Name: "bold-headings", Engine: boldHeadings, Scoring: scoring},
	}
}

// ConfigurationError marks a variant whose configuration failed validation.
// It excludes that candidate without aborting the run.
type ConfigurationError struct {
	Variant string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("variant %s: invalid configuration: %v", e.Variant, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Candidate is one scored reconstruction. Candidates are immutable once
// scored; selection compares them without touching the documents.
type Candidate struct {
	Variant  Variant
	Index    int
	Document *structure.Document
	Report   *qa.Report
	Err      error
}

// Selector executes the pipeline across variants and picks a winner.
type Selector struct {
	variants []Variant
}

// NewSelector creates a selector over the given variant list.
func NewSelector(variants []Variant) *Selector {
	return &Selector{variants: variants}
}

// Run scores every variant in parallel and returns the winning candidate
// plus the full candidate list. It errors only when no candidate survives.
func (s *Selector) Run(ctx context.Context, rs *extract.RunSet, standardID string) (*Candidate, []Candidate, error) {
	if len(s.variants) == 0 {
		return nil, nil, fmt.Errorf("no configuration variants to run")
	}
	if rs == nil || len(rs.Runs) == 0 {
		return nil, nil, fmt.Errorf("no positioned runs to process")
	}

	candidates := make([]Candidate, len(s.variants))
	var wg sync.WaitGroup
	for i, variant := range s.variants {
		wg.Add(1)
		go func(idx int, v Variant) {
			defer wg.Done()
			candidates[idx] = s.runOne(ctx, idx, v, rs, standardID)
		}(i, variant)
	}
	wg.Wait()

	best := -1
	for i := range candidates {
		if candidates[i].Err != nil {
			continue
		}
		if best < 0 || betterCandidate(&candidates[i], &candidates[best]) {
			best = i
		}
	}
	if best < 0 {
		return nil, candidates, fmt.Errorf("all %d candidates failed", len(candidates))
	}
	return &candidates[best], candidates, nil
}

// runOne executes the full stage sequence for one variant. Every derived
// structure is rebuilt from scratch; nothing is shared across variants.
func (s *Selector) runOne(ctx context.Context, index int, v Variant, rs *extract.RunSet, standardID string) Candidate {
	candidate := Candidate{Variant: v, Index: index}

	if err := ctx.Err(); err != nil {
		candidate.Err = err
		return candidate
	}
	if err := v.Engine.Validate(); err != nil {
		candidate.Err = &ConfigurationError{Variant: v.Name, Err: err}
		return candidate
	}
	if err := v.Scoring.Validate(); err != nil {
		candidate.Err = &ConfigurationError{Variant: v.Name, Err: err}
		return candidate
	}

	lines := structure.NewNormalizer(v.Engine).Normalize(rs)
	classified := structure.NewClassifier(v.Engine).Classify(lines)
	doc := structure.NewBuilder(v.Engine).Build(standardID, classified)
	doc.PageCount = rs.PageCount
	doc.BlankPages = rs.BlankPages()
	structure.NewLinker(v.Engine).Link(doc)

	candidate.Document = doc
	candidate.Report = qa.NewScorer(v.Scoring).Score(doc)
	return candidate
}

// betterCandidate is the selection total order: overall score descending,
// then issue count ascending, then variant index ascending.
func betterCandidate(a, b *Candidate) bool {
	if a.Report.OverallScore != b.Report.OverallScore {
		return a.Report.OverallScore > b.Report.OverallScore
	}
	if a.Report.IssueCount() != b.Report.IssueCount() {
		return a.Report.IssueCount() < b.Report.IssueCount()
	}
	return a.Index < b.Index
}
