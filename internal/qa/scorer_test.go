package qa

import (
	"testing"

	"github.com/finstd/standard2json/internal/structure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthyDocument() *structure.Document {
	doc := structure.NewDocument("IAS_16")
	doc.Title = structure.Title{Hebrew: "תקן חשבונאות בינלאומי 16"}
	doc.PageCount = 10
	doc.Stats = structure.ClassificationStats{Lines: 100, MeanConfidence: 0.9, LowConfidence: 2}

	section := &structure.Section{Kind: structure.SectionMain, Paragraphs: []*structure.Paragraph{}}
	doc.Sections = append(doc.Sections, section)
	for _, label := range []string{"1", "2", "3"} {
		para := &structure.Paragraph{
			ID:             "IAS_16:" + label,
			NumberingLabel: &label,
			Text:           "הישות תיישם את הוראות התקן",
			Page:           2,
		}
		doc.RegisterParagraph(para)
		section.Paragraphs = append(section.Paragraphs, para)
	}
	return doc
}

func TestScoreHealthyDocumentPasses(t *testing.T) {
	scorer := NewScorer(DefaultScoringConfig())
	report := scorer.Score(healthyDocument())

	assert.True(t, report.Passed)
	assert.Greater(t, report.OverallScore, 0.8)
	assert.Equal(t, 1.0, report.Scores[RuleTOCContamination])
	assert.Equal(t, 1.0, report.Scores[RuleNumberingContinuity])
	assert.Equal(t, 1.0, report.Scores[RuleTableWellformedness])
	assert.Empty(t, report.Issues)
}

func TestScoreEmptyDocumentFails(t *testing.T) {
	doc := structure.NewDocument("IAS_16")
	scorer := NewScorer(DefaultScoringConfig())
	report := scorer.Score(doc)

	assert.False(t, report.Passed)
	assert.Equal(t, 0.0, report.Scores[RuleStructureCompleteness])
	require.NotEmpty(t, report.Issues)
}

func TestScoreTOCContaminationHardFails(t *testing.T) {
	doc := healthyDocument()
	doc.Sections[0].Paragraphs[0].Text = "הכרה ומדידה ........ 12"

	report := NewScorer(DefaultScoringConfig()).Score(doc)
	assert.Less(t, report.Scores[RuleTOCContamination], 1.0)
	assert.False(t, report.Passed)

	found := false
	for _, issue := range report.Issues {
		if issue.RuleID == RuleTOCContamination {
			found = true
			assert.Equal(t, SeverityError, issue.Severity)
		}
	}
	assert.True(t, found)
}

func TestScoreUnresolvedFootnoteFailsThreshold(t *testing.T) {
	doc := healthyDocument()
	doc.AddAnomaly(RuleFootnoteResolution, "IAS_16:1", "unresolved footnote reference")

	report := NewScorer(DefaultScoringConfig()).Score(doc)
	assert.Less(t, report.Scores[RuleFootnoteResolution], 0.60)
	assert.False(t, report.Passed)

	require.NotEmpty(t, report.Issues)
	assert.Equal(t, RuleFootnoteResolution, report.Issues[0].RuleID)
	assert.Equal(t, "unresolved footnote reference", report.Issues[0].Message)
	assert.Equal(t, SeverityError, report.Issues[0].Severity)
}

func TestScoreNumberingContinuityPenalty(t *testing.T) {
	doc := healthyDocument()
	doc.AddAnomaly(RuleNumberingContinuity, "IAS_16:5", "gap between 3 and 5")

	report := NewScorer(DefaultScoringConfig()).Score(doc)
	assert.InDelta(t, 1.0-1.0/3.0, report.Scores[RuleNumberingContinuity], 1e-9)
}

func TestScoreExcludedFraction(t *testing.T) {
	doc := healthyDocument()
	doc.ExcludedRanges = append(doc.ExcludedRanges, structure.ExcludedRange{StartPage: 3, EndPage: 7, Reason: "non-target script"})

	report := NewScorer(DefaultScoringConfig()).Score(doc)
	assert.InDelta(t, 0.5, report.Scores[RuleExcludedFraction], 1e-9)

	found := false
	for _, issue := range report.Issues {
		if issue.RuleID == RuleExcludedFraction {
			found = true
			assert.Equal(t, SeverityWarning, issue.Severity)
		}
	}
	assert.True(t, found)
}

func TestScoreMalformedTable(t *testing.T) {
	doc := healthyDocument()
	doc.Sections[0].Paragraphs[0].Tables = []*structure.Table{
		{Columns: 3, Rows: [][]string{{"א", "ב", "ג"}, {"ד", "ה"}}},
	}

	report := NewScorer(DefaultScoringConfig()).Score(doc)
	assert.Equal(t, 0.0, report.Scores[RuleTableWellformedness])
	assert.False(t, report.Passed)
}

func TestScoreIssuesDedupedAndSorted(t *testing.T) {
	doc := healthyDocument()
	doc.AddAnomaly(RuleFootnoteResolution, "IAS_16:1", "unresolved footnote reference")
	doc.AddAnomaly(RuleFootnoteResolution, "IAS_16:1", "unresolved footnote reference")
	doc.AddAnomaly(RuleNumberingContinuity, "IAS_16:9", "gap between 3 and 9")

	report := NewScorer(DefaultScoringConfig()).Score(doc)

	footnoteIssues := 0
	for _, issue := range report.Issues {
		if issue.RuleID == RuleFootnoteResolution {
			footnoteIssues++
		}
	}
	assert.Equal(t, 1, footnoteIssues)

	// Errors sort before warnings.
	require.GreaterOrEqual(t, len(report.Issues), 2)
	assert.Equal(t, SeverityError, report.Issues[0].Severity)
}

func TestOverallScoreIsWeightedAverage(t *testing.T) {
	report := NewScorer(DefaultScoringConfig()).Score(healthyDocument())

	expected := 0.0
	cfg := DefaultScoringConfig()
	total := cfg.totalWeight()
	for rule, score := range report.Scores {
		expected += cfg.weight(rule, total) * score
	}
	assert.InDelta(t, expected, report.OverallScore, 1e-9)
}

func TestOverallScoreStableAcrossRuns(t *testing.T) {
	want := NewScorer(DefaultScoringConfig()).Score(healthyDocument()).OverallScore

	// Fresh scorer and document each run, so map iteration order is
	// re-randomized; the overall score must still be bit-identical.
	for i := 0; i < 2000; i++ {
		got := NewScorer(DefaultScoringConfig()).Score(healthyDocument()).OverallScore
		require.Equal(t, want, got)
	}
}

func TestScoringConfigValidate(t *testing.T) {
	valid := DefaultScoringConfig()
	assert.NoError(t, valid.Validate())

	negative := DefaultScoringConfig()
	negative.Weights = map[string]float64{RuleTOCContamination: -0.5}
	assert.Error(t, negative.Validate())

	badThreshold := DefaultScoringConfig()
	badThreshold.Thresholds = map[string]float64{RuleTOCContamination: 1.5}
	assert.Error(t, badThreshold.Validate())

	empty := ScoringConfig{}
	assert.Error(t, empty.Validate())
}

func TestReportThresholdsEchoConfiguration(t *testing.T) {
	cfg := DefaultScoringConfig()
	report := NewScorer(cfg).Score(healthyDocument())
	assert.Equal(t, cfg.Thresholds, report.Thresholds)
}
