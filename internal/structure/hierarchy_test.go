package structure

import (
	"testing"

	"github.com/finstd/standard2json/internal/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classified(role Role, page int, text, label, body string) ClassifiedLine {
	return ClassifiedLine{
		LogicalLine: LogicalLine{Page: page, Text: text, FontSize: 12},
		Role:        role,
		Confidence:  0.9,
		Label:       label,
		Body:        body,
	}
}

func TestBuildSingleHeadingAndParagraph(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	lines := []ClassifiedLine{
		classified(RoleNumberedParagraph, 1, "1 הכרה בנכס", "1", "הכרה בנכס"),
		classified(RolePlainParagraph, 1, "המשך הפסקה הראשונה", "", ""),
	}

	doc := b.Build("IAS_16", lines)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, SectionMain, doc.Sections[0].Kind)
	require.Len(t, doc.Sections[0].Paragraphs, 1)

	para := doc.Sections[0].Paragraphs[0]
	assert.Equal(t, "IAS_16:1", para.ID)
	require.NotNil(t, para.NumberingLabel)
	assert.Equal(t, "1", *para.NumberingLabel)
	assert.Equal(t, "הכרה בנכס המשך הפסקה הראשונה", para.Text)
	assert.Empty(t, doc.Anomalies)
	assert.NotNil(t, doc.ParagraphByID("IAS_16:1"))
}

func TestBuildHeadingOpensSubsection(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	lines := []ClassifiedLine{
		classified(RoleHeading, 2, "הכרה", "", "הכרה"),
		classified(RoleNumberedParagraph, 2, "7 הישות תכיר בנכס", "7", "הישות תכיר בנכס"),
	}

	doc := b.Build("IAS_16", lines)
	require.Len(t, doc.Sections, 1)
	require.Len(t, doc.Sections[0].Subsections, 1)
	sub := doc.Sections[0].Subsections[0]
	assert.Equal(t, "הכרה", sub.Title)
	require.Len(t, sub.Paragraphs, 1)
	assert.Equal(t, "IAS_16:7", sub.Paragraphs[0].ID)
}

func TestBuildNumberingGapAnomaly(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	lines := []ClassifiedLine{
		classified(RoleNumberedParagraph, 1, "1 פסקה ראשונה", "1", "פסקה ראשונה"),
		classified(RoleNumberedParagraph, 1, "2 פסקה שנייה", "2", "פסקה שנייה"),
		classified(RoleNumberedParagraph, 1, "5 פסקה חמישית", "5", "פסקה חמישית"),
	}

	doc := b.Build("IAS_16", lines)
	require.Len(t, doc.Anomalies, 1)
	assert.Equal(t, "numbering_continuity", doc.Anomalies[0].Rule)
	assert.Contains(t, doc.Anomalies[0].Message, "gap")
}

func TestBuildNumberingRegressionAnomaly(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	lines := []ClassifiedLine{
		classified(RoleNumberedParagraph, 1, "5 פסקה", "5", "פסקה"),
		classified(RoleNumberedParagraph, 1, "3 פסקה", "3", "פסקה"),
	}

	doc := b.Build("IAS_16", lines)
	require.Len(t, doc.Anomalies, 1)
	assert.Contains(t, doc.Anomalies[0].Message, "regresses")
}

func TestBuildDepthJumpAnomaly(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	lines := []ClassifiedLine{
		classified(RoleNumberedParagraph, 1, "1 פסקה", "1", "פסקה"),
		classified(RoleNumberedParagraph, 1, "1.1.1 תת תת פסקה", "1.1.1", "תת תת פסקה"),
	}

	doc := b.Build("IAS_16", lines)
	require.Len(t, doc.Anomalies, 1)
	assert.Contains(t, doc.Anomalies[0].Message, "depth jump")
}

func TestBuildSuffixedLabelsAreContinuous(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	lines := []ClassifiedLine{
		classified(RoleNumberedParagraph, 1, "20 פסקה", "20", "פסקה"),
		classified(RoleNumberedParagraph, 1, "20א פסקה", "20A", "פסקה"),
		classified(RoleNumberedParagraph, 1, "21 פסקה", "21", "פסקה"),
	}

	doc := b.Build("IAS_16", lines)
	assert.Empty(t, doc.Anomalies)
	assert.NotNil(t, doc.ParagraphByID("IAS_16:20A"))
}

func TestBuildAppendixResetsNumbering(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	lines := []ClassifiedLine{
		classified(RoleNumberedParagraph, 10, "80 פסקה אחרונה בגוף", "80", "פסקה אחרונה בגוף"),
		classified(RoleAppendixMarker, 11, "נספח ב", "B", ""),
		classified(RoleNumberedParagraph, 11, "1 פסקה ראשונה בנספח", "1", "פסקה ראשונה בנספח"),
	}

	doc := b.Build("IAS_16", lines)
	require.Len(t, doc.Sections, 2)
	appendix := doc.Sections[1]
	assert.Equal(t, SectionAppendix, appendix.Kind)
	assert.Equal(t, "B", appendix.Letter)
	require.Len(t, appendix.Paragraphs, 1)
	assert.Equal(t, "IAS_16:B1", appendix.Paragraphs[0].ID)
	require.NotNil(t, appendix.Paragraphs[0].NumberingLabel)
	assert.Equal(t, "B1", *appendix.Paragraphs[0].NumberingLabel)
	assert.Empty(t, doc.Anomalies)
}

func TestBuildExcludedRangeKeepsNumberingContinuous(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	lines := []ClassifiedLine{
		classified(RoleNumberedParagraph, 4, "7 פסקה לפני ההחרגה", "7", "פסקה לפני ההחרגה"),
		classified(RoleExcluded, 5, "Untranslated foreign text one", "non-target script", ""),
		classified(RoleExcluded, 5, "Untranslated foreign text two", "non-target script", ""),
		classified(RoleExcluded, 6, "Untranslated foreign text three", "non-target script", ""),
		classified(RoleNumberedParagraph, 7, "8 פסקה אחרי ההחרגה", "8", "פסקה אחרי ההחרגה"),
	}

	doc := b.Build("IAS_16", lines)
	require.Len(t, doc.ExcludedRanges, 1)
	assert.Equal(t, 5, doc.ExcludedRanges[0].StartPage)
	assert.Equal(t, 6, doc.ExcludedRanges[0].EndPage)
	assert.Equal(t, "non-target script", doc.ExcludedRanges[0].Reason)

	require.Len(t, doc.Sections[0].Paragraphs, 2)
	assert.Empty(t, doc.Anomalies)
}

func TestBuildSkipsTOCPages(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	lines := []ClassifiedLine{
		classified(RoleHeading, 2, "תוכן עניינים", "", "תוכן עניינים"),
		classified(RoleNumberedParagraph, 2, "7 הכרה", "7", "הכרה"),
		classified(RoleNumberedParagraph, 3, "1 מטרת התקן היא לקבוע", "1", "מטרת התקן היא לקבוע"),
	}

	doc := b.Build("IAS_16", lines)
	require.Len(t, doc.Sections[0].Paragraphs, 1)
	assert.Equal(t, "IAS_16:1", doc.Sections[0].Paragraphs[0].ID)
}

func TestBuildSkipsTOCEntriesBeforeContent(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	lines := []ClassifiedLine{
		classified(RoleNumberedParagraph, 2, "מטרה ........ 3", "3", "מטרה ........"),
		classified(RoleNumberedParagraph, 3, "1 מטרת התקן היא לקבוע", "1", "מטרת התקן היא לקבוע"),
	}

	doc := b.Build("IAS_16", lines)
	require.Len(t, doc.Sections[0].Paragraphs, 1)
	require.NotNil(t, doc.Sections[0].Paragraphs[0].NumberingLabel)
	assert.Equal(t, "1", *doc.Sections[0].Paragraphs[0].NumberingLabel)
}

func TestBuildExtractsTitleAndStandardID(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	lines := []ClassifiedLine{
		classified(RoleHeading, 1, "תקן חשבונאות בינלאומי 16", "", "תקן חשבונאות בינלאומי 16"),
		classified(RoleHeading, 1, "International Accounting Standard 16", "", "International Accounting Standard 16"),
		classified(RoleNumberedParagraph, 3, "1 מטרת התקן", "1", "מטרת התקן"),
	}

	doc := b.Build("", lines)
	assert.Equal(t, "IAS_16", doc.StandardID)
	assert.Equal(t, "תקן חשבונאות בינלאומי 16", doc.Title.Hebrew)
	assert.Equal(t, "International Accounting Standard 16", doc.Title.English)
}

func TestBuildCollectsFootnotesAndDefinitions(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	lines := []ClassifiedLine{
		classified(RoleNumberedParagraph, 2, "1 פסקת פתיחה", "1", "פסקת פתיחה"),
		classified(RoleDefinitionEntry, 3, "נכס – משאב בשליטת הישות", "נכס", "משאב בשליטת הישות"),
		classified(RoleDefinitionEntry, 3, "נכס – הגדרה כפולה לאותו מונח", "נכס", "הגדרה כפולה לאותו מונח"),
		classified(RoleFootnoteEntry, 4, "1 הערת שוליים", "1", "הערת שוליים"),
	}

	doc := b.Build("IAS_16", lines)
	require.Len(t, doc.Definitions, 1)
	assert.Equal(t, "נכס", doc.Definitions[0].Term)
	require.Len(t, doc.Footnotes, 1)
	assert.Equal(t, "1", doc.Footnotes[0].Marker)

	// The duplicate term is an anomaly, not a second entry.
	require.Len(t, doc.Anomalies, 1)
	assert.Equal(t, "definition_backrefs", doc.Anomalies[0].Rule)
}

func TestBuildAttachesConfirmedTable(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	makeRow := func(y float64) ClassifiedLine {
		line := classified(RoleTableRow, 5, "עלות 100 פחת 20", "", "")
		line.Runs = []extract.PositionedRun{
			{Text: "עלות", Page: 5, X0: 300, X1: 340, Y0: y, FontSize: 12},
			{Text: "100", Page: 5, X0: 200, X1: 230, Y0: y, FontSize: 12},
			{Text: "פחת", Page: 5, X0: 100, X1: 140, Y0: y, FontSize: 12},
			{Text: "20", Page: 5, X0: 30, X1: 50, Y0: y, FontSize: 12},
		}
		return line
	}
	lines := []ClassifiedLine{
		classified(RoleNumberedParagraph, 5, "12 הטבלה הבאה מציגה", "12", "הטבלה הבאה מציגה"),
		makeRow(700),
		makeRow(680),
		makeRow(660),
	}

	doc := b.Build("IAS_16", lines)
	para := doc.ParagraphByID("IAS_16:12")
	require.NotNil(t, para)
	require.Len(t, para.Tables, 1)
	assert.Equal(t, 4, para.Tables[0].Columns)
	assert.Len(t, para.Tables[0].Rows, 3)
	assert.True(t, para.Tables[0].WellFormed())
}

func TestBuildRevertsUnconfirmedTableRegion(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	lines := []ClassifiedLine{
		classified(RoleNumberedParagraph, 5, "12 הפסקה אומרת", "12", "הפסקה אומרת"),
		classified(RoleTableRow, 5, "שורה בודדת שנראתה כטבלה", "", ""),
		classified(RoleNumberedParagraph, 5, "13 הפסקה הבאה", "13", "הפסקה הבאה"),
	}

	doc := b.Build("IAS_16", lines)
	para := doc.ParagraphByID("IAS_16:12")
	require.NotNil(t, para)
	assert.Empty(t, para.Tables)
	assert.Contains(t, para.Text, "שורה בודדת שנראתה כטבלה")
}

func TestBuildScansInlineFootnoteRefs(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	lines := []ClassifiedLine{
		classified(RoleNumberedParagraph, 2, "1 הנכס יימדד לפי עלות¹", "1", "הנכס יימדד לפי עלות¹"),
	}

	doc := b.Build("IAS_16", lines)
	para := doc.ParagraphByID("IAS_16:1")
	require.NotNil(t, para)
	assert.Equal(t, []string{"1"}, para.FootnoteRefs)
}

func TestBuildDuplicateLabelsDisambiguated(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	lines := []ClassifiedLine{
		classified(RoleNumberedParagraph, 1, "6 פסקה", "6", "פסקה"),
		classified(RoleNumberedParagraph, 1, "6 פסקה כפולה", "6", "פסקה כפולה"),
	}

	doc := b.Build("IAS_16", lines)
	assert.NotNil(t, doc.ParagraphByID("IAS_16:6"))
	assert.NotNil(t, doc.ParagraphByID("IAS_16:6__2"))

	hasDuplicate := false
	for _, a := range doc.Anomalies {
		if a.Rule == "numbering_continuity" && a.Message == "duplicate paragraph identifier" {
			hasDuplicate = true
		}
	}
	assert.True(t, hasDuplicate)
}
