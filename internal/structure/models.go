// Package structure implements the structural reconstruction engine: it turns
// positioned text runs into logical reading-order lines, classifies each line
// by structural role, and assembles the classified lines into a document tree
// of sections, numbered paragraphs, tables, definitions, and footnotes.
package structure

import (
	"fmt"
	"strings"

	"github.com/finstd/standard2json/internal/extract"
)

// Role is the structural role assigned to a logical line by the classifier.
type Role string

const (
	RoleHeading           Role = "heading"
	RoleNumberedParagraph Role = "numbered_paragraph"
	RolePlainParagraph    Role = "plain_paragraph"
	RoleTableRow          Role = "table_row"
	RoleFootnoteEntry     Role = "footnote_entry"
	RoleDefinitionEntry   Role = "definition_entry"
	RoleAppendixMarker    Role = "appendix_marker"
	RoleExcluded          Role = "excluded"
)

// LogicalLine is one visual text line after merging and right-to-left
// reordering, tagged with its page and layout fingerprint.
type LogicalLine struct {
	Page int
	Text string
	// Runs are the source runs in logical reading order.
	Runs []extract.PositionedRun
	// Left/Right/Top describe the line's bounding band on the page.
	Left  float64
	Right float64
	Top   float64
	// FontSize is the dominant font size of the line's runs.
	FontSize float64
	Bold     bool
}

// ClassifiedLine is a LogicalLine plus its assigned role and the confidence
// of that assignment relative to the runner-up detector.
type ClassifiedLine struct {
	LogicalLine
	Role       Role
	Confidence float64
	// Label carries role-specific detail: the numbering label for a
	// numbered paragraph, the appendix letter for an appendix marker,
	// the marker symbol for a footnote entry, the term for a definition.
	Label string
	// Body is the line text with any leading label/marker stripped.
	Body string
}

// SectionKind distinguishes main-body sections from appendices.
type SectionKind string

const (
	SectionMain     SectionKind = "main"
	SectionAppendix SectionKind = "appendix"
)

// Section owns an ordered sequence of paragraphs and nested subsections.
type Section struct {
	Kind SectionKind `json:"kind"`
	// Letter is set for appendix sections ("A", "B", ...).
	Letter      string       `json:"letter,omitempty"`
	Ordinal     int          `json:"ordinal"`
	Title       string       `json:"title,omitempty"`
	Paragraphs  []*Paragraph `json:"paragraphs"`
	Subsections []*Section   `json:"subsections,omitempty"`
}

// Paragraph is a numbered or plain body paragraph. Tables and footnote
// references are attached during reconstruction and linking.
type Paragraph struct {
	ID string `json:"id"`
	// NumberingLabel is nil for unnumbered paragraphs and serializes as
	// an explicit null, so consumers always see the key.
	NumberingLabel *string  `json:"numbering_label"`
	Text           string   `json:"text"`
	Page           int      `json:"page"`
	Tables         []*Table `json:"tables,omitempty"`
	FootnoteRefs   []string `json:"footnote_refs,omitempty"`
}

// Numbered reports whether the paragraph carries a numbering label.
func (p *Paragraph) Numbered() bool {
	return p.NumberingLabel != nil && *p.NumberingLabel != ""
}

// Table is an ordered grid of rows; every row has exactly Columns cells.
type Table struct {
	Columns   int        `json:"columns"`
	HeaderRow bool       `json:"header_row"`
	Rows      [][]string `json:"rows"`
}

// WellFormed reports whether every row matches the declared column count.
func (t *Table) WellFormed() bool {
	if t.Columns < 2 || len(t.Rows) == 0 {
		return false
	}
	for _, row := range t.Rows {
		if len(row) != t.Columns {
			return false
		}
	}
	return true
}

// Definition is a defined term with back-references to the paragraphs that
// use it. Back-references are paragraph identifiers, never direct links.
type Definition struct {
	Term string   `json:"term"`
	Body string   `json:"body"`
	Refs []string `json:"refs"`
	Page int      `json:"-"`
}

// Footnote is a footnote body anchored to at most one paragraph.
type Footnote struct {
	Marker string `json:"marker"`
	Body   string `json:"body"`
	Anchor string `json:"anchor,omitempty"`
	Page   int    `json:"-"`
}

// ExcludedRange records a page span dropped as untranslated content. Excluded
// content never silently disappears; the range is part of the output.
type ExcludedRange struct {
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
	Reason    string `json:"reason"`
}

// Title holds the standard's title in both languages when detected.
type Title struct {
	Hebrew  string `json:"hebrew,omitempty"`
	English string `json:"english,omitempty"`
}

// Anomaly records a structural inconsistency found while building the tree.
// Anomalies never abort the build; the QA scorer turns them into issues.
type Anomaly struct {
	Rule     string
	Location string
	Message  string
}

// ClassificationStats aggregates classifier confidence over the document,
// consumed by the QA confidence rule.
type ClassificationStats struct {
	Lines          int
	MeanConfidence float64
	LowConfidence  int
}

// Document is the root of the reconstructed tree.
type Document struct {
	StandardID     string          `json:"standard_id"`
	Title          Title           `json:"title"`
	Sections       []*Section      `json:"sections"`
	Definitions    []*Definition   `json:"definitions"`
	Footnotes      []*Footnote     `json:"footnotes"`
	ExcludedRanges []ExcludedRange `json:"excluded_ranges"`
	BlankPages     []int           `json:"blank_pages,omitempty"`
	PageCount      int             `json:"page_count,omitempty"`

	// Anomalies and Stats feed the QA scorer; they are not part of the
	// serialized document.
	Anomalies []Anomaly           `json:"-"`
	Stats     ClassificationStats `json:"-"`

	paragraphByID map[string]*Paragraph
	paragraphIDs  []string
}

// NewDocument creates an empty document for the given standard identifier.
func NewDocument(standardID string) *Document {
	return &Document{
		StandardID:     standardID,
		Sections:       []*Section{},
		Definitions:    []*Definition{},
		Footnotes:      []*Footnote{},
		ExcludedRanges: []ExcludedRange{},
		paragraphByID:  make(map[string]*Paragraph),
	}
}

// RegisterParagraph indexes a paragraph under its identifier. Duplicate
// identifiers are disambiguated with a numeric suffix and recorded as an
// anomaly so the QA numbering rule can see them.
func (d *Document) RegisterParagraph(p *Paragraph) {
	if _, exists := d.paragraphByID[p.ID]; exists {
		base := p.ID
		for n := 2; ; n++ {
			candidate := fmt.Sprintf("%s__%d", base, n)
			if _, taken := d.paragraphByID[candidate]; !taken {
				p.ID = candidate
				break
			}
		}
		d.AddAnomaly("numbering_continuity", base, "duplicate paragraph identifier")
	}
	d.paragraphByID[p.ID] = p
	d.paragraphIDs = append(d.paragraphIDs, p.ID)
}

// ParagraphByID resolves a paragraph identifier, or nil.
func (d *Document) ParagraphByID(id string) *Paragraph {
	return d.paragraphByID[id]
}

// ParagraphIDs returns all paragraph identifiers in document order.
func (d *Document) ParagraphIDs() []string {
	return d.paragraphIDs
}

// WalkParagraphs visits every paragraph in document order.
func (d *Document) WalkParagraphs(fn func(sec *Section, p *Paragraph)) {
	var walk func(sec *Section)
	walk = func(sec *Section) {
		for _, p := range sec.Paragraphs {
			fn(sec, p)
		}
		for _, sub := range sec.Subsections {
			walk(sub)
		}
	}
	for _, sec := range d.Sections {
		walk(sec)
	}
}

// AddAnomaly records a structural inconsistency.
func (d *Document) AddAnomaly(rule, location, message string) {
	d.Anomalies = append(d.Anomalies, Anomaly{Rule: rule, Location: location, Message: message})
}

// NormalizeTerm produces the comparison form of a definition term: trimmed,
// whitespace-collapsed, lowercased for Latin letters.
func NormalizeTerm(term string) string {
	return strings.ToLower(strings.Join(strings.Fields(term), " "))
}
