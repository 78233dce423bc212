package structure

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	hebrewTitlePattern  = regexp.MustCompile(`תקן\s+(חשבונאות|דיווח\s+כספי)\s+בינלאומי\s+(?:מספר\s+)?(\d+)`)
	englishTitlePattern = regexp.MustCompile(`(?i)\bInternational\s+(Accounting|Financial\s+Reporting)\s+Standard\s+(\d+)`)

	// Table-of-contents entries carry dot leaders or a bare trailing page
	// number; either form disqualifies a line from opening body content.
	tocEntryPattern = regexp.MustCompile(`\.{3,}\s*\d+\s*$|^\d+\s*\.{3,}`)

	footnoteRefPattern = regexp.MustCompile(`[¹²³⁴⁵⁶⁷⁸⁹]`)
)

// Builder assembles classified lines into the hierarchical document: sections
// and subsections, numbered paragraphs with continuity tracking, reconstructed
// tables, definitions, footnotes, and excluded ranges.
type Builder struct {
	config Config
	tables *TableReconstructor
}

// NewBuilder creates a hierarchy builder with the given engine configuration.
func NewBuilder(config Config) *Builder {
	return &Builder{
		config: config,
		tables: NewTableReconstructor(config),
	}
}

// buildState is the mutable cursor of one Build pass.
type buildState struct {
	doc     *Document
	section *Section // current top-level section
	target  *Section // current insertion point (section or subsection)
	para    *Paragraph
	stack   []string // open numbering labels, outermost first
	region  []ClassifiedLine
	open    *ExcludedRange
	started bool // body content reached
	plain   int  // sequence for unlabeled paragraph identifiers
}

// Build produces the document tree for a classified line sequence. The
// standardID may be empty, in which case it is derived from the title page.
func (b *Builder) Build(standardID string, lines []ClassifiedLine) *Document {
	doc := NewDocument(standardID)
	doc.Stats = aggregateStats(lines)
	b.extractTitle(doc, lines)

	main := &Section{Kind: SectionMain, Paragraphs: []*Paragraph{}}
	doc.Sections = append(doc.Sections, main)

	st := &buildState{doc: doc, section: main, target: main}
	lastTOC := lastTOCPage(lines)

	for _, line := range lines {
		if line.Page <= lastTOC && line.Role != RoleExcluded {
			continue
		}
		if !st.started && tocEntryPattern.MatchString(line.Text) {
			continue
		}

		if line.Role != RoleExcluded {
			b.closeExcluded(st)
		}
		if line.Role != RoleTableRow {
			b.flushRegion(st)
		}

		switch line.Role {
		case RoleExcluded:
			b.handleExcluded(st, line)
		case RoleAppendixMarker:
			b.handleAppendix(st, line)
		case RoleHeading:
			b.handleHeading(st, line)
		case RoleNumberedParagraph:
			b.handleNumbered(st, line)
		case RoleTableRow:
			if st.started {
				st.region = append(st.region, line)
			}
		case RoleFootnoteEntry:
			doc.Footnotes = append(doc.Footnotes, &Footnote{
				Marker: line.Label,
				Body:   line.Body,
				Page:   line.Page,
			})
		case RoleDefinitionEntry:
			b.handleDefinition(st, line)
		default:
			b.handlePlain(st, line)
		}
	}

	b.flushRegion(st)
	b.closeExcluded(st)
	return doc
}

// extractTitle scans the opening pages for the bilingual standard title and,
// when no identifier was supplied, derives one from it.
func (b *Builder) extractTitle(doc *Document, lines []ClassifiedLine) {
	limit := firstPage(lines) + 1
	for _, line := range lines {
		if line.Page > limit {
			break
		}
		if m := hebrewTitlePattern.FindStringSubmatch(line.Text); m != nil && doc.Title.Hebrew == "" {
			doc.Title.Hebrew = strings.TrimSpace(line.Text)
			if doc.StandardID == "" {
				doc.StandardID = standardIDFromKind(strings.Contains(m[1], "חשבונאות"), m[2])
			}
		}
		if m := englishTitlePattern.FindStringSubmatch(line.Text); m != nil && doc.Title.English == "" {
			doc.Title.English = strings.TrimSpace(line.Text)
			if doc.StandardID == "" {
				doc.StandardID = standardIDFromKind(strings.EqualFold(m[1], "Accounting"), m[2])
			}
		}
	}
}

func standardIDFromKind(accounting bool, number string) string {
	if accounting {
		return "IAS_" + number
	}
	return "IFRS_" + number
}

func firstPage(lines []ClassifiedLine) int {
	if len(lines) == 0 {
		return 1
	}
	min := lines[0].Page
	for _, line := range lines[1:] {
		if line.Page < min {
			min = line.Page
		}
	}
	return min
}

// lastTOCPage returns the last page carrying a table-of-contents title line,
// or zero when the document has none. Everything up to and including that
// page is front matter.
func lastTOCPage(lines []ClassifiedLine) int {
	last := 0
	for _, line := range lines {
		if tocTitlePattern.MatchString(line.Text) && line.Page > last {
			last = line.Page
		}
	}
	return last
}

func (b *Builder) handleExcluded(st *buildState, line ClassifiedLine) {
	st.para = nil
	reason := line.Label
	if reason == "" {
		reason = "untranslated"
	}
	if st.open != nil && st.open.Reason == reason && line.Page <= st.open.EndPage+1 {
		if line.Page > st.open.EndPage {
			st.open.EndPage = line.Page
		}
		return
	}
	b.closeExcluded(st)
	st.open = &ExcludedRange{StartPage: line.Page, EndPage: line.Page, Reason: reason}
}

func (b *Builder) closeExcluded(st *buildState) {
	if st.open == nil {
		return
	}
	st.doc.ExcludedRanges = append(st.doc.ExcludedRanges, *st.open)
	st.open = nil
}

func (b *Builder) handleAppendix(st *buildState, line ClassifiedLine) {
	st.para = nil
	st.stack = nil
	st.started = true
	section := &Section{
		Kind:       SectionAppendix,
		Letter:     line.Label,
		Ordinal:    len(st.doc.Sections),
		Title:      line.Text,
		Paragraphs: []*Paragraph{},
	}
	st.doc.Sections = append(st.doc.Sections, section)
	st.section = section
	st.target = section
}

func (b *Builder) handleHeading(st *buildState, line ClassifiedLine) {
	st.para = nil
	st.started = true
	sub := &Section{
		Kind:       st.section.Kind,
		Ordinal:    len(st.section.Subsections),
		Title:      line.Body,
		Paragraphs: []*Paragraph{},
	}
	st.section.Subsections = append(st.section.Subsections, sub)
	st.target = sub
}

func (b *Builder) handleNumbered(st *buildState, line ClassifiedLine) {
	st.started = true
	label := line.Label
	if st.section.Kind == SectionAppendix && st.section.Letter != "" && isAllDigits(label) {
		label = st.section.Letter + label
	}

	b.checkContinuity(st, label)

	para := &Paragraph{
		ID:             st.doc.StandardID + ":" + label,
		NumberingLabel: &label,
		Text:           line.Body,
		Page:           line.Page,
	}
	scanFootnoteRefs(para, line.Body)
	st.doc.RegisterParagraph(para)
	st.target.Paragraphs = append(st.target.Paragraphs, para)
	st.para = para
}

// checkContinuity compares a new numbering label against the open stack and
// records gap, regression, and depth-jump anomalies. The stack is then
// adjusted so later siblings compare against this label.
func (b *Builder) checkContinuity(st *buildState, label string) {
	depth := LabelDepth(label)
	if depth > len(st.stack)+1 {
		st.doc.AddAnomaly("numbering_continuity", st.doc.StandardID+":"+label,
			fmt.Sprintf("depth jump from %d to %d", len(st.stack), depth))
		depth = len(st.stack) + 1
	}

	if len(st.stack) >= depth {
		sibling := st.stack[depth-1]
		sibNum, sibOK := lastComponentNumber(sibling)
		newNum, newOK := lastComponentNumber(label)
		if sibOK && newOK {
			switch {
			case newNum < sibNum:
				st.doc.AddAnomaly("numbering_continuity", st.doc.StandardID+":"+label,
					fmt.Sprintf("label %s regresses after %s", label, sibling))
			case newNum > sibNum+1:
				st.doc.AddAnomaly("numbering_continuity", st.doc.StandardID+":"+label,
					fmt.Sprintf("gap between %s and %s", sibling, label))
			}
		}
	}

	st.stack = append(st.stack[:depth-1], label)
}

// lastComponentNumber extracts the numeric part of a label's last dotted
// component, ignoring any letter suffix ("12.3" -> 3, "20A" -> 20).
func lastComponentNumber(label string) (int, bool) {
	if idx := strings.LastIndex(label, "."); idx >= 0 {
		label = label[idx+1:]
	}
	end := 0
	for end < len(label) && label[end] >= '0' && label[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(label[:end])
	return n, err == nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (b *Builder) handleDefinition(st *buildState, line ClassifiedLine) {
	st.para = nil
	key := NormalizeTerm(line.Label)
	for _, def := range st.doc.Definitions {
		if NormalizeTerm(def.Term) == key {
			st.doc.AddAnomaly("definition_backrefs", line.Label, "duplicate definition term")
			return
		}
	}
	st.doc.Definitions = append(st.doc.Definitions, &Definition{
		Term: line.Label,
		Body: line.Body,
		Refs: []string{},
		Page: line.Page,
	})
}

func (b *Builder) handlePlain(st *buildState, line ClassifiedLine) {
	if !st.started {
		return
	}
	if st.para != nil {
		st.para.Text = st.para.Text + " " + line.Text
		scanFootnoteRefs(st.para, line.Text)
		return
	}
	st.plain++
	para := &Paragraph{
		ID:   fmt.Sprintf("%s:p%d", st.doc.StandardID, st.plain),
		Text: line.Text,
		Page: line.Page,
	}
	scanFootnoteRefs(para, line.Text)
	st.doc.RegisterParagraph(para)
	st.target.Paragraphs = append(st.target.Paragraphs, para)
	st.para = para
}

// flushRegion resolves a pending table region: a confirmed grid attaches to
// the current paragraph, anything else reverts to plain paragraph text.
func (b *Builder) flushRegion(st *buildState) {
	if len(st.region) == 0 {
		return
	}
	region := st.region
	st.region = nil

	if table, ok := b.tables.Reconstruct(region); ok {
		carrier := st.para
		if carrier == nil {
			st.plain++
			carrier = &Paragraph{
				ID:   fmt.Sprintf("%s:p%d", st.doc.StandardID, st.plain),
				Page: region[0].Page,
			}
			st.doc.RegisterParagraph(carrier)
			st.target.Paragraphs = append(st.target.Paragraphs, carrier)
			st.para = carrier
		}
		carrier.Tables = append(carrier.Tables, table)
		if !table.WellFormed() {
			st.doc.AddAnomaly("table_wellformedness", carrier.ID, "ragged table rows")
		}
		return
	}

	text := revertText(region)
	if st.para != nil {
		st.para.Text = st.para.Text + " " + text
		scanFootnoteRefs(st.para, text)
		return
	}
	b.handlePlain(st, ClassifiedLine{
		LogicalLine: LogicalLine{Page: region[0].Page, Text: text},
		Role:        RolePlainParagraph,
	})
}

// scanFootnoteRefs collects superscript footnote markers from paragraph text.
func scanFootnoteRefs(p *Paragraph, text string) {
	for _, m := range footnoteRefPattern.FindAllString(text, -1) {
		marker := normalizeMarker(m)
		seen := false
		for _, existing := range p.FootnoteRefs {
			if existing == marker {
				seen = true
				break
			}
		}
		if !seen {
			p.FootnoteRefs = append(p.FootnoteRefs, marker)
		}
	}
}

func aggregateStats(lines []ClassifiedLine) ClassificationStats {
	stats := ClassificationStats{Lines: len(lines)}
	if len(lines) == 0 {
		return stats
	}
	total := 0.0
	for _, line := range lines {
		total += line.Confidence
		if line.Confidence < 0.5 {
			stats.LowConfidence++
		}
	}
	stats.MeanConfidence = total / float64(len(lines))
	return stats
}
