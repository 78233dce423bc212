package structure

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/finstd/standard2json/internal/extract"
)

// hebrewToLatin maps Hebrew letters to the Latin form used in canonical
// paragraph labels and appendix letters ("20א" becomes "20A", "נספח ב"
// becomes appendix "B").
var hebrewToLatin = map[rune]string{
	'א': "A", 'ב': "B", 'ג': "C", 'ד': "D", 'ה': "E",
	'ו': "V", 'ז': "Z", 'ח': "H", 'ט': "T", 'י': "I",
	'כ': "K", 'ל': "L", 'מ': "M", 'נ': "N", 'ס': "S",
	'ע': "O", 'פ': "P", 'צ': "Q", 'ק': "Q", 'ר': "R",
	'ש': "SH", 'ת': "TH",
}

func latinizeSuffix(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if latin, ok := hebrewToLatin[r]; ok {
			sb.WriteString(latin)
		} else {
			sb.WriteString(strings.ToUpper(string(r)))
		}
	}
	return sb.String()
}

var (
	// Dotted multi-level labels: "12.3", "4.2.1".
	dottedLabelPattern = regexp.MustCompile(`^(\d{1,3}(?:\.\d{1,2})+)\s+(.+)$`)
	// Leading-dot form produced by RTL extraction: ".16 text".
	dotNumberPattern = regexp.MustCompile(`^\.(\d{1,3})\s+(.+)$`)
	// Number with optional Hebrew/Latin suffix and dot: "7.", "20א.", "29A".
	numberSuffixPattern = regexp.MustCompile(`^(\d{1,3})\s*\.?\s*([א-תA-Z])?\s*\.\s*(.+)$`)
	// Number directly followed by a suffix letter: "20א text".
	numberTightSuffixPattern = regexp.MustCompile(`^(\d{1,3})([א-תA-Z])\s+(.+)$`)
	// Bare number: "7 text" (conservative, body must be substantial).
	plainNumberPattern = regexp.MustCompile(`^(\d{1,3})\s+(\D.{4,})$`)

	appendixHebrewPattern  = regexp.MustCompile(`נספח\s*([א-ת])`)
	appendixEnglishPattern = regexp.MustCompile(`(?i)\bAppendix\s+([A-Z])\b`)

	footnoteMarkerPattern = regexp.MustCompile(`^([¹²³⁴⁵⁶⁷⁸⁹*†‡]|\d{1,2})\s*[.)]?\s+(.+)$`)
	definitionPattern     = regexp.MustCompile(`^(.{2,60}?)\s*[–—:]\s+(.{10,})$`)

	definitionsTitlePattern = regexp.MustCompile(`הגדרות|(?i)\bdefinitions\b`)
	tocTitlePattern         = regexp.MustCompile(`תוכן\s+עניינים`)
)

var untranslatedMarkers = []string{"לא תורגם", "not translated", "untranslated", "under translation"}

// Classifier labels each logical line with a structural role. Detectors run
// in a fixed specificity order; the first match wins, and the confidence of
// the winner is derived from its score against the best losing detector.
type Classifier struct {
	config Config
}

// NewClassifier creates a classifier with the given engine configuration.
func NewClassifier(config Config) *Classifier {
	return &Classifier{config: config}
}

// labelMatch is the outcome of one role detector.
type labelMatch struct {
	role  Role
	score float64
	label string
	body  string
}

// Classify assigns a role to every line, order-preserving and one-to-one.
func (c *Classifier) Classify(lines []LogicalLine) []ClassifiedLine {
	bodyFont := dominantFontSize(lines)
	foreign := c.markForeignLines(lines)
	tableHint := c.markTableHints(lines)

	classified := make([]ClassifiedLine, 0, len(lines))
	inDefinitions := false

	for i, line := range lines {
		matches := c.evaluate(line, evalContext{
			bodyFont:      bodyFont,
			foreign:       foreign[i],
			tableHint:     tableHint[i],
			inDefinitions: inDefinitions,
		})

		winner := matches[0]
		runnerUp := 0.0
		for _, m := range matches[1:] {
			if m.score > runnerUp {
				runnerUp = m.score
			}
		}

		cl := ClassifiedLine{
			LogicalLine: line,
			Role:        winner.role,
			Label:       winner.label,
			Body:        winner.body,
			Confidence:  winner.score / (winner.score + runnerUp/2),
		}
		classified = append(classified, cl)

		// Definitions context opens at a definitions heading and closes
		// at the next heading or appendix boundary.
		switch winner.role {
		case RoleHeading:
			inDefinitions = definitionsTitlePattern.MatchString(line.Text)
		case RoleAppendixMarker:
			inDefinitions = false
		}
	}

	return classified
}

// evalContext carries the per-line signals the detectors need.
type evalContext struct {
	bodyFont      float64
	foreign       bool
	tableHint     bool
	inDefinitions bool
}

// evaluate runs every detector against the line and returns the matches in
// detector order, winner first. The final entry is the plain-paragraph
// fallback, which always matches.
func (c *Classifier) evaluate(line LogicalLine, ctx evalContext) []labelMatch {
	var matched []labelMatch
	var losers []labelMatch

	record := func(m labelMatch) {
		if m.score > 0 && len(matched) == 0 {
			matched = append(matched, m)
		} else if m.score > 0 {
			losers = append(losers, m)
		}
	}

	record(c.detectExcluded(line, ctx))
	record(c.detectAppendixMarker(line))
	record(c.detectFootnoteEntry(line, ctx))
	record(c.detectDefinitionEntry(line, ctx))
	record(c.detectNumberedParagraph(line))
	record(c.detectTableRow(line, ctx))
	record(c.detectHeading(line, ctx))
	record(labelMatch{role: RolePlainParagraph, score: 0.4, body: line.Text})

	return append(matched, losers...)
}

func (c *Classifier) detectExcluded(line LogicalLine, ctx evalContext) labelMatch {
	if ctx.foreign {
		return labelMatch{role: RoleExcluded, score: 1.0, label: "non-target script", body: line.Text}
	}
	lower := strings.ToLower(line.Text)
	for _, marker := range untranslatedMarkers {
		if strings.Contains(lower, marker) {
			return labelMatch{role: RoleExcluded, score: 1.0, label: "untranslated marker", body: line.Text}
		}
	}
	return labelMatch{role: RoleExcluded}
}

func (c *Classifier) detectAppendixMarker(line LogicalLine) labelMatch {
	if len([]rune(line.Text)) > c.config.HeadingMaxLen {
		return labelMatch{role: RoleAppendixMarker}
	}
	if m := appendixHebrewPattern.FindStringSubmatch(line.Text); m != nil {
		return labelMatch{role: RoleAppendixMarker, score: 0.95, label: latinizeSuffix(m[1]), body: line.Text}
	}
	if m := appendixEnglishPattern.FindStringSubmatch(line.Text); m != nil {
		return labelMatch{role: RoleAppendixMarker, score: 0.95, label: strings.ToUpper(m[1]), body: line.Text}
	}
	return labelMatch{role: RoleAppendixMarker}
}

func (c *Classifier) detectFootnoteEntry(line LogicalLine, ctx evalContext) labelMatch {
	if ctx.bodyFont <= 0 || line.FontSize > ctx.bodyFont*c.config.FootnoteFontRatio {
		return labelMatch{role: RoleFootnoteEntry}
	}
	if m := footnoteMarkerPattern.FindStringSubmatch(line.Text); m != nil {
		return labelMatch{role: RoleFootnoteEntry, score: 0.85, label: normalizeMarker(m[1]), body: m[2]}
	}
	return labelMatch{role: RoleFootnoteEntry}
}

func (c *Classifier) detectDefinitionEntry(line LogicalLine, ctx evalContext) labelMatch {
	if !ctx.inDefinitions {
		return labelMatch{role: RoleDefinitionEntry}
	}
	if m := definitionPattern.FindStringSubmatch(line.Text); m != nil {
		return labelMatch{role: RoleDefinitionEntry, score: 0.8, label: strings.TrimSpace(m[1]), body: strings.TrimSpace(m[2])}
	}
	return labelMatch{role: RoleDefinitionEntry}
}

func (c *Classifier) detectNumberedParagraph(line LogicalLine) labelMatch {
	if label, body, ok := DetectNumberingLabel(line.Text); ok {
		return labelMatch{role: RoleNumberedParagraph, score: 0.9, label: label, body: body}
	}
	return labelMatch{role: RoleNumberedParagraph}
}

func (c *Classifier) detectTableRow(line LogicalLine, ctx evalContext) labelMatch {
	if ctx.tableHint {
		return labelMatch{role: RoleTableRow, score: 0.7, body: line.Text}
	}
	return labelMatch{role: RoleTableRow}
}

func (c *Classifier) detectHeading(line LogicalLine, ctx evalContext) labelMatch {
	text := strings.TrimSpace(line.Text)
	if text == "" || len([]rune(text)) > c.config.HeadingMaxLen {
		return labelMatch{role: RoleHeading}
	}
	if strings.ContainsAny(text[len(text)-1:], ".!?,;") {
		return labelMatch{role: RoleHeading}
	}
	largeFont := ctx.bodyFont > 0 && line.FontSize >= ctx.bodyFont*c.config.HeadingFontRatio
	if !largeFont && !line.Bold {
		return labelMatch{role: RoleHeading}
	}
	score := 0.6
	if largeFont && line.Bold {
		score = 0.85
	}
	return labelMatch{role: RoleHeading, score: score, body: text}
}

// DetectNumberingLabel parses a leading paragraph numbering token from a
// line and returns the canonical label plus the remaining body text. Labels
// come in dotted form ("12.3"), leading-dot RTL form (".16"), suffixed form
// ("20א" → "20A"), and plain numbered form ("7.").
func DetectNumberingLabel(text string) (label, body string, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", "", false
	}

	if m := dottedLabelPattern.FindStringSubmatch(text); m != nil {
		return m[1], strings.TrimSpace(m[2]), true
	}
	if m := dotNumberPattern.FindStringSubmatch(text); m != nil {
		if body := strings.TrimSpace(m[2]); len(body) > 2 {
			return m[1], body, true
		}
	}
	if m := numberTightSuffixPattern.FindStringSubmatch(text); m != nil {
		if body := strings.TrimSpace(m[3]); len(body) > 2 {
			return m[1] + latinizeSuffix(m[2]), body, true
		}
	}
	if m := numberSuffixPattern.FindStringSubmatch(text); m != nil {
		if body := strings.TrimSpace(m[3]); len(body) > 2 {
			label := m[1]
			if m[2] != "" {
				label += latinizeSuffix(m[2])
			}
			return label, body, true
		}
	}
	if m := plainNumberPattern.FindStringSubmatch(text); m != nil {
		return m[1], strings.TrimSpace(m[2]), true
	}
	return "", "", false
}

// LabelDepth returns the nesting depth implied by a numbering label: one
// for "12" or "20A", two for "12.3", three for "4.2.1".
func LabelDepth(label string) int {
	if label == "" {
		return 0
	}
	return strings.Count(label, ".") + 1
}

// dominantFontSize returns the most common font size across lines, the
// document's body font. Sizes are bucketed to half points.
func dominantFontSize(lines []LogicalLine) float64 {
	counts := make(map[float64]int)
	for _, line := range lines {
		bucket := math.Round(line.FontSize*2) / 2
		if bucket > 0 {
			counts[bucket]++
		}
	}
	best, bestCount := 0.0, 0
	for size, count := range counts {
		if count > bestCount || (count == bestCount && size < best) {
			best, bestCount = size, count
		}
	}
	if best == 0 {
		return 12.0
	}
	return best
}

// markForeignLines flags runs of consecutive lines dominated by non-Hebrew
// script. Only runs of at least ForeignRunMinLines lines are excluded, so a
// single English citation inside Hebrew text survives.
func (c *Classifier) markForeignLines(lines []LogicalLine) []bool {
	marked := make([]bool, len(lines))
	runStart := -1
	flush := func(end int) {
		if runStart >= 0 && end-runStart >= c.config.ForeignRunMinLines {
			for i := runStart; i < end; i++ {
				marked[i] = true
			}
		}
		runStart = -1
	}
	for i, line := range lines {
		ratio, letters := hebrewLetterRatio(line.Text)
		foreign := letters >= 3 && (1-ratio) > c.config.ForeignCharRatio
		if foreign && runStart < 0 {
			runStart = i
		}
		if !foreign {
			flush(i)
		}
	}
	flush(len(lines))
	return marked
}

// markTableHints flags lines whose runs cluster into two or more column
// bands shared with an adjacent line. This is the provisional first pass;
// the table reconstructor confirms or reverts the region.
func (c *Classifier) markTableHints(lines []LogicalLine) []bool {
	counts := make([]int, len(lines))
	for i, line := range lines {
		counts[i] = len(clusterColumns(line.Runs, c.config.ColumnGap))
	}
	hints := make([]bool, len(lines))
	for i := range lines {
		if counts[i] < c.config.MinTableColumns || lines[i].Page == 0 {
			continue
		}
		prevMatch := i > 0 && counts[i-1] == counts[i] && lines[i-1].Page == lines[i].Page
		nextMatch := i+1 < len(lines) && counts[i+1] == counts[i] && lines[i+1].Page == lines[i].Page
		if prevMatch || nextMatch {
			hints[i] = true
		}
	}
	return hints
}

// clusterColumns performs greedy 1-D clustering of run horizontal centers
// into column bands separated by at least gap points.
func clusterColumns(runs []extract.PositionedRun, gap float64) []columnBand {
	centers := make([]float64, 0, len(runs))
	for _, run := range runs {
		centers = append(centers, run.CenterX())
	}
	return clusterColumnCenters(centers, gap)
}

// columnBand is one horizontal position range treated as a table column.
type columnBand struct {
	Min float64
	Max float64
}

// Contains reports whether x falls inside the band, with slack on each side.
func (b columnBand) Contains(x, slack float64) bool {
	return x >= b.Min-slack && x <= b.Max+slack
}

func clusterColumnCenters(centers []float64, gap float64) []columnBand {
	if len(centers) == 0 {
		return nil
	}
	sorted := make([]float64, len(centers))
	copy(sorted, centers)
	sort.Float64s(sorted)

	bands := []columnBand{{Min: sorted[0], Max: sorted[0]}}
	for _, x := range sorted[1:] {
		last := &bands[len(bands)-1]
		if x-last.Max <= gap {
			last.Max = x
		} else {
			bands = append(bands, columnBand{Min: x, Max: x})
		}
	}
	return bands
}

func normalizeMarker(marker string) string {
	replacer := strings.NewReplacer(
		"¹", "1", "²", "2", "³", "3", "⁴", "4", "⁵", "5",
		"⁶", "6", "⁷", "7", "⁸", "8", "⁹", "9",
	)
	return replacer.Replace(marker)
}
