package structure

import (
	"math"
	"sort"
	"strings"

	"github.com/finstd/standard2json/internal/extract"
)

// Normalizer turns raw positioned runs into logical reading-order lines:
// font-split runs are merged, runs sharing a vertical band become one line,
// run order within a line is rewritten from visual to right-to-left logical
// order, and repeating page furniture is stripped.
type Normalizer struct {
	config Config
}

// NewNormalizer creates a normalizer with the given engine configuration.
func NewNormalizer(config Config) *Normalizer {
	return &Normalizer{config: config}
}

// Normalize produces the logical line sequence for the whole document,
// ordered by page then top-to-bottom within the page.
func (n *Normalizer) Normalize(rs *extract.RunSet) []LogicalLine {
	var lines []LogicalLine
	pages := rs.ByPage()

	pageNums := make([]int, 0, len(pages))
	for p := range pages {
		pageNums = append(pageNums, p)
	}
	sort.Ints(pageNums)

	for _, pageNum := range pageNums {
		runs := n.mergeSplitRuns(pages[pageNum])
		for _, band := range n.groupIntoBands(runs) {
			line := n.buildLine(pageNum, band)
			if strings.TrimSpace(line.Text) == "" {
				continue
			}
			lines = append(lines, line)
		}
	}

	return n.stripFurniture(lines)
}

// mergeSplitRuns joins adjacent runs with identical font and size separated
// by at most RunMergeGap points on the same band. Such splits are font
// hinting artifacts, not word boundaries.
func (n *Normalizer) mergeSplitRuns(runs []extract.PositionedRun) []extract.PositionedRun {
	if len(runs) < 2 {
		return runs
	}

	sorted := make([]extract.PositionedRun, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if math.Abs(sorted[i].Y0-sorted[j].Y0) > n.config.LineBand {
			return sorted[i].Y0 > sorted[j].Y0
		}
		return sorted[i].X0 < sorted[j].X0
	})

	merged := []extract.PositionedRun{sorted[0]}
	for _, run := range sorted[1:] {
		last := &merged[len(merged)-1]
		sameBand := math.Abs(run.Y0-last.Y0) <= n.config.LineBand
		sameFont := run.FontName == last.FontName && run.FontSize == last.FontSize
		gap := run.X0 - last.X1
		if sameBand && sameFont && gap >= -0.1 && gap <= n.config.RunMergeGap {
			last.Text += run.Text
			last.X1 = run.X1
			if run.Y1 > last.Y1 {
				last.Y1 = run.Y1
			}
			continue
		}
		merged = append(merged, run)
	}
	return merged
}

// groupIntoBands groups a page's runs into vertical bands, top to bottom.
// Runs within LineBand points of a band's running average belong to it.
func (n *Normalizer) groupIntoBands(runs []extract.PositionedRun) [][]extract.PositionedRun {
	if len(runs) == 0 {
		return nil
	}

	// Strict top-to-bottom order; the banding loop below owns the
	// tolerance. A tolerance-aware comparator is not a strict weak
	// ordering across chained near-tolerance values.
	sorted := make([]extract.PositionedRun, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Y0 > sorted[j].Y0
	})

	var bands [][]extract.PositionedRun
	current := []extract.PositionedRun{sorted[0]}
	for _, run := range sorted[1:] {
		if math.Abs(run.Y0-averageY(current)) <= n.config.LineBand {
			current = append(current, run)
		} else {
			bands = append(bands, current)
			current = []extract.PositionedRun{run}
		}
	}
	bands = append(bands, current)
	return bands
}

func averageY(runs []extract.PositionedRun) float64 {
	total := 0.0
	for _, r := range runs {
		total += r.Y0
	}
	return total / float64(len(runs))
}

// buildLine orders a band's runs logically and assembles the line value.
func (n *Normalizer) buildLine(page int, band []extract.PositionedRun) LogicalLine {
	ordered := logicalOrder(band)

	line := LogicalLine{
		Page:  page,
		Runs:  ordered,
		Left:  band[0].X0,
		Right: band[0].X1,
		Top:   averageY(band),
	}

	var sizeTotal, boldWidth, totalWidth float64
	for _, run := range band {
		if run.X0 < line.Left {
			line.Left = run.X0
		}
		if run.X1 > line.Right {
			line.Right = run.X1
		}
		sizeTotal += run.FontSize
		w := run.Width()
		totalWidth += w
		if isBoldFont(run.FontName) {
			boldWidth += w
		}
	}
	line.FontSize = sizeTotal / float64(len(band))
	line.Bold = totalWidth > 0 && boldWidth/totalWidth > 0.5

	line.Text = assembleText(ordered)
	return line
}

// logicalOrder rewrites a band's runs from visual left-to-right order into
// logical reading order. For an RTL-dominant line the sequence reverses;
// maximal groups of embedded LTR runs (numbers, Latin abbreviations) keep
// their internal left-to-right order.
func logicalOrder(band []extract.PositionedRun) []extract.PositionedRun {
	visual := make([]extract.PositionedRun, len(band))
	copy(visual, band)
	sort.SliceStable(visual, func(i, j int) bool {
		return visual[i].X0 < visual[j].X0
	})

	var sb strings.Builder
	for _, run := range visual {
		sb.WriteString(run.Text)
	}
	if DetectDirection(sb.String()) != DirectionRTL {
		return visual
	}

	logical := make([]extract.PositionedRun, 0, len(visual))
	for i := len(visual) - 1; i >= 0; i-- {
		logical = append(logical, visual[i])
	}

	// Restore internal order of embedded LTR groups.
	start := -1
	for i := 0; i <= len(logical); i++ {
		embedded := i < len(logical) && isEmbeddedLTR(logical[i].Text)
		if embedded && start < 0 {
			start = i
		}
		if !embedded && start >= 0 {
			reverseRuns(logical[start:i])
			start = -1
		}
	}
	return logical
}

func reverseRuns(runs []extract.PositionedRun) {
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
}

// assembleText joins logically ordered runs, inserting a space wherever the
// visual gap between adjacent runs exceeds a fraction of the font size.
func assembleText(runs []extract.PositionedRun) string {
	var sb strings.Builder
	for i, run := range runs {
		if i > 0 {
			prev := runs[i-1]
			gap := prev.X0 - run.X1
			if run.X0 > prev.X1 {
				gap = run.X0 - prev.X1
			}
			threshold := run.FontSize * 0.15
			if threshold <= 0 {
				threshold = 1.0
			}
			if gap > threshold {
				sb.WriteString(" ")
			}
		}
		sb.WriteString(run.Text)
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// stripFurniture removes lines whose text recurs identically on at least
// FurnitureMinPages pages at the same vertical band. Furniture was never
// content, so it is dropped rather than excluded.
func (n *Normalizer) stripFurniture(lines []LogicalLine) []LogicalLine {
	type occurrence struct {
		pages map[int]bool
		tops  []float64
	}
	seen := make(map[string]*occurrence)
	for _, line := range lines {
		key := line.Text
		if len([]rune(key)) < 3 {
			continue
		}
		occ := seen[key]
		if occ == nil {
			occ = &occurrence{pages: make(map[int]bool)}
			seen[key] = occ
		}
		occ.pages[line.Page] = true
		occ.tops = append(occ.tops, line.Top)
	}

	furniture := make(map[string]bool)
	for text, occ := range seen {
		if len(occ.pages) < n.config.FurnitureMinPages {
			continue
		}
		if bandSpread(occ.tops) <= n.config.LineBand*2 {
			furniture[text] = true
		}
	}

	kept := make([]LogicalLine, 0, len(lines))
	for _, line := range lines {
		if furniture[line.Text] {
			continue
		}
		kept = append(kept, line)
	}
	return kept
}

func bandSpread(tops []float64) float64 {
	min, max := tops[0], tops[0]
	for _, t := range tops[1:] {
		if t < min {
			min = t
		}
		if t > max {
			max = t
		}
	}
	return max - min
}

func isBoldFont(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "bold") || strings.Contains(lower, "heavy") || strings.Contains(lower, "black")
}
