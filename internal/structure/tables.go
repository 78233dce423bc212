package structure

import (
	"sort"
	"strings"
)

// TableReconstructor materializes grid structures from contiguous runs of
// provisionally tagged table-row lines. A region is confirmed only when at
// least two consecutive lines share the same column-band count; regions that
// fail confirmation revert to plain paragraph text.
type TableReconstructor struct {
	config Config
}

// NewTableReconstructor creates a reconstructor with the given configuration.
func NewTableReconstructor(config Config) *TableReconstructor {
	return &TableReconstructor{config: config}
}

// Reconstruct attempts to build a table from a candidate region. The boolean
// result reports confirmation; on false the caller reverts the lines.
func (tr *TableReconstructor) Reconstruct(region []ClassifiedLine) (*Table, bool) {
	if len(region) < 2 {
		return nil, false
	}

	bands := tr.regionBands(region)
	if len(bands) < tr.config.MinTableColumns {
		return nil, false
	}

	// Confirmation: at least two consecutive lines must populate the same
	// number of bands.
	confirmed := false
	prevCount := -1
	for _, line := range region {
		count := tr.populatedBands(line, bands)
		if count >= tr.config.MinTableColumns && count == prevCount {
			confirmed = true
			break
		}
		prevCount = count
	}
	if !confirmed {
		return nil, false
	}

	table := &Table{Columns: len(bands)}
	for _, line := range region {
		row := make([]string, len(bands))
		for _, run := range line.Runs {
			idx := tr.bandIndex(run.CenterX(), bands)
			if idx < 0 {
				continue
			}
			if row[idx] != "" {
				row[idx] += " "
			}
			row[idx] += strings.TrimSpace(run.Text)
		}
		table.Rows = append(table.Rows, row)
	}

	table.HeaderRow = tr.detectHeaderRow(region)
	return table, true
}

// regionBands clusters the horizontal centers of every run in the region
// into shared column bands.
func (tr *TableReconstructor) regionBands(region []ClassifiedLine) []columnBand {
	var centers []float64
	for _, line := range region {
		for _, run := range line.Runs {
			centers = append(centers, run.CenterX())
		}
	}
	bands := clusterColumnCenters(centers, tr.config.ColumnGap)
	sort.Slice(bands, func(i, j int) bool { return bands[i].Min < bands[j].Min })
	return bands
}

func (tr *TableReconstructor) populatedBands(line ClassifiedLine, bands []columnBand) int {
	populated := make([]bool, len(bands))
	for _, run := range line.Runs {
		if idx := tr.bandIndex(run.CenterX(), bands); idx >= 0 {
			populated[idx] = true
		}
	}
	count := 0
	for _, p := range populated {
		if p {
			count++
		}
	}
	return count
}

func (tr *TableReconstructor) bandIndex(x float64, bands []columnBand) int {
	slack := tr.config.ColumnGap / 2
	for i, band := range bands {
		if band.Contains(x, slack) {
			return i
		}
	}
	return -1
}

// detectHeaderRow reports whether the first row's font differs systematically
// from the rest: bold where the others are not, or visibly larger.
func (tr *TableReconstructor) detectHeaderRow(region []ClassifiedLine) bool {
	if len(region) < 2 {
		return false
	}
	first := region[0]

	restBold := false
	var restSize float64
	for _, line := range region[1:] {
		if line.Bold {
			restBold = true
		}
		restSize += line.FontSize
	}
	restSize /= float64(len(region) - 1)

	if first.Bold && !restBold {
		return true
	}
	return restSize > 0 && first.FontSize >= restSize*1.1
}

// revertText joins a failed table region back into paragraph text.
func revertText(region []ClassifiedLine) string {
	parts := make([]string, 0, len(region))
	for _, line := range region {
		parts = append(parts, line.Text)
	}
	return strings.Join(parts, " ")
}
