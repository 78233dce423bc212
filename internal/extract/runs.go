// Package extract supplies the input boundary of the converter: positioned
// text runs read from a PDF text layer or from a previously dumped runs file.
package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// PositionedRun is one unit of positioned text as delivered by the text-layer
// extractor. Runs are immutable once produced; every pipeline stage derives
// new values instead of mutating them.
type PositionedRun struct {
	Text     string  `json:"text"`
	Page     int     `json:"page"`
	X0       float64 `json:"x0"`
	Y0       float64 `json:"y0"`
	X1       float64 `json:"x1"`
	Y1       float64 `json:"y1"`
	FontName string  `json:"font_name"`
	FontSize float64 `json:"font_size"`
	// Order is the visual extraction index within the page.
	Order int `json:"order"`
}

// Width returns the horizontal extent of the run.
func (r PositionedRun) Width() float64 {
	return r.X1 - r.X0
}

// CenterX returns the horizontal center of the run's bounding box.
func (r PositionedRun) CenterX() float64 {
	return (r.X0 + r.X1) / 2
}

// ExtractionError describes a failure at the input boundary.
type ExtractionError struct {
	Op   string
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// RunSet is an ordered collection of runs spanning one document.
type RunSet struct {
	Runs      []PositionedRun `json:"runs"`
	PageCount int             `json:"page_count"`
}

// ByPage returns the runs grouped by page number. Pages with no runs are
// absent from the map; callers that need them consult PageCount.
func (rs *RunSet) ByPage() map[int][]PositionedRun {
	pages := make(map[int][]PositionedRun)
	for _, run := range rs.Runs {
		pages[run.Page] = append(pages[run.Page], run)
	}
	return pages
}

// BlankPages returns the page numbers that yielded zero runs, ascending.
func (rs *RunSet) BlankPages() []int {
	seen := make(map[int]bool)
	for _, run := range rs.Runs {
		seen[run.Page] = true
	}
	var blank []int
	for p := 1; p <= rs.PageCount; p++ {
		if !seen[p] {
			blank = append(blank, p)
		}
	}
	return blank
}

// Sort orders runs by page, then by extraction order within the page. This is
// the canonical input order for the pipeline; reading order is reconstructed
// downstream by the normalizer.
func (rs *RunSet) Sort() {
	sort.SliceStable(rs.Runs, func(i, j int) bool {
		if rs.Runs[i].Page != rs.Runs[j].Page {
			return rs.Runs[i].Page < rs.Runs[j].Page
		}
		return rs.Runs[i].Order < rs.Runs[j].Order
	})
}

// LoadRunSet reads a runs dump produced by a prior extraction. The file holds
// a RunSet as JSON; this path exists so the structural pipeline can be driven
// without the PDF adapter, which is also how the tests exercise it.
func LoadRunSet(path string) (*RunSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ExtractionError{Op: "read_runs", Path: path, Err: err}
	}

	var rs RunSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, &ExtractionError{Op: "parse_runs", Path: path, Err: err}
	}

	if rs.PageCount == 0 {
		for _, run := range rs.Runs {
			if run.Page > rs.PageCount {
				rs.PageCount = run.Page
			}
		}
	}

	rs.Sort()
	return &rs, nil
}
