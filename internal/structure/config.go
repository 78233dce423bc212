package structure

import "fmt"

// Config carries every tolerance and threshold the structural engine uses.
// It is immutable for the duration of a pipeline run and passed explicitly
// into each stage, so independent candidate runs never share state.
type Config struct {
	// LineBand is the vertical tolerance (points) for grouping runs into
	// one logical line.
	LineBand float64
	// RunMergeGap is the maximum horizontal gap (points) between two runs
	// of identical font/size that are merged as font-hinting artifacts.
	RunMergeGap float64
	// FurnitureMinPages is the number of pages an identical line must
	// recur on, at the same vertical band, to be stripped as furniture.
	FurnitureMinPages int

	// HeadingFontRatio is the minimum font-size ratio over the dominant
	// body font for a line to qualify as a heading.
	HeadingFontRatio float64
	// HeadingMaxLen is the maximum rune length of a heading line.
	HeadingMaxLen int

	// ColumnGap is the gap threshold (points) for the greedy 1-D
	// clustering of run positions into table column bands.
	ColumnGap float64
	// MinTableColumns is the minimum number of column bands for a region
	// to be confirmed as a table.
	MinTableColumns int

	// ForeignCharRatio is the proportion of non-Hebrew letters above
	// which a line counts as untranslated.
	ForeignCharRatio float64
	// ForeignRunMinLines is the number of consecutive foreign lines
	// required before the run is excluded.
	ForeignRunMinLines int

	// FootnoteFontRatio is the maximum font-size ratio under the dominant
	// body font for a line to qualify as a footnote entry.
	FootnoteFontRatio float64
	// FootnoteSearchRadius is the page distance searched when matching an
	// inline footnote marker to its entry.
	FootnoteSearchRadius int
}

// DefaultConfig returns the baseline engine configuration.
func DefaultConfig() Config {
	return Config{
		LineBand:             3.0,
		RunMergeGap:          1.5,
		FurnitureMinPages:    3,
		HeadingFontRatio:     1.15,
		HeadingMaxLen:        80,
		ColumnGap:            18.0,
		MinTableColumns:      2,
		ForeignCharRatio:     0.7,
		ForeignRunMinLines:   4,
		FootnoteFontRatio:    0.85,
		FootnoteSearchRadius: 1,
	}
}

// Validate checks the configuration for contradictions. An invalid engine
// configuration fails only the candidate that carries it.
func (c Config) Validate() error {
	if c.LineBand <= 0 {
		return fmt.Errorf("line band must be positive, got %v", c.LineBand)
	}
	if c.RunMergeGap < 0 {
		return fmt.Errorf("run merge gap must be non-negative, got %v", c.RunMergeGap)
	}
	if c.FurnitureMinPages < 2 {
		return fmt.Errorf("furniture page minimum must be at least 2, got %d", c.FurnitureMinPages)
	}
	if c.HeadingFontRatio <= 1.0 {
		return fmt.Errorf("heading font ratio must exceed 1.0, got %v", c.HeadingFontRatio)
	}
	if c.HeadingMaxLen <= 0 {
		return fmt.Errorf("heading max length must be positive, got %d", c.HeadingMaxLen)
	}
	if c.ColumnGap <= 0 {
		return fmt.Errorf("column gap must be positive, got %v", c.ColumnGap)
	}
	if c.MinTableColumns < 2 {
		return fmt.Errorf("minimum table columns must be at least 2, got %d", c.MinTableColumns)
	}
	if c.ForeignCharRatio <= 0 || c.ForeignCharRatio > 1 {
		return fmt.Errorf("foreign char ratio must be in (0,1], got %v", c.ForeignCharRatio)
	}
	if c.ForeignRunMinLines < 1 {
		return fmt.Errorf("foreign run minimum must be positive, got %d", c.ForeignRunMinLines)
	}
	if c.FootnoteFontRatio <= 0 || c.FootnoteFontRatio >= 1 {
		return fmt.Errorf("footnote font ratio must be in (0,1), got %v", c.FootnoteFontRatio)
	}
	if c.FootnoteSearchRadius < 0 {
		return fmt.Errorf("footnote search radius must be non-negative, got %d", c.FootnoteSearchRadius)
	}
	return nil
}
