package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFExtractor reads the text layer of a PDF file and converts it into
// PositionedRuns. Validation runs through pdfcpu before ledongthuc/pdf reads
// the text layer; a file that fails relaxed validation has no usable stream.
type PDFExtractor struct {
	path string
}

// NewPDFExtractor creates an extractor for the given file path.
func NewPDFExtractor(path string) *PDFExtractor {
	return &PDFExtractor{path: path}
}

// Validate checks that the file exists and parses as a PDF under relaxed
// validation, and returns the authoritative page count.
func (e *PDFExtractor) Validate() (int, error) {
	file, err := os.Open(e.path)
	if err != nil {
		return 0, &ExtractionError{Op: "open", Path: e.path, Err: err}
	}
	defer file.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(file, conf)
	if err != nil {
		return 0, &ExtractionError{Op: "validate", Path: e.path, Err: fmt.Errorf("failed to read PDF context: %w", err)}
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, &ExtractionError{Op: "validate", Path: e.path, Err: fmt.Errorf("failed to ensure page count: %w", err)}
	}

	return ctx.PageCount, nil
}

// Extract reads every page's text layer and returns the full RunSet. A page
// whose text layer cannot be read is left blank; extraction continues with
// the remaining pages.
func (e *PDFExtractor) Extract() (*RunSet, error) {
	pageCount, err := e.Validate()
	if err != nil {
		return nil, err
	}

	f, reader, err := pdf.Open(e.path)
	if err != nil {
		return nil, &ExtractionError{Op: "open_text_layer", Path: e.path, Err: err}
	}
	defer f.Close()

	rs := &RunSet{PageCount: pageCount}

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		content := page.Content()
		order := 0
		for _, text := range content.Text {
			if strings.TrimSpace(text.S) == "" {
				continue
			}

			// ledongthuc/pdf does not report glyph height; fall back to
			// the font size the way the text layer renders it.
			height := text.FontSize
			if height == 0 {
				height = 12.0
			}

			rs.Runs = append(rs.Runs, PositionedRun{
				Text:     text.S,
				Page:     pageNum,
				X0:       text.X,
				Y0:       text.Y,
				X1:       text.X + text.W,
				Y1:       text.Y + height,
				FontName: text.Font,
				FontSize: text.FontSize,
				Order:    order,
			})
			order++
		}
	}

	rs.Sort()
	return rs, nil
}

var standardIDPattern = regexp.MustCompile(`(?i)(IAS|IFRS)[_\s-]*(\d+)`)

// StandardIDFromPath derives a standard identifier (e.g. "IAS_16") from the
// input filename. Falls back to a sanitized form of the filename stem.
func StandardIDFromPath(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if m := standardIDPattern.FindStringSubmatch(stem); m != nil {
		return fmt.Sprintf("%s_%s", strings.ToUpper(m[1]), m[2])
	}
	sanitized := strings.NewReplacer(" ", "_", "-", "_").Replace(stem)
	return sanitized
}
