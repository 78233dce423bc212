// Package output serializes the selected candidate's document and QA report
// into the output directory.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/finstd/standard2json/internal/qa"
	"github.com/finstd/standard2json/internal/structure"
)

const filePerm = 0o640

// Writer persists conversion results as pretty-printed JSON. Serialization
// is deterministic: identical documents produce byte-identical files.
type Writer struct {
	dir string
}

// NewWriter creates a writer targeting the given output directory.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Write persists both output files and returns their paths: the document as
// <standard_id>.json and the QA report as <standard_id>.qa.json.
func (w *Writer) Write(doc *structure.Document, report *qa.Report) (docPath, qaPath string, err error) {
	name := doc.StandardID
	if name == "" {
		name = "standard"
	}

	docPath = filepath.Join(w.dir, name+".json")
	if err = writeJSON(docPath, doc); err != nil {
		return "", "", fmt.Errorf("writing document: %w", err)
	}

	qaPath = filepath.Join(w.dir, name+".qa.json")
	if err = writeJSON(qaPath, report); err != nil {
		return "", "", fmt.Errorf("writing QA report: %w", err)
	}
	return docPath, qaPath, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
