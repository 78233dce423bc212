package structure

import "strings"

// Linker resolves cross references after the tree is built: definition terms
// are back-referenced to the paragraphs that use them, and inline footnote
// markers are matched to footnote entries. Linking never mutates paragraph
// text; it only fills reference lists and records anomalies.
type Linker struct {
	config Config
}

// NewLinker creates a linker with the given engine configuration.
func NewLinker(config Config) *Linker {
	return &Linker{config: config}
}

// Link resolves definition back-references and footnote anchors in place.
func (l *Linker) Link(doc *Document) {
	l.linkDefinitions(doc)
	l.linkFootnotes(doc)
}

// linkDefinitions scans every paragraph for occurrences of each defined term.
// Matching is by normalized form, so spacing and Latin case differences do
// not hide a use. A definition nothing refers to is recorded as an anomaly.
func (l *Linker) linkDefinitions(doc *Document) {
	type entry struct {
		def  *Definition
		norm string
	}
	entries := make([]entry, 0, len(doc.Definitions))
	for _, def := range doc.Definitions {
		norm := NormalizeTerm(def.Term)
		if norm == "" {
			continue
		}
		entries = append(entries, entry{def: def, norm: norm})
	}
	if len(entries) == 0 {
		return
	}

	doc.WalkParagraphs(func(_ *Section, p *Paragraph) {
		text := NormalizeTerm(p.Text)
		for _, e := range entries {
			if strings.Contains(text, e.norm) {
				e.def.Refs = append(e.def.Refs, p.ID)
			}
		}
	})

	for _, e := range entries {
		if len(e.def.Refs) == 0 {
			doc.AddAnomaly("definition_backrefs", e.def.Term, "unused definition")
		}
	}
}

// linkFootnotes matches inline markers to footnote entries on the same or an
// adjacent page, within the configured search radius. Each footnote anchors
// to at most one paragraph; an unmatched marker and an unanchored entry are
// both anomalies.
func (l *Linker) linkFootnotes(doc *Document) {
	type ref struct {
		para   *Paragraph
		marker string
	}
	var refs []ref
	doc.WalkParagraphs(func(_ *Section, p *Paragraph) {
		for _, marker := range p.FootnoteRefs {
			refs = append(refs, ref{para: p, marker: marker})
		}
	})

	claimed := make(map[*Footnote]bool)
	for _, r := range refs {
		note := l.findFootnote(doc, r.marker, r.para.Page, claimed)
		if note == nil {
			doc.AddAnomaly("footnote_resolution", r.para.ID,
				"unresolved footnote reference")
			continue
		}
		note.Anchor = r.para.ID
		claimed[note] = true
	}

	for _, note := range doc.Footnotes {
		if note.Anchor == "" {
			doc.AddAnomaly("footnote_resolution", "footnote "+note.Marker,
				"orphan footnote")
		}
	}
}

// findFootnote picks the unclaimed entry with the matching marker closest in
// page distance, preferring the earlier entry on a tie.
func (l *Linker) findFootnote(doc *Document, marker string, page int, claimed map[*Footnote]bool) *Footnote {
	var best *Footnote
	bestDist := l.config.FootnoteSearchRadius + 1
	for _, note := range doc.Footnotes {
		if claimed[note] || note.Marker != marker {
			continue
		}
		dist := note.Page - page
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			best = note
			bestDist = dist
		}
	}
	return best
}
