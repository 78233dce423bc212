package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linkTestDocument() *Document {
	doc := NewDocument("IAS_16")
	section := &Section{Kind: SectionMain, Paragraphs: []*Paragraph{}}
	doc.Sections = append(doc.Sections, section)
	return doc
}

func addParagraph(doc *Document, id, text string, page int, refs ...string) *Paragraph {
	para := &Paragraph{ID: id, Text: text, Page: page, FootnoteRefs: refs}
	doc.RegisterParagraph(para)
	doc.Sections[0].Paragraphs = append(doc.Sections[0].Paragraphs, para)
	return para
}

func TestLinkDefinitionBackrefs(t *testing.T) {
	doc := linkTestDocument()
	addParagraph(doc, "IAS_16:7", "הישות תכיר בנכס רק כאשר צפויות הטבות", 2)
	addParagraph(doc, "IAS_16:8", "פסקה שאינה משתמשת במונח המוגדר", 2)
	doc.Definitions = append(doc.Definitions, &Definition{Term: "נכס", Body: "משאב בשליטת הישות", Refs: []string{}, Page: 3})

	NewLinker(DefaultConfig()).Link(doc)

	require.Len(t, doc.Definitions, 1)
	assert.Equal(t, []string{"IAS_16:7"}, doc.Definitions[0].Refs)
	assert.Empty(t, doc.Anomalies)
}

func TestLinkUnusedDefinition(t *testing.T) {
	doc := linkTestDocument()
	addParagraph(doc, "IAS_16:7", "פסקה שאינה מזכירה את המונח", 2)
	doc.Definitions = append(doc.Definitions, &Definition{Term: "שווי הוגן", Body: "המחיר שהיה מתקבל", Refs: []string{}, Page: 3})

	NewLinker(DefaultConfig()).Link(doc)

	require.Len(t, doc.Anomalies, 1)
	assert.Equal(t, "definition_backrefs", doc.Anomalies[0].Rule)
	assert.Equal(t, "unused definition", doc.Anomalies[0].Message)
}

func TestLinkFootnoteAnchor(t *testing.T) {
	doc := linkTestDocument()
	addParagraph(doc, "IAS_16:7", "הנכס יימדד לפי עלות¹", 2, "1")
	doc.Footnotes = append(doc.Footnotes, &Footnote{Marker: "1", Body: "הערת שוליים", Page: 2})

	NewLinker(DefaultConfig()).Link(doc)

	assert.Equal(t, "IAS_16:7", doc.Footnotes[0].Anchor)
	assert.Empty(t, doc.Anomalies)
}

func TestLinkFootnoteOnAdjacentPage(t *testing.T) {
	doc := linkTestDocument()
	addParagraph(doc, "IAS_16:7", "הנכס יימדד לפי עלות¹", 2, "1")
	doc.Footnotes = append(doc.Footnotes, &Footnote{Marker: "1", Body: "הערת שוליים", Page: 3})

	NewLinker(DefaultConfig()).Link(doc)

	assert.Equal(t, "IAS_16:7", doc.Footnotes[0].Anchor)
}

func TestLinkUnresolvedFootnoteReference(t *testing.T) {
	doc := linkTestDocument()
	addParagraph(doc, "IAS_16:7", "הנכס יימדד לפי עלות¹", 2, "1")
	// The only matching entry sits beyond the search radius.
	doc.Footnotes = append(doc.Footnotes, &Footnote{Marker: "1", Body: "הערת שוליים רחוקה", Page: 6})

	NewLinker(DefaultConfig()).Link(doc)

	messages := make(map[string]int)
	for _, a := range doc.Anomalies {
		messages[a.Message]++
	}
	assert.Equal(t, 1, messages["unresolved footnote reference"])
	assert.Equal(t, 1, messages["orphan footnote"])
	assert.Empty(t, doc.Footnotes[0].Anchor)
}

func TestLinkOrphanFootnote(t *testing.T) {
	doc := linkTestDocument()
	addParagraph(doc, "IAS_16:7", "פסקה ללא סימון הערה", 2)
	doc.Footnotes = append(doc.Footnotes, &Footnote{Marker: "2", Body: "הערה שאיש אינו מפנה אליה", Page: 2})

	NewLinker(DefaultConfig()).Link(doc)

	require.Len(t, doc.Anomalies, 1)
	assert.Equal(t, "orphan footnote", doc.Anomalies[0].Message)
}

func TestLinkEachFootnoteClaimedOnce(t *testing.T) {
	doc := linkTestDocument()
	addParagraph(doc, "IAS_16:7", "שימוש ראשון¹", 2, "1")
	addParagraph(doc, "IAS_16:8", "שימוש שני¹", 2, "1")
	doc.Footnotes = append(doc.Footnotes, &Footnote{Marker: "1", Body: "הערה יחידה", Page: 2})

	NewLinker(DefaultConfig()).Link(doc)

	assert.Equal(t, "IAS_16:7", doc.Footnotes[0].Anchor)
	// The second reference finds no free entry.
	require.Len(t, doc.Anomalies, 1)
	assert.Equal(t, "unresolved footnote reference", doc.Anomalies[0].Message)
	assert.Equal(t, "IAS_16:8", doc.Anomalies[0].Location)
}
