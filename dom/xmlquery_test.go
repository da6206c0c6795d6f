package dom

import (
	"strings"
	"testing"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests cross-check the writer and parser against an
// independent XML implementation: everything serialized here must be
// understood identically by xmlquery.

func TestWriterOutputAgainstXmlquery(t *testing.T) {
	ck := assert.New(t)

	doc, err := NewDocument("library")
	require.NoError(t, err)
	root := doc.Root()
	for i, title := range []string{"Systems", "Networks & Queues", `"Parsing"`} {
		book, err := root.AppendChildElement("book")
		require.NoError(t, err)
		ck.NoError(book.SetAttribute("id", string(rune('a'+i))))
		_, err = book.AppendText(title)
		require.NoError(t, err)
	}

	q, err := xmlquery.Parse(strings.NewReader(doc.String()))
	require.NoError(t, err)

	books := xmlquery.Find(q, "//book")
	require.Len(t, books, 3)
	ck.Equal("a", books[0].SelectAttr("id"))
	ck.Equal("Networks & Queues", books[1].InnerText())
	ck.Equal(`"Parsing"`, books[2].InnerText())

	one := xmlquery.FindOne(q, "/library/book[@id='b']")
	require.NotNil(t, one)
	ck.Equal("Networks & Queues", one.InnerText())
}

func TestParserAgreesWithXmlquery(t *testing.T) {
	ck := assert.New(t)

	const input = `<stream><msg from="alice" to="bob">hi &amp; bye</msg><msg from="bob" to="alice">ok</msg></stream>`

	doc, err := ParseString(input)
	require.NoError(t, err)
	q, err := xmlquery.Parse(strings.NewReader(input))
	require.NoError(t, err)

	// Same element names and text through both implementations.
	var ours []string
	for c := range doc.Root().Descendants() {
		if c.IsElement() {
			ours = append(ours, c.Name()+"="+c.TextContent())
		}
	}
	var theirs []string
	expr := xpath.MustCompile("//msg")
	for _, n := range xmlquery.QuerySelectorAll(q, expr) {
		theirs = append(theirs, n.Data+"="+n.InnerText())
	}
	ck.Equal(theirs, ours)

	// Attribute agreement.
	ourFirst := doc.Root().FirstChild()
	theirFirst := xmlquery.FindOne(q, "//msg[1]")
	require.NotNil(t, theirFirst)
	ck.Equal(theirFirst.SelectAttr("from"), ourFirst.Attribute("from"))
	ck.Equal(theirFirst.SelectAttr("to"), ourFirst.Attribute("to"))
}
