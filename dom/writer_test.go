package dom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterEscaping(t *testing.T) {
	ck := assert.New(t)

	doc, err := NewDocument("a")
	require.NoError(t, err)
	root := doc.Root()
	ck.NoError(root.SetAttribute("q", `he said "hi" & left <fast>`))
	_, err = root.AppendText(`1 < 2 > 0 & "quotes" stay`)
	ck.NoError(err)

	want := `<a q="he said &quot;hi&quot; &amp; left &lt;fast>">` +
		`1 &lt; 2 &gt; 0 &amp; "quotes" stay</a>`
	ck.Equal(want, doc.String())

	// The output parses back to the same values.
	doc2, err := ParseString(doc.String())
	require.NoError(t, err)
	ck.Equal(`he said "hi" & left <fast>`, doc2.Root().Attribute("q"))
	ck.Equal(`1 < 2 > 0 & "quotes" stay`, doc2.Root().FirstChild().Text())
}

func TestWriterEmptyElementForm(t *testing.T) {
	ck := assert.New(t)

	// <a/> and <a></a> are the same tree and serialize the same way.
	doc1 := mustParse(t, "<a/>")
	doc2 := mustParse(t, "<a></a>")
	ck.Equal("<a/>", doc1.String())
	ck.Equal("<a/>", doc2.String())

	// An element with an empty text child is not empty.
	doc3, err := NewDocument("a")
	require.NoError(t, err)
	_, err = doc3.Root().AppendText("")
	require.NoError(t, err)
	ck.Equal("<a></a>", doc3.String())
}

func TestWriterStrSizeMatches(t *testing.T) {
	for _, input := range []string{
		"<a/>",
		`<doc><a nr="0">1&amp;2</a><b x="&quot;"/>t&lt;t</doc>`,
		"<a>é世界</a>",
		"<a><b><c><d>deep</d></c></b></a>",
	} {
		t.Run(input, func(t *testing.T) {
			doc := mustParse(t, input)
			out := doc.String()
			assert.Equal(t, len(out), doc.Root().StrSize())
			assert.Equal(t, input, out)
		})
	}
}

func TestWriterDeclaration(t *testing.T) {
	ck := assert.New(t)

	doc := mustParse(t, "<a/>")
	var sb strings.Builder
	require.NoError(t, doc.Serialize(&sb, WithDeclaration()))
	ck.Equal(`<?xml version="1.0" encoding="UTF-8"?><a/>`, sb.String())

	sb.Reset()
	require.NoError(t, doc.Serialize(&sb))
	ck.Equal("<a/>", sb.String())
}

func TestWriterSubtree(t *testing.T) {
	ck := assert.New(t)

	doc := mustParse(t, "<doc><a>1</a><b><c/></b></doc>")
	ck.Equal("<b><c/></b>", doc.Root().FindChild("b").String())
	ck.Equal("<a>1</a>", doc.Root().FindChild("a").String())

	// Serializing a text node gives its escaped text.
	ck.Equal("1", doc.Root().FindChild("a").FirstChild().String())
}

type failingWriter struct{ after int }

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.after <= 0 {
		return 0, assert.AnError
	}
	f.after--
	return len(p), nil
}

func TestWriterSinkErrors(t *testing.T) {
	doc := mustParse(t, "<a><b>"+strings.Repeat("x", 4096)+"</b></a>")
	err := doc.Serialize(&failingWriter{after: 1})
	assert.Error(t, err)
}
