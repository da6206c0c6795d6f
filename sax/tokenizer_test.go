package sax

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meduketto/iksemel-go/ikserr"
)

type testEvent struct {
	kind  EventKind
	name  string
	value string
}

func (te testEvent) String() string {
	switch te.kind {
	case KindAttribute:
		return fmt.Sprintf("attr:%s=%s", te.name, te.value)
	case KindCData:
		return "cdata:" + te.value
	case KindStartTagOpen:
		return "open:" + te.name
	case KindStartTagContent:
		return "content:" + te.name
	case KindStartTagEmpty:
		return "empty:" + te.name
	case KindEndTag:
		return "end:" + te.name
	}
	return te.kind.String()
}

// collectEvents parses input in chunks of the given size and returns
// the event stream with adjacent character data runs joined, since
// runs are allowed to split at feed boundaries.
func collectEvents(input []byte, chunkSize int) ([]string, error) {
	tok := NewTokenizer()
	var events []testEvent
	add := func(ev Event) {
		te := testEvent{ev.Kind, string(ev.Name), string(ev.Value)}
		if te.kind == KindCData && len(events) > 0 && events[len(events)-1].kind == KindCData {
			events[len(events)-1].value += te.value
			return
		}
		events = append(events, te)
	}
	format := func() []string {
		var out []string
		for _, te := range events {
			out = append(out, te.String())
		}
		return out
	}
	for start := 0; start == 0 || start < len(input); start += chunkSize {
		end := start + chunkSize
		if end > len(input) {
			end = len(input)
		}
		tok.Feed(input[start:end])
		for {
			ev, err := tok.Next()
			if err != nil {
				return format(), err
			}
			if ev.Kind == KindNone {
				break
			}
			add(ev)
		}
		if len(input) == 0 {
			break
		}
	}
	if err := tok.Finish(); err != nil {
		return format(), err
	}
	return format(), nil
}

func TestTokenizerEvents(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  []string
	}{
		{
			input: "<doc/>",
			want:  []string{"open:doc", "empty:doc"},
		},
		{
			input: "<doc></doc>",
			want:  []string{"open:doc", "content:doc", "end:doc"},
		},
		{
			input: "<doc><a>123</a><b><a>456</a></b></doc>",
			want: []string{
				"open:doc", "content:doc",
				"open:a", "content:a", "cdata:123", "end:a",
				"open:b", "content:b",
				"open:a", "content:a", "cdata:456", "end:a",
				"end:b", "end:doc",
			},
		},
		{
			input: "<a x='1&amp;2'/>",
			want:  []string{"open:a", "attr:x=1&2", "empty:a"},
		},
		{
			input: `<a x="1" y='2'>t</a>`,
			want:  []string{"open:a", "attr:x=1", "attr:y=2", "content:a", "cdata:t", "end:a"},
		},
		{
			input: " \t\n<a/> \n",
			want:  []string{"open:a", "empty:a"},
		},
		{
			input: "<?xml version='1.0'?><a/>",
			want:  []string{"open:a", "empty:a"},
		},
		{
			input: `<?xml version="1.1" encoding="utf-8" standalone='yes'?><a/>`,
			want:  []string{"open:a", "empty:a"},
		},
		{
			input: "<!DOCTYPE a><a/>",
			want:  []string{"open:a", "empty:a"},
		},
		{
			input: "<!DOCTYPE a [ <!ELEMENT a EMPTY> ]><a/>",
			want:  []string{"open:a", "empty:a"},
		},
		{
			input: "<!--c--><a><!--d--></a><!--e->-->",
			want:  []string{"open:a", "content:a", "end:a"},
		},
		{
			input: "<?pi data?><a><?p2?></a>",
			want:  []string{"open:a", "content:a", "end:a"},
		},
		{
			input: "<a>x<!--c-->y</a>",
			want:  []string{"open:a", "content:a", "cdata:xy", "end:a"},
		},
		{
			input: "<a>1<![CDATA[<2>]]>3</a>",
			want:  []string{"open:a", "content:a", "cdata:1<2>3", "end:a"},
		},
		{
			input: "<a><![CDATA[x]]y]]>z</a>",
			want:  []string{"open:a", "content:a", "cdata:x]]yz", "end:a"},
		},
		{
			input: "<a>&lt;&gt;&amp;&apos;&quot;</a>",
			want:  []string{"open:a", "content:a", `cdata:<>&'"`, "end:a"},
		},
		{
			input: "<a>&#65;&#x42;&#x2764;</a>",
			want:  []string{"open:a", "content:a", "cdata:AB❤", "end:a"},
		},
		{
			input: "<a x='A&#9;B'/>",
			want:  []string{"open:a", "attr:x=A\tB", "empty:a"},
		},
		{
			input: "<a x='A\tB\nC\r\nD'/>",
			want:  []string{"open:a", "attr:x=A B C D", "empty:a"},
		},
		{
			input: "<a>L1\r\nL2\rL3</a>",
			want:  []string{"open:a", "content:a", "cdata:L1\nL2\nL3", "end:a"},
		},
		{
			input: "<aé>x</aé>",
			want:  []string{"open:aé", "content:aé", "cdata:x", "end:aé"},
		},
		{
			input: "<a>é世\U0001f600</a>",
			want:  []string{"open:a", "content:a", "cdata:é世\U0001f600", "end:a"},
		},
		{
			input: "<stream:s xmlns:stream='ns' from='srv'><msg>hi</msg></stream:s>",
			want: []string{
				"open:stream:s", "attr:xmlns:stream=ns", "attr:from=srv", "content:stream:s",
				"open:msg", "content:msg", "cdata:hi", "end:msg",
				"end:stream:s",
			},
		},
	} {
		for size := 1; size <= len(tc.input); size++ {
			t.Run(fmt.Sprintf("%s/%d", tc.input, size), func(t *testing.T) {
				got, err := collectEvents([]byte(tc.input), size)
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
			})
		}
	}
}

func TestTokenizerChunkSequence(t *testing.T) {
	ck := assert.New(t)

	tok := NewTokenizer()
	var got []string
	for _, chunk := range []string{"<d", "oc><x/", "></doc>"} {
		tok.Feed([]byte(chunk))
		for {
			ev, err := tok.Next()
			ck.NoError(err)
			if ev.Kind == KindNone {
				break
			}
			got = append(got, testEvent{ev.Kind, string(ev.Name), string(ev.Value)}.String())
		}
	}
	ck.NoError(tok.Finish())
	ck.Equal([]string{"open:doc", "content:doc", "open:x", "empty:x", "end:doc"}, got)
}

func TestTokenizerErrors(t *testing.T) {
	for _, tc := range []struct {
		input string
		kind  ikserr.Kind
	}{
		{"", ikserr.NoRoot},
		{"junk", ikserr.NoRoot},
		{"<a/>x", ikserr.JunkAfterRoot},
		{"<a/><b/>", ikserr.JunkAfterRoot},
		{"<a/", ikserr.UnexpectedEof},
		{"<a>", ikserr.UnexpectedEof},
		{"<a></a", ikserr.UnexpectedEof},
		{"<a><!-- ", ikserr.UnexpectedEof},
		{"</a>", ikserr.BadSyntax},
		{"< a/>", ikserr.BadSyntax},
		{"<a/ >", ikserr.BadSyntax},
		{"<a></a/>", ikserr.BadSyntax},
		{"<a></a b='1'>", ikserr.BadSyntax},
		{"<!-- x -- y --><a/>", ikserr.BadSyntax},
		{"<a>]]></a>", ikserr.BadSyntax},
		{"<a x='a<b'/>", ikserr.BadSyntax},
		{"<a x=1/>", ikserr.BadSyntax},
		{"<a x>", ikserr.BadSyntax},
		{"<a =1>", ikserr.BadChar},
		{"<![CDATA[x]]>", ikserr.BadSyntax},
		{"<a>&unknown;</a>", ikserr.BadEntity},
		{"<a>&averylongname;</a>", ikserr.BadEntity},
		{"<a>&;</a>", ikserr.BadEntity},
		{"<a>&#x;</a>", ikserr.BadEntity},
		{"<a>&#q;</a>", ikserr.BadEntity},
		{"<a>&#12a;</a>", ikserr.BadEntity},
		{"<!DOCTYPE a [ <!ENTITY e 'x'> ]><a>&e;</a>", ikserr.BadEntity},
		{"<a x='1' x='2'/>", ikserr.DuplicateAttribute},
		{"<1a/>", ikserr.BadChar},
		{"<a 1x='1'/>", ikserr.BadChar},
		{"<a$/>", ikserr.BadChar},
		{"<a>&#xD800;</a>", ikserr.BadChar},
		{"<a>&#2000000;</a>", ikserr.BadChar},
		{"<a>\x01</a>", ikserr.BadChar},
		{"\xff", ikserr.BadChar},
		{"<a>\xf8\x88\x80\x80\x80</a>", ikserr.BadChar},
		{"<a>\xed\xa0\x80</a>", ikserr.BadChar},
		{"<a>\xc0\x80</a>", ikserr.BadUtf8},
		{"<a>\x80</a>", ikserr.BadUtf8},
		{"<a>\xc3x</a>", ikserr.BadUtf8},
		{"<?xml version='2.0'?><a/>", ikserr.BadSyntax},
		{"<?xml encoding='UTF-8'?><a/>", ikserr.BadSyntax},
		{"<?xml version='1.0' standalone='maybe'?><a/>", ikserr.BadSyntax},
		{"<?xml version='1.0' encoding='ISO-8859-1'?><a/>", ikserr.UnsupportedEncoding},
		{"<?xml version='1.0' encoding='UTF-16'?><a/>", ikserr.UnsupportedEncoding},
	} {
		for size := 1; size == 1 || size <= len(tc.input); size++ {
			t.Run(fmt.Sprintf("%q/%d", tc.input, size), func(t *testing.T) {
				_, err := collectEvents([]byte(tc.input), size)
				require.Error(t, err)
				kind, ok := ikserr.KindOf(err)
				require.True(t, ok, "error %v has no kind", err)
				assert.Equal(t, tc.kind, kind, "error %v", err)
			})
		}
	}
}

func TestTokenizerErrorIsSticky(t *testing.T) {
	ck := assert.New(t)

	tok := NewTokenizer()
	tok.Feed([]byte("<a>&nope;</a>"))
	var err error
	for {
		var ev Event
		ev, err = tok.Next()
		if err != nil || ev.Kind == KindNone {
			break
		}
	}
	ck.Error(err)
	_, err2 := tok.Next()
	ck.Equal(err, err2)
	ck.Equal(err, tok.Finish())

	tok.Reset()
	tok.Feed([]byte("<a/>"))
	ev, err := tok.Next()
	ck.NoError(err)
	ck.Equal(KindStartTagOpen, ev.Kind)
}

func TestTokenizerSplitUtf8(t *testing.T) {
	ck := assert.New(t)

	// A four byte sequence split into one-byte feeds decodes to
	// exactly one code point.
	input := []byte("<a>\U0001f600</a>")
	got, err := collectEvents(input, 1)
	ck.NoError(err)
	ck.Equal([]string{"open:a", "content:a", "cdata:\U0001f600", "end:a"}, got)

	// The same split inside an attribute value.
	input = []byte("<a x='\U0001f600é'/>")
	for size := 1; size <= len(input); size++ {
		got, err = collectEvents(input, size)
		ck.NoError(err)
		ck.Equal([]string{"open:a", "attr:x=\U0001f600é", "empty:a"}, got)
	}
}

func TestTokenizerFeedMisusePanics(t *testing.T) {
	tok := NewTokenizer()
	tok.Feed([]byte("<a>text</a>"))
	ev, err := tok.Next()
	require.NoError(t, err)
	require.Equal(t, KindStartTagOpen, ev.Kind)
	assert.Panics(t, func() { tok.Feed([]byte("more")) })
}

func TestTokenizerLocation(t *testing.T) {
	ck := assert.New(t)

	tok := NewTokenizer()
	input := []byte("<a>\n12</a>")
	tok.Feed(input)
	for {
		ev, err := tok.Next()
		ck.NoError(err)
		if ev.Kind == KindNone {
			break
		}
	}
	loc := tok.Location()
	ck.Equal(len(input), loc.Bytes)
	ck.Equal(1, loc.Lines)
	ck.Equal("line 2 column 6 (byte 10)", loc.String())
}

func TestTokenizerErrorLocation(t *testing.T) {
	ck := assert.New(t)

	tok := NewTokenizer()
	tok.Feed([]byte("<a>\n  &bad;</a>"))
	var err error
	for err == nil {
		var ev Event
		ev, err = tok.Next()
		if ev.Kind == KindNone && err == nil {
			break
		}
	}
	ck.Error(err)
	e := &ikserr.Error{}
	ck.ErrorAs(err, &e)
	ck.True(e.HasLocation)
	ck.Equal(1, e.Line)
}
