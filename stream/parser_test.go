package stream

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meduketto/iksemel-go/dom"
	"github.com/meduketto/iksemel-go/ikserr"
)

// collect feeds input in chunks of the given size and returns a
// compact description of every event.
func collect(input []byte, chunkSize int) ([]string, error) {
	p := NewParser()
	var out []string
	for start := 0; start < len(input); start += chunkSize {
		end := start + chunkSize
		if end > len(input) {
			end = len(input)
		}
		p.Feed(input[start:end])
		for {
			ev, err := p.Next()
			if err != nil {
				return out, err
			}
			if ev.Kind == KindNone {
				break
			}
			switch ev.Kind {
			case KindStreamOpen:
				s := "open:" + ev.Name
				for _, attr := range ev.Attrs {
					s += fmt.Sprintf(" %s=%s", attr.Name, attr.Value)
				}
				out = append(out, s)
			case KindStanza:
				out = append(out, "stanza:"+ev.Stanza.String())
			case KindStreamClose:
				out = append(out, "close")
			}
		}
	}
	return out, nil
}

func TestStreamParser(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  []string
	}{
		{
			input: "<stream:s xmlns:stream='ns' from='srv'><msg>hi</msg><msg>hi</msg></stream:s>",
			want: []string{
				"open:stream:s xmlns:stream=ns from=srv",
				"stanza:<msg>hi</msg>",
				"stanza:<msg>hi</msg>",
				"close",
			},
		},
		{
			input: "<s/>",
			want:  []string{"open:s", "close"},
		},
		{
			input: "<s></s>",
			want:  []string{"open:s", "close"},
		},
		{
			input: "<s><a/><b x='1'><c>deep</c></b></s>",
			want: []string{
				"open:s",
				"stanza:<a/>",
				`stanza:<b x="1"><c>deep</c></b>`,
				"close",
			},
		},
		{
			// Whitespace keepalives between stanzas are tolerated.
			input: "<s> \n <ping/> \n <ping/> \n </s>",
			want:  []string{"open:s", "stanza:<ping/>", "stanza:<ping/>", "close"},
		},
		{
			input: "<s><iq type='get' id='1'><query xmlns='jabber:iq:roster'/></iq></s>",
			want: []string{
				"open:s",
				`stanza:<iq type="get" id="1"><query xmlns="jabber:iq:roster"/></iq>`,
				"close",
			},
		},
	} {
		for size := 1; size <= len(tc.input); size++ {
			t.Run(fmt.Sprintf("%s/%d", tc.input, size), func(t *testing.T) {
				got, err := collect([]byte(tc.input), size)
				require.NoError(t, err)
				// Every chunk size must yield the same complete
				// event sequence.
				assert.Equal(t, tc.want, got)
			})
		}
	}
}

func TestStreamParserNeverEnding(t *testing.T) {
	ck := assert.New(t)

	// Stanzas keep coming without any end in sight; each is complete
	// the moment its end tag arrives.
	p := NewParser()
	p.Feed([]byte("<stream to='example.net'>"))
	ev, err := p.Next()
	ck.NoError(err)
	ck.Equal(KindStreamOpen, ev.Kind)
	ck.Equal("stream", ev.Name)
	ck.Equal([]dom.Attr{{Name: "to", Value: "example.net"}}, ev.Attrs)
	ev, err = p.Next()
	ck.NoError(err)
	ck.Equal(KindNone, ev.Kind)

	for i := 0; i < 100; i++ {
		p.Feed([]byte("<msg seq='x'>body</msg>"))
		ev, err = p.Next()
		ck.NoError(err)
		require.Equal(t, KindStanza, ev.Kind)
		ck.Equal(`<msg seq="x">body</msg>`, ev.Stanza.String())
		ev, err = p.Next()
		ck.NoError(err)
		ck.Equal(KindNone, ev.Kind)
	}
}

func TestStreamParserStanzaIsOwnDocument(t *testing.T) {
	ck := assert.New(t)

	p := NewParser()
	p.Feed([]byte("<s><a>1</a><b>2</b>"))
	ev, err := p.Next()
	ck.NoError(err)
	ck.Equal(KindStreamOpen, ev.Kind)

	ev, err = p.Next()
	ck.NoError(err)
	first := ev.Stanza
	ev, err = p.Next()
	ck.NoError(err)
	second := ev.Stanza

	// Each stanza lives in its own arena and can be edited freely.
	ck.NoError(first.Root().SetAttribute("seen", "yes"))
	ck.Equal(`<a seen="yes">1</a>`, first.String())
	ck.Equal("<b>2</b>", second.String())
}

func TestStreamParserErrors(t *testing.T) {
	for _, tc := range []struct {
		input string
		kind  ikserr.Kind
	}{
		{"<s><msg>hi</msg></wrong>", ikserr.TagMismatch},
		{"<s><a></b></a></s>", ikserr.TagMismatch},
		{"<s>loose text<msg/></s>", ikserr.BadSyntax},
		{"<s><msg>&nope;</msg></s>", ikserr.BadEntity},
		{"no markup", ikserr.NoRoot},
	} {
		t.Run(tc.input, func(t *testing.T) {
			_, err := collect([]byte(tc.input), len(tc.input))
			require.Error(t, err)
			kind, ok := ikserr.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tc.kind, kind, "error %v", err)
		})
	}
}

func TestStreamParserReset(t *testing.T) {
	ck := assert.New(t)

	p := NewParser()
	p.Feed([]byte("<old><x/>"))
	ev, err := p.Next()
	ck.NoError(err)
	ck.Equal(KindStreamOpen, ev.Kind)

	// As after a STARTTLS handshake: the stream restarts from
	// scratch on the freshly secured transport.
	p.Reset()
	p.Feed([]byte("<new from='srv'><y/></new>"))
	got := []string{}
	for {
		ev, err := p.Next()
		ck.NoError(err)
		if ev.Kind == KindNone {
			break
		}
		switch ev.Kind {
		case KindStreamOpen:
			got = append(got, "open:"+ev.Name)
		case KindStanza:
			got = append(got, "stanza:"+ev.Stanza.String())
		case KindStreamClose:
			got = append(got, "close")
		}
	}
	ck.Equal([]string{"open:new", "stanza:<y/>", "close"}, got)
}

func TestStreamParserDiscardWhitespaceOption(t *testing.T) {
	ck := assert.New(t)

	p := NewParser(dom.DiscardWhitespace())
	p.Feed([]byte("<s><msg>\n  <body>hi</body>\n</msg></s>"))
	_, err := p.Next() // open
	ck.NoError(err)
	ev, err := p.Next()
	ck.NoError(err)
	require.Equal(t, KindStanza, ev.Kind)
	ck.Equal("<msg><body>hi</body></msg>", ev.Stanza.String())
}
