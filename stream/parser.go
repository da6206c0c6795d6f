// Package stream cuts a never-ending XMPP byte stream into top-level
// stanza documents.
//
// The stream parser wraps the sax tokenizer: the outermost element's
// start tag is surfaced as a StreamOpen event with all its attributes,
// each direct child element becomes one Stanza event carrying a fully
// parsed dom.Document, and the outer end tag becomes StreamClose. The
// parser is feed-driven and sans-IO; it never blocks, and between
// complete stanzas it holds no more than the bytes of the stanza in
// progress.
package stream

import (
	"github.com/meduketto/iksemel-go/dom"
	"github.com/meduketto/iksemel-go/ikserr"
	"github.com/meduketto/iksemel-go/sax"
)

// EventKind identifies the type of a stream Event.
type EventKind uint8

const (
	// KindNone means no event; the parser needs more input.
	KindNone EventKind = iota
	// KindStreamOpen reports the outermost element's start tag with
	// its attributes. Emitted exactly once per stream.
	KindStreamOpen
	// KindStanza carries one complete top-level child element as a
	// parsed document.
	KindStanza
	// KindStreamClose reports the outer end tag. No further events
	// follow.
	KindStreamClose
)

func (k EventKind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindStreamOpen:
		return "StreamOpen"
	case KindStanza:
		return "Stanza"
	case KindStreamClose:
		return "StreamClose"
	}
	return "EventKind(?)"
}

// Event is a single stream parser output.
type Event struct {
	Kind EventKind

	// Name and Attrs are set for KindStreamOpen. They are copies and
	// stay valid indefinitely.
	Name  string
	Attrs []dom.Attr

	// Stanza is set for KindStanza. Ownership passes to the caller.
	Stanza *dom.Document
}

type parserState uint8

const (
	stateHeader parserState = iota
	stateBody
	stateClosed
)

// Parser frames an XMPP stream into stanza documents.
//
// Feed bytes as they arrive and pull events with Next until it
// returns a KindNone event. The parser never calls Finish on the
// tokenizer: a stream has no natural end of input, only the outer
// end tag.
type Parser struct {
	tok     *sax.Tokenizer
	builder *dom.Builder
	err     error

	state parserState
	depth int

	name  string
	attrs []dom.Attr

	pendingClose bool
}

// NewParser returns a stream parser. Builder options apply to every
// stanza document it produces.
func NewParser(opts ...dom.BuilderOption) *Parser {
	return &Parser{
		tok:     sax.NewTokenizer(),
		builder: dom.NewBuilder(opts...),
	}
}

// Reset returns the parser to its initial state so a new stream can
// be parsed, as after an XMPP STARTTLS handshake.
func (p *Parser) Reset() {
	p.tok.Reset()
	p.builder.Take()
	p.err = nil
	p.state = stateHeader
	p.depth = 0
	p.name = ""
	p.attrs = nil
	p.pendingClose = false
}

// Feed hands the next chunk of the stream to the parser. Like the
// tokenizer it wraps, the previous chunk must be drained first.
func (p *Parser) Feed(data []byte) {
	if p.err != nil {
		return
	}
	p.tok.Feed(data)
}

// Next returns the next stream event. A KindNone event means the
// current chunk is drained. After an error or after StreamClose no
// further events are produced.
func (p *Parser) Next() (Event, error) {
	if p.err != nil {
		return Event{}, p.err
	}
	if p.pendingClose {
		p.pendingClose = false
		p.state = stateClosed
		return Event{Kind: KindStreamClose}, nil
	}
	for {
		ev, err := p.tok.Next()
		if err != nil {
			p.err = err
			return Event{}, err
		}
		if ev.Kind == sax.KindNone {
			return Event{}, nil
		}
		out, err := p.route(ev)
		if err != nil {
			p.err = err
			return Event{}, err
		}
		if out.Kind != KindNone {
			return out, nil
		}
	}
}

func (p *Parser) route(ev sax.Event) (Event, error) {
	switch p.state {
	case stateHeader:
		switch ev.Kind {
		case sax.KindStartTagOpen:
			p.name = string(ev.Name)
		case sax.KindAttribute:
			p.attrs = append(p.attrs, dom.Attr{Name: string(ev.Name), Value: string(ev.Value)})
		case sax.KindStartTagContent:
			p.state = stateBody
			return Event{Kind: KindStreamOpen, Name: p.name, Attrs: p.attrs}, nil
		case sax.KindStartTagEmpty:
			// The stream opened and closed in one tag.
			p.pendingClose = true
			return Event{Kind: KindStreamOpen, Name: p.name, Attrs: p.attrs}, nil
		}
		return Event{}, nil

	case stateBody:
		switch ev.Kind {
		case sax.KindStartTagOpen:
			p.depth++
		case sax.KindStartTagEmpty:
			p.depth--
		case sax.KindEndTag:
			if p.depth == 0 {
				// The outer end tag closes the stream.
				if string(ev.Name) != p.name {
					return Event{}, ikserr.New(ikserr.TagMismatch,
						ikserr.Msgf("</%s> closes stream <%s>", ev.Name, p.name))
				}
				p.state = stateClosed
				return Event{Kind: KindStreamClose}, nil
			}
			p.depth--
		case sax.KindCData:
			if p.depth == 0 {
				// Whitespace between stanzas is the XMPP keepalive;
				// anything else does not belong to any stanza.
				if !isAllWhitespace(ev.Value) {
					return Event{}, ikserr.New(ikserr.BadSyntax,
						ikserr.Msg("character data between stanzas"))
				}
				return Event{}, nil
			}
		}
		if err := p.builder.Append(ev); err != nil {
			return Event{}, err
		}
		if p.depth == 0 {
			switch ev.Kind {
			case sax.KindStartTagEmpty, sax.KindEndTag:
				return Event{Kind: KindStanza, Stanza: p.builder.Take()}, nil
			}
		}
		return Event{}, nil
	}

	// Closed: the tokenizer itself rejects further elements.
	return Event{}, nil
}

func isAllWhitespace(b []byte) bool {
	for _, c := range b {
		if c != ' ' && c != '\t' && c != '\r' && c != '\n' {
			return false
		}
	}
	return true
}
