package dom

import (
	"github.com/meduketto/iksemel-go/ikserr"
	"github.com/meduketto/iksemel-go/sax"
)

// Parser drives the sax tokenizer to build a Document. Input can be
// handed over in arbitrary chunks; a parser stays in its first error
// state until Reset.
type Parser struct {
	tok     *sax.Tokenizer
	builder *Builder
	err     error
}

// NewParser returns a document parser.
func NewParser(opts ...BuilderOption) *Parser {
	return &Parser{
		tok:     sax.NewTokenizer(),
		builder: NewBuilder(opts...),
	}
}

// NewParserSize returns a document parser tuned for an input of
// approximately the given number of bytes.
func NewParserSize(sizeHint int, opts ...BuilderOption) *Parser {
	opts = append(opts, WithDocumentOptions(WithSizeHint(sizeHint)))
	return NewParser(opts...)
}

// Parse consumes the next chunk of the document.
func (p *Parser) Parse(data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.tok.Feed(data)
	for {
		ev, err := p.tok.Next()
		if err != nil {
			p.err = err
			return err
		}
		if ev.Kind == sax.KindNone {
			return nil
		}
		if err := p.builder.Append(ev); err != nil {
			p.err = err
			return err
		}
	}
}

// Document signals end of input and hands over the finished tree.
func (p *Parser) Document() (*Document, error) {
	if p.err != nil {
		return nil, p.err
	}
	if err := p.tok.Finish(); err != nil {
		p.err = err
		return nil, err
	}
	doc := p.builder.Take()
	if doc == nil {
		p.err = ikserr.New(ikserr.NoRoot)
		return nil, p.err
	}
	return doc, nil
}

// Location returns the input position the parser is at.
func (p *Parser) Location() sax.Location {
	return p.tok.Location()
}

// Reset prepares the parser for a fresh document, keeping allocated
// buffers.
func (p *Parser) Reset() {
	p.tok.Reset()
	p.builder.Take()
	p.err = nil
}

// ParseBytes parses a complete document held in data.
func ParseBytes(data []byte, opts ...BuilderOption) (*Document, error) {
	p := NewParserSize(len(data), opts...)
	if err := p.Parse(data); err != nil {
		return nil, err
	}
	return p.Document()
}

// ParseString parses a complete document held in s.
func ParseString(s string, opts ...BuilderOption) (*Document, error) {
	return ParseBytes([]byte(s), opts...)
}
