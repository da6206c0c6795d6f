package dom

import (
	"github.com/meduketto/iksemel-go/ikserr"
	"github.com/meduketto/iksemel-go/sax"
)

// Builder folds tokenizer events into a document tree. It validates
// element nesting, which the tokenizer does not: every end tag must
// match the innermost open start tag.
//
// The stream framer reuses one Builder for a whole session, taking a
// finished document after each top-level element.
type Builder struct {
	doc     *Document
	current nodeID
	open    []strRef

	opts              []Option
	discardWhitespace bool
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// DiscardWhitespace drops text nodes that consist entirely of XML
// whitespace. The default keeps them so a parse and serialize round
// trip is lossless.
func DiscardWhitespace() BuilderOption {
	return func(b *Builder) { b.discardWhitespace = true }
}

// WithDocumentOptions passes document construction options (size
// hints, memory limits) through to the documents the builder makes.
func WithDocumentOptions(opts ...Option) BuilderOption {
	return func(b *Builder) { b.opts = append(b.opts, opts...) }
}

// NewBuilder returns an empty Builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{current: nilNode}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Append folds one tokenizer event into the tree under construction.
func (b *Builder) Append(ev sax.Event) error {
	if b.doc == nil {
		if ev.Kind != sax.KindStartTagOpen {
			return ikserr.New(ikserr.NoRoot, ikserr.Msg("content before first start tag"))
		}
		doc, err := newEmptyDocument(b.opts...)
		if err != nil {
			return err
		}
		b.doc = doc
		b.current = doc.holder
	}

	switch ev.Kind {
	case sax.KindStartTagOpen:
		id, err := b.doc.appendElement(b.current, string(ev.Name))
		if err != nil {
			return err
		}
		b.open = append(b.open, b.doc.arena.node(id).name)
		b.current = id

	case sax.KindAttribute:
		if err := b.doc.insertAttribute(b.current, ev.Name, ev.Value); err != nil {
			return err
		}

	case sax.KindStartTagContent:
		// Children follow; the element stays current.

	case sax.KindStartTagEmpty:
		b.open = b.open[:len(b.open)-1]
		b.current = b.doc.arena.node(b.current).parent

	case sax.KindEndTag:
		top := b.open[len(b.open)-1]
		if b.doc.arena.str(top) != string(ev.Name) {
			return ikserr.New(ikserr.TagMismatch,
				ikserr.Msgf("</%s> closes <%s>", ev.Name, b.doc.arena.str(top)))
		}
		b.open = b.open[:len(b.open)-1]
		b.current = b.doc.arena.node(b.current).parent

	case sax.KindCData:
		if b.discardWhitespace && isAllWhitespace(ev.Value) {
			return nil
		}
		if _, err := b.doc.appendText(b.current, ev.Value); err != nil {
			return err
		}
	}
	return nil
}

// Depth returns how many elements are currently open.
func (b *Builder) Depth() int { return len(b.open) }

// Peek returns the document under construction, or nil.
func (b *Builder) Peek() *Document { return b.doc }

// Take hands over the built document and resets the builder for the
// next one.
func (b *Builder) Take() *Document {
	doc := b.doc
	b.doc = nil
	b.current = nilNode
	b.open = b.open[:0]
	return doc
}

func isAllWhitespace(b []byte) bool {
	for _, c := range b {
		if c != ' ' && c != '\t' && c != '\r' && c != '\n' {
			return false
		}
	}
	return true
}
