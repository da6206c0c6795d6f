package sax

import "fmt"

// EventKind identifies the type of a tokenizer Event.
type EventKind uint8

const (
	// KindNone means no event; the tokenizer needs more input.
	KindNone EventKind = iota
	// KindStartTagOpen is emitted when "<name" has been seen. Any
	// attributes of the element follow before KindStartTagContent or
	// KindStartTagEmpty.
	KindStartTagOpen
	// KindAttribute is one attribute within an open start tag.
	KindAttribute
	// KindStartTagContent closes a non-empty start tag; character
	// data and child elements follow.
	KindStartTagContent
	// KindStartTagEmpty closes an empty element ("/>"); no children
	// follow.
	KindStartTagEmpty
	// KindEndTag is an end tag ("</name>").
	KindEndTag
	// KindCData is a run of character data. A run may be split
	// across feeds but is never split within one feed unless markup
	// interrupts it.
	KindCData
)

func (k EventKind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindStartTagOpen:
		return "StartTagOpen"
	case KindAttribute:
		return "Attribute"
	case KindStartTagContent:
		return "StartTagContent"
	case KindStartTagEmpty:
		return "StartTagEmpty"
	case KindEndTag:
		return "EndTag"
	case KindCData:
		return "CData"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a single tokenizer output.
//
// Name and Value are windows into buffers owned by the Tokenizer and
// remain valid only until the next call to Next or Feed. Callers that
// need the content longer must copy it out.
type Event struct {
	Kind EventKind

	// Name is the element name for KindStartTagOpen,
	// KindStartTagContent, KindStartTagEmpty and KindEndTag, and the
	// attribute name for KindAttribute.
	Name []byte

	// Value is the attribute value for KindAttribute, with character
	// and entity references already expanded and whitespace
	// normalized, or the text for KindCData.
	Value []byte
}

func (e Event) String() string {
	switch e.Kind {
	case KindAttribute:
		return fmt.Sprintf("%s(%s=%q)", e.Kind, e.Name, e.Value)
	case KindCData:
		return fmt.Sprintf("%s(%q)", e.Kind, e.Value)
	case KindNone:
		return e.Kind.String()
	default:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Name)
	}
}
