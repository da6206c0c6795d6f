// Package ikserr defines the consolidated error taxonomy shared by the
// iksemel parsers and the document editing API.
//
// Every parser in the module (sax tokenizer, dom document parser, stream
// framer) reports failures as an *Error carrying a Kind, so callers can
// branch on the class of failure with KindOf or errors.Is without string
// matching. Editing methods on dom cursors use the same type with the
// editing kinds.
package ikserr

import (
	"fmt"
)

// Kind classifies an Error.
type Kind int

const (
	// UnsupportedEncoding indicates a non-UTF-8 encoding was declared
	// or detected in the input.
	UnsupportedEncoding Kind = iota
	// BadUtf8 indicates a malformed UTF-8 sequence in the input.
	BadUtf8
	// BadChar indicates a code point not allowed by the XML Char or
	// NameChar productions, including code points above U+10FFFF and
	// sequences longer than four bytes.
	BadChar
	// BadEntity indicates an undefined named entity or a malformed
	// character reference.
	BadEntity
	// BadSyntax indicates a structural error at the tokenizer level,
	// such as '<' inside an attribute value or '--' inside a comment.
	BadSyntax
	// TagMismatch indicates an end-tag name differing from the
	// innermost open start-tag name.
	TagMismatch
	// UnexpectedEof indicates end of input while a construct was
	// still open.
	UnexpectedEof
	// NoRoot indicates the input ended without a root element.
	NoRoot
	// JunkAfterRoot indicates content after the root element closed.
	JunkAfterRoot
	// DuplicateAttribute indicates the same attribute name appearing
	// twice on one element.
	DuplicateAttribute
	// NoMemory indicates an allocation was denied by the arena budget.
	NoMemory
	// InvalidName indicates an edit was given a string that is not a
	// valid XML Name.
	InvalidName
	// TreeCycle indicates an edit that would make a node an ancestor
	// of itself.
	TreeCycle
	// Detached indicates an operation on a subtree that is no longer
	// part of a live document.
	Detached
)

func (k Kind) String() string {
	switch k {
	case UnsupportedEncoding:
		return "unsupported-encoding"
	case BadUtf8:
		return "bad-utf8"
	case BadChar:
		return "bad-char"
	case BadEntity:
		return "bad-entity"
	case BadSyntax:
		return "bad-syntax"
	case TagMismatch:
		return "tag-mismatch"
	case UnexpectedEof:
		return "unexpected-eof"
	case NoRoot:
		return "no-root"
	case JunkAfterRoot:
		return "junk-after-root"
	case DuplicateAttribute:
		return "duplicate-attribute"
	case NoMemory:
		return "no-memory"
	case InvalidName:
		return "invalid-name"
	case TreeCycle:
		return "tree-cycle"
	case Detached:
		return "detached"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a parse or editing error with an optional input location.
type Error struct {
	Kind    Kind
	Message string

	// Byte, Line and Column describe the input position at which the
	// parser failed. Line and Column are zero based. The fields are
	// only meaningful when HasLocation is true; editing errors carry
	// no location.
	Byte        int
	Line        int
	Column      int
	HasLocation bool
}

func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Message != "" {
		s += ": " + e.Message
	}
	if e.HasLocation {
		s = fmt.Sprintf("%s at line %d column %d (byte %d)", s, e.Line+1, e.Column, e.Byte)
	}
	return s
}

// Is reports whether target is an *Error of the same Kind, so that
// errors.Is(err, ikserr.New(ikserr.BadChar)) matches regardless of
// message or location.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// New returns an *Error of the given kind with the options applied.
func New(kind Kind, opts ...Option) *Error {
	e := &Error{Kind: kind}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// KindOf unwraps err looking for an *Error and returns its Kind.
// The second result is false if err has no *Error in its chain.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return 0, false
		}
		err = u.Unwrap()
	}
	return 0, false
}
