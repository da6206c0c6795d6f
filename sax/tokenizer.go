// Package sax implements a chunked, pull-style XML tokenizer.
//
// The tokenizer accepts arbitrary byte slices through Feed and turns
// them into a sequence of events pulled with Next, without ever holding
// a complete document. Input must be UTF-8; validation is incremental,
// so a multi-byte sequence may be split across feeds at any byte
// position. Event payloads are windows into tokenizer-owned buffers and
// stay valid only until the next Next or Feed call.
//
// Comments, processing instructions and DOCTYPE declarations are
// consumed and discarded. An XML declaration at the very start of the
// input is validated (version, UTF-8 encoding, standalone) and
// discarded. Entity references other than the five predefined ones are
// rejected.
package sax

import (
	"bytes"

	"github.com/meduketto/iksemel-go/ikserr"
)

type state uint8

const (
	stateProlog state = iota
	stateTagStart
	statePI
	statePIEnd
	stateMarkup
	stateCommentStart
	stateCommentBody
	stateCommentMaybeEnd
	stateCommentEnd
	stateDoctypeMatch
	stateDoctypeWS
	stateDoctypeBody
	stateCDataSectMatch
	stateCDataSectBody
	stateCDataSectMaybeEnd
	stateCDataSectMaybeEnd2
	stateTagName
	stateEndTagWS
	stateEmptyTagEnd
	stateAttrWS
	stateAttrName
	stateAttrEq
	stateAttrValueStart
	stateAttrValue
	stateCData
	stateReference
	stateEntity
	stateCharRefStart
	stateCharRefDec
	stateCharRefHexStart
	stateCharRefHex
	stateEpilog
)

const (
	initialBufferCapacity = 128
	maxEntityNameLength   = 8
	doctypeLiteral        = "OCTYPE"
	cdataSectLiteral      = "CDATA["
)

// Tokenizer is a resumable XML tokenizer. The zero value is not
// usable; create one with NewTokenizer.
//
// Typical use feeds a chunk and drains events until Next returns a
// KindNone event, then feeds the next chunk:
//
//	tok := sax.NewTokenizer()
//	for chunk := range chunks {
//		tok.Feed(chunk)
//		for {
//			ev, err := tok.Next()
//			if err != nil { ... }
//			if ev.Kind == sax.KindNone {
//				break
//			}
//			... handle ev ...
//		}
//	}
//	err := tok.Finish()
//
// Tokenizer is not safe for concurrent use.
type Tokenizer struct {
	state state
	err   error

	chunk     []byte
	pos       int
	back      int
	exhausted bool

	// buf accumulates names and attribute values; text accumulates
	// character data runs that could not stay borrowed from the
	// chunk. A run borrowed from the chunk but interrupted by markup
	// is held as a [textStart, textEnd) window until it can be
	// emitted in order.
	buf       []byte
	bufDirty  bool
	namePos   int
	tagName   []byte
	text      []byte
	textDirty bool
	textHeld  bool
	textStart int
	textEnd   int

	pending []Event

	depth       int
	isEndTag    bool
	quoteChar   byte
	seenContent bool
	declAllowed bool
	crPending   bool
	nameFirst   bool

	uniLen   int
	uniLeft  int
	uniChar  rune
	uniStart int
	uniSplit bool

	refBuf     []byte
	charRef    rune
	inValueRef bool

	matchPos      int
	bracketDepth  int
	cdataBrackets int

	piBuf     []byte
	piCapture bool

	attrNames [][]byte

	loc Location
}

// NewTokenizer returns a ready to use Tokenizer.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{
		buf:    make([]byte, 0, initialBufferCapacity),
		text:   make([]byte, 0, initialBufferCapacity),
		refBuf: make([]byte, 0, maxEntityNameLength),
	}
}

// Reset returns the tokenizer to its initial state, keeping the
// allocated buffers for reuse.
func (t *Tokenizer) Reset() {
	t.state = stateProlog
	t.err = nil
	t.chunk = nil
	t.pos = 0
	t.back = 0
	t.exhausted = false
	t.buf = t.buf[:0]
	t.bufDirty = false
	t.namePos = 0
	t.tagName = t.tagName[:0]
	t.text = t.text[:0]
	t.textDirty = false
	t.textHeld = false
	t.pending = t.pending[:0]
	t.depth = 0
	t.isEndTag = false
	t.seenContent = false
	t.declAllowed = false
	t.crPending = false
	t.nameFirst = false
	t.uniLen = 0
	t.uniLeft = 0
	t.uniChar = 0
	t.uniSplit = false
	t.refBuf = t.refBuf[:0]
	t.inValueRef = false
	t.matchPos = 0
	t.bracketDepth = 0
	t.cdataBrackets = 0
	t.piBuf = t.piBuf[:0]
	t.piCapture = false
	t.attrNames = t.attrNames[:0]
	t.loc = Location{}
}

// Location returns the input position of the byte the tokenizer will
// process next.
func (t *Tokenizer) Location() Location { return t.loc }

// Consumed returns how many bytes of the current chunk have been
// processed so far.
func (t *Tokenizer) Consumed() int { return t.pos }

// Depth returns the current element nesting depth.
func (t *Tokenizer) Depth() int { return t.depth }

// Feed hands the next input chunk to the tokenizer. The previous
// chunk must have been drained (Next returned a KindNone event);
// feeding earlier is a usage error and panics. The tokenizer keeps a
// reference to data until it is drained; the caller must not modify
// it in the meantime. Feed is a no-op after an error.
func (t *Tokenizer) Feed(data []byte) {
	if t.err != nil {
		return
	}
	if t.pos < len(t.chunk) || (len(t.chunk) > 0 && !t.exhausted) || len(t.pending) > 0 {
		panic("sax: Feed called with undelivered events; drain Next first")
	}
	t.chunk = data
	t.pos = 0
	t.back = 0
	t.exhausted = false
}

// Finish signals end of input. It fails if the input did not form a
// complete document: no root element, an unclosed element, or end of
// input in the middle of any markup construct.
func (t *Tokenizer) Finish() error {
	if t.err != nil {
		return t.err
	}
	switch {
	case t.uniLeft > 0:
		t.err = ikserr.New(ikserr.UnexpectedEof, ikserr.Msg("incomplete UTF-8 sequence"), t.at())
	case !t.seenContent:
		t.err = ikserr.New(ikserr.NoRoot, t.at())
	case t.depth > 0:
		t.err = ikserr.New(ikserr.UnexpectedEof, ikserr.Msg("open elements at end of input"), t.at())
	case t.state != stateEpilog:
		t.err = ikserr.New(ikserr.UnexpectedEof, ikserr.Msg("open markup at end of input"), t.at())
	default:
		return nil
	}
	return t.err
}

func (t *Tokenizer) at() ikserr.Option {
	return ikserr.At(t.loc.Bytes, t.loc.Lines, t.loc.Column)
}

func (t *Tokenizer) fail(kind ikserr.Kind, msg string) error {
	t.err = ikserr.New(kind, ikserr.Msg(msg), t.at())
	return t.err
}

func (t *Tokenizer) advance(c byte) {
	t.pos++
	t.loc.Bytes++
	t.loc.Column++
	if c == '\n' {
		t.loc.Lines++
		t.loc.Column = 0
	}
}

// flushRun appends the pending borrowed window to the name/value
// accumulation buffer.
func (t *Tokenizer) flushRun(end int) {
	if t.back < end {
		t.buf = append(t.buf, t.chunk[t.back:end]...)
	}
	t.back = end
}

// flushText appends the pending borrowed window to the character
// data accumulation buffer.
func (t *Tokenizer) flushText(end int) {
	if t.back < end {
		t.text = append(t.text, t.chunk[t.back:end]...)
	}
	t.back = end
}

// holdText parks the current character data run so markup events can
// be recognized; the run stays borrowed when it was never
// interrupted.
func (t *Tokenizer) holdText(end int) {
	if len(t.text) > 0 {
		t.flushText(end)
	} else if t.back < end {
		t.textHeld = true
		t.textStart = t.back
		t.textEnd = end
	}
}

// resumeText rejoins a held run with character data following skipped
// markup, keeping the two segments in one event.
func (t *Tokenizer) resumeText() {
	if t.textHeld {
		t.text = append(t.text, t.chunk[t.textStart:t.textEnd]...)
		t.textHeld = false
	}
}

// takeHeldText returns the parked character data run, if any.
func (t *Tokenizer) takeHeldText() (Event, bool) {
	if len(t.text) > 0 {
		t.textDirty = true
		return Event{Kind: KindCData, Value: t.text}, true
	}
	if t.textHeld {
		t.textHeld = false
		return Event{Kind: KindCData, Value: t.chunk[t.textStart:t.textEnd]}, true
	}
	return Event{}, false
}

// takeCData returns the live character data run ending at end,
// borrowed from the chunk when it was never interrupted.
func (t *Tokenizer) takeCData(end int) (Event, bool) {
	if len(t.text) > 0 {
		t.flushText(end)
		t.textDirty = true
		return Event{Kind: KindCData, Value: t.text}, true
	}
	if t.back < end {
		return Event{Kind: KindCData, Value: t.chunk[t.back:end]}, true
	}
	return Event{}, false
}

// checkNameRune validates a code point appearing inside an element or
// attribute name.
func (t *Tokenizer) checkNameRune(r rune) error {
	if t.nameFirst {
		t.nameFirst = false
		if !isNameStartChar(r) {
			return t.fail(ikserr.BadChar, "invalid name start character")
		}
		return nil
	}
	if !isNameChar(r) {
		return t.fail(ikserr.BadChar, "invalid name character")
	}
	return nil
}

func (t *Tokenizer) inName() bool {
	return t.state == stateTagName || t.state == stateAttrName
}

// appendExpansion adds expanded reference output to the buffer the
// reference occurred in.
func (t *Tokenizer) appendExpansion(r rune) {
	if t.inValueRef {
		t.buf = appendRune(t.buf, r)
	} else {
		t.text = appendRune(t.text, r)
	}
}

// completeCharRef validates an expanded character reference and
// appends its UTF-8 encoding.
func (t *Tokenizer) completeCharRef() error {
	if !isChar(t.charRef) {
		return t.fail(ikserr.BadChar, "character reference to invalid character")
	}
	t.appendExpansion(t.charRef)
	return nil
}

// Next returns the next event. A KindNone event means the current
// chunk is drained and more input is needed. After an error every
// subsequent call returns the same error.
func (t *Tokenizer) Next() (Event, error) {
	if t.err != nil {
		return Event{}, t.err
	}
	if t.bufDirty {
		t.buf = t.buf[:0]
		t.bufDirty = false
	}
	if t.textDirty {
		t.text = t.text[:0]
		t.textDirty = false
	}
	if len(t.pending) > 0 {
		ev := t.pending[0]
		copy(t.pending, t.pending[1:])
		t.pending = t.pending[:len(t.pending)-1]
		return ev, nil
	}

	for t.pos < len(t.chunk) {
		c := t.chunk[t.pos]

		// Incremental UTF-8 validation layer. Multi-byte sequences
		// are tracked independently of the markup state machine; the
		// machine below only ever dispatches on ASCII bytes, which
		// cannot occur inside a multi-byte sequence.
		if t.uniLeft > 0 {
			if c&0xc0 != 0x80 {
				return Event{}, t.fail(ikserr.BadUtf8, "invalid continuation byte")
			}
			t.uniChar = t.uniChar<<6 | rune(c&0x3f)
			t.uniLeft--
			if t.uniLeft == 0 {
				if (t.uniLen == 2 && t.uniChar <= 0x7f) ||
					(t.uniLen == 3 && t.uniChar <= 0x7ff) ||
					(t.uniLen == 4 && t.uniChar <= 0xffff) {
					return Event{}, t.fail(ikserr.BadUtf8, "overlong sequence")
				}
				if !isChar(t.uniChar) {
					return Event{}, t.fail(ikserr.BadChar, "invalid character")
				}
				if t.inName() {
					if err := t.checkNameRune(t.uniChar); err != nil {
						return Event{}, err
					}
				}
				if t.uniSplit {
					// The sequence started in an earlier feed; its
					// prefix bytes are gone with that chunk, so the
					// completed code point is re-encoded into the
					// right accumulation buffer.
					t.uniSplit = false
					switch t.state {
					case stateTagName, stateAttrName, stateAttrValue:
						t.buf = appendRune(t.buf, t.uniChar)
						t.advance(c)
						t.back = t.pos
						continue
					case stateCData, stateCDataSectBody:
						t.text = appendRune(t.text, t.uniChar)
						t.advance(c)
						t.back = t.pos
						continue
					}
				}
			}
			if t.state == statePI && t.piCapture {
				t.piBuf = append(t.piBuf, c)
			}
			t.advance(c)
			continue
		}
		if c >= 0x80 {
			switch {
			case c&0xe0 == 0xc0:
				t.uniLen, t.uniLeft, t.uniChar = 2, 1, rune(c&0x1f)
			case c&0xf0 == 0xe0:
				t.uniLen, t.uniLeft, t.uniChar = 3, 2, rune(c&0x0f)
			case c&0xf8 == 0xf0:
				t.uniLen, t.uniLeft, t.uniChar = 4, 3, rune(c&0x07)
			case c&0xf8 == 0xf8:
				return Event{}, t.fail(ikserr.BadChar, "sequence longer than four bytes")
			default:
				return Event{}, t.fail(ikserr.BadUtf8, "unexpected continuation byte")
			}
			t.uniStart = t.pos
			// Bytes inside a multi-byte sequence never reach the
			// markup state machine, so states that react to
			// individual content bytes are handled here.
			switch t.state {
			case stateProlog:
				return Event{}, t.fail(ikserr.NoRoot, "content before root element")
			case stateEpilog:
				return Event{}, t.fail(ikserr.JunkAfterRoot, "content after root element")
			case stateTagStart:
				if err := t.startName(); err != nil {
					return Event{}, err
				}
			case stateAttrWS:
				t.back = t.pos
				t.nameFirst = true
				t.state = stateAttrName
			case stateCData:
				t.crPending = false
				t.cdataBrackets = 0
			case stateCDataSectMaybeEnd:
				t.text = append(t.text, ']')
				t.crPending = false
				t.back = t.pos
				t.state = stateCDataSectBody
			case stateCDataSectMaybeEnd2:
				t.text = append(t.text, ']', ']')
				t.crPending = false
				t.back = t.pos
				t.state = stateCDataSectBody
			case stateCDataSectBody:
				t.crPending = false
			case stateCommentMaybeEnd:
				t.state = stateCommentBody
			case statePI:
				if t.piCapture {
					t.piBuf = append(t.piBuf, c)
				}
			case statePIEnd:
				if t.piCapture {
					t.piBuf = append(t.piBuf, '?', c)
				}
				t.state = statePI
			case stateReference:
				t.refBuf = append(t.refBuf[:0], c)
				t.state = stateEntity
			case stateEntity:
				if len(t.refBuf) >= maxEntityNameLength {
					return Event{}, t.fail(ikserr.BadEntity, "entity name too long")
				}
				t.refBuf = append(t.refBuf, c)
			case stateMarkup, stateCommentStart, stateCommentEnd,
				stateDoctypeMatch, stateDoctypeWS, stateCDataSectMatch,
				stateEmptyTagEnd, stateEndTagWS, stateAttrEq, stateAttrValueStart,
				stateCharRefStart, stateCharRefDec, stateCharRefHexStart, stateCharRefHex:
				return Event{}, t.fail(ikserr.BadSyntax, "unexpected character in markup")
			}
			t.advance(c)
			continue
		}
		if c < 0x20 && c != '\t' && c != '\n' && c != '\r' {
			return Event{}, t.fail(ikserr.BadChar, "invalid control character")
		}

		var ev Event
		emitted := false

		switch t.state {
		case stateProlog:
			switch {
			case c == '<':
				t.declAllowed = t.loc.Bytes == 0
				t.state = stateTagStart
			case isWhitespace(c):
			default:
				return Event{}, t.fail(ikserr.NoRoot, "content before root element")
			}

		case stateEpilog:
			switch {
			case c == '<':
				t.state = stateTagStart
			case isWhitespace(c):
			default:
				return Event{}, t.fail(ikserr.JunkAfterRoot, "content after root element")
			}

		case stateTagStart:
			switch {
			case c == '!':
				t.declAllowed = false
				t.state = stateMarkup
			case c == '?':
				t.piCapture = t.declAllowed
				t.declAllowed = false
				t.piBuf = t.piBuf[:0]
				t.state = statePI
			case c == '/':
				if t.depth == 0 {
					return Event{}, t.fail(ikserr.BadSyntax, "end tag without open tag")
				}
				t.declAllowed = false
				t.back = t.pos + 1
				t.isEndTag = true
				t.nameFirst = true
				t.state = stateTagName
			case c == '>' || isWhitespace(c):
				return Event{}, t.fail(ikserr.BadSyntax, "whitespace at tag start")
			default:
				if !isNameStartChar(rune(c)) {
					return Event{}, t.fail(ikserr.BadChar, "invalid name start character")
				}
				if err := t.startName(); err != nil {
					return Event{}, err
				}
				t.nameFirst = false
			}

		case stateMarkup:
			switch c {
			case '-':
				t.state = stateCommentStart
			case '[':
				if t.depth == 0 {
					return Event{}, t.fail(ikserr.BadSyntax, "CDATA section outside root element")
				}
				t.matchPos = 0
				t.state = stateCDataSectMatch
			case 'D':
				if t.seenContent {
					return Event{}, t.fail(ikserr.BadSyntax, "DOCTYPE after content")
				}
				t.matchPos = 0
				t.state = stateDoctypeMatch
			default:
				return Event{}, t.fail(ikserr.BadSyntax, "unrecognized markup")
			}

		case stateDoctypeMatch:
			if c != doctypeLiteral[t.matchPos] {
				return Event{}, t.fail(ikserr.BadSyntax, "bad DOCTYPE start")
			}
			if t.matchPos++; t.matchPos == len(doctypeLiteral) {
				t.state = stateDoctypeWS
			}

		case stateDoctypeWS:
			if !isWhitespace(c) {
				return Event{}, t.fail(ikserr.BadSyntax, "bad DOCTYPE start")
			}
			t.bracketDepth = 0
			t.state = stateDoctypeBody

		case stateDoctypeBody:
			switch c {
			case '[':
				t.bracketDepth++
			case ']':
				if t.bracketDepth > 0 {
					t.bracketDepth--
				}
			case '>':
				if t.bracketDepth == 0 {
					t.state = stateProlog
				}
			}

		case stateCDataSectMatch:
			if c != cdataSectLiteral[t.matchPos] {
				return Event{}, t.fail(ikserr.BadSyntax, "bad CDATA section start")
			}
			if t.matchPos++; t.matchPos == len(cdataSectLiteral) {
				// Section content joins the surrounding character
				// data run.
				t.resumeText()
				t.back = t.pos + 1
				t.state = stateCDataSectBody
			}

		case stateCDataSectBody:
			switch c {
			case ']':
				t.flushText(t.pos)
				t.state = stateCDataSectMaybeEnd
			case '\r':
				t.flushText(t.pos)
				t.text = append(t.text, '\n')
				t.crPending = true
				t.back = t.pos + 1
			case '\n':
				if t.crPending {
					t.crPending = false
					t.back = t.pos + 1
				}
			default:
				t.crPending = false
			}

		case stateCDataSectMaybeEnd:
			if c == ']' {
				t.state = stateCDataSectMaybeEnd2
			} else {
				t.text = append(t.text, ']')
				t.bodyChar(c)
				t.state = stateCDataSectBody
			}

		case stateCDataSectMaybeEnd2:
			switch c {
			case '>':
				t.back = t.pos + 1
				t.state = stateCData
			case ']':
				t.text = append(t.text, ']')
			default:
				t.text = append(t.text, ']', ']')
				t.bodyChar(c)
				t.state = stateCDataSectBody
			}

		case stateCommentStart:
			if c != '-' {
				return Event{}, t.fail(ikserr.BadSyntax, "bad comment start")
			}
			t.state = stateCommentBody

		case stateCommentBody:
			if c == '-' {
				t.state = stateCommentMaybeEnd
			}

		case stateCommentMaybeEnd:
			if c == '-' {
				t.state = stateCommentEnd
			} else {
				t.state = stateCommentBody
			}

		case stateCommentEnd:
			if c != '>' {
				return Event{}, t.fail(ikserr.BadSyntax, "-- not allowed inside comment")
			}
			t.afterMarkupSkip()

		case statePI:
			if c == '?' {
				t.state = statePIEnd
			} else if t.piCapture {
				t.piBuf = append(t.piBuf, c)
			}

		case statePIEnd:
			switch c {
			case '>':
				if t.piCapture {
					t.piCapture = false
					if err := t.checkDeclaration(); err != nil {
						return Event{}, err
					}
				}
				t.afterMarkupSkip()
			case '?':
				if t.piCapture {
					t.piBuf = append(t.piBuf, '?')
				}
			default:
				if t.piCapture {
					t.piBuf = append(t.piBuf, '?', c)
				}
				t.state = statePI
			}

		case stateTagName:
			switch {
			case c == '/' || c == '>' || isWhitespace(c):
				t.flushRun(t.pos)
				if len(t.buf) == 0 {
					return Event{}, t.fail(ikserr.BadSyntax, "empty tag name")
				}
				if t.isEndTag && c == '/' {
					return Event{}, t.fail(ikserr.BadSyntax, "double end tag")
				}
				t.tagName = append(t.tagName[:0], t.buf...)
				t.bufDirty = true
				var tag Event
				if t.isEndTag {
					tag = Event{Kind: KindEndTag, Name: t.tagName}
				} else {
					tag = Event{Kind: KindStartTagOpen, Name: t.tagName}
					t.attrNames = t.attrNames[:0]
				}
				// A character data run parked at the '<' is emitted
				// before the tag events it precedes.
				if txt, ok := t.takeHeldText(); ok {
					ev = txt
					t.pending = append(t.pending, tag)
				} else {
					ev = tag
				}
				emitted = true
				switch {
				case t.isEndTag:
					if c == '>' {
						t.closeElement()
					} else {
						t.state = stateEndTagWS
					}
				case c == '/':
					t.state = stateEmptyTagEnd
				case c == '>':
					t.pending = append(t.pending, Event{Kind: KindStartTagContent, Name: t.tagName})
					t.back = t.pos + 1
					t.state = stateCData
				default:
					t.state = stateAttrWS
				}
			default:
				if err := t.checkNameRune(rune(c)); err != nil {
					return Event{}, err
				}
			}

		case stateEndTagWS:
			switch {
			case c == '>':
				t.closeElement()
			case isWhitespace(c):
			default:
				return Event{}, t.fail(ikserr.BadSyntax, "attributes not allowed in end tag")
			}

		case stateEmptyTagEnd:
			if c != '>' {
				return Event{}, t.fail(ikserr.BadSyntax, "missing > after /")
			}
			ev = Event{Kind: KindStartTagEmpty, Name: t.tagName}
			emitted = true
			t.closeElement()

		case stateAttrWS:
			switch {
			case isWhitespace(c):
			case c == '/':
				t.state = stateEmptyTagEnd
			case c == '>':
				ev = Event{Kind: KindStartTagContent, Name: t.tagName}
				emitted = true
				t.back = t.pos + 1
				t.state = stateCData
			default:
				if !isNameStartChar(rune(c)) {
					return Event{}, t.fail(ikserr.BadChar, "invalid name start character")
				}
				t.back = t.pos
				t.nameFirst = false
				t.state = stateAttrName
			}

		case stateAttrName:
			switch {
			case c == '=' || isWhitespace(c):
				t.flushRun(t.pos)
				if len(t.buf) == 0 {
					return Event{}, t.fail(ikserr.BadSyntax, "empty attribute name")
				}
				for _, seen := range t.attrNames {
					if bytes.Equal(seen, t.buf) {
						return Event{}, t.fail(ikserr.DuplicateAttribute, string(t.buf))
					}
				}
				t.attrNames = append(t.attrNames, append([]byte(nil), t.buf...))
				if c == '=' {
					t.state = stateAttrValueStart
				} else {
					t.state = stateAttrEq
				}
			case c == '/' || c == '>' || c == '<':
				return Event{}, t.fail(ikserr.BadSyntax, "bad attribute name")
			default:
				if err := t.checkNameRune(rune(c)); err != nil {
					return Event{}, err
				}
			}

		case stateAttrEq:
			switch {
			case c == '=':
				t.state = stateAttrValueStart
			case isWhitespace(c):
			default:
				return Event{}, t.fail(ikserr.BadSyntax, "attribute without =")
			}

		case stateAttrValueStart:
			switch {
			case c == '"' || c == '\'':
				t.quoteChar = c
				t.namePos = len(t.buf)
				t.back = t.pos + 1
				t.state = stateAttrValue
			case isWhitespace(c):
			default:
				return Event{}, t.fail(ikserr.BadSyntax, "attribute value without quote")
			}

		case stateAttrValue:
			switch c {
			case t.quoteChar:
				t.flushRun(t.pos)
				ev = Event{Kind: KindAttribute, Name: t.buf[:t.namePos], Value: t.buf[t.namePos:]}
				emitted = true
				t.bufDirty = true
				t.crPending = false
				t.state = stateAttrWS
			case '&':
				t.flushRun(t.pos)
				t.refBuf = t.refBuf[:0]
				t.inValueRef = true
				t.crPending = false
				t.state = stateReference
			case '<':
				return Event{}, t.fail(ikserr.BadSyntax, "< not allowed in attribute value")
			case '\t':
				t.flushRun(t.pos)
				t.buf = append(t.buf, ' ')
				t.crPending = false
				t.back = t.pos + 1
			case '\r':
				t.flushRun(t.pos)
				t.buf = append(t.buf, ' ')
				t.crPending = true
				t.back = t.pos + 1
			case '\n':
				t.flushRun(t.pos)
				if !t.crPending {
					t.buf = append(t.buf, ' ')
				}
				t.crPending = false
				t.back = t.pos + 1
			default:
				t.crPending = false
			}

		case stateCData:
			switch c {
			case '<':
				t.holdText(t.pos)
				t.crPending = false
				t.cdataBrackets = 0
				t.declAllowed = false
				t.state = stateTagStart
			case '&':
				t.flushText(t.pos)
				t.refBuf = t.refBuf[:0]
				t.inValueRef = false
				t.crPending = false
				t.cdataBrackets = 0
				t.state = stateReference
			case '\r':
				t.flushText(t.pos)
				t.text = append(t.text, '\n')
				t.crPending = true
				t.cdataBrackets = 0
				t.back = t.pos + 1
			case '\n':
				if t.crPending {
					t.crPending = false
					t.back = t.pos + 1
				}
				t.cdataBrackets = 0
			case ']':
				t.crPending = false
				t.cdataBrackets++
			case '>':
				// "]]>" must not appear bare in character data.
				if t.cdataBrackets >= 2 {
					return Event{}, t.fail(ikserr.BadSyntax, "]]> in character data")
				}
				t.crPending = false
				t.cdataBrackets = 0
			default:
				t.crPending = false
				t.cdataBrackets = 0
			}

		case stateReference:
			if c == '#' {
				t.charRef = 0
				t.state = stateCharRefStart
			} else if c == ';' {
				return Event{}, t.fail(ikserr.BadEntity, "empty entity reference")
			} else {
				t.refBuf = append(t.refBuf[:0], c)
				t.state = stateEntity
			}

		case stateEntity:
			if c == ';' {
				ent, ok := predefinedEntity(t.refBuf)
				if !ok {
					return Event{}, t.fail(ikserr.BadEntity, string(t.refBuf))
				}
				t.appendExpansion(rune(ent))
				t.back = t.pos + 1
				t.referenceDone()
			} else {
				if len(t.refBuf) >= maxEntityNameLength {
					return Event{}, t.fail(ikserr.BadEntity, "entity name too long")
				}
				t.refBuf = append(t.refBuf, c)
			}

		case stateCharRefStart:
			switch {
			case c == 'x':
				t.state = stateCharRefHexStart
			case c >= '0' && c <= '9':
				t.charRef = rune(c - '0')
				t.state = stateCharRefDec
			default:
				return Event{}, t.fail(ikserr.BadEntity, "malformed character reference")
			}

		case stateCharRefDec:
			switch {
			case c == ';':
				if err := t.completeCharRef(); err != nil {
					return Event{}, err
				}
				t.back = t.pos + 1
				t.referenceDone()
			case c >= '0' && c <= '9':
				if t.charRef = t.charRef*10 + rune(c-'0'); t.charRef > 0x110000 {
					t.charRef = 0x110000
				}
			default:
				return Event{}, t.fail(ikserr.BadEntity, "malformed decimal character reference")
			}

		case stateCharRefHexStart, stateCharRefHex:
			digit := rune(-1)
			switch {
			case c >= '0' && c <= '9':
				digit = rune(c - '0')
			case c >= 'a' && c <= 'f':
				digit = rune(c-'a') + 10
			case c >= 'A' && c <= 'F':
				digit = rune(c-'A') + 10
			}
			switch {
			case digit >= 0:
				if t.charRef = t.charRef*16 + digit; t.charRef > 0x110000 {
					t.charRef = 0x110000
				}
				t.state = stateCharRefHex
			case c == ';' && t.state == stateCharRefHex:
				if err := t.completeCharRef(); err != nil {
					return Event{}, err
				}
				t.back = t.pos + 1
				t.referenceDone()
			default:
				return Event{}, t.fail(ikserr.BadEntity, "malformed hex character reference")
			}
		}

		t.advance(c)
		if emitted {
			return ev, nil
		}
	}

	if !t.exhausted {
		t.exhausted = true
		if ev, ok := t.drainChunk(); ok {
			return ev, nil
		}
	}
	return Event{}, nil
}

// startName begins scanning an element name at the current position.
func (t *Tokenizer) startName() error {
	if t.depth == 0 && t.seenContent {
		return t.fail(ikserr.JunkAfterRoot, "second root element")
	}
	t.declAllowed = false
	t.depth++
	t.back = t.pos
	t.isEndTag = false
	t.nameFirst = true
	t.seenContent = true
	t.state = stateTagName
	return nil
}

// closeElement handles the '>' of an end tag or an empty element.
func (t *Tokenizer) closeElement() {
	t.depth--
	if t.depth == 0 {
		t.state = stateEpilog
	} else {
		t.back = t.pos + 1
		t.state = stateCData
	}
}

// afterMarkupSkip routes the state after a skipped comment or PI. In
// content, the surrounding character data run continues.
func (t *Tokenizer) afterMarkupSkip() {
	if t.depth > 0 {
		t.resumeText()
		t.back = t.pos + 1
		t.state = stateCData
	} else if t.seenContent {
		t.state = stateEpilog
	} else {
		t.state = stateProlog
	}
}

// referenceDone routes the state after an expanded reference.
func (t *Tokenizer) referenceDone() {
	if t.inValueRef {
		t.state = stateAttrValue
	} else {
		t.state = stateCData
	}
}

// bodyChar processes one literal character resumed into a CDATA
// section body after a partial "]]>" match.
func (t *Tokenizer) bodyChar(c byte) {
	switch c {
	case '\r':
		t.text = append(t.text, '\n')
		t.crPending = true
		t.back = t.pos + 1
	case '\n':
		if t.crPending {
			t.crPending = false
			t.back = t.pos + 1
		} else {
			t.back = t.pos
		}
	default:
		t.crPending = false
		t.back = t.pos
	}
}

// drainChunk saves or emits whatever run is pending when the chunk
// runs out. A trailing partial UTF-8 sequence is withheld so that
// every emitted slice ends on a code-point boundary.
func (t *Tokenizer) drainChunk() (Event, bool) {
	flushEnd := len(t.chunk)
	if t.uniLeft > 0 {
		if t.uniSplit {
			flushEnd = t.back
		} else {
			flushEnd = t.uniStart
			t.uniSplit = true
		}
	}
	switch t.state {
	case stateTagName, stateAttrName, stateAttrValue:
		t.flushRun(flushEnd)
	case stateCData, stateCDataSectBody:
		ev, ok := t.takeCData(flushEnd)
		t.back = len(t.chunk)
		return ev, ok
	}
	// A run parked at a '<' whose markup spans the feed boundary is
	// emitted now; its window dies with this chunk.
	ev, ok := t.takeHeldText()
	t.back = len(t.chunk)
	return ev, ok
}

// predefinedEntity resolves one of the five predefined XML entities.
func predefinedEntity(name []byte) (byte, bool) {
	switch string(name) {
	case "amp":
		return '&', true
	case "lt":
		return '<', true
	case "gt":
		return '>', true
	case "quot":
		return '"', true
	case "apos":
		return '\'', true
	}
	return 0, false
}
