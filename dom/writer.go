package dom

import (
	"io"
	"strings"
)

// The writer streams a subtree back to UTF-8 bytes. Output is a
// canonical form of the tree: double quoted attributes in insertion
// order, the empty element form exactly for childless elements, and
// no declaration unless asked for.

const writerDeclaration = `<?xml version="1.0" encoding="UTF-8"?>`

// WriteOption configures serialization.
type WriteOption func(*writeConfig)

type writeConfig struct {
	declaration bool
}

// WithDeclaration emits an XML declaration before the content.
func WithDeclaration() WriteOption {
	return func(c *writeConfig) { c.declaration = true }
}

// visitStep drives a non-recursive document order walk that reports
// elements with children twice, opening and closing, and childless
// elements once.
type visitStep uint8

const (
	visitOpen visitStep = iota
	visitClose
	visitText
)

type visitor struct {
	a         *arena
	current   nodeID
	level     int
	goingDown bool
}

func newVisitor(a *arena, start nodeID) *visitor {
	return &visitor{a: a, current: start, goingDown: true}
}

// step moves to the node visited after current. Childless elements
// are visited once; elements with children are visited again on the
// way back up.
func (v *visitor) step() {
	n := v.a.node(v.current)
	if v.goingDown && n.kind != nodeText && n.firstChild != nilNode {
		v.current = n.firstChild
		v.level++
		return
	}
	if v.level == 0 {
		v.current = nilNode
		return
	}
	if n.next == nilNode {
		v.level--
		v.current = n.parent
		v.goingDown = false
	} else {
		v.current = n.next
		v.goingDown = true
	}
}

func (v *visitor) next() (nodeID, visitStep, bool) {
	if v.current == nilNode {
		return nilNode, 0, false
	}
	id := v.current
	wasDown := v.goingDown
	v.step()
	if v.a.node(id).kind == nodeText {
		return id, visitText, true
	}
	if wasDown {
		return id, visitOpen, true
	}
	return id, visitClose, true
}

// Serialize writes the subtree under the cursor to w.
func (c Cursor) Serialize(w io.Writer, opts ...WriteOption) error {
	var cfg writeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	sw := &sinkWriter{w: w}
	if cfg.declaration {
		sw.writeString(writerDeclaration)
	}
	if c.alive() {
		c.write(sw)
	}
	sw.flush()
	return sw.err
}

// Serialize writes the document to w.
func (d *Document) Serialize(w io.Writer, opts ...WriteOption) error {
	return d.Root().Serialize(w, opts...)
}

// StrSize returns the exact number of bytes Serialize would produce
// without options.
func (c Cursor) StrSize() int {
	if !c.alive() {
		return 0
	}
	a := c.doc.arena
	size := 0
	v := newVisitor(a, c.id)
	for {
		id, step, ok := v.next()
		if !ok {
			break
		}
		n := a.node(id)
		switch step {
		case visitOpen:
			size += 1 + int(n.name.len)
			for at := n.firstAttr; at != nilAttr; at = a.attr(at).next {
				attr := a.attr(at)
				size += 1 + int(attr.name.len) + 2 + escapedSize(a.str(attr.value), true) + 1
			}
			if n.firstChild == nilNode {
				size += 2
			} else {
				size++
			}
		case visitClose:
			if n.firstChild != nilNode {
				size += 2 + int(n.name.len) + 1
			}
		case visitText:
			size += escapedSize(a.str(n.text), false)
		}
	}
	return size
}

// String returns the serialized form of the subtree. The buffer is
// grown to the exact output size up front.
func (c Cursor) String() string {
	var sb strings.Builder
	sb.Grow(c.StrSize())
	c.Serialize(&sb)
	return sb.String()
}

// String returns the serialized form of the document.
func (d *Document) String() string {
	return d.Root().String()
}

func (c Cursor) write(sw *sinkWriter) {
	a := c.doc.arena
	v := newVisitor(a, c.id)
	for {
		id, step, ok := v.next()
		if !ok || sw.err != nil {
			return
		}
		n := a.node(id)
		switch step {
		case visitOpen:
			sw.writeByte('<')
			sw.writeString(a.str(n.name))
			for at := n.firstAttr; at != nilAttr; at = a.attr(at).next {
				attr := a.attr(at)
				sw.writeByte(' ')
				sw.writeString(a.str(attr.name))
				sw.writeString(`="`)
				sw.writeEscaped(a.str(attr.value), true)
				sw.writeByte('"')
			}
			if n.firstChild == nilNode {
				sw.writeString("/>")
			} else {
				sw.writeByte('>')
			}
		case visitClose:
			if n.firstChild != nilNode {
				sw.writeString("</")
				sw.writeString(a.str(n.name))
				sw.writeByte('>')
			}
		case visitText:
			sw.writeEscaped(a.str(n.text), false)
		}
	}
}

// sinkWriter batches small writes through a fixed buffer so the
// writer never allocates proportionally to the document.
type sinkWriter struct {
	w   io.Writer
	buf [512]byte
	n   int
	err error
}

func (sw *sinkWriter) flush() {
	if sw.err != nil || sw.n == 0 {
		return
	}
	_, sw.err = sw.w.Write(sw.buf[:sw.n])
	sw.n = 0
}

func (sw *sinkWriter) writeByte(b byte) {
	if sw.n == len(sw.buf) {
		sw.flush()
	}
	if sw.err != nil {
		return
	}
	sw.buf[sw.n] = b
	sw.n++
}

func (sw *sinkWriter) writeString(s string) {
	for len(s) > 0 && sw.err == nil {
		if sw.n == len(sw.buf) {
			sw.flush()
			continue
		}
		n := copy(sw.buf[sw.n:], s)
		sw.n += n
		s = s[n:]
	}
}

// writeEscaped writes s escaping '<', '&' and, depending on context,
// '>' in character data or '"' in attribute values.
func (sw *sinkWriter) writeEscaped(s string, attr bool) {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '<':
			sw.writeString("&lt;")
		case '&':
			sw.writeString("&amp;")
		case '>':
			if attr {
				sw.writeByte(c)
			} else {
				sw.writeString("&gt;")
			}
		case '"':
			if attr {
				sw.writeString("&quot;")
			} else {
				sw.writeByte(c)
			}
		default:
			sw.writeByte(c)
		}
	}
}

// escapedSize returns the serialized length of s under writeEscaped.
func escapedSize(s string, attr bool) int {
	size := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '<':
			size += 4
		case '&':
			size += 5
		case '>':
			if attr {
				size++
			} else {
				size += 4
			}
		case '"':
			if attr {
				size += 6
			} else {
				size++
			}
		default:
			size++
		}
	}
	return size
}
