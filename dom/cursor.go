package dom

import (
	"strings"

	"github.com/meduketto/iksemel-go/ikserr"
	"github.com/meduketto/iksemel-go/sax"
)

// Cursor is a light navigation and editing handle into a Document.
//
// Navigation never fails: a step with no target yields a null cursor,
// and every further navigation or read on a null (or tombstoned)
// cursor falls through, so chains like
//
//	c.FirstChild().NextSibling().Name()
//
// need no per-step branching. Editing methods do fail, returning
// errors with the NoMemory, InvalidName, TreeCycle or Detached kinds,
// plus BadSyntax for edits that would break the document structure.
//
// Cursors borrow the Document; editing while other goroutines read
// requires the SyncCursor variant instead.
type Cursor struct {
	doc *Document
	id  nodeID
}

func (c Cursor) null() Cursor {
	return Cursor{doc: c.doc, id: nilNode}
}

// alive reports whether the cursor points at a live node.
func (c Cursor) alive() bool {
	return c.doc != nil && c.id != nilNode && !c.doc.arena.node(c.id).tombstone
}

// IsNull reports whether the cursor points at no node. A tombstoned
// node counts as null.
func (c Cursor) IsNull() bool { return !c.alive() }

// IsElement reports whether the cursor points at an element node.
func (c Cursor) IsElement() bool {
	return c.alive() && c.doc.arena.node(c.id).kind == nodeElement
}

// IsText reports whether the cursor points at a text node.
func (c Cursor) IsText() bool {
	return c.alive() && c.doc.arena.node(c.id).kind == nodeText
}

//
// Navigation
//

// Parent returns the parent element, or a null cursor at the root.
func (c Cursor) Parent() Cursor {
	if !c.alive() {
		return c.null()
	}
	p := c.doc.arena.node(c.id).parent
	if p == nilNode || c.doc.arena.node(p).kind == nodeRoot {
		return c.null()
	}
	return Cursor{doc: c.doc, id: p}
}

// FirstChild returns the first child node.
func (c Cursor) FirstChild() Cursor {
	if !c.alive() {
		return c.null()
	}
	return Cursor{doc: c.doc, id: c.doc.arena.node(c.id).firstChild}
}

// LastChild returns the last child node.
func (c Cursor) LastChild() Cursor {
	if !c.alive() {
		return c.null()
	}
	return Cursor{doc: c.doc, id: c.doc.arena.node(c.id).lastChild}
}

// NextSibling returns the following sibling node.
func (c Cursor) NextSibling() Cursor {
	if !c.alive() {
		return c.null()
	}
	return Cursor{doc: c.doc, id: c.doc.arena.node(c.id).next}
}

// PreviousSibling returns the preceding sibling node.
func (c Cursor) PreviousSibling() Cursor {
	if !c.alive() {
		return c.null()
	}
	return Cursor{doc: c.doc, id: c.doc.arena.node(c.id).prev}
}

// NextSiblingElement returns the following sibling that is an element.
func (c Cursor) NextSiblingElement() Cursor {
	next := c.NextSibling()
	for !next.IsNull() && !next.IsElement() {
		next = next.NextSibling()
	}
	return next
}

// PreviousSiblingElement returns the preceding sibling that is an
// element.
func (c Cursor) PreviousSiblingElement() Cursor {
	prev := c.PreviousSibling()
	for !prev.IsNull() && !prev.IsElement() {
		prev = prev.PreviousSibling()
	}
	return prev
}

// FirstChildElement returns the first child that is an element.
func (c Cursor) FirstChildElement() Cursor {
	child := c.FirstChild()
	if child.IsNull() || child.IsElement() {
		return child
	}
	return child.NextSiblingElement()
}

// Root walks up to the topmost node of the subtree the cursor is in:
// the document's root element, or the root of a detached subtree.
func (c Cursor) Root() Cursor {
	if !c.alive() {
		return c.null()
	}
	cur := c
	for {
		parent := cur.Parent()
		if parent.IsNull() {
			return cur
		}
		cur = parent
	}
}

// FindChild returns the first child element with the given name.
func (c Cursor) FindChild(name string) Cursor {
	child := c.FirstChild()
	for !child.IsNull() {
		if child.IsElement() && child.Name() == name {
			return child
		}
		child = child.NextSibling()
	}
	return c.null()
}

//
// Reads
//

// Name returns the element name, or "" for null and text cursors.
func (c Cursor) Name() string {
	if !c.IsElement() {
		return ""
	}
	a := c.doc.arena
	return a.str(a.node(c.id).name)
}

// Text returns the character data of a text node, or "" otherwise.
func (c Cursor) Text() string {
	if !c.IsText() {
		return ""
	}
	a := c.doc.arena
	return a.str(a.node(c.id).text)
}

// Attribute returns the value of the named attribute, or "" when the
// attribute is absent or the cursor is not at an element.
func (c Cursor) Attribute(name string) string {
	v, _ := c.LookupAttribute(name)
	return v
}

// LookupAttribute returns the value of the named attribute and
// whether it was present.
func (c Cursor) LookupAttribute(name string) (string, bool) {
	if !c.IsElement() {
		return "", false
	}
	a := c.doc.arena
	for at := a.node(c.id).firstAttr; at != nilAttr; at = a.attr(at).next {
		if a.str(a.attr(at).name) == name {
			return a.str(a.attr(at).value), true
		}
	}
	return "", false
}

// TextContent returns the concatenation of all text inside the
// subtree, in document order.
func (c Cursor) TextContent() string {
	if !c.alive() {
		return ""
	}
	if c.IsText() {
		return c.Text()
	}
	var sb strings.Builder
	for d := range c.DescendantOrSelf() {
		if d.IsText() {
			sb.WriteString(d.Text())
		}
	}
	return sb.String()
}

//
// Editing
//

func (c Cursor) editGuard() error {
	if c.doc == nil || c.id == nilNode {
		return ikserr.New(ikserr.Detached, ikserr.Msg("edit through null cursor"))
	}
	if c.doc.arena.node(c.id).tombstone {
		return ikserr.New(ikserr.Detached, ikserr.Msg("edit through dropped subtree"))
	}
	return nil
}

func (c Cursor) elementGuard() error {
	if err := c.editGuard(); err != nil {
		return err
	}
	if c.doc.arena.node(c.id).kind != nodeElement {
		return ikserr.New(ikserr.BadSyntax, ikserr.Msg("not an element"))
	}
	return nil
}

func checkName(name string) error {
	if !sax.IsName(name) {
		return ikserr.New(ikserr.InvalidName, ikserr.Msg(name))
	}
	return nil
}

// SetName renames the element.
func (c Cursor) SetName(name string) error {
	if err := c.elementGuard(); err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return err
	}
	ref, err := c.doc.arena.pushString(name)
	if err != nil {
		return err
	}
	c.doc.arena.node(c.id).name = ref
	return nil
}

// SetAttribute sets or replaces an attribute value. New attribute
// names keep their insertion order for serialization.
func (c Cursor) SetAttribute(name, value string) error {
	if err := c.elementGuard(); err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return err
	}
	return c.doc.setAttribute(c.id, name, value, false)
}

// RemoveAttribute deletes an attribute. Removing an absent attribute
// is not an error.
func (c Cursor) RemoveAttribute(name string) error {
	if err := c.elementGuard(); err != nil {
		return err
	}
	return c.doc.setAttribute(c.id, name, "", true)
}

// AppendChildElement creates a new empty element as the last child
// and returns a cursor at it.
func (c Cursor) AppendChildElement(name string) (Cursor, error) {
	if err := c.elementGuard(); err != nil {
		return c.null(), err
	}
	if err := checkName(name); err != nil {
		return c.null(), err
	}
	id, err := c.doc.appendElement(c.id, name)
	if err != nil {
		return c.null(), err
	}
	return Cursor{doc: c.doc, id: id}, nil
}

// AppendText appends character data as the last child. When the last
// child already is a text node the data is folded into it, so text
// siblings never touch.
func (c Cursor) AppendText(text string) (Cursor, error) {
	if err := c.elementGuard(); err != nil {
		return c.null(), err
	}
	id, err := c.doc.appendText(c.id, []byte(text))
	if err != nil {
		return c.null(), err
	}
	return Cursor{doc: c.doc, id: id}, nil
}

// SetText replaces the character data of a text node. On an element
// that is childless or holds a single text node it replaces the
// content with a single text node; any other element is refused.
func (c Cursor) SetText(text string) error {
	if err := c.editGuard(); err != nil {
		return err
	}
	a := c.doc.arena
	n := a.node(c.id)
	if n.kind == nodeText {
		ref, err := a.pushString(text)
		if err != nil {
			return err
		}
		a.node(c.id).text = ref
		return nil
	}
	if n.kind != nodeElement {
		return ikserr.New(ikserr.BadSyntax, ikserr.Msg("not an element"))
	}
	first := n.firstChild
	if first != nilNode {
		if first != n.lastChild || a.node(first).kind != nodeText {
			return ikserr.New(ikserr.BadSyntax, ikserr.Msg("element has mixed content"))
		}
		ref, err := a.pushString(text)
		if err != nil {
			return err
		}
		a.node(first).text = ref
		return nil
	}
	_, err := c.doc.appendText(c.id, []byte(text))
	return err
}

// InsertElementBefore creates a new empty element as the preceding
// sibling and returns a cursor at it.
func (c Cursor) InsertElementBefore(name string) (Cursor, error) {
	return c.insertElement(name, true)
}

// InsertElementAfter creates a new empty element as the following
// sibling and returns a cursor at it.
func (c Cursor) InsertElementAfter(name string) (Cursor, error) {
	return c.insertElement(name, false)
}

func (c Cursor) insertElement(name string, before bool) (Cursor, error) {
	if err := c.editGuard(); err != nil {
		return c.null(), err
	}
	if err := checkName(name); err != nil {
		return c.null(), err
	}
	parent := c.doc.arena.node(c.id).parent
	if parent == nilNode || c.doc.arena.node(parent).kind == nodeRoot {
		return c.null(), ikserr.New(ikserr.BadSyntax, ikserr.Msg("cannot insert sibling of root"))
	}
	ref, err := c.doc.arena.pushString(name)
	if err != nil {
		return c.null(), err
	}
	id, err := c.doc.arena.newNode(nodeElement)
	if err != nil {
		return c.null(), err
	}
	c.doc.arena.node(id).name = ref
	c.linkSibling(id, before)
	return Cursor{doc: c.doc, id: id}, nil
}

// linkSibling wires an unlinked node id next to c.
func (c Cursor) linkSibling(id nodeID, before bool) {
	a := c.doc.arena
	n := a.node(id)
	cur := a.node(c.id)
	n.parent = cur.parent
	p := a.node(cur.parent)
	if before {
		n.prev = cur.prev
		n.next = c.id
		if cur.prev != nilNode {
			a.node(cur.prev).next = id
		} else {
			p.firstChild = id
		}
		cur.prev = id
	} else {
		n.next = cur.next
		n.prev = c.id
		if cur.next != nilNode {
			a.node(cur.next).prev = id
		} else {
			p.lastChild = id
		}
		cur.next = id
	}
}

// InsertBefore moves the subtree under other in front of c. The
// subtree is detached from its old position first; moving a node
// into its own subtree fails with a TreeCycle error.
func (c Cursor) InsertBefore(other Cursor) error {
	return c.attachSibling(other, true)
}

// InsertAfter moves the subtree under other right after c.
func (c Cursor) InsertAfter(other Cursor) error {
	return c.attachSibling(other, false)
}

func (c Cursor) attachSibling(other Cursor, before bool) error {
	if err := c.editGuard(); err != nil {
		return err
	}
	parent := c.doc.arena.node(c.id).parent
	if parent == nilNode || c.doc.arena.node(parent).kind == nodeRoot {
		return ikserr.New(ikserr.BadSyntax, ikserr.Msg("cannot insert sibling of root"))
	}
	if err := c.attachGuard(other, parent); err != nil {
		return err
	}
	c.doc.unlink(other.id)
	c.linkSibling(other.id, before)
	_, err := c.doc.coalesceAt(other.id)
	return err
}

// AppendChild moves the subtree under other to be the last child of
// c.
func (c Cursor) AppendChild(other Cursor) error {
	if err := c.elementGuard(); err != nil {
		return err
	}
	if err := c.attachGuard(other, c.id); err != nil {
		return err
	}
	c.doc.unlink(other.id)
	c.doc.linkLast(c.id, other.id)
	_, err := c.doc.coalesceAt(other.id)
	return err
}

// attachGuard validates moving other under the element at. Both
// cursors must belong to the same document, and at must not be
// inside other's subtree.
func (c Cursor) attachGuard(other Cursor, at nodeID) error {
	if err := other.editGuard(); err != nil {
		return err
	}
	if other.doc != c.doc {
		return ikserr.New(ikserr.BadSyntax, ikserr.Msg("cursor from a different document"))
	}
	a := c.doc.arena
	if a.node(other.id).kind == nodeRoot {
		return ikserr.New(ikserr.BadSyntax, ikserr.Msg("cannot move the document root"))
	}
	for n := at; n != nilNode; n = a.node(n).parent {
		if n == other.id {
			return ikserr.New(ikserr.TreeCycle)
		}
	}
	return nil
}

// Detach unlinks the node from its parent, keeping the subtree alive
// as a detached root. The cursor remains usable and the subtree can
// be reattached with InsertBefore, InsertAfter or AppendChild.
func (c Cursor) Detach() error {
	if err := c.editGuard(); err != nil {
		return err
	}
	parent := c.doc.arena.node(c.id).parent
	if parent == nilNode {
		return nil
	}
	if c.doc.arena.node(parent).kind == nodeRoot {
		return ikserr.New(ikserr.BadSyntax, ikserr.Msg("cannot detach the root element"))
	}
	c.doc.unlink(c.id)
	return nil
}

// Drop detaches the subtree and tombstones it. The nodes stay
// indexable so outstanding cursors into the subtree remain safe, but
// every operation through them becomes a no-op. Dropping an already
// dropped subtree does nothing.
func (c Cursor) Drop() {
	if !c.alive() {
		return
	}
	if c.doc.arena.node(c.id).parent != nilNode {
		if c.doc.arena.node(c.doc.arena.node(c.id).parent).kind == nodeRoot {
			return
		}
		c.doc.unlink(c.id)
	}
	c.doc.tombstone(c.id)
}
