package dom

import (
	"github.com/meduketto/iksemel-go/ikserr"
)

// Document owns an arena holding one XML document tree.
//
// A Document is built by a Parser, a stream parser, or from scratch
// with NewDocument. It is navigated and edited through cursors; the
// Document itself is not safe for concurrent use. Wrap it in a
// SyncCursor to share it between goroutines.
type Document struct {
	arena *arena
	// holder is the synthetic root node carrying the single element
	// child of the document.
	holder nodeID
}

// Option configures document construction.
type Option func(*config)

type config struct {
	dataHint int
	nodeHint int
	limit    int
}

// WithSizeHint tunes the arena for an expected input size in bytes so
// fewer allocations are made while building.
func WithSizeHint(bytes int) Option {
	return func(c *config) {
		c.dataHint = bytes
		c.nodeHint = bytes / 16
	}
}

// WithMemoryLimit caps the arena at the given number of bytes.
// Operations that would grow past the cap fail with a NoMemory error.
func WithMemoryLimit(bytes int) Option {
	return func(c *config) { c.limit = bytes }
}

// NewDocument creates a document with a single empty root element.
func NewDocument(rootName string, opts ...Option) (*Document, error) {
	doc, err := newEmptyDocument(opts...)
	if err != nil {
		return nil, err
	}
	if _, err := doc.appendElement(doc.holder, rootName); err != nil {
		return nil, err
	}
	return doc, nil
}

func newEmptyDocument(opts ...Option) (*Document, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	a := newArena(cfg.dataHint, cfg.nodeHint, cfg.limit)
	holder, err := a.newNode(nodeRoot)
	if err != nil {
		return nil, err
	}
	return &Document{arena: a, holder: holder}, nil
}

// Root returns a cursor at the document's root element, or a null
// cursor for a document under construction with no element yet.
func (d *Document) Root() Cursor {
	for id := d.arena.node(d.holder).firstChild; id != nilNode; id = d.arena.node(id).next {
		if d.arena.node(id).kind == nodeElement {
			return Cursor{doc: d, id: id}
		}
	}
	return Cursor{doc: d, id: nilNode}
}

// ArenaStats reports the memory usage of the document's arena.
func (d *Document) ArenaStats() ArenaStats {
	return d.arena.stats()
}

// appendElement creates a new element node as the last child of
// parent. The name is assumed validated.
func (d *Document) appendElement(parent nodeID, name string) (nodeID, error) {
	ref, err := d.arena.pushString(name)
	if err != nil {
		return nilNode, err
	}
	id, err := d.arena.newNode(nodeElement)
	if err != nil {
		return nilNode, err
	}
	d.arena.node(id).name = ref
	d.linkLast(parent, id)
	return id, nil
}

// appendText creates a text node as the last child of parent, or
// extends the last child when it is already a text node so two text
// siblings never appear next to each other.
func (d *Document) appendText(parent nodeID, text []byte) (nodeID, error) {
	a := d.arena
	last := a.node(parent).lastChild
	if last != nilNode && a.node(last).kind == nodeText {
		ref, err := a.concat(a.node(last).text, text)
		if err != nil {
			return nilNode, err
		}
		a.node(last).text = ref
		return last, nil
	}
	ref, err := a.pushBytes(text)
	if err != nil {
		return nilNode, err
	}
	id, err := a.newNode(nodeText)
	if err != nil {
		return nilNode, err
	}
	a.node(id).text = ref
	d.linkLast(parent, id)
	return id, nil
}

// linkLast wires id as the last child of parent.
func (d *Document) linkLast(parent, id nodeID) {
	a := d.arena
	n := a.node(id)
	p := a.node(parent)
	n.parent = parent
	n.next = nilNode
	n.prev = p.lastChild
	if p.lastChild != nilNode {
		a.node(p.lastChild).next = id
	} else {
		p.firstChild = id
	}
	p.lastChild = id
}

// unlink removes id from its parent and siblings, leaving the
// subtree under id intact.
func (d *Document) unlink(id nodeID) {
	a := d.arena
	n := a.node(id)
	if n.prev != nilNode {
		a.node(n.prev).next = n.next
	}
	if n.next != nilNode {
		a.node(n.next).prev = n.prev
	}
	if n.parent != nilNode {
		p := a.node(n.parent)
		if p.firstChild == id {
			p.firstChild = n.next
		}
		if p.lastChild == id {
			p.lastChild = n.prev
		}
	}
	n.parent = nilNode
	n.prev = nilNode
	n.next = nilNode
}

// setAttribute sets, replaces or (with remove) deletes an attribute
// of the element id. Insertion order of distinct names is preserved.
func (d *Document) setAttribute(id nodeID, name, value string, remove bool) error {
	a := d.arena
	n := a.node(id)
	for at := n.firstAttr; at != nilAttr; at = a.attr(at).next {
		if a.str(a.attr(at).name) != name {
			continue
		}
		if remove {
			attr := a.attr(at)
			if attr.prev != nilAttr {
				a.attr(attr.prev).next = attr.next
			} else {
				n.firstAttr = attr.next
			}
			if attr.next != nilAttr {
				a.attr(attr.next).prev = attr.prev
			} else {
				n.lastAttr = attr.prev
			}
			return nil
		}
		ref, err := a.pushString(value)
		if err != nil {
			return err
		}
		a.attr(at).value = ref
		return nil
	}
	if remove {
		return nil
	}
	nameRef, err := a.pushString(name)
	if err != nil {
		return err
	}
	valueRef, err := a.pushString(value)
	if err != nil {
		return err
	}
	at, err := a.newAttr(nameRef, valueRef)
	if err != nil {
		return err
	}
	if n.lastAttr != nilAttr {
		a.attr(n.lastAttr).next = at
		a.attr(at).prev = n.lastAttr
	} else {
		n.firstAttr = at
	}
	n.lastAttr = at
	return nil
}

// insertAttribute adds a new attribute, failing on a duplicate name.
// Used by the builder where duplicates are a document error.
func (d *Document) insertAttribute(id nodeID, name, value []byte) error {
	a := d.arena
	n := a.node(id)
	for at := n.firstAttr; at != nilAttr; at = a.attr(at).next {
		if a.str(a.attr(at).name) == string(name) {
			return ikserr.New(ikserr.DuplicateAttribute, ikserr.Msg(string(name)))
		}
	}
	nameRef, err := a.pushBytes(name)
	if err != nil {
		return err
	}
	valueRef, err := a.pushBytes(value)
	if err != nil {
		return err
	}
	at, err := a.newAttr(nameRef, valueRef)
	if err != nil {
		return err
	}
	if n.lastAttr != nilAttr {
		a.attr(n.lastAttr).next = at
		a.attr(at).prev = n.lastAttr
	} else {
		n.firstAttr = at
	}
	n.lastAttr = at
	return nil
}

// coalesceAt folds a freshly attached text node into adjacent text
// siblings so two text nodes never touch. The absorbed nodes are
// tombstoned; the surviving node id is returned.
func (d *Document) coalesceAt(id nodeID) (nodeID, error) {
	a := d.arena
	if a.node(id).kind != nodeText {
		return id, nil
	}
	if prev := a.node(id).prev; prev != nilNode && a.node(prev).kind == nodeText {
		ref, err := a.concat(a.node(prev).text, []byte(a.str(a.node(id).text)))
		if err != nil {
			return id, err
		}
		a.node(prev).text = ref
		d.unlink(id)
		a.node(id).tombstone = true
		id = prev
	}
	if next := a.node(id).next; next != nilNode && a.node(next).kind == nodeText {
		ref, err := a.concat(a.node(id).text, []byte(a.str(a.node(next).text)))
		if err != nil {
			return id, err
		}
		a.node(id).text = ref
		d.unlink(next)
		a.node(next).tombstone = true
	}
	return id, nil
}

// tombstone marks the whole subtree under id as dropped. Tombstoned
// nodes keep their identifiers so outstanding cursors stay safe, but
// every operation through such a cursor becomes a no-op.
func (d *Document) tombstone(id nodeID) {
	a := d.arena
	n := a.node(id)
	n.tombstone = true
	for child := n.firstChild; child != nilNode; child = a.node(child).next {
		d.tombstone(child)
	}
}
