// Package dom implements an arena backed XML document tree navigated
// and edited through light cursors.
//
// All nodes, attributes and character data of a Document live in one
// arena owned by the Document. The arena is append only: nodes are
// identified by stable indices that never dangle, and nothing is freed
// until the whole Document is garbage. A detached subtree stays valid
// and can be reattached; an explicitly dropped subtree is tombstoned,
// turning every cursor into it into a harmless null-like handle.
package dom

import (
	"unsafe"

	"github.com/meduketto/iksemel-go/ikserr"
)

type nodeID int32

const nilNode nodeID = -1

type attrID int32

const nilAttr attrID = -1

// strRef locates an interned string inside the arena data blob.
type strRef struct {
	off uint32
	len uint32
}

type nodeKind uint8

const (
	// nodeRoot is the synthetic document holder. It has exactly one
	// element child in a well formed document.
	nodeRoot nodeKind = iota
	nodeElement
	nodeText
)

type node struct {
	kind      nodeKind
	tombstone bool

	parent     nodeID
	firstChild nodeID
	lastChild  nodeID
	prev       nodeID
	next       nodeID

	firstAttr attrID
	lastAttr  attrID

	// name for elements, text for text nodes.
	name strRef
	text strRef
}

type attribute struct {
	next  attrID
	prev  attrID
	name  strRef
	value strRef
}

const (
	nodeRecordSize = int(unsafe.Sizeof(node{}))
	attrRecordSize = int(unsafe.Sizeof(attribute{}))

	defaultDataBytes = 256
	defaultNodeCount = 32
)

// ArenaStats describes the memory usage of a document arena.
type ArenaStats struct {
	Nodes          int
	Attributes     int
	UsedBytes      int
	AllocatedBytes int
}

// arena is the append-only backing store for one Document. Node and
// attribute records live in index-addressed slices; all character
// data shares one byte blob addressed by (offset, length) references.
type arena struct {
	nodes []node
	attrs []attribute
	data  []byte

	// limit caps the total used bytes; 0 means unlimited. Exceeding
	// the cap fails the allocation with a NoMemory error instead of
	// growing.
	limit int
}

func newArena(dataHint, nodeHint, limit int) *arena {
	if dataHint < defaultDataBytes {
		dataHint = defaultDataBytes
	}
	if nodeHint < defaultNodeCount {
		nodeHint = defaultNodeCount
	}
	return &arena{
		nodes: make([]node, 0, nodeHint),
		attrs: make([]attribute, 0, nodeHint),
		data:  make([]byte, 0, dataHint),
		limit: limit,
	}
}

func (a *arena) used() int {
	return len(a.data) + len(a.nodes)*nodeRecordSize + len(a.attrs)*attrRecordSize
}

func (a *arena) allocated() int {
	return cap(a.data) + cap(a.nodes)*nodeRecordSize + cap(a.attrs)*attrRecordSize
}

func (a *arena) stats() ArenaStats {
	return ArenaStats{
		Nodes:          len(a.nodes),
		Attributes:     len(a.attrs),
		UsedBytes:      a.used(),
		AllocatedBytes: a.allocated(),
	}
}

func (a *arena) checkBudget(extra int) error {
	if a.limit > 0 && a.used()+extra > a.limit {
		return ikserr.New(ikserr.NoMemory, ikserr.Msgf("arena budget of %d bytes exceeded", a.limit))
	}
	return nil
}

func (a *arena) newNode(kind nodeKind) (nodeID, error) {
	if err := a.checkBudget(nodeRecordSize); err != nil {
		return nilNode, err
	}
	id := nodeID(len(a.nodes))
	a.nodes = append(a.nodes, node{
		kind:       kind,
		parent:     nilNode,
		firstChild: nilNode,
		lastChild:  nilNode,
		prev:       nilNode,
		next:       nilNode,
		firstAttr:  nilAttr,
		lastAttr:   nilAttr,
	})
	return id, nil
}

func (a *arena) newAttr(name, value strRef) (attrID, error) {
	if err := a.checkBudget(attrRecordSize); err != nil {
		return nilAttr, err
	}
	id := attrID(len(a.attrs))
	a.attrs = append(a.attrs, attribute{
		next:  nilAttr,
		prev:  nilAttr,
		name:  name,
		value: value,
	})
	return id, nil
}

func (a *arena) node(id nodeID) *node { return &a.nodes[id] }

func (a *arena) attr(id attrID) *attribute { return &a.attrs[id] }

// pushBytes interns b and returns its reference.
func (a *arena) pushBytes(b []byte) (strRef, error) {
	if err := a.checkBudget(len(b)); err != nil {
		return strRef{}, err
	}
	off := len(a.data)
	a.data = append(a.data, b...)
	return strRef{off: uint32(off), len: uint32(len(b))}, nil
}

func (a *arena) pushString(s string) (strRef, error) {
	if err := a.checkBudget(len(s)); err != nil {
		return strRef{}, err
	}
	off := len(a.data)
	a.data = append(a.data, s...)
	return strRef{off: uint32(off), len: uint32(len(s))}, nil
}

// concat extends an interned string with b. When old is the current
// tail of the blob the bytes are appended in place; otherwise both
// parts are re-interned together. Used for coalescing adjacent text.
func (a *arena) concat(old strRef, b []byte) (strRef, error) {
	if err := a.checkBudget(len(b)); err != nil {
		return strRef{}, err
	}
	if int(old.off)+int(old.len) == len(a.data) {
		a.data = append(a.data, b...)
		return strRef{off: old.off, len: old.len + uint32(len(b))}, nil
	}
	if err := a.checkBudget(int(old.len) + len(b)); err != nil {
		return strRef{}, err
	}
	off := len(a.data)
	a.data = append(a.data, a.data[old.off:old.off+old.len]...)
	a.data = append(a.data, b...)
	return strRef{off: uint32(off), len: uint32(int(old.len) + len(b))}, nil
}

// str returns the interned string without copying. The blob is append
// only, so the bytes behind the returned string are never rewritten.
func (a *arena) str(r strRef) string {
	if r.len == 0 {
		return ""
	}
	return unsafe.String(&a.data[r.off], int(r.len))
}
