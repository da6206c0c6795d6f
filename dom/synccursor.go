package dom

import (
	"sync"
)

// SyncCursor is a thread safe cursor jointly owning its Document.
//
// Cloned SyncCursors share the Document behind one read/write lock:
// navigation and reads take the lock shared, each editing operation
// takes it exclusively for its own duration, and the lock is never
// held while calling back into user code. The Document becomes
// garbage when the last SyncCursor referring to it does.
//
// Navigation keeps the null-absorbing semantics of Cursor.
type SyncCursor struct {
	shared *sharedDocument
	id     nodeID
}

type sharedDocument struct {
	mu  sync.RWMutex
	doc *Document
}

// NewSyncCursor wraps a Document for shared use and returns a cursor
// at its root element. The caller must hand over ownership: using
// plain cursors into the same Document afterwards would bypass the
// lock.
func NewSyncCursor(doc *Document) SyncCursor {
	shared := &sharedDocument{doc: doc}
	return SyncCursor{shared: shared, id: doc.Root().id}
}

func (s SyncCursor) cursor() Cursor {
	return Cursor{doc: s.shared.doc, id: s.id}
}

func (s SyncCursor) at(c Cursor) SyncCursor {
	return SyncCursor{shared: s.shared, id: c.id}
}

// nav runs one navigation step under the shared lock.
func (s SyncCursor) nav(f func(Cursor) Cursor) SyncCursor {
	s.shared.mu.RLock()
	defer s.shared.mu.RUnlock()
	return s.at(f(s.cursor()))
}

//
// Navigation
//

// Parent returns the parent element.
func (s SyncCursor) Parent() SyncCursor { return s.nav(Cursor.Parent) }

// FirstChild returns the first child node.
func (s SyncCursor) FirstChild() SyncCursor { return s.nav(Cursor.FirstChild) }

// LastChild returns the last child node.
func (s SyncCursor) LastChild() SyncCursor { return s.nav(Cursor.LastChild) }

// NextSibling returns the following sibling node.
func (s SyncCursor) NextSibling() SyncCursor { return s.nav(Cursor.NextSibling) }

// PreviousSibling returns the preceding sibling node.
func (s SyncCursor) PreviousSibling() SyncCursor { return s.nav(Cursor.PreviousSibling) }

// NextSiblingElement returns the following element sibling.
func (s SyncCursor) NextSiblingElement() SyncCursor { return s.nav(Cursor.NextSiblingElement) }

// FirstChildElement returns the first element child.
func (s SyncCursor) FirstChildElement() SyncCursor { return s.nav(Cursor.FirstChildElement) }

// Root returns the root of the subtree the cursor is in.
func (s SyncCursor) Root() SyncCursor { return s.nav(Cursor.Root) }

// FindChild returns the first child element with the given name.
func (s SyncCursor) FindChild(name string) SyncCursor {
	s.shared.mu.RLock()
	defer s.shared.mu.RUnlock()
	return s.at(s.cursor().FindChild(name))
}

//
// Reads
//

// IsNull reports whether the cursor points at no live node.
func (s SyncCursor) IsNull() bool {
	s.shared.mu.RLock()
	defer s.shared.mu.RUnlock()
	return s.cursor().IsNull()
}

// IsElement reports whether the cursor points at an element.
func (s SyncCursor) IsElement() bool {
	s.shared.mu.RLock()
	defer s.shared.mu.RUnlock()
	return s.cursor().IsElement()
}

// IsText reports whether the cursor points at a text node.
func (s SyncCursor) IsText() bool {
	s.shared.mu.RLock()
	defer s.shared.mu.RUnlock()
	return s.cursor().IsText()
}

// Name returns the element name.
func (s SyncCursor) Name() string {
	s.shared.mu.RLock()
	defer s.shared.mu.RUnlock()
	return s.cursor().Name()
}

// Text returns the character data of a text node.
func (s SyncCursor) Text() string {
	s.shared.mu.RLock()
	defer s.shared.mu.RUnlock()
	return s.cursor().Text()
}

// TextContent returns all text inside the subtree in document order.
func (s SyncCursor) TextContent() string {
	s.shared.mu.RLock()
	defer s.shared.mu.RUnlock()
	return s.cursor().TextContent()
}

// Attribute returns the value of the named attribute, or "".
func (s SyncCursor) Attribute(name string) string {
	s.shared.mu.RLock()
	defer s.shared.mu.RUnlock()
	return s.cursor().Attribute(name)
}

// AttributeList returns a snapshot of the element's attributes in
// insertion order. A snapshot is returned instead of a live iterator
// so no lock is held while the caller ranges over it.
func (s SyncCursor) AttributeList() []Attr {
	s.shared.mu.RLock()
	defer s.shared.mu.RUnlock()
	var attrs []Attr
	for name, value := range s.cursor().Attributes() {
		attrs = append(attrs, Attr{Name: name, Value: value})
	}
	return attrs
}

// ChildList returns a snapshot of the cursor's children.
func (s SyncCursor) ChildList() []SyncCursor {
	s.shared.mu.RLock()
	defer s.shared.mu.RUnlock()
	var kids []SyncCursor
	for child := range s.cursor().Children() {
		kids = append(kids, s.at(child))
	}
	return kids
}

// String returns the serialized form of the subtree.
func (s SyncCursor) String() string {
	s.shared.mu.RLock()
	defer s.shared.mu.RUnlock()
	return s.cursor().String()
}

//
// Editing
//

// edit runs one editing operation under the exclusive lock.
func (s SyncCursor) edit(f func(Cursor) error) error {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	return f(s.cursor())
}

// SetName renames the element.
func (s SyncCursor) SetName(name string) error {
	return s.edit(func(c Cursor) error { return c.SetName(name) })
}

// SetAttribute sets or replaces an attribute value.
func (s SyncCursor) SetAttribute(name, value string) error {
	return s.edit(func(c Cursor) error { return c.SetAttribute(name, value) })
}

// RemoveAttribute deletes an attribute.
func (s SyncCursor) RemoveAttribute(name string) error {
	return s.edit(func(c Cursor) error { return c.RemoveAttribute(name) })
}

// AppendChildElement creates a new element as the last child.
func (s SyncCursor) AppendChildElement(name string) (SyncCursor, error) {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	child, err := s.cursor().AppendChildElement(name)
	return s.at(child), err
}

// AppendText appends character data as the last child.
func (s SyncCursor) AppendText(text string) (SyncCursor, error) {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	child, err := s.cursor().AppendText(text)
	return s.at(child), err
}

// SetText replaces the text of a text node or of a childless or
// text-only element.
func (s SyncCursor) SetText(text string) error {
	return s.edit(func(c Cursor) error { return c.SetText(text) })
}

// InsertElementBefore creates a new element as the preceding sibling.
func (s SyncCursor) InsertElementBefore(name string) (SyncCursor, error) {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	el, err := s.cursor().InsertElementBefore(name)
	return s.at(el), err
}

// InsertElementAfter creates a new element as the following sibling.
func (s SyncCursor) InsertElementAfter(name string) (SyncCursor, error) {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	el, err := s.cursor().InsertElementAfter(name)
	return s.at(el), err
}

// Detach unlinks the subtree, keeping it alive for reattachment.
func (s SyncCursor) Detach() error {
	return s.edit(Cursor.Detach)
}

// InsertBefore moves the subtree under other in front of the cursor.
// Both cursors must share the same Document.
func (s SyncCursor) InsertBefore(other SyncCursor) error {
	return s.edit(func(c Cursor) error { return c.InsertBefore(other.cursor()) })
}

// InsertAfter moves the subtree under other right after the cursor.
func (s SyncCursor) InsertAfter(other SyncCursor) error {
	return s.edit(func(c Cursor) error { return c.InsertAfter(other.cursor()) })
}

// AppendChild moves the subtree under other to be the last child.
func (s SyncCursor) AppendChild(other SyncCursor) error {
	return s.edit(func(c Cursor) error { return c.AppendChild(other.cursor()) })
}

// Drop detaches and tombstones the subtree.
func (s SyncCursor) Drop() {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	s.cursor().Drop()
}

// Attr is one attribute in a snapshot taken from a SyncCursor.
type Attr struct {
	Name  string
	Value string
}
