package dom

import "iter"

// Axis iterators are lazy sequences over the tree. They are
// restartable as long as the document is not mutated between
// iterations; mutating while a sequence is being consumed is the
// caller's responsibility to avoid (or use SyncCursor).

// Children yields every child node in order.
func (c Cursor) Children() iter.Seq[Cursor] {
	return func(yield func(Cursor) bool) {
		for child := c.FirstChild(); !child.IsNull(); child = child.NextSibling() {
			if !yield(child) {
				return
			}
		}
	}
}

// Ancestors yields the chain of parents up to and including the root
// element.
func (c Cursor) Ancestors() iter.Seq[Cursor] {
	return func(yield func(Cursor) bool) {
		for p := c.Parent(); !p.IsNull(); p = p.Parent() {
			if !yield(p) {
				return
			}
		}
	}
}

// Descendants yields every node below the cursor in document order
// (pre-order depth first).
func (c Cursor) Descendants() iter.Seq[Cursor] {
	return func(yield func(Cursor) bool) {
		c.walkDescendants(yield, false)
	}
}

// DescendantOrSelf yields the cursor itself followed by every
// descendant in document order.
func (c Cursor) DescendantOrSelf() iter.Seq[Cursor] {
	return func(yield func(Cursor) bool) {
		c.walkDescendants(yield, true)
	}
}

func (c Cursor) walkDescendants(yield func(Cursor) bool, self bool) {
	if c.IsNull() {
		return
	}
	if self && !yield(c) {
		return
	}
	cur := c.FirstChild()
	for !cur.IsNull() {
		if !yield(cur) {
			return
		}
		switch {
		case !cur.FirstChild().IsNull():
			cur = cur.FirstChild()
		case !cur.NextSibling().IsNull():
			cur = cur.NextSibling()
		default:
			// Climb until a following sibling exists, stopping at
			// the subtree root.
			for {
				cur = cur.Parent()
				if cur.IsNull() || cur.id == c.id {
					return
				}
				if next := cur.NextSibling(); !next.IsNull() {
					cur = next
					break
				}
			}
		}
	}
}

// FollowingSiblings yields the siblings after the cursor in document
// order.
func (c Cursor) FollowingSiblings() iter.Seq[Cursor] {
	return func(yield func(Cursor) bool) {
		for s := c.NextSibling(); !s.IsNull(); s = s.NextSibling() {
			if !yield(s) {
				return
			}
		}
	}
}

// PrecedingSiblings yields the siblings before the cursor in reverse
// document order.
func (c Cursor) PrecedingSiblings() iter.Seq[Cursor] {
	return func(yield func(Cursor) bool) {
		for s := c.PreviousSibling(); !s.IsNull(); s = s.PreviousSibling() {
			if !yield(s) {
				return
			}
		}
	}
}

// Attributes yields the element's attributes as (name, value) pairs
// in insertion order.
func (c Cursor) Attributes() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if !c.IsElement() {
			return
		}
		a := c.doc.arena
		for at := a.node(c.id).firstAttr; at != nilAttr; at = a.attr(at).next {
			if !yield(a.str(a.attr(at).name), a.str(a.attr(at).value)) {
				return
			}
		}
	}
}
