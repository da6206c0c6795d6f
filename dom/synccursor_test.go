package dom

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncCursorBasics(t *testing.T) {
	ck := assert.New(t)

	doc := mustParse(t, `<doc><a x="1">123</a><b/></doc>`)
	root := NewSyncCursor(doc)

	ck.Equal("doc", root.Name())
	ck.True(root.IsElement())
	ck.False(root.IsNull())

	a := root.FirstChild()
	ck.Equal("a", a.Name())
	ck.Equal("1", a.Attribute("x"))
	ck.Equal("123", a.TextContent())
	ck.True(a.FirstChild().IsText())
	ck.Equal("123", a.FirstChild().Text())

	ck.Equal("b", a.NextSibling().Name())
	ck.Equal("doc", a.Parent().Name())
	ck.Equal("b", root.FindChild("b").Name())
	ck.True(root.FindChild("zzz").IsNull())

	// Null chains stay safe.
	ck.Equal("", root.FindChild("zzz").FirstChild().Parent().Name())

	ck.Equal([]Attr{{Name: "x", Value: "1"}}, a.AttributeList())
	kids := root.ChildList()
	require.Len(t, kids, 2)
	ck.Equal("a", kids[0].Name())
	ck.Equal("b", kids[1].Name())

	ck.Equal(`<doc><a x="1">123</a><b/></doc>`, root.String())
}

func TestSyncCursorEditing(t *testing.T) {
	ck := assert.New(t)

	doc, err := NewDocument("doc")
	require.NoError(t, err)
	root := NewSyncCursor(doc)

	a, err := root.AppendChildElement("a")
	ck.NoError(err)
	_, err = a.AppendText("hi")
	ck.NoError(err)
	ck.NoError(a.SetAttribute("x", "1"))
	b, err := a.InsertElementAfter("b")
	ck.NoError(err)
	ck.NoError(b.SetText("there"))
	ck.Equal(`<doc><a x="1">hi</a><b>there</b></doc>`, root.String())

	ck.NoError(b.Detach())
	ck.Equal(`<doc><a x="1">hi</a></doc>`, root.String())
	ck.NoError(a.InsertBefore(b))
	ck.Equal(`<doc><b>there</b><a x="1">hi</a></doc>`, root.String())

	b.Drop()
	ck.True(b.IsNull())
	ck.Error(b.SetName("x"))
	ck.Equal(`<doc><a x="1">hi</a></doc>`, root.String())
}

func TestSyncCursorConcurrentUse(t *testing.T) {
	doc, err := NewDocument("doc")
	require.NoError(t, err)
	root := NewSyncCursor(doc)

	const writers = 4
	const readers = 4
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				el, err := root.AppendChildElement("item")
				if err != nil {
					t.Error(err)
					return
				}
				if err := el.SetAttribute("w", fmt.Sprintf("%d", w)); err != nil {
					t.Error(err)
					return
				}
			}
		}(w)
	}
	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				for _, child := range root.ChildList() {
					_ = child.Name()
					_ = child.Attribute("w")
				}
				_ = root.String()
			}
		}()
	}
	wg.Wait()

	count := 0
	for _, child := range root.ChildList() {
		assert.Equal(t, "item", child.Name())
		count++
	}
	assert.Equal(t, writers*perWriter, count)
}
