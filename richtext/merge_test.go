package richtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeLists(t *testing.T) {
	p := &Paragraph{}
	a := &List{ListType: ListNumber, Start: 3, Items: []Node{item("a")}}
	b := &List{ListType: ListNumber, Start: 1, Items: []Node{item("b")}}
	c := &List{ListType: ListNumber, Items: []Node{item("c")}}
	bullet := &List{ListType: ListBullet, Items: []Node{item("x")}}
	d := &List{ListType: ListNumber, Items: []Node{item("d")}}

	out := mergeLists([]Node{p, a, b, c, bullet, d})
	require.Len(t, out, 4)
	assert.Same(t, p, out[0])
	merged, ok := out[1].(*List)
	require.True(t, ok)
	assert.Equal(t, 3, merged.Start)
	assert.Equal(t, []Node{a.Items[0], b.Items[0], c.Items[0]}, merged.Items)
	assert.Same(t, bullet, out[2])
	// a lone numbered list is still copied, never aliased
	assert.NotSame(t, d, out[3])
	assert.Equal(t, d.Items, out[3].(*List).Items)

	assert.Len(t, a.Items, 1)
}

func TestMergeListsEmpty(t *testing.T) {
	assert.Empty(t, mergeLists(nil))
	assert.Empty(t, mergeLists([]Node{nil}))
}

func TestMergeListsSkipsNil(t *testing.T) {
	var hole *List
	a := &List{ListType: ListNumber, Items: []Node{item("a")}}
	b := &List{ListType: ListNumber, Items: []Node{item("b")}}

	out := mergeLists([]Node{a, hole, nil, b})
	require.Len(t, out, 1)
	assert.Equal(t, []Node{a.Items[0], b.Items[0]}, out[0].(*List).Items)
}

func TestMergeListsDropsLaterValues(t *testing.T) {
	first := &ListItem{Value: 1, Nodes: []Node{text("A", 0)}}
	later := &ListItem{Value: 5, Nodes: []Node{text("C", 0)}}
	a := &List{ListType: ListNumber, Start: 1, Items: []Node{first}}
	b := &List{ListType: ListNumber, Start: 5, Items: []Node{later}}

	out := mergeLists([]Node{a, b})
	require.Len(t, out, 1)
	items := out[0].(*List).Items
	require.Len(t, items, 2)
	assert.Same(t, first, items[0])
	assert.Equal(t, 0, items[1].(*ListItem).Value)
	assert.Equal(t, 5, later.Value)
	assert.Equal(t, "<ol><li>A</li><li>C</li></ol>", Serialize(doc(a, b)))
}
