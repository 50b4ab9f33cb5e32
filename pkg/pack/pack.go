// Package pack computes the initial nested circle packing of a normalized
// hierarchy.
//
// Every leaf gets a radius proportional to the square root of its weight;
// every folder gets the smallest circle enclosing its packed children plus
// padding. Packing runs twice: once without padding to learn the root's
// natural size, then again with padding rescaled so that the final padding
// is expressed in canvas units. The result is scaled to fit the working
// canvas and centered on it.
//
// Sibling placement is order-sensitive, so children are sorted by
// descending sort key (ties by descending name) before packing, and the
// enclosing-circle randomization uses a fixed-seed generator. The same
// hierarchy always packs to the same layout.
package pack

import (
	"cmp"
	"math"
	"slices"

	"github.com/matzehuels/repobubbles/pkg/hierarchy"
	"github.com/matzehuels/repobubbles/pkg/layout"
)

// Padding between siblings, in canvas units.
const (
	// DensePadding applies inside nodes with more than one childless child.
	DensePadding = 5
	// NestedPadding applies inside every other non-root node.
	NestedPadding = 11
)

// Options sizes the packing canvas.
type Options struct {
	Width            float64
	Height           float64
	PackHeightFactor float64
	// MinLeafValue floors leaf weights so that zero-weight leaves still get
	// a positive radius.
	MinLeafValue float64
}

// DefaultOptions returns the standard 1000x1000 canvas packed in a
// 1000x1300 working space.
func DefaultOptions() Options {
	return Options{
		Width:            layout.Width,
		Height:           layout.Height,
		PackHeightFactor: layout.PackHeightFactor,
		MinLeafValue:     1,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.PackHeightFactor <= 0 {
		o.PackHeightFactor = d.PackHeightFactor
	}
	if o.MinLeafValue <= 0 {
		o.MinLeafValue = d.MinLeafValue
	}
	return o
}

// Pack builds the packed tree for root. A nil root yields nil.
func Pack(root *hierarchy.Node, opts Options) *layout.Tree {
	if root == nil {
		return nil
	}
	opts = opts.withDefaults()

	t := &layout.Tree{}
	build(t, root, layout.NoParent, 0, opts.MinLeafValue)
	aggregate(t)

	dx, dy := opts.Width, opts.Height*opts.PackHeightFactor
	side := math.Min(dx, dy)
	random := newLCG()
	order := postOrder(t)

	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			t.Nodes[i].R = math.Sqrt(t.Nodes[i].Value)
		}
	}
	for _, id := range order {
		packChildren(t, id, 0, random)
	}
	k := t.Nodes[0].R / side
	for _, id := range order {
		packChildren(t, id, padding(t, id)*k, random)
	}

	scale := side / (2 * t.Nodes[0].R)
	t.Nodes[0].X, t.Nodes[0].Y = dx/2, dy/2
	for i := range t.Nodes {
		n := &t.Nodes[i]
		n.R = math.Max(n.R*scale, layout.MinRadius)
		if n.Parent != layout.NoParent {
			p := &t.Nodes[n.Parent]
			n.X = p.X + scale*n.X
			n.Y = p.Y + scale*n.Y
		}
	}
	return t
}

// build appends h and its sorted descendants to t in pre-order.
func build(t *layout.Tree, h *hierarchy.Node, parent, depth int, minLeaf float64) int {
	id := len(t.Nodes)
	t.Nodes = append(t.Nodes, layout.Node{
		ID:        id,
		Parent:    parent,
		Depth:     depth,
		Name:      h.Name,
		Path:      h.Path,
		Label:     h.Label,
		Extension: h.Extension,
		Color:     h.Color,
		SortKey:   h.SortKey,
		Synthetic: h.Synthetic,
	})
	if h.IsLeaf() {
		t.Nodes[id].Value = math.Max(h.Weight, minLeaf)
		return id
	}

	kids := slices.Clone(h.Children)
	slices.SortStableFunc(kids, compareSiblings)
	ids := make([]int, 0, len(kids))
	for _, c := range kids {
		ids = append(ids, build(t, c, id, depth+1, minLeaf))
	}
	t.Nodes[id].Children = ids
	return id
}

// compareSiblings orders by descending sort key, then descending name.
func compareSiblings(a, b *hierarchy.Node) int {
	if c := cmp.Compare(b.SortKey, a.SortKey); c != 0 {
		return c
	}
	return cmp.Compare(b.Name, a.Name)
}

// aggregate sums leaf values into every folder. Nodes are stored in
// pre-order, so a reverse scan sees children before parents.
func aggregate(t *layout.Tree) {
	for i := len(t.Nodes) - 1; i >= 0; i-- {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			continue
		}
		n.Value = 0
		for _, c := range n.Children {
			n.Value += t.Nodes[c].Value
		}
	}
}

// postOrder lists node IDs so that every node follows all of its
// descendants, matching a stack-based traversal.
func postOrder(t *layout.Tree) []int {
	stack := []int{0}
	var visit []int
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit = append(visit, id)
		stack = append(stack, t.Nodes[id].Children...)
	}
	slices.Reverse(visit)
	return visit
}

// padding is zero at the root, DensePadding when more than one child is a
// leaf, and NestedPadding otherwise.
func padding(t *layout.Tree, id int) float64 {
	n := &t.Nodes[id]
	if n.Depth <= 0 {
		return 0
	}
	leaves := 0
	for _, c := range n.Children {
		if t.Nodes[c].IsLeaf() {
			leaves++
		}
	}
	if leaves > 1 {
		return DensePadding
	}
	return NestedPadding
}

// packChildren packs the children of id around the origin, inflating each
// by pad, and sets the node's radius to the enclosing radius plus pad.
func packChildren(t *layout.Tree, id int, pad float64, random func() float64) {
	kids := t.Nodes[id].Children
	if len(kids) == 0 {
		return
	}
	circles := make([]*Circle, len(kids))
	for i, c := range kids {
		circles[i] = &Circle{R: t.Nodes[c].R + pad}
	}
	e := Siblings(circles, random)
	for i, c := range kids {
		n := &t.Nodes[c]
		n.X, n.Y = circles[i].X, circles[i].Y
	}
	t.Nodes[id].R = e + pad
}
