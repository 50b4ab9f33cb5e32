// Package layout holds the packed circle tree shared by the packer, the
// reflow engine, and the renderers.
//
// Nodes live in a flat arena ([Tree].Nodes) and refer to each other by index.
// Parent links are plain indices, so the tree has no ownership cycles and
// can be copied with a single slice copy.
package layout

import (
	"math"
	"sort"

	"github.com/matzehuels/repobubbles/pkg/colors"
)

// Canvas constants.
const (
	// Width and Height size the logical canvas.
	Width  = 1000
	Height = 1000
	// PackHeightFactor stretches the working height used during packing.
	PackHeightFactor = 1.3
	// MaxDepth is the deepest level handed to renderers.
	MaxDepth = 9
	// MinRadius floors every radius so that no circle is degenerate.
	MinRadius = 1e-3
)

// NoParent is the Parent index of the root.
const NoParent = -1

// Point is a canvas position.
type Point struct {
	X, Y float64
}

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Dist returns the distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Node is a packed circle.
type Node struct {
	ID       int
	Parent   int
	Children []int
	Depth    int

	Name      string
	Path      string
	Label     string
	Extension string
	Color     string
	SortKey   float64
	Synthetic bool

	// Value is the aggregated weight of all leaves below the node.
	Value float64
	R     float64
	X, Y  float64
}

// Pos returns the node's center.
func (n *Node) Pos() Point { return Point{n.X, n.Y} }

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Tree is an arena of packed nodes. Nodes[0] is the root and every node
// appears after its parent.
type Tree struct {
	Nodes []Node
}

// Root returns the root node, or nil for an empty tree.
func (t *Tree) Root() *Node {
	if t == nil || len(t.Nodes) == 0 {
		return nil
	}
	return &t.Nodes[0]
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Nodes)
}

// Clone returns a deep copy of t.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	c := &Tree{Nodes: make([]Node, len(t.Nodes))}
	copy(c.Nodes, t.Nodes)
	for i := range c.Nodes {
		c.Nodes[i].Children = append([]int(nil), t.Nodes[i].Children...)
	}
	return c
}

// Positions returns every node's center indexed by ID.
func (t *Tree) Positions() []Point {
	out := make([]Point, len(t.Nodes))
	for i := range t.Nodes {
		out[i] = t.Nodes[i].Pos()
	}
	return out
}

// SetPositions overwrites every node's center. len(ps) must equal t.Len().
func (t *Tree) SetPositions(ps []Point) {
	for i := range t.Nodes {
		t.Nodes[i].X, t.Nodes[i].Y = ps[i].X, ps[i].Y
	}
}

// Descendants returns the IDs of every node below id, depth-first.
func (t *Tree) Descendants(id int) []int {
	var out []int
	var walk func(int)
	walk = func(i int) {
		for _, c := range t.Nodes[i].Children {
			out = append(out, c)
			walk(c)
		}
	}
	walk(id)
	return out
}

// Walk visits every node depth-first in pre-order.
func (t *Tree) Walk(fn func(*Node)) {
	if t.Len() == 0 {
		return
	}
	var walk func(int)
	walk = func(i int) {
		fn(&t.Nodes[i])
		for _, c := range t.Nodes[i].Children {
			walk(c)
		}
	}
	walk(0)
}

// ByPath returns the node with the given path.
func (t *Tree) ByPath(path string) (*Node, bool) {
	for i := range t.Nodes {
		if t.Nodes[i].Path == path {
			return &t.Nodes[i], true
		}
	}
	return nil, false
}

// Visible reports whether a renderer should draw n: not the root, not the
// synthetic bucket, and no deeper than maxDepth.
func Visible(n *Node, maxDepth int) bool {
	return n.Depth > 0 && n.Depth <= maxDepth && !n.Synthetic
}

// Container reports whether n is drawn as an outlined container rather than
// a filled leaf. Nodes at maxDepth are drawn as leaves.
func Container(n *Node, maxDepth int) bool {
	return !n.IsLeaf() && n.Depth != maxDepth
}

// Legend returns the sorted, distinct extensions among visible nodes that
// have a known color in table.
func Legend(t *Tree, table colors.Table, maxDepth int) []string {
	seen := map[string]bool{}
	var exts []string
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if !Visible(n, maxDepth) || n.Extension == "" || seen[n.Extension] {
			continue
		}
		if !colors.Known(table, n.Extension) {
			continue
		}
		seen[n.Extension] = true
		exts = append(exts, n.Extension)
	}
	sort.Strings(exts)
	return exts
}
