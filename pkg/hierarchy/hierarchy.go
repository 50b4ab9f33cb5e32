// Package hierarchy converts a raw input tree into the weighted hierarchy
// submitted to circle packing.
//
// [Normalize] walks the input post-order and:
//
//   - collapses single-child chains, joining names as "parent/child"
//   - assigns capped, extension-biased leaf weights with a per-sibling
//     index offset that breaks exact ties
//   - assigns sticky sort keys from the previous pass's sort orders
//   - moves the root's loose files into a synthetic bucket node
//   - resolves labels, extensions, and colors
//
// Folder weights are not summed here; aggregation happens during packing.
package hierarchy

import (
	"strings"

	"github.com/matzehuels/repobubbles/pkg/colors"
	"github.com/matzehuels/repobubbles/pkg/tree"
)

// LooseFilesID is the reserved id and path of the synthetic node that groups
// the root's leaf children. Renderers never draw it.
const LooseFilesID = "__structure_loose_file__"

// Weighting and ordering constants.
const (
	// HeavyAssetWeight is the fixed weight of font and image files.
	HeavyAssetWeight = 100
	// KnownExtensionCap caps the weight of files with a known color.
	KnownExtensionCap = 15000
	// UnknownExtensionCap caps the weight of all other files.
	UnknownExtensionCap = 9000

	// NewChildSortKey is assigned to nodes first seen under a folder that
	// already had a sort key in the previous pass.
	NewChildSortKey = -100000000
	// PublicSortKey is assigned to folders named "public".
	PublicSortKey = -1000000

	// LabelLength is the maximum display label length in characters.
	LabelLength = 13
)

// heavyAssets are binary formats whose byte size says nothing about how much
// a reader cares about them.
var heavyAssets = map[string]bool{
	"woff":  true,
	"woff2": true,
	"ttf":   true,
	"png":   true,
	"jpg":   true,
	"svg":   true,
}

// OrderLookup resolves the sort key a path was assigned in the previous pass.
type OrderLookup interface {
	Order(path string) (float64, bool)
}

// Options configures [Normalize].
type Options struct {
	// Colors resolves extension colors. Nil resolves everything to
	// colors.Default and treats every extension as unknown.
	Colors colors.Table
	// Orders supplies sort keys from the previous pass. Nil means none.
	Orders OrderLookup
}

// Node is a normalized hierarchy node. Apart from a root whose only child is
// the loose-files bucket, a Node never has exactly one child.
type Node struct {
	Name      string
	Path      string
	Extension string
	Label     string
	Color     string
	Size      float64
	Weight    float64
	SortKey   float64
	Synthetic bool
	Children  []*Node
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Walk calls fn for n and every descendant in depth-first pre-order.
func Walk(n *Node, fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// Normalize converts root into a normalized hierarchy.
// A nil root yields nil.
func Normalize(root *tree.Node, opts Options) *Node {
	if root == nil {
		return nil
	}
	return normalize(root, 0, true, opts)
}

func normalize(src *tree.Node, index int, isRoot bool, opts Options) *Node {
	name, path, size := src.Name, src.Path, src.Size

	var children []*Node
	for i, c := range src.Children {
		if c == nil {
			continue
		}
		children = append(children, normalize(c, i, false, opts))
	}

	if len(children) == 1 {
		only := children[0]
		name = name + "/" + only.Name
		path = only.Path
		size = only.Size
		children = only.Children
	}

	if isRoot && len(children) > 0 {
		children = bucketLooseFiles(children, opts)
	}

	n := &Node{
		Name:      name,
		Path:      path,
		Extension: Extension(name),
		Label:     Truncate(name, LabelLength),
		Size:      size,
		Children:  children,
	}
	n.Weight = weight(n.Extension, size, opts.Colors) + float64(index)
	n.Color = color(n, opts.Colors)
	n.SortKey = sortKey(n, index, opts.Orders)
	return n
}

// bucketLooseFiles keeps folders in place and moves leaves into a synthetic
// bucket appended after them. No bucket is added when there are no leaves.
func bucketLooseFiles(children []*Node, opts Options) []*Node {
	var folders, loose []*Node
	for _, c := range children {
		if c.IsLeaf() {
			loose = append(loose, c)
		} else {
			folders = append(folders, c)
		}
	}
	if len(loose) == 0 {
		return folders
	}

	bucket := &Node{
		Name:      LooseFilesID,
		Path:      LooseFilesID,
		Synthetic: true,
		Children:  loose,
	}
	bucket.Color = color(bucket, opts.Colors)
	bucket.SortKey = sortKey(bucket, len(folders), opts.Orders)
	return append(folders, bucket)
}

func weight(ext string, size float64, table colors.Table) float64 {
	if heavyAssets[strings.ToLower(ext)] {
		return HeavyAssetWeight
	}
	if colors.Known(table, ext) {
		return min(KnownExtensionCap, size)
	}
	return min(UnknownExtensionCap, size)
}

func sortKey(n *Node, index int, orders OrderLookup) float64 {
	if orders != nil {
		if key, ok := orders.Order(n.Path); ok {
			return key
		}
		if _, ok := orders.Order(ParentPath(n.Path)); ok {
			return NewChildSortKey
		}
	}
	if n.Name == "public" {
		return PublicSortKey
	}
	return n.Weight - float64(index)
}

// color resolves a leaf by its own extension and a folder by the most common
// extension among its direct children. The first extension seen wins ties.
func color(n *Node, table colors.Table) string {
	if n.IsLeaf() {
		return colors.Resolve(table, n.Extension)
	}
	counts := make(map[string]int)
	dominant, best := "", 0
	for _, c := range n.Children {
		if c.Extension == "" {
			continue
		}
		counts[c.Extension]++
		if counts[c.Extension] > best {
			dominant, best = c.Extension, counts[c.Extension]
		}
	}
	return colors.Resolve(table, dominant)
}

// Extension returns the trailing dot segment of name, or "" when name has no
// dot. Dot files like ".gitignore" yield "gitignore".
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return name[i+1:]
}

// ParentPath strips the last slash-delimited segment of path.
// Top-level paths have the root path "" as parent.
func ParentPath(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return ""
	}
	return path[:i]
}

// Truncate shortens s to at most max characters, ending with an ellipsis
// when shortened.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}
