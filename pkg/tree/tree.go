// Package tree defines the raw input tree consumed by the layout engine.
//
// A tree is a plain hierarchy of named, sized items. Folders carry children;
// leaves carry only a size. Trees are built from a directory walk ([FromDir]),
// from piped "path:count" lines ([FromLines]), or decoded from JSON
// ([ReadJSON]):
//
//	{
//	  "name": "repo",
//	  "path": "",
//	  "size": 4096,
//	  "children": [
//	    {"name": "main.go", "path": "main.go", "size": 1200}
//	  ]
//	}
//
// Paths are slash-delimited, relative to the root, and unique across the
// tree. The root path is empty.
package tree

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Node is one item of the input tree.
//
// A nil entry in Children stands for a subtree that could not be read.
// Consumers skip it rather than failing the whole tree.
type Node struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Size     float64 `json:"size"`
	Children []*Node `json:"children,omitempty"`
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Walk calls fn for n and every descendant in depth-first pre-order.
// Nil children are skipped. Returning false from fn prunes that subtree.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// Count returns the number of non-nil nodes in the tree rooted at n.
func Count(n *Node) int {
	count := 0
	Walk(n, func(*Node) bool {
		count++
		return true
	})
	return count
}

// ReadJSON decodes a tree from r.
// ReadJSON does not close r.
func ReadJSON(r io.Reader) (*Node, error) {
	var root Node
	if err := json.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	return &root, nil
}

// WriteJSON encodes the tree rooted at n to w with indentation.
func WriteJSON(n *Node, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(n); err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	return nil
}

// ReadFile reads a JSON tree from path.
func ReadFile(path string) (*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadJSON(f)
}

// WriteFile writes the tree rooted at n to path as JSON.
func WriteFile(n *Node, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSON(n, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
