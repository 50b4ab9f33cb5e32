package tree

import (
	"os"
	"path/filepath"
	"slices"
)

// DefaultExclude lists directory names skipped by [FromDir] when
// DirOptions.Exclude is nil.
var DefaultExclude = []string{".git", "node_modules"}

// DirOptions configures [FromDir].
type DirOptions struct {
	// Exclude lists directory or file names that are never descended into.
	// Nil means DefaultExclude; an empty non-nil slice excludes nothing.
	Exclude []string
}

// FromDir builds a tree from the directory at root.
//
// File sizes are byte counts. Folder sizes are the size reported for the
// directory entry itself; the layout engine ignores them for folders that
// keep children. Entries that cannot be read are left out so that a single
// unreadable file does not abort the walk.
func FromDir(root string, opts DirOptions) (*Node, error) {
	exclude := opts.Exclude
	if exclude == nil {
		exclude = DefaultExclude
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(filepath.Clean(root))
	if !info.IsDir() {
		return &Node{Name: name, Path: "", Size: float64(info.Size())}, nil
	}

	return walkDir(root, "", name, info, exclude), nil
}

func walkDir(abs, rel, name string, info os.FileInfo, exclude []string) *Node {
	n := &Node{Name: name, Path: rel, Size: float64(info.Size())}
	if !info.IsDir() {
		return n
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil
	}
	n.Children = []*Node{}
	for _, e := range entries {
		if slices.Contains(exclude, e.Name()) {
			continue
		}
		ei, err := e.Info()
		if err != nil {
			continue
		}
		childRel := e.Name()
		if rel != "" {
			childRel = rel + "/" + e.Name()
		}
		if c := walkDir(filepath.Join(abs, e.Name()), childRel, e.Name(), ei, exclude); c != nil {
			n.Children = append(n.Children, c)
		}
	}
	return n
}
