// Package testtree generates input trees for layout tests.
package testtree

import (
	"fmt"
	"math/rand/v2"

	"github.com/matzehuels/repobubbles/pkg/layout"
	"github.com/matzehuels/repobubbles/pkg/tree"
)

var extensions = []string{"go", "ts", "md", "json", "png", "txt", "rs", ""}

// Random returns a random tree with up to maxDepth folder levels and up to
// maxChildren children per folder, seeded for reproducibility.
func Random(seed uint64, maxDepth, maxChildren int) *tree.Node {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	root := &tree.Node{Name: "root", Path: "", Size: 4096}
	grow(rng, root, 1, maxDepth, maxChildren)
	return root
}

func grow(rng *rand.Rand, n *tree.Node, depth, maxDepth, maxChildren int) {
	count := 1 + rng.IntN(maxChildren)
	for i := range count {
		name := fmt.Sprintf("n%d", i)
		isDir := depth < maxDepth && rng.Float64() < 0.35
		if !isDir {
			if ext := extensions[rng.IntN(len(extensions))]; ext != "" {
				name += "." + ext
			}
		}
		path := name
		if n.Path != "" {
			path = n.Path + "/" + name
		}
		child := &tree.Node{Name: name, Path: path}
		if isDir {
			child.Size = 4096
			grow(rng, child, depth+1, maxDepth, maxChildren)
		} else {
			child.Size = float64(rng.IntN(20000))
		}
		n.Children = append(n.Children, child)
	}
}

// Repo returns a small fixed tree shaped like a typical repository.
func Repo() *tree.Node {
	files := func(dir string, names ...string) []*tree.Node {
		var out []*tree.Node
		for i, name := range names {
			out = append(out, &tree.Node{Name: name, Path: dir + "/" + name, Size: float64(400 + 350*i)})
		}
		return out
	}
	return &tree.Node{Name: "repo", Path: "", Size: 4096, Children: []*tree.Node{
		{Name: "cmd", Path: "cmd", Size: 4096, Children: files("cmd", "main.go", "flags.go")},
		{Name: "pkg", Path: "pkg", Size: 4096, Children: []*tree.Node{
			{Name: "api", Path: "pkg/api", Size: 4096, Children: files("pkg/api", "server.go", "routes.go", "auth.go", "errors.go", "types.go", "handlers.go")},
			{Name: "store", Path: "pkg/store", Size: 4096, Children: files("pkg/store", "store.go", "redis.go", "mongo.go", "file.go", "memory.go")},
			{Name: "util", Path: "pkg/util", Size: 4096, Children: files("pkg/util", "strings.go", "time.go")},
		}},
		{Name: "web", Path: "web", Size: 4096, Children: files("web", "index.ts", "app.tsx", "style.css", "logo.png", "api.ts", "router.ts")},
		{Name: "docs", Path: "docs", Size: 4096, Children: files("docs", "README.md", "DESIGN.md", "API.md")},
		{Name: "go.mod", Path: "go.mod", Size: 300},
		{Name: "Makefile", Path: "Makefile", Size: 900},
	}}
}

// AddLeaf returns a copy of root with one extra leaf under the folder at
// dirPath.
func AddLeaf(root *tree.Node, dirPath, name string, size float64) *tree.Node {
	c := clone(root)
	tree.Walk(c, func(n *tree.Node) bool {
		if n.Path == dirPath && !n.IsLeaf() {
			p := name
			if dirPath != "" {
				p = dirPath + "/" + name
			}
			n.Children = append(n.Children, &tree.Node{Name: name, Path: p, Size: size})
			return false
		}
		return true
	})
	return c
}

func clone(n *tree.Node) *tree.Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Children = nil
	for _, ch := range n.Children {
		c.Children = append(c.Children, clone(ch))
	}
	return &c
}

// Overlap returns how far the circles of a and b overlap; zero or negative
// means they do not.
func Overlap(a, b *layout.Node) float64 {
	return a.R + b.R - a.Pos().Dist(b.Pos())
}

// Escape returns how far the circle of child pokes outside parent; zero or
// negative means it is contained.
func Escape(child, parent *layout.Node) float64 {
	return child.Pos().Dist(parent.Pos()) + child.R - parent.R
}
