package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/matzehuels/repobubbles/internal/testtree"
	"github.com/matzehuels/repobubbles/pkg/hierarchy"
	"github.com/matzehuels/repobubbles/pkg/layout"
	"github.com/matzehuels/repobubbles/pkg/poscache"
	"github.com/matzehuels/repobubbles/pkg/tree"
)

func TestLayoutNil(t *testing.T) {
	e := New()
	e.Cache().SetPosition("kept", layout.Point{X: 1, Y: 1})
	if got := e.Layout(nil); got != nil {
		t.Errorf("Layout(nil) = %v, want nil", got)
	}
	if _, ok := e.Cache().Position("kept"); !ok {
		t.Error("Layout(nil) should leave the cache untouched")
	}
}

func TestLayoutRecordsCache(t *testing.T) {
	e := New()
	lt := e.Layout(testtree.Repo())
	if e.Cache().Len() != lt.Len() {
		t.Errorf("cache has %d entries, tree has %d nodes", e.Cache().Len(), lt.Len())
	}
	for i := range lt.Nodes {
		n := &lt.Nodes[i]
		if p, ok := e.Cache().Position(n.Path); !ok || p != n.Pos() {
			t.Errorf("cache position for %q = %+v, %v; want %+v", n.Path, p, ok, n.Pos())
		}
		if k, ok := e.Cache().Order(n.Path); !ok || k != n.SortKey {
			t.Errorf("cache order for %q = %v, %v; want %v", n.Path, k, ok, n.SortKey)
		}
	}
}

func TestLayoutContainmentAndSeparation(t *testing.T) {
	cfg := DefaultConfig().Reflow
	for seed := uint64(1); seed <= 10; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			lt := New().Layout(testtree.Random(seed, 4, 8))
			checkLayout(t, lt, cfg.LeafPadding, cfg.ShallowPadding)
		})
	}
}

func TestLayoutStable(t *testing.T) {
	inputs := map[string]*tree.Node{"repo": testtree.Repo()}
	for seed := uint64(1); seed <= 12; seed++ {
		inputs[fmt.Sprintf("seed=%d", seed)] = testtree.Random(seed, 4, 8)
	}
	for name, root := range inputs {
		t.Run(name, func(t *testing.T) {
			e := New()
			prev := e.Layout(root)
			for pass := 2; pass <= 3; pass++ {
				next := e.Layout(root)
				if mean, worst := drift(prev, next); mean > 1 || worst > 1 {
					t.Errorf("pass %d drifted: mean %.3f, max %.3f", pass, mean, worst)
				}
				for i := range prev.Nodes {
					if prev.Nodes[i].Path != next.Nodes[i].Path {
						t.Fatalf("pass %d: sibling order changed at %d: %q -> %q", pass, i, prev.Nodes[i].Path, next.Nodes[i].Path)
					}
				}
				prev = next
			}
		})
	}
}

func TestLayoutMinimalDisruption(t *testing.T) {
	e := New()
	root := testtree.Repo()
	before := e.Layout(root)
	after := e.Layout(testtree.AddLeaf(root, "pkg/api", "middleware.go", 500))

	added, ok := after.ByPath("pkg/api/middleware.go")
	if !ok {
		t.Fatal("new leaf missing from layout")
	}
	if d := testtree.Escape(added, &after.Nodes[added.Parent]); d > 1e-6 {
		t.Errorf("new leaf escapes its parent by %.6f", d)
	}

	mean, worst := drift(before, after)
	if mean > 20 || worst > 80 {
		t.Errorf("adding one leaf moved existing circles: mean %.2f, max %.2f", mean, worst)
	}

	cfg := DefaultConfig().Reflow
	checkLayout(t, after, cfg.LeafPadding, cfg.ShallowPadding)
}

func TestLayoutDeterministic(t *testing.T) {
	root := testtree.Random(7, 3, 7)
	a := New().Layout(root)
	b := New().Layout(root)
	if a.Len() != b.Len() {
		t.Fatalf("node counts differ: %d vs %d", a.Len(), b.Len())
	}
	for i := range a.Nodes {
		na, nb := &a.Nodes[i], &b.Nodes[i]
		if na.Path != nb.Path || na.X != nb.X || na.Y != nb.Y || na.R != nb.R {
			t.Fatalf("node %d differs: %+v vs %+v", i, na, nb)
		}
	}
}

func TestEnginesAreIndependent(t *testing.T) {
	root := testtree.Repo()
	warm := New()
	warm.Layout(testtree.Random(3, 3, 6))
	warm.Layout(root)

	a := New().Layout(root)
	b := New().Layout(root)
	for i := range a.Nodes {
		if a.Nodes[i].Pos() != b.Nodes[i].Pos() {
			t.Fatalf("fresh engines disagree on %q", a.Nodes[i].Path)
		}
	}
}

func TestRestoredCacheMatchesLiveCache(t *testing.T) {
	root := testtree.Repo()
	live := New()
	live.Layout(root)

	data, err := json.Marshal(live.Cache())
	if err != nil {
		t.Fatal(err)
	}
	restored := poscache.New()
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatal(err)
	}

	want := live.Layout(root)
	got := New(WithCache(restored)).Layout(root)
	for i := range want.Nodes {
		if want.Nodes[i].Pos() != got.Nodes[i].Pos() {
			t.Fatalf("%q: restored %+v, live %+v", want.Nodes[i].Path, got.Nodes[i].Pos(), want.Nodes[i].Pos())
		}
	}
}

func TestLayoutLooseFilesOnly(t *testing.T) {
	root := &tree.Node{Name: "root", Size: 4096}
	for i := range 5 {
		name := fmt.Sprintf("f%d.go", i)
		root.Children = append(root.Children, &tree.Node{Name: name, Path: name, Size: float64(100 * (i + 1))})
	}

	lt := New().Layout(root)
	if got := len(lt.Root().Children); got != 1 {
		t.Fatalf("root has %d children, want only the bucket", got)
	}
	bucket := &lt.Nodes[lt.Root().Children[0]]
	if bucket.Path != hierarchy.LooseFilesID || !bucket.Synthetic {
		t.Fatalf("top-level node = %+v, want the loose-files bucket", bucket)
	}
	if len(bucket.Children) != 5 {
		t.Errorf("bucket has %d children, want 5", len(bucket.Children))
	}
	cfg := DefaultConfig().Reflow
	checkLayout(t, lt, cfg.LeafPadding, cfg.ShallowPadding)
}

func TestLayoutSingleLeaf(t *testing.T) {
	lt := New().Layout(&tree.Node{Name: "only.go", Path: "", Size: 10})
	if lt.Len() != 1 {
		t.Fatalf("Len = %d, want 1", lt.Len())
	}
	if lt.Root().R <= 0 {
		t.Errorf("root radius = %v", lt.Root().R)
	}
}

func TestNewAppliesCanvas(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pack.Width, cfg.Pack.Height = 600, 400
	e := New(WithConfig(cfg))
	got := e.Config().Reflow
	if got.Width != 600 || got.Height != 400 {
		t.Errorf("reflow canvas = %vx%v, want 600x400", got.Width, got.Height)
	}
	if got.Iterations != 290 {
		t.Errorf("Iterations = %d, want default", got.Iterations)
	}
}

// checkLayout asserts containment at every depth and sibling separation up
// to the collision margins. Root children are contained by the enclosing
// circle computed after reflow.
func checkLayout(t *testing.T, lt *layout.Tree, leafPad, maxPad float64) {
	t.Helper()
	for i := range lt.Nodes {
		n := &lt.Nodes[i]
		if n.R <= 0 {
			t.Errorf("%q has radius %v", n.Path, n.R)
		}
		if n.Parent != layout.NoParent {
			if d := testtree.Escape(n, &lt.Nodes[n.Parent]); d > 1e-6 {
				t.Errorf("%q escapes parent by %.6f", n.Path, d)
			}
		}
		for a := 0; a < len(n.Children); a++ {
			for b := a + 1; b < len(n.Children); b++ {
				ca, cb := &lt.Nodes[n.Children[a]], &lt.Nodes[n.Children[b]]
				tol := pad(ca, leafPad, maxPad) + pad(cb, leafPad, maxPad)
				if o := testtree.Overlap(ca, cb); o > tol {
					t.Errorf("%q and %q overlap by %.3f", ca.Path, cb.Path, o)
				}
			}
		}
	}
}

func pad(n *layout.Node, leafPad, maxPad float64) float64 {
	if n.IsLeaf() {
		return leafPad
	}
	return maxPad
}

// drift compares nodes present in both trees by path, ignoring the root.
func drift(a, b *layout.Tree) (mean, worst float64) {
	count := 0
	for i := 1; i < a.Len(); i++ {
		n := &a.Nodes[i]
		m, ok := b.ByPath(n.Path)
		if !ok {
			continue
		}
		d := n.Pos().Dist(m.Pos())
		mean += d
		worst = math.Max(worst, d)
		count++
	}
	if count > 0 {
		mean /= float64(count)
	}
	return mean, worst
}
