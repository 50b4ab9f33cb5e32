package pack

import (
	"fmt"
	"math"
	"testing"

	"github.com/matzehuels/repobubbles/internal/testtree"
	"github.com/matzehuels/repobubbles/pkg/colors"
	"github.com/matzehuels/repobubbles/pkg/hierarchy"
	"github.com/matzehuels/repobubbles/pkg/layout"
	"github.com/matzehuels/repobubbles/pkg/tree"
)

const eps = 1e-3

func packTree(root *tree.Node) *layout.Tree {
	h := hierarchy.Normalize(root, hierarchy.Options{Colors: colors.Linguist()})
	return Pack(h, DefaultOptions())
}

func TestPackNil(t *testing.T) {
	if got := Pack(nil, DefaultOptions()); got != nil {
		t.Errorf("Pack(nil) = %v, want nil", got)
	}
}

func TestPackContainmentAndSeparation(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			lt := packTree(testtree.Random(seed, 4, 8))
			for i := range lt.Nodes {
				n := &lt.Nodes[i]
				if n.R <= 0 {
					t.Errorf("%q radius = %v, want > 0", n.Path, n.R)
				}
				if n.Parent != layout.NoParent {
					if d := testtree.Escape(n, &lt.Nodes[n.Parent]); d > eps {
						t.Errorf("%q escapes parent by %.4f", n.Path, d)
					}
				}
				for a := 0; a < len(n.Children); a++ {
					for b := a + 1; b < len(n.Children); b++ {
						ca, cb := &lt.Nodes[n.Children[a]], &lt.Nodes[n.Children[b]]
						if o := testtree.Overlap(ca, cb); o > eps {
							t.Errorf("%q and %q overlap by %.4f", ca.Path, cb.Path, o)
						}
					}
				}
			}
		})
	}
}

func TestPackFitsWorkingCanvas(t *testing.T) {
	lt := packTree(testtree.Repo())
	root := lt.Root()
	if math.Abs(root.R-500) > eps {
		t.Errorf("root radius = %v, want 500", root.R)
	}
	if root.X != 500 || root.Y != 650 {
		t.Errorf("root center = (%v, %v), want (500, 650)", root.X, root.Y)
	}
}

func TestPackDeterministic(t *testing.T) {
	a := packTree(testtree.Random(7, 4, 8))
	b := packTree(testtree.Random(7, 4, 8))
	if a.Len() != b.Len() {
		t.Fatalf("node counts differ: %d vs %d", a.Len(), b.Len())
	}
	for i := range a.Nodes {
		na, nb := a.Nodes[i], b.Nodes[i]
		if na.Path != nb.Path || na.X != nb.X || na.Y != nb.Y || na.R != nb.R {
			t.Fatalf("node %d differs: %+v vs %+v", i, na, nb)
		}
	}
}

func TestPackSiblingOrder(t *testing.T) {
	h := &hierarchy.Node{Name: "root", Children: []*hierarchy.Node{
		{Name: "b", Path: "b", Weight: 1, SortKey: 10},
		{Name: "a", Path: "a", Weight: 1, SortKey: 10},
		{Name: "c", Path: "c", Weight: 1, SortKey: 30},
		{Name: "d", Path: "d", Weight: 1, SortKey: -5},
	}}
	lt := Pack(h, DefaultOptions())

	var got []string
	for _, id := range lt.Root().Children {
		got = append(got, lt.Nodes[id].Path)
	}
	want := []string{"c", "b", "a", "d"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestPackAggregatesCappedWeights(t *testing.T) {
	root := &tree.Node{Name: "root", Children: []*tree.Node{
		{Name: "src", Path: "src", Size: 4096, Children: []*tree.Node{
			{Name: "a.ts", Path: "src/a.ts", Size: 500},
			{Name: "b.ts", Path: "src/b.ts", Size: 9000000},
		}},
	}}
	lt := packTree(root)

	src, ok := lt.ByPath("src")
	if !ok {
		t.Fatal("src missing")
	}
	if src.Value > 15000+500+2 {
		t.Errorf("src value = %v, want capped sum", src.Value)
	}
	b, _ := lt.ByPath("src/b.ts")
	if b.Value != 15001 {
		t.Errorf("b.ts value = %v, want 15001", b.Value)
	}
}

func TestPackDegenerateWeights(t *testing.T) {
	root := &tree.Node{Name: "root", Children: []*tree.Node{
		{Name: "empty", Path: "empty", Children: []*tree.Node{
			{Name: "a", Path: "empty/a", Size: 0},
			{Name: "b", Path: "empty/b", Size: 0},
			{Name: "c", Path: "empty/c", Size: 0},
		}},
		{Name: "x", Path: "x", Size: 0},
	}}
	lt := packTree(root)
	for _, n := range lt.Nodes {
		if !(n.R > 0) || math.IsNaN(n.X) || math.IsNaN(n.Y) {
			t.Errorf("%q has degenerate circle r=%v at (%v, %v)", n.Path, n.R, n.X, n.Y)
		}
	}
}

func TestPackSingleLeaf(t *testing.T) {
	lt := packTree(&tree.Node{Name: "only.go", Size: 10})
	if lt.Len() != 1 {
		t.Fatalf("len = %d, want 1", lt.Len())
	}
	if r := lt.Root().R; math.Abs(r-500) > eps {
		t.Errorf("radius = %v, want 500", r)
	}
}

func TestPadding(t *testing.T) {
	h := &hierarchy.Node{Name: "root", Children: []*hierarchy.Node{
		{Name: "dense", Path: "dense", Children: []*hierarchy.Node{
			{Name: "a", Path: "dense/a", Weight: 1},
			{Name: "b", Path: "dense/b", Weight: 1},
		}},
		{Name: "nested", Path: "nested", Children: []*hierarchy.Node{
			{Name: "x", Path: "nested/x", Weight: 1},
			{Name: "y", Path: "nested/y", Children: []*hierarchy.Node{
				{Name: "1", Path: "nested/y/1", Weight: 1},
				{Name: "2", Path: "nested/y/2", Weight: 1},
			}},
		}},
	}}
	lt := Pack(h, DefaultOptions())

	tests := []struct {
		path string
		want float64
	}{
		{"", 0},
		{"dense", DensePadding},
		{"nested", NestedPadding},
	}
	for _, tt := range tests {
		n, _ := lt.ByPath(tt.path)
		if got := padding(lt, n.ID); got != tt.want {
			t.Errorf("padding(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestSiblings(t *testing.T) {
	var circles []*Circle
	for i := range 12 {
		circles = append(circles, &Circle{R: float64(1 + i%4)})
	}
	r := Siblings(circles, newLCG())

	for i, a := range circles {
		if d := math.Hypot(a.X, a.Y) + a.R; d > r+1e-6 {
			t.Errorf("circle %d outside enclosure: %v > %v", i, d, r)
		}
		for _, b := range circles[i+1:] {
			if o := a.R + b.R - math.Hypot(a.X-b.X, a.Y-b.Y); o > 1e-6 {
				t.Errorf("overlap %v", o)
			}
		}
	}
}

func TestEnclose(t *testing.T) {
	tests := []struct {
		name    string
		circles []Circle
		want    Circle
	}{
		{"empty", nil, Circle{}},
		{"single", []Circle{{X: 3, Y: 4, R: 2}}, Circle{X: 3, Y: 4, R: 2}},
		{"pair", []Circle{{X: -2, Y: 0, R: 1}, {X: 2, Y: 0, R: 1}}, Circle{X: 0, Y: 0, R: 3}},
		{"nested", []Circle{{X: 0, Y: 0, R: 5}, {X: 1, Y: 1, R: 1}}, Circle{X: 0, Y: 0, R: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Enclose(tt.circles)
			if math.Abs(got.X-tt.want.X) > 1e-9 || math.Abs(got.Y-tt.want.Y) > 1e-9 || math.Abs(got.R-tt.want.R) > 1e-9 {
				t.Errorf("Enclose = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func ExamplePack() {
	h := &hierarchy.Node{Name: "root", Children: []*hierarchy.Node{
		{Name: "a.go", Path: "a.go", Weight: 100},
		{Name: "b.go", Path: "b.go", Weight: 100},
	}}
	lt := Pack(h, DefaultOptions())
	for _, id := range lt.Root().Children {
		n := lt.Nodes[id]
		fmt.Printf("%s r=%.0f x=%.0f y=%.0f\n", n.Path, n.R, n.X, n.Y)
	}
	// Output:
	// b.go r=250 x=250 y=650
	// a.go r=250 x=750 y=650
}
