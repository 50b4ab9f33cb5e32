package reflow

import (
	"fmt"
	"math"
	"testing"

	"github.com/matzehuels/repobubbles/internal/testtree"
	"github.com/matzehuels/repobubbles/pkg/colors"
	"github.com/matzehuels/repobubbles/pkg/hierarchy"
	"github.com/matzehuels/repobubbles/pkg/layout"
	"github.com/matzehuels/repobubbles/pkg/pack"
	"github.com/matzehuels/repobubbles/pkg/tree"
)

type pointMap map[string]layout.Point

func (m pointMap) Position(path string) (layout.Point, bool) {
	p, ok := m[path]
	return p, ok
}

func packed(root *tree.Node) *layout.Tree {
	h := hierarchy.Normalize(root, hierarchy.Options{Colors: colors.Linguist()})
	return pack.Pack(h, pack.DefaultOptions())
}

func applied(t *layout.Tree, ps []layout.Point) *layout.Tree {
	out := t.Clone()
	out.SetPositions(ps)
	return out
}

func margin(cfg Config, n *layout.Node) float64 {
	if n.IsLeaf() {
		return cfg.LeafPadding
	}
	return cfg.ContainerPadding(n.Depth)
}

func TestReflowEmpty(t *testing.T) {
	if got := Reflow(&layout.Tree{}, nil, DefaultConfig()); got != nil {
		t.Errorf("Reflow(empty) = %v, want nil", got)
	}

	lt := packed(testtree.Repo())
	before := lt.Positions()
	got := Group(lt, before, nil, nil, nil, DefaultConfig())
	for i := range before {
		if got[i] != before[i] {
			t.Fatalf("empty group moved node %d", i)
		}
	}
}

func TestReflowDoesNotMutateInput(t *testing.T) {
	lt := packed(testtree.Repo())
	before := lt.Clone()
	_ = Reflow(lt, nil, DefaultConfig())
	for i := range lt.Nodes {
		if lt.Nodes[i].X != before.Nodes[i].X || lt.Nodes[i].Y != before.Nodes[i].Y {
			t.Fatalf("node %q was mutated", lt.Nodes[i].Path)
		}
	}
}

func TestReflowContainmentAndSeparation(t *testing.T) {
	cfg := DefaultConfig()
	for seed := uint64(1); seed <= 12; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			lt := packed(testtree.Random(seed, 4, 9))
			out := applied(lt, Reflow(lt, nil, cfg))

			for i := range out.Nodes {
				n := &out.Nodes[i]
				if n.Depth >= 2 {
					if d := testtree.Escape(n, &out.Nodes[n.Parent]); d > 1e-6 {
						t.Errorf("%q escapes parent by %.6f", n.Path, d)
					}
				}
				for a := 0; a < len(n.Children); a++ {
					for b := a + 1; b < len(n.Children); b++ {
						ca, cb := &out.Nodes[n.Children[a]], &out.Nodes[n.Children[b]]
						tol := margin(cfg, ca) + margin(cfg, cb)
						if o := testtree.Overlap(ca, cb); o > tol {
							t.Errorf("%q and %q overlap by %.3f (tolerance %.3f)", ca.Path, cb.Path, o, tol)
						}
					}
				}
			}
		})
	}
}

func TestReflowKeepsTopLevelOnCanvas(t *testing.T) {
	cfg := DefaultConfig()
	lt := packed(testtree.Repo())
	out := applied(lt, Reflow(lt, nil, cfg))
	for _, id := range out.Root().Children {
		n := &out.Nodes[id]
		if n.X < n.R-1e-9 || n.X > cfg.Width-n.R+1e-9 {
			t.Errorf("%q x=%.2f outside [%.2f, %.2f]", n.Path, n.X, n.R, cfg.Width-n.R)
		}
		if n.Y < n.R+cfg.TopMargin-1e-9 && n.R+cfg.TopMargin <= cfg.Height-n.R {
			t.Errorf("%q y=%.2f above top margin", n.Path, n.Y)
		}
	}
}

func TestSmallGroupsMoveRigidly(t *testing.T) {
	lt := packed(testtree.Repo())
	out := applied(lt, Reflow(lt, nil, DefaultConfig()))

	// cmd has two children and is never relaxed on its own.
	for _, path := range []string{"cmd/main.go", "cmd/flags.go"} {
		before, _ := lt.ByPath(path)
		after, _ := out.ByPath(path)
		pb := &lt.Nodes[before.Parent]
		pa := &out.Nodes[after.Parent]
		rel0 := before.Pos().Sub(pb.Pos())
		rel1 := after.Pos().Sub(pa.Pos())
		if math.Abs(rel0.X-rel1.X) > 1e-9 || math.Abs(rel0.Y-rel1.Y) > 1e-9 {
			t.Errorf("%q offset changed from %+v to %+v", path, rel0, rel1)
		}
	}
}

func TestReflowSeedsFromPrevious(t *testing.T) {
	inputs := map[string]*tree.Node{"repo": testtree.Repo()}
	for seed := uint64(1); seed <= 12; seed++ {
		inputs[fmt.Sprintf("seed=%d", seed)] = testtree.Random(seed, 4, 8)
	}
	for name, root := range inputs {
		t.Run(name, func(t *testing.T) {
			lt := packed(root)
			first := applied(lt, Reflow(lt, nil, DefaultConfig()))

			prev := pointMap{}
			first.Walk(func(n *layout.Node) { prev[n.Path] = n.Pos() })
			second := applied(lt, Reflow(lt, prev, DefaultConfig()))

			var total, worst float64
			for i := 1; i < first.Len(); i++ {
				d := first.Nodes[i].Pos().Dist(second.Nodes[i].Pos())
				total += d
				worst = math.Max(worst, d)
			}
			if mean := total / float64(max(first.Len()-1, 1)); mean > 1 || worst > 1 {
				t.Errorf("second pass drifted: mean %.3f, max %.3f", mean, worst)
			}
		})
	}
}

func TestSettledGroupIsKept(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SettleTolerance = math.Inf(1)
	lt := packed(testtree.Random(9, 4, 8))
	first := applied(lt, Reflow(lt, nil, cfg))

	prev := pointMap{}
	first.Walk(func(n *layout.Node) { prev[n.Path] = n.Pos() })
	second := applied(lt, Reflow(lt, prev, cfg))
	for i := 1; i < first.Len(); i++ {
		if d := first.Nodes[i].Pos().Dist(second.Nodes[i].Pos()); d > 1e-9 {
			t.Errorf("%q moved by %.6f", first.Nodes[i].Path, d)
		}
	}
}

func TestSettled(t *testing.T) {
	cfg := DefaultConfig()
	r := &reflower{t: &layout.Tree{}, cfg: cfg}
	bodies := func() []body {
		return []body{
			{pinned: true, hasCached: true, x: 500, y: 500, r: 10, radius: 12},
			{pinned: true, hasCached: true, x: 600, y: 500, r: 10, radius: 12},
		}
	}

	tests := []struct {
		name   string
		modify func(b []body, r *reflower) *Bound
		want   bool
	}{
		{"separated", func([]body, *reflower) *Bound { return nil }, true},
		{"overlapping", func(b []body, _ *reflower) *Bound { b[1].x = 510; return nil }, false},
		{"within tolerance", func(b []body, _ *reflower) *Bound { b[1].x = 523.7; return nil }, true},
		{"not pinned", func(b []body, _ *reflower) *Bound { b[1].pinned = false; return nil }, false},
		{"off canvas", func(b []body, _ *reflower) *Bound { b[0].x = 5; return nil }, false},
		{"above top margin", func(b []body, _ *reflower) *Bound { b[0].y = 20; return nil }, false},
		{"outside bound", func([]body, *reflower) *Bound {
			return &Bound{R: 60, Center: layout.Point{X: 520, Y: 500}}
		}, false},
		{"inside bound", func([]body, *reflower) *Bound {
			return &Bound{R: 100, Center: layout.Point{X: 550, Y: 500}}
		}, true},
		{"negative tolerance", func(_ []body, r *reflower) *Bound { r.cfg.SettleTolerance = -1; return nil }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r.cfg = cfg
			b := bodies()
			bound := tt.modify(b, r)
			if got := r.settled(b, bound); got != tt.want {
				t.Errorf("settled = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithDefaults(t *testing.T) {
	if got := (Config{}).WithDefaults(); got != DefaultConfig() {
		t.Errorf("zero config = %+v, want DefaultConfig", got)
	}

	cfg := DefaultConfig()
	cfg.CenterXStrength = 0
	cfg.ParentStrength = 0
	cfg.TopMargin = 0
	cfg.LeafPadding = 0
	cfg.CenterMaxDepth = 0
	cfg.Width, cfg.AlphaTicks = 0, -3
	got := cfg.WithDefaults()
	if got.CenterXStrength != 0 || got.ParentStrength != 0 || got.TopMargin != 0 || got.LeafPadding != 0 || got.CenterMaxDepth != 0 {
		t.Errorf("explicit zeros were overwritten: %+v", got)
	}
	if got.Width != layout.Width || got.AlphaTicks != 300 {
		t.Errorf("unusable fields not repaired: width %v, alpha ticks %d", got.Width, got.AlphaTicks)
	}
}

func TestZeroTopMarginIsHonored(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TopMargin = 0
	b := []body{{pinned: true, hasCached: true, x: 500, y: 10, r: 10, radius: 12}}
	r := &reflower{t: &layout.Tree{}, cfg: cfg.WithDefaults()}
	if !r.settled(b, nil) {
		t.Error("a circle touching the top edge should be valid with no top margin")
	}
}

func TestViewFallsThrough(t *testing.T) {
	base := pointMap{"a": {X: 1, Y: 1}, "b": {X: 2, Y: 2}}
	v := &view{base: base, overlay: map[string]layout.Point{"b": {X: 9, Y: 9}}}

	if p, ok := v.Position("a"); !ok || p.X != 1 {
		t.Errorf("a = %+v, %v", p, ok)
	}
	if p, ok := v.Position("b"); !ok || p.X != 9 {
		t.Errorf("b = %+v, %v", p, ok)
	}
	if _, ok := v.Position("c"); ok {
		t.Error("c should miss")
	}
	if _, ok := (&view{}).Position("a"); ok {
		t.Error("empty view should miss")
	}
}
