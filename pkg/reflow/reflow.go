// Package reflow relaxes packed circles toward their positions from the
// previous layout pass.
//
// Each sibling group runs a small force simulation: weak centering near the
// top of the tree, a pull toward the parent's center for nested groups, a
// pull toward each node's previous position (or the canvas center when it
// has none), and collision avoidance with depth-dependent margins. After
// every tick nodes are clamped to the canvas and, for nested groups, pushed
// back inside their parent. Nodes with a real previous position skip the
// centering and parent forces, and a group whose previous arrangement is
// still valid is not simulated at all, so an unchanged tree lays out the
// same way twice.
//
// When a group settles, every container drags its descendants along
// rigidly. Containers with enough children then relax their own children
// inside their new circle, using previous positions shifted by however far
// the container drifted from its own previous position.
//
// The package never mutates its input tree. [Reflow] returns a fresh
// position slice indexed by node ID.
package reflow

import (
	"math"

	"github.com/matzehuels/repobubbles/pkg/layout"
)

// Lookup resolves the position a path had at the end of the previous pass.
type Lookup interface {
	Position(path string) (layout.Point, bool)
}

// Bound is the circle a nested sibling group must stay inside.
type Bound struct {
	R      float64
	Center layout.Point
}

// Reflow relaxes every sibling group of t, starting with the root's
// children, and returns the final position of every node. prev may be nil.
func Reflow(t *layout.Tree, prev Lookup, cfg Config) []layout.Point {
	if t.Len() == 0 {
		return nil
	}
	return Group(t, t.Positions(), t.Root().Children, prev, nil, cfg)
}

// Group relaxes one sibling group, then recurses into qualifying children.
// positions holds the current position of every node in t and is not
// modified; the updated positions are returned. A nil bound means the group
// is only held inside the canvas.
func Group(t *layout.Tree, positions []layout.Point, group []int, prev Lookup, bound *Bound, cfg Config) []layout.Point {
	r := &reflower{
		t:   t,
		cfg: cfg.WithDefaults(),
		pos: append([]layout.Point(nil), positions...),
	}
	r.siblings(group, &view{base: prev}, bound)
	return r.pos
}

type reflower struct {
	t   *layout.Tree
	cfg Config
	pos []layout.Point
}

// body is one simulated circle.
type body struct {
	id        int
	x, y      float64
	vx, vy    float64
	r         float64
	radius    float64
	original  layout.Point
	cached    layout.Point
	hasCached bool
	// pinned is set when cached is a real previous position. Pinned bodies
	// feel only their cached pull and collisions.
	pinned bool
}

func (b *body) pos() layout.Point { return layout.Point{X: b.x, Y: b.y} }

func (r *reflower) siblings(group []int, v *view, bound *Bound) {
	if len(group) == 0 {
		return
	}

	bodies := make([]body, len(group))
	for i, id := range group {
		n := &r.t.Nodes[id]
		b := body{
			id:       id,
			r:        n.R,
			radius:   r.collideRadius(n),
			original: r.pos[id],
		}
		b.cached, b.hasCached, b.pinned = v.previous(n.Path)
		start := b.original
		if b.hasCached {
			start = b.cached
		}
		b.x, b.y = start.X, start.Y
		bodies[i] = b
	}

	depth := r.t.Nodes[group[0]].Depth
	if !r.settled(bodies, bound) {
		r.simulate(bodies, depth, bound)
	}
	for i := range bodies {
		r.pos[bodies[i].id] = bodies[i].pos()
	}

	for i := range bodies {
		b := &bodies[i]
		n := &r.t.Nodes[b.id]
		if n.IsLeaf() {
			continue
		}

		current := b.pos()
		reference := current
		if b.hasCached {
			reference = b.cached
		}
		drift := current.Sub(reference)

		shift := current.Sub(b.original)
		for _, d := range r.t.Descendants(b.id) {
			r.pos[d] = r.pos[d].Add(shift)
		}

		if len(n.Children) < r.cfg.MinGroupSize {
			continue
		}
		overlay := make(map[string]layout.Point, len(n.Children))
		fresh := map[string]bool{}
		for _, c := range n.Children {
			cn := &r.t.Nodes[c]
			if p, ok, known := v.previous(cn.Path); ok && known {
				overlay[cn.Path] = p.Add(drift)
			} else {
				overlay[cn.Path] = r.pos[c]
				fresh[cn.Path] = true
			}
		}
		r.siblings(n.Children, &view{base: v, overlay: overlay, fresh: fresh}, &Bound{R: n.R, Center: current})
	}
}

func (r *reflower) collideRadius(n *layout.Node) float64 {
	if n.IsLeaf() {
		return n.R + r.cfg.LeafPadding
	}
	return n.R + r.cfg.ContainerPadding(n.Depth)
}

// settled reports whether every body is pinned to a previous position and that
// arrangement already satisfies the canvas, the bound and separation. Such a
// group is kept exactly where it was.
func (r *reflower) settled(bodies []body, bound *Bound) bool {
	const eps = 1e-6
	cfg := r.cfg
	if cfg.SettleTolerance < 0 {
		return false
	}
	for i := range bodies {
		b := &bodies[i]
		if !b.pinned {
			return false
		}
		if math.Abs(between(b.r, b.x, cfg.Width-b.r)-b.x) > eps ||
			math.Abs(between(b.r+cfg.TopMargin, b.y, cfg.Height-b.r)-b.y) > eps {
			return false
		}
		if bound != nil && bound.R > 0 {
			if containInside(bound.R, bound.Center, b.r, b.pos()).Dist(b.pos()) > eps {
				return false
			}
		}
	}
	for i := range bodies {
		for j := i + 1; j < len(bodies); j++ {
			a, b := &bodies[i], &bodies[j]
			if a.radius+b.radius-a.pos().Dist(b.pos()) > cfg.SettleTolerance {
				return false
			}
		}
	}
	return true
}

func (r *reflower) simulate(bodies []body, depth int, bound *Bound) {
	cfg := r.cfg
	cx, cy := cfg.Width/2, cfg.Height/2

	var centerX, centerY float64
	if depth <= cfg.CenterMaxDepth {
		centerX, centerY = cfg.CenterXStrength, cfg.CenterYStrength
	}
	var parentStrength float64
	var parent layout.Point
	if bound != nil {
		parentStrength, parent = cfg.ParentStrength, bound.Center
	}

	// Targets and strengths are fixed when the simulation starts. Pinned
	// bodies skip centering and the parent pull, so an unchanged group has
	// its previous arrangement as a fixed point.
	targets := make([]layout.Point, len(bodies))
	strengthX := make([]float64, len(bodies))
	strengthY := make([]float64, len(bodies))
	free := make([]float64, len(bodies))
	for i := range bodies {
		if !bodies[i].pinned {
			free[i] = 1
		}
		if bodies[i].hasCached {
			targets[i] = bodies[i].cached
			strengthX[i], strengthY[i] = cfg.CachedStrength, cfg.CachedStrength
		} else {
			targets[i] = layout.Point{X: cx, Y: cy}
			strengthX[i], strengthY[i] = cfg.FallbackXStrength, cfg.FallbackYStrength
		}
	}

	random := newLCG()
	decay := cfg.alphaDecay()
	keep := 1 - cfg.VelocityDecay
	alpha := 1.0

	for tick := 0; tick < cfg.Iterations; tick++ {
		alpha -= alpha * decay

		for i := range bodies {
			b := &bodies[i]
			b.vx += (cx - b.x) * centerX * free[i] * alpha
			b.vy += (cy - b.y) * centerY * free[i] * alpha
			b.vx += (parent.X - b.x) * parentStrength * free[i] * alpha
			b.vy += (parent.Y - b.y) * parentStrength * free[i] * alpha
			b.vx += (targets[i].X - b.x) * strengthX[i] * alpha
			b.vy += (targets[i].Y - b.y) * strengthY[i] * alpha
		}

		for k := 0; k < cfg.CollideIterations; k++ {
			collide(bodies, cfg.CollideStrength, random)
		}

		for i := range bodies {
			b := &bodies[i]
			b.vx *= keep
			b.vy *= keep
			b.x += b.vx
			b.y += b.vy

			b.x = between(b.r, b.x, cfg.Width-b.r)
			b.y = between(b.r+cfg.TopMargin, b.y, cfg.Height-b.r)
			if bound != nil && bound.R > 0 {
				p := containInside(bound.R, bound.Center, b.r, b.pos())
				b.x, b.y = p.X, p.Y
			}
		}
	}
}

// collide runs one pass of pairwise collision resolution. Velocities are
// adjusted so that the predicted positions no longer overlap, with the
// smaller circle of each pair moving further.
func collide(bodies []body, strength float64, random func() float64) {
	for i := range bodies {
		a := &bodies[i]
		ri := a.radius
		ri2 := ri * ri
		xi, yi := a.x+a.vx, a.y+a.vy

		for j := i + 1; j < len(bodies); j++ {
			b := &bodies[j]
			rj := b.radius
			rr := ri + rj
			x := xi - b.x - b.vx
			y := yi - b.y - b.vy
			l := x*x + y*y
			if l >= rr*rr {
				continue
			}
			if x == 0 {
				x = jiggle(random)
				l += x * x
			}
			if y == 0 {
				y = jiggle(random)
				l += y * y
			}
			l = math.Sqrt(l)
			l = (rr - l) / l * strength
			x *= l
			y *= l
			rj2 := rj * rj
			w := rj2 / (ri2 + rj2)
			a.vx += x * w
			a.vy += y * w
			b.vx -= x * (1 - w)
			b.vy -= y * (1 - w)
		}
	}
}

// between clamps v to [lo, hi]; lo wins when the range is empty.
func between(lo, v, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// containInside moves a circle of radius r at p radially toward center just
// far enough to lie inside the circle of radius R. A circle larger than the
// bound is centered on it.
func containInside(R float64, center layout.Point, r float64, p layout.Point) layout.Point {
	limit := math.Max(0, R-r)
	d := p.Dist(center)
	if d <= limit {
		return p
	}
	if d == 0 {
		return center
	}
	scale := limit / d
	return layout.Point{
		X: center.X + (p.X-center.X)*scale,
		Y: center.Y + (p.Y-center.Y)*scale,
	}
}

func jiggle(random func() float64) float64 {
	return (random() - 0.5) * 1e-6
}

func newLCG() func() float64 {
	const (
		a = 1664525
		c = 1013904223
	)
	var s uint32 = 1
	return func() float64 {
		s = a*s + c
		return float64(s) / (1 << 32)
	}
}
