package pack

import "math"

// Circle is a circle used during sibling packing and enclosure.
type Circle struct {
	X, Y, R float64
}

type chainNode struct {
	c          *Circle
	next, prev *chainNode
}

// Siblings places circles side by side without overlap, centered on the
// origin, and returns the radius of their enclosing circle. Circles are
// placed in slice order along a front chain: each new circle is tangent to
// the pair of chain circles closest to the centroid. random drives the
// enclosing circle computation and should be deterministic.
func Siblings(circles []*Circle, random func() float64) float64 {
	n := len(circles)
	if n == 0 {
		return 0
	}

	a := circles[0]
	a.X, a.Y = 0, 0
	if n == 1 {
		return a.R
	}

	b := circles[1]
	a.X, b.X, b.Y = -b.R, a.R, 0
	if n == 2 {
		return a.R + b.R
	}

	place(b, a, circles[2])

	na := &chainNode{c: a}
	nb := &chainNode{c: b}
	nc := &chainNode{c: circles[2]}
	na.next, nc.prev = nb, nb
	nb.next, na.prev = nc, nc
	nc.next, nb.prev = na, na

pack:
	for i := 3; i < n; i++ {
		c := circles[i]
		place(na.c, nb.c, c)
		nc = &chainNode{c: c}

		// Find the closest circle on the front chain that c intersects,
		// measured by distance along the chain in either direction.
		j, k := nb.next, na.prev
		sj, sk := nb.c.R, na.c.R
		for {
			if sj <= sk {
				if intersects(j.c, nc.c) {
					nb = j
					na.next, nb.prev = nb, na
					i--
					continue pack
				}
				sj += j.c.R
				j = j.next
			} else {
				if intersects(k.c, nc.c) {
					na = k
					na.next, nb.prev = nb, na
					i--
					continue pack
				}
				sk += k.c.R
				k = k.prev
			}
			if j == k.next {
				break
			}
		}

		nc.prev, nc.next = na, nb
		na.next, nb.prev = nc, nc
		nb = nc

		// Pick the chain pair closest to the centroid for the next circle.
		best := score(na)
		for cur := nc.next; cur != nb; cur = cur.next {
			if s := score(cur); s < best {
				na, best = cur, s
			}
		}
		nb = na.next
	}

	chain := []*Circle{nb.c}
	for cur := nb.next; cur != nb; cur = cur.next {
		chain = append(chain, cur.c)
	}
	e := encloseRandom(chain, random)

	for _, c := range circles {
		c.X -= e.X
		c.Y -= e.Y
	}
	return e.R
}

// place positions c tangent to both a and b.
func place(b, a, c *Circle) {
	dx, dy := b.X-a.X, b.Y-a.Y
	d2 := dx*dx + dy*dy
	if d2 == 0 {
		c.X, c.Y = a.X+c.R, a.Y
		return
	}

	a2 := (a.R + c.R) * (a.R + c.R)
	b2 := (b.R + c.R) * (b.R + c.R)
	if a2 > b2 {
		x := (d2 + b2 - a2) / (2 * d2)
		y := math.Sqrt(math.Max(0, b2/d2-x*x))
		c.X = b.X - x*dx - y*dy
		c.Y = b.Y - x*dy + y*dx
		return
	}
	x := (d2 + a2 - b2) / (2 * d2)
	y := math.Sqrt(math.Max(0, a2/d2-x*x))
	c.X = a.X + x*dx - y*dy
	c.Y = a.Y + x*dy + y*dx
}

func intersects(a, b *Circle) bool {
	dr := a.R + b.R - 1e-6
	dx, dy := b.X-a.X, b.Y-a.Y
	return dr > 0 && dr*dr > dx*dx+dy*dy
}

// score is the squared distance from the origin to the weighted midpoint
// between node and its successor.
func score(node *chainNode) float64 {
	a, b := node.c, node.next.c
	ab := a.R + b.R
	if ab == 0 {
		return a.X*a.X + a.Y*a.Y
	}
	dx := (a.X*b.R + b.X*a.R) / ab
	dy := (a.Y*b.R + b.Y*a.R) / ab
	return dx*dx + dy*dy
}
