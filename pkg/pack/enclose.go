package pack

import "math"

// Enclose returns the smallest circle enclosing all circles.
// It returns the zero Circle when circles is empty.
func Enclose(circles []Circle) Circle {
	if len(circles) == 0 {
		return Circle{}
	}
	ptrs := make([]*Circle, len(circles))
	for i := range circles {
		c := circles[i]
		ptrs[i] = &c
	}
	return encloseRandom(ptrs, newLCG())
}

// encloseRandom is Welzl's move-to-front algorithm over a shuffled copy of
// circles.
func encloseRandom(circles []*Circle, random func() float64) Circle {
	shuffled := shuffle(append([]*Circle(nil), circles...), random)

	var (
		basis []*Circle
		e     *Circle
	)
	for i := 0; i < len(shuffled); {
		p := shuffled[i]
		if e != nil && enclosesWeak(*e, *p) {
			i++
			continue
		}
		next, ok := extendBasis(basis, p)
		if !ok {
			return crudeEnclose(circles)
		}
		basis = next
		eb := encloseBasis(basis)
		if math.IsNaN(eb.X) || math.IsNaN(eb.Y) || math.IsNaN(eb.R) {
			return crudeEnclose(circles)
		}
		e = &eb
		i = 0
	}
	return *e
}

func extendBasis(basis []*Circle, p *Circle) ([]*Circle, bool) {
	if enclosesWeakAll(*p, basis) {
		return []*Circle{p}, true
	}

	for _, b := range basis {
		if enclosesNot(*p, *b) && enclosesWeakAll(encloseBasis2(*b, *p), basis) {
			return []*Circle{b, p}, true
		}
	}

	for i := 0; i < len(basis)-1; i++ {
		for j := i + 1; j < len(basis); j++ {
			bi, bj := *basis[i], *basis[j]
			if enclosesNot(encloseBasis2(bi, bj), *p) &&
				enclosesNot(encloseBasis2(bi, *p), bj) &&
				enclosesNot(encloseBasis2(bj, *p), bi) &&
				enclosesWeakAll(encloseBasis3(bi, bj, *p), basis) {
				return []*Circle{basis[i], basis[j], p}, true
			}
		}
	}
	return nil, false
}

func enclosesNot(a, b Circle) bool {
	dr := a.R - b.R
	dx, dy := b.X-a.X, b.Y-a.Y
	return dr < 0 || dr*dr < dx*dx+dy*dy
}

func enclosesWeak(a, b Circle) bool {
	dr := a.R - b.R + math.Max(math.Max(a.R, b.R), 1)*1e-9
	dx, dy := b.X-a.X, b.Y-a.Y
	return dr > 0 && dr*dr > dx*dx+dy*dy
}

func enclosesWeakAll(a Circle, basis []*Circle) bool {
	for _, b := range basis {
		if !enclosesWeak(a, *b) {
			return false
		}
	}
	return true
}

func encloseBasis(basis []*Circle) Circle {
	switch len(basis) {
	case 1:
		return *basis[0]
	case 2:
		return encloseBasis2(*basis[0], *basis[1])
	default:
		return encloseBasis3(*basis[0], *basis[1], *basis[2])
	}
}

func encloseBasis2(a, b Circle) Circle {
	x21, y21, r21 := b.X-a.X, b.Y-a.Y, b.R-a.R
	l := math.Sqrt(x21*x21 + y21*y21)
	if l == 0 {
		return Circle{X: a.X, Y: a.Y, R: math.Max(a.R, b.R)}
	}
	return Circle{
		X: (a.X + b.X + x21/l*r21) / 2,
		Y: (a.Y + b.Y + y21/l*r21) / 2,
		R: (l + a.R + b.R) / 2,
	}
}

func encloseBasis3(a, b, c Circle) Circle {
	x1, y1, r1 := a.X, a.Y, a.R
	x2, y2, r2 := b.X, b.Y, b.R
	x3, y3, r3 := c.X, c.Y, c.R

	a2, a3 := x1-x2, x1-x3
	b2, b3 := y1-y2, y1-y3
	c2, c3 := r2-r1, r3-r1
	d1 := x1*x1 + y1*y1 - r1*r1
	d2 := d1 - x2*x2 - y2*y2 + r2*r2
	d3 := d1 - x3*x3 - y3*y3 + r3*r3
	ab := a3*b2 - a2*b3
	xa := (b2*d3-b3*d2)/(ab*2) - x1
	xb := (b3*c2 - b2*c3) / ab
	ya := (a3*d2-a2*d3)/(ab*2) - y1
	yb := (a2*c3 - a3*c2) / ab
	qa := xb*xb + yb*yb - 1
	qb := 2 * (r1 + xa*xb + ya*yb)
	qc := xa*xa + ya*ya - r1*r1

	var r float64
	if math.Abs(qa) > 1e-6 {
		r = -(qb + math.Sqrt(qb*qb-4*qa*qc)) / (2 * qa)
	} else {
		r = -(qc / qb)
	}
	return Circle{X: x1 + xa + xb*r, Y: y1 + ya + yb*r, R: r}
}

// crudeEnclose centers on the circles' bounding box and grows the radius
// until every circle fits. It is only reached on numerically degenerate
// input where no exact basis exists.
func crudeEnclose(circles []*Circle) Circle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range circles {
		minX, maxX = math.Min(minX, c.X-c.R), math.Max(maxX, c.X+c.R)
		minY, maxY = math.Min(minY, c.Y-c.R), math.Max(maxY, c.Y+c.R)
	}
	e := Circle{X: (minX + maxX) / 2, Y: (minY + maxY) / 2}
	for _, c := range circles {
		e.R = math.Max(e.R, math.Hypot(c.X-e.X, c.Y-e.Y)+c.R)
	}
	return e
}
