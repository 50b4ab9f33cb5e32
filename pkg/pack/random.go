package pack

// newLCG returns a linear congruential generator over [0, 1) with a fixed
// seed, so that packing the same hierarchy twice gives identical output.
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

// shuffle permutes circles in place with a Fisher-Yates shuffle.
func shuffle(circles []*Circle, random func() float64) []*Circle {
	for m := len(circles); m > 0; {
		i := int(random() * float64(m))
		m--
		circles[m], circles[i] = circles[i], circles[m]
	}
	return circles
}
