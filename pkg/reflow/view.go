package reflow

import "github.com/matzehuels/repobubbles/pkg/layout"

// view layers a nested group's adjusted positions over the lookup of the
// enclosing group. Lookups fall through to base on a miss, so each level
// only stores entries for its own children.
type view struct {
	base    Lookup
	overlay map[string]layout.Point
	// fresh marks overlay entries that hold a packed position because the
	// path had no previous one.
	fresh map[string]bool
}

func (v *view) Position(path string) (layout.Point, bool) {
	if p, ok := v.overlay[path]; ok {
		return p, true
	}
	if v.base == nil {
		return layout.Point{}, false
	}
	return v.base.Position(path)
}

// previous is Position plus whether the hit is a real previous position
// rather than a packed stand-in.
func (v *view) previous(path string) (p layout.Point, ok, known bool) {
	p, ok = v.Position(path)
	return p, ok, ok && !v.fresh[path]
}
