package pipeline

import (
	"github.com/matzehuels/repobubbles/pkg/colors"
	"github.com/matzehuels/repobubbles/pkg/diagram"
	"github.com/matzehuels/repobubbles/pkg/engine"
	"github.com/matzehuels/repobubbles/pkg/hierarchy"
	"github.com/matzehuels/repobubbles/pkg/layout"
	"github.com/matzehuels/repobubbles/pkg/render/nodelink"
	"github.com/matzehuels/repobubbles/pkg/tree"
)

// =============================================================================
// Layout Generation
// =============================================================================

// BubblesLayout converts an engine result into a diagram sized to the
// requested canvas.
func BubblesLayout(t *layout.Tree, table colors.Table, opts Options) diagram.Layout {
	l := diagram.FromTree(t, opts.MaxDepth, table)
	l.Width, l.Height = opts.Width, opts.Height
	return l
}

// NodelinkLayout builds a Graphviz layout of the normalized hierarchy.
// Node-link diagrams have no positions of their own, so no engine pass or
// snapshot is involved.
func NodelinkLayout(root *tree.Node, table colors.Table, opts Options) diagram.Layout {
	h := hierarchy.Normalize(root, hierarchy.Options{Colors: table})
	return diagram.Layout{
		VizType:  diagram.VizTypeNodelink,
		Width:    opts.Width,
		Height:   opts.Height,
		MaxDepth: opts.MaxDepth,
		DOT:      nodelink.ToDOT(h, nodelink.Options{Detailed: opts.Detailed, MaxDepth: opts.MaxDepth}),
	}
}

// engineConfig applies the requested canvas to the runner's constants.
func engineConfig(base engine.Config, opts Options) engine.Config {
	cfg := base
	cfg.Pack.Width = opts.Width
	cfg.Pack.Height = opts.Height
	return cfg
}
