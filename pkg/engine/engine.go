// Package engine runs complete layout passes over a tree while keeping the
// result visually stable from one pass to the next.
//
// An [Engine] owns a position cache. Each call to [Engine.Layout] normalizes
// the input tree, packs it, relaxes the packed circles toward the previous
// pass's positions, and finally records the new positions and sort keys for
// the next pass:
//
//	eng := engine.New(engine.WithColors(colors.Linguist()))
//	first := eng.Layout(root)
//	second := eng.Layout(changedRoot) // stays close to first
//
// Engines are independent. Two engines never share cache state, so tests
// and per-project servers can run as many as they need. A single Engine is
// not safe for concurrent use; callers serialize passes.
package engine

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/repobubbles/pkg/colors"
	"github.com/matzehuels/repobubbles/pkg/hierarchy"
	"github.com/matzehuels/repobubbles/pkg/layout"
	"github.com/matzehuels/repobubbles/pkg/pack"
	"github.com/matzehuels/repobubbles/pkg/poscache"
	"github.com/matzehuels/repobubbles/pkg/reflow"
	"github.com/matzehuels/repobubbles/pkg/tree"
)

// Config groups the packing canvas and the reflow simulation constants.
type Config struct {
	Pack   pack.Options
	Reflow reflow.Config
}

// DefaultConfig returns the standard canvas and simulation constants.
func DefaultConfig() Config {
	return Config{
		Pack:   pack.DefaultOptions(),
		Reflow: reflow.DefaultConfig(),
	}
}

// Engine lays out trees and remembers the last result.
type Engine struct {
	colors colors.Table
	cfg    Config
	logger *log.Logger
	cache  *poscache.Cache
}

// Option configures an Engine.
type Option func(*Engine)

// WithColors sets the extension color table. The table is only read.
func WithColors(t colors.Table) Option { return func(e *Engine) { e.colors = t } }

// WithConfig replaces the canvas and simulation constants.
func WithConfig(c Config) Option { return func(e *Engine) { e.cfg = c } }

// WithLogger sets the logger used for per-pass debug output.
func WithLogger(l *log.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithCache seeds the engine with a cache, typically one restored from a
// snapshot. The engine takes ownership of c.
func WithCache(c *poscache.Cache) Option { return func(e *Engine) { e.cache = c } }

// New returns an engine with an empty cache, the linguist color table, and
// default constants unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	if e.colors == nil {
		e.colors = colors.Linguist()
	}
	if e.logger == nil {
		e.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if e.cache == nil {
		e.cache = poscache.New()
	}
	e.cfg.Reflow = e.cfg.Reflow.WithDefaults()
	e.cfg.Reflow.Width, e.cfg.Reflow.Height = canvas(e.cfg.Pack)
	return e
}

// canvas returns the logical canvas that reflow clamps against: the
// packing width and the unstretched packing height.
func canvas(o pack.Options) (float64, float64) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = layout.Width
	}
	if h <= 0 {
		h = layout.Height
	}
	return w, h
}

// Cache returns the engine's position cache. Callers may snapshot it
// between passes but must not modify it while a pass runs.
func (e *Engine) Cache() *poscache.Cache { return e.cache }

// Config returns the constants the engine runs with.
func (e *Engine) Config() Config { return e.cfg }

// Layout runs one full pass over root and returns the packed, reflowed tree.
// A nil root yields nil and leaves the cache untouched.
func (e *Engine) Layout(root *tree.Node) *layout.Tree {
	if root == nil {
		return nil
	}
	start := time.Now()

	h := hierarchy.Normalize(root, hierarchy.Options{Colors: e.colors, Orders: e.cache})
	t := pack.Pack(h, e.cfg.Pack)
	if t == nil {
		return nil
	}

	t.SetPositions(reflow.Reflow(t, e.cache, e.cfg.Reflow))
	encloseRoot(t)

	cached := e.cache.Len()
	e.cache.Record(t)

	e.logger.Debug("layout pass",
		"nodes", t.Len(),
		"top_level", len(t.Root().Children),
		"loose_files", looseFiles(t),
		"cached", cached,
		"took", time.Since(start).Round(time.Millisecond))
	return t
}

// encloseRoot resizes the root to the smallest circle around its reflowed
// children. Reflow moves top-level circles without a bound, so the packed
// root circle no longer contains them.
func encloseRoot(t *layout.Tree) {
	root := t.Root()
	if root.IsLeaf() {
		return
	}
	circles := make([]pack.Circle, 0, len(root.Children))
	for _, id := range root.Children {
		n := &t.Nodes[id]
		circles = append(circles, pack.Circle{X: n.X, Y: n.Y, R: n.R})
	}
	c := pack.Enclose(circles)
	root.X, root.Y, root.R = c.X, c.Y, c.R
}

func looseFiles(t *layout.Tree) int {
	for _, id := range t.Root().Children {
		if n := &t.Nodes[id]; n.Synthetic {
			return len(n.Children)
		}
	}
	return 0
}
