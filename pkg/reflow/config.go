package reflow

import (
	"math"

	"github.com/matzehuels/repobubbles/pkg/layout"
)

// Config holds the simulation constants. The defaults were tuned by eye
// against rendered output; treat them as knobs, not invariants.
type Config struct {
	// Canvas bounds used for centering and clamping.
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
	// TopMargin keeps circles clear of the label band at the top.
	TopMargin float64 `toml:"top_margin"`

	// Iterations is the fixed number of ticks per sibling group.
	Iterations int `toml:"iterations"`
	// CollideIterations is the number of collision passes per tick.
	CollideIterations int     `toml:"collide_iterations"`
	CollideStrength   float64 `toml:"collide_strength"`

	// Alpha cools from 1 toward AlphaMin over AlphaTicks ticks.
	AlphaMin   float64 `toml:"alpha_min"`
	AlphaTicks int     `toml:"alpha_ticks"`
	// VelocityDecay is the fraction of velocity removed each tick.
	VelocityDecay float64 `toml:"velocity_decay"`

	// Centering toward the canvas center, applied to groups no deeper than
	// CenterMaxDepth.
	CenterXStrength float64 `toml:"center_x_strength"`
	CenterYStrength float64 `toml:"center_y_strength"`
	CenterMaxDepth  int     `toml:"center_max_depth"`

	// ParentStrength pulls nested groups toward their parent's center.
	ParentStrength float64 `toml:"parent_strength"`

	// CachedStrength pulls nodes with a previous position toward it.
	// Nodes without one are pulled toward the canvas center with the
	// fallback strengths instead.
	CachedStrength    float64 `toml:"cached_strength"`
	FallbackXStrength float64 `toml:"fallback_x_strength"`
	FallbackYStrength float64 `toml:"fallback_y_strength"`

	// Collision margins. Leaves get LeafPadding. Containers get a margin
	// interpolated from ShallowPadding at ShallowDepth to DeepPadding at
	// DeepDepth, clamped outside that range.
	LeafPadding    float64 `toml:"leaf_padding"`
	ShallowPadding float64 `toml:"shallow_padding"`
	DeepPadding    float64 `toml:"deep_padding"`
	ShallowDepth   int     `toml:"shallow_depth"`
	DeepDepth      int     `toml:"deep_depth"`

	// MinGroupSize is the number of children a node needs before its
	// children are relaxed as their own group. Smaller groups keep their
	// packed arrangement and only move with their parent.
	MinGroupSize int `toml:"min_group_size"`

	// SettleTolerance is the overlap, in collision radii, a group whose
	// members all have previous positions may carry and still be kept as
	// is without simulating. A negative value always simulates.
	SettleTolerance float64 `toml:"settle_tolerance"`
}

// DefaultConfig returns the standard simulation constants.
func DefaultConfig() Config {
	return Config{
		Width:             layout.Width,
		Height:            layout.Height,
		TopMargin:         30,
		Iterations:        290,
		CollideIterations: 9,
		CollideStrength:   1,
		AlphaMin:          0.001,
		AlphaTicks:        300,
		VelocityDecay:     0.4,
		CenterXStrength:   0.01,
		CenterYStrength:   0.05,
		CenterMaxDepth:    2,
		ParentStrength:    0.5,
		CachedStrength:    0.5,
		FallbackXStrength: 0.2,
		FallbackYStrength: 0.1,
		LeafPadding:       2,
		ShallowPadding:    10,
		DeepPadding:       2,
		ShallowDepth:      1,
		DeepDepth:         4,
		MinGroupSize:      5,
		SettleTolerance:   0.5,
	}
}

// WithDefaults returns DefaultConfig for the zero Config. Otherwise it only
// repairs fields the simulation cannot run with: a non-positive canvas or
// cooling schedule, and a non-positive MinGroupSize. Zero strengths,
// paddings and margins are kept as given.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c == (Config{}) {
		return d
	}
	if c.Width <= 0 {
		c.Width = d.Width
	}
	if c.Height <= 0 {
		c.Height = d.Height
	}
	if c.AlphaMin <= 0 || c.AlphaMin >= 1 {
		c.AlphaMin = d.AlphaMin
	}
	if c.AlphaTicks <= 0 {
		c.AlphaTicks = d.AlphaTicks
	}
	if c.MinGroupSize <= 0 {
		c.MinGroupSize = d.MinGroupSize
	}
	return c
}

// alphaDecay is the per-tick cooling rate that takes alpha from 1 to
// AlphaMin in AlphaTicks ticks.
func (c Config) alphaDecay() float64 {
	return 1 - math.Pow(c.AlphaMin, 1/float64(c.AlphaTicks))
}

// ContainerPadding returns the collision margin of a container at depth.
func (c Config) ContainerPadding(depth int) float64 {
	if c.DeepDepth == c.ShallowDepth {
		return c.ShallowPadding
	}
	t := float64(depth-c.ShallowDepth) / float64(c.DeepDepth-c.ShallowDepth)
	t = math.Max(0, math.Min(1, t))
	return c.ShallowPadding + t*(c.DeepPadding-c.ShallowPadding)
}
