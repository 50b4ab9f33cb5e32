// Package pipeline provides the tree → layout → render pipeline shared by the
// CLI and the HTTP API.
//
// Centralizing the stages here keeps caching, position snapshots, and
// rendering consistent across entry points.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: read a tree from a directory, a JSON file, or "path:count" lines
//  2. Layout: run a layout engine pass seeded from the project's snapshot
//  3. Render: generate output in various formats (SVG, PNG, PDF, JSON)
//
// Each stage can be run on its own or through [Runner.Execute].
//
// # Snapshots
//
// The layout engine keeps positions from one pass to the next. Between
// processes that state lives in the cache as a position snapshot keyed by
// project, so running the CLI twice over a slowly changing repository
// produces two diagrams that look alike.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	root, err := pipeline.LoadTree(ctx, pipeline.Source{Path: "."})
//	if err != nil {
//	    return err
//	}
//	result, err := runner.Execute(ctx, root, pipeline.Options{
//	    Project: "myrepo",
//	    Formats: []string{"svg"},
//	    Legend:  true,
//	})
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"io"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/repobubbles/pkg/cache"
	"github.com/matzehuels/repobubbles/pkg/diagram"
	errs "github.com/matzehuels/repobubbles/pkg/errors"
	"github.com/matzehuels/repobubbles/pkg/layout"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultProject scopes snapshots when no project is named.
	DefaultProject = "default"

	// DefaultWidth is the default canvas width in pixels.
	DefaultWidth = float64(layout.Width)

	// DefaultHeight is the default canvas height in pixels.
	DefaultHeight = float64(layout.Height)

	// DefaultMaxDepth is the deepest level drawn.
	DefaultMaxDepth = layout.MaxDepth

	// DefaultScale is the PNG scale factor.
	DefaultScale = 2.0

	// MaxDepthLimit bounds the drawn depth.
	MaxDepthLimit = 64
)

// DefaultVizType is the default visualization type.
const DefaultVizType = diagram.VizTypeBubbles

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatPNG:  true,
	FormatPDF:  true,
	FormatJSON: true,
}

// ValidVizTypes is the set of supported visualization types.
var ValidVizTypes = map[string]bool{
	diagram.VizTypeBubbles:  true,
	diagram.VizTypeNodelink: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Project scopes the position snapshot. Runs for the same project stay
	// visually stable against each other.
	Project string `json:"project,omitempty"`

	// Layout options
	VizType  string  `json:"viz_type,omitempty"`
	Width    float64 `json:"width,omitempty"`
	Height   float64 `json:"height,omitempty"`
	MaxDepth int     `json:"max_depth,omitempty"`
	Refresh  bool    `json:"refresh,omitempty"` // ignore the stored snapshot and cached layouts

	// Render options
	Formats  []string `json:"formats,omitempty"`
	Legend   bool     `json:"legend,omitempty"`
	Glow     bool     `json:"glow,omitempty"`
	Scale    float64  `json:"scale,omitempty"`
	Detailed bool     `json:"detailed,omitempty"` // node-link labels carry weights

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Layout is the serialized diagram.
	Layout diagram.Layout

	// TreeHash is the content hash of the input tree.
	TreeHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount   int
	CircleCount int
	LayoutTime  time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	SnapshotHit bool // Whether a position snapshot seeded the pass
	LayoutHit   bool // Whether the diagram came from cache
	RenderHit   bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errs.New(errs.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, png, pdf, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateVizType checks that a visualization type is valid.
func ValidateVizType(vizType string) error {
	if !ValidVizTypes[vizType] {
		return errs.New(errs.ErrCodeInvalidInput, "invalid viz_type: %q (must be one of: bubbles, nodelink)", vizType)
	}
	return nil
}

// ParseFormats splits a comma-separated format list, dropping blanks and
// duplicates.
func ParseFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// =============================================================================
// Options Methods
// =============================================================================

// SetDefaults fills unset fields. It is idempotent.
func (o *Options) SetDefaults() {
	if o.Project == "" {
		o.Project = DefaultProject
	}
	if o.VizType == "" {
		o.VizType = DefaultVizType
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks option values. Call SetDefaults first.
func (o *Options) Validate() error {
	if err := errs.ValidateProjectID(o.Project); err != nil {
		return err
	}
	if err := ValidateVizType(o.VizType); err != nil {
		return err
	}
	if !positive(o.Width) || !positive(o.Height) {
		return errs.New(errs.ErrCodeInvalidInput, "canvas must be positive, got %gx%g", o.Width, o.Height)
	}
	if o.MaxDepth < 1 || o.MaxDepth > MaxDepthLimit {
		return errs.New(errs.ErrCodeInvalidInput, "max_depth must be between 1 and %d, got %d", MaxDepthLimit, o.MaxDepth)
	}
	if !positive(o.Scale) {
		return errs.New(errs.ErrCodeInvalidInput, "scale must be positive, got %g", o.Scale)
	}
	return ValidateFormats(o.Formats)
}

// positive reports whether v is a finite number greater than zero.
func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// ValidateAndSetDefaults applies defaults and validates.
func (o *Options) ValidateAndSetDefaults() error {
	o.SetDefaults()
	return o.Validate()
}

// IsNodelink returns true if this is a node-link visualization.
func (o *Options) IsNodelink() bool {
	return o.VizType == diagram.VizTypeNodelink
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts(snapshotHash string) cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Project:      o.Project,
		SnapshotHash: snapshotHash,
		VizType:      o.VizType,
		Width:        o.Width,
		Height:       o.Height,
		MaxDepth:     o.MaxDepth,
		Detailed:     o.Detailed,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	opts := cache.ArtifactKeyOpts{
		Format: format,
		Legend: o.Legend,
		Glow:   o.Glow,
	}
	if format == FormatPNG {
		opts.Scale = o.Scale
	}
	return opts
}
