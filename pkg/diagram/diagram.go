// Package diagram defines the serialized form of a laid-out bubble diagram.
//
// A [Layout] is what renderers, caches, the HTTP API, and layout.json files
// exchange. It is a flat list of circles in draw order (parents before
// children) plus the legend:
//
//	{
//	  "viz_type": "bubbles",
//	  "width": 1000,
//	  "height": 1000,
//	  "max_depth": 9,
//	  "circles": [
//	    {"path": "src", "name": "src", "x": 480.2, "y": 512.9, "r": 210.4, "depth": 1, "container": true, ...},
//	    {"path": "src/main.go", "parent": "src", "extension": "go", "color": "#00ADD8", ...}
//	  ],
//	  "legend": [{"extension": "go", "color": "#00ADD8"}]
//	}
//
// Node-link layouts carry a Graphviz DOT string instead of circles.
package diagram

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/matzehuels/repobubbles/pkg/colors"
	"github.com/matzehuels/repobubbles/pkg/layout"
)

// Visualization types.
const (
	VizTypeBubbles  = "bubbles"
	VizTypeNodelink = "nodelink"
)

// Layout is a renderable diagram.
type Layout struct {
	VizType string `json:"viz_type" bson:"viz_type"`

	Width    float64 `json:"width" bson:"width"`
	Height   float64 `json:"height" bson:"height"`
	MaxDepth int     `json:"max_depth,omitempty" bson:"max_depth,omitempty"`

	// Bubbles
	Circles []Circle      `json:"circles,omitempty" bson:"circles,omitempty"`
	Legend  []LegendEntry `json:"legend,omitempty" bson:"legend,omitempty"`

	// Nodelink
	DOT string `json:"dot,omitempty" bson:"dot,omitempty"`
}

// Circle is one drawn node.
type Circle struct {
	Path      string  `json:"path" bson:"path"`
	Name      string  `json:"name" bson:"name"`
	Label     string  `json:"label" bson:"label"`
	Extension string  `json:"extension,omitempty" bson:"extension,omitempty"`
	Color     string  `json:"color" bson:"color"`
	X         float64 `json:"x" bson:"x"`
	Y         float64 `json:"y" bson:"y"`
	R         float64 `json:"r" bson:"r"`
	Depth     int     `json:"depth" bson:"depth"`
	Parent    string  `json:"parent,omitempty" bson:"parent,omitempty"`
	Container bool    `json:"container,omitempty" bson:"container,omitempty"`
}

// LegendEntry pairs an extension with its color.
type LegendEntry struct {
	Extension string `json:"extension" bson:"extension"`
	Color     string `json:"color" bson:"color"`
}

// IsBubbles reports whether l is a circle layout.
func (l *Layout) IsBubbles() bool { return l.VizType == VizTypeBubbles }

// IsNodelink reports whether l is a Graphviz layout.
func (l *Layout) IsNodelink() bool { return l.VizType == VizTypeNodelink }

// FromTree flattens a laid-out tree into a diagram. The root, the loose-files
// bucket, and nodes deeper than maxDepth are dropped; nodes at maxDepth are
// drawn as leaves. Children of the bucket keep an empty parent.
func FromTree(t *layout.Tree, maxDepth int, table colors.Table) Layout {
	if maxDepth <= 0 {
		maxDepth = layout.MaxDepth
	}
	l := Layout{
		VizType:  VizTypeBubbles,
		Width:    layout.Width,
		Height:   layout.Height,
		MaxDepth: maxDepth,
	}
	t.Walk(func(n *layout.Node) {
		if !layout.Visible(n, maxDepth) {
			return
		}
		c := Circle{
			Path:      n.Path,
			Name:      n.Name,
			Label:     n.Label,
			Extension: n.Extension,
			Color:     n.Color,
			X:         n.X,
			Y:         n.Y,
			R:         n.R,
			Depth:     n.Depth,
			Container: layout.Container(n, maxDepth),
		}
		if p := &t.Nodes[n.Parent]; layout.Visible(p, maxDepth) {
			c.Parent = p.Path
		}
		l.Circles = append(l.Circles, c)
	})
	for _, ext := range layout.Legend(t, table, maxDepth) {
		l.Legend = append(l.Legend, LegendEntry{Extension: ext, Color: colors.Resolve(table, ext)})
	}
	return l
}

// Containers returns the circles drawn as outlines.
func (l *Layout) Containers() []Circle {
	var out []Circle
	for _, c := range l.Circles {
		if c.Container {
			out = append(out, c)
		}
	}
	return out
}

// Leaves returns the circles drawn filled.
func (l *Layout) Leaves() []Circle {
	var out []Circle
	for _, c := range l.Circles {
		if !c.Container {
			out = append(out, c)
		}
	}
	return out
}

// Marshal serializes l to indented JSON.
func Marshal(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// Unmarshal decodes and validates a layout. A missing viz type means
// bubbles.
func Unmarshal(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("unmarshal layout: %w", err)
	}
	if l.VizType == "" {
		l.VizType = VizTypeBubbles
	}

	switch {
	case l.IsBubbles():
		if l.Width <= 0 || l.Height <= 0 {
			return Layout{}, fmt.Errorf("bubbles layout must have positive width and height")
		}
	case l.IsNodelink():
		if l.DOT == "" {
			return Layout{}, fmt.Errorf("nodelink layout must contain DOT string")
		}
	default:
		return Layout{}, fmt.Errorf("unknown viz type %q", l.VizType)
	}
	return l, nil
}

// WriteFile writes l to path as JSON.
func WriteFile(l Layout, path string) error {
	data, err := Marshal(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadFile reads a layout from a JSON file.
func ReadFile(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Unmarshal(data)
}
