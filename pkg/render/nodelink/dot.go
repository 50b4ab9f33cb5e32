package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/repobubbles/pkg/hierarchy"
	"github.com/matzehuels/repobubbles/pkg/render"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the weight and sort key to every node label.
	Detailed bool
	// MaxDepth stops the diagram below this depth. Zero means no limit.
	MaxDepth int
}

// ToDOT converts a normalized hierarchy to Graphviz DOT format. Folders are
// drawn as boxes, files as ellipses filled with their color, and the
// loose-files bucket as a dashed box.
func ToDOT(root *hierarchy.Node, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.15,0.05\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.2;\n")
	buf.WriteString("\n")

	if root == nil {
		buf.WriteString("}\n")
		return buf.String()
	}

	var edges []string
	var walk func(n *hierarchy.Node, depth int)
	walk = func(n *hierarchy.Node, depth int) {
		fmt.Fprintf(&buf, "  %q [%s];\n", nodeID(n), strings.Join(fmtAttrs(n, opts.Detailed), ", "))
		if opts.MaxDepth > 0 && depth >= opts.MaxDepth {
			return
		}
		for _, c := range n.Children {
			edges = append(edges, fmt.Sprintf("  %q -> %q;\n", nodeID(n), nodeID(c)))
			walk(c, depth+1)
		}
	}
	walk(root, 0)

	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(e)
	}
	buf.WriteString("}\n")
	return buf.String()
}

// nodeID returns the DOT identifier of n. The root has an empty path.
func nodeID(n *hierarchy.Node) string {
	if n.Path == "" {
		return "/"
	}
	return n.Path
}

func fmtLabel(n *hierarchy.Node, detailed bool) string {
	label := n.Name
	if n.Synthetic {
		label = "(loose files)"
	}
	if !detailed {
		return label
	}
	return fmt.Sprintf("%s\nweight: %.0f\nsort: %.0f", label, n.Weight, n.SortKey)
}

func fmtAttrs(n *hierarchy.Node, detailed bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, detailed))}
	switch {
	case n.Synthetic:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	case n.IsLeaf():
		attrs = append(attrs, "shape=ellipse", fmt.Sprintf("fillcolor=%q", n.Color))
	default:
		attrs = append(attrs, fmt.Sprintf("color=%q", n.Color))
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's svg header with one whose viewBox
// starts at the origin and whose size matches it.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
