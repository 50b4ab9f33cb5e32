// Package svg renders bubble diagrams as standalone SVG documents.
//
// Containers are drawn as faint outlines with their label curved along the
// top of the circle. Leaves are filled with their extension color, and
// leaves large enough to read get a centered label. A legend of the known
// extensions sits in the bottom-right corner.
//
//	l := diagram.FromTree(t, layout.MaxDepth, colors.Linguist())
//	out := svg.Render(l, svg.WithLegend(true))
package svg

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"

	"github.com/matzehuels/repobubbles/pkg/diagram"
)

// Drawing constants.
const (
	// LeafLabelMinRadius is the radius a leaf must exceed to be labeled.
	LeafLabelMinRadius = 30
	// ContainerLabelMinRadius is the smallest container radius that gets a
	// curved label.
	ContainerLabelMinRadius = 10
	// Caption is printed under the legend.
	Caption = "each dot sized by file size"

	containerStroke = "#290819"
	labelColor      = "#374151"
	leafTextColor   = "#4B5563"
	fontSize        = 14
	legendRow       = 15
	legendInset     = 80
)

// Option configures rendering.
type Option func(*renderer)

type renderer struct {
	legend bool
	glow   bool
}

// WithLegend toggles the extension legend. It is on by default.
func WithLegend(on bool) Option { return func(r *renderer) { r.legend = on } }

// WithGlow adds a glow filter to leaf circles.
func WithGlow(on bool) Option { return func(r *renderer) { r.glow = on } }

// Render draws l. Circles are emitted in layout order, so parents are drawn
// before their children.
func Render(l diagram.Layout, opts ...Option) []byte {
	r := renderer{legend: true}
	for _, opt := range opts {
		opt(&r)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.0f %.0f" width="%.0f" height="%.0f" style="background: white; font-family: sans-serif; overflow: visible">`+"\n",
		l.Width, l.Height, l.Width, l.Height)
	renderDefs(&buf)

	for _, c := range l.Circles {
		r.renderCircle(&buf, c)
	}
	for _, c := range l.Circles {
		if !c.Container && c.R > LeafLabelMinRadius {
			renderLeafLabel(&buf, c)
		}
	}
	for i, c := range l.Circles {
		if c.Container && c.R >= ContainerLabelMinRadius {
			renderCurvedLabel(&buf, c, i)
		}
	}
	if r.legend {
		renderLegend(&buf, l)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderDefs(buf *bytes.Buffer) {
	buf.WriteString(`  <defs>
    <filter id="glow" x="-50%" y="-50%" width="200%" height="200%">
      <feGaussianBlur stdDeviation="4" result="coloredBlur"/>
      <feMerge><feMergeNode in="coloredBlur"/><feMergeNode in="SourceGraphic"/></feMerge>
    </filter>
  </defs>
`)
}

func (r *renderer) renderCircle(buf *bytes.Buffer, c diagram.Circle) {
	if c.Container {
		fmt.Fprintf(buf, `  <circle class="container" data-path="%s" cx="%.2f" cy="%.2f" r="%.2f" fill="none" stroke="%s" stroke-width="1" opacity="0.2"/>`+"\n",
			EscapeXML(c.Path), c.X, c.Y, c.R, containerStroke)
		return
	}
	filter := ""
	if r.glow {
		filter = ` filter="url(#glow)"`
	}
	fmt.Fprintf(buf, `  <circle class="leaf" data-path="%s" cx="%.2f" cy="%.2f" r="%.2f" fill="%s"%s/>`+"\n",
		EscapeXML(c.Path), c.X, c.Y, c.R, EscapeXML(c.Color), filter)
}

// renderLeafLabel draws a white halo, the label in the leaf color, and a
// dark burn layer on top.
func renderLeafLabel(buf *bytes.Buffer, c diagram.Circle) {
	label := EscapeXML(c.Label)
	fmt.Fprintf(buf, `  <g transform="translate(%.2f, %.2f)" font-size="%d" font-weight="500" text-anchor="middle" dominant-baseline="middle" pointer-events="none">`+"\n",
		c.X, c.Y, fontSize)
	fmt.Fprintf(buf, `    <text fill="%s" stroke="white" stroke-width="3" stroke-linejoin="round" opacity="0.9">%s</text>`+"\n", leafTextColor, label)
	fmt.Fprintf(buf, `    <text fill="%s">%s</text>`+"\n", EscapeXML(c.Color), label)
	fmt.Fprintf(buf, `    <text fill="#110101" opacity="0.9" style="mix-blend-mode: color-burn">%s</text>`+"\n", label)
	buf.WriteString("  </g>\n")
}

// renderCurvedLabel writes the label along the top of the circle, with a
// white outline underneath.
func renderCurvedLabel(buf *bytes.Buffer, c diagram.Circle, i int) {
	rr := math.Max(20, c.R-3)
	id := fmt.Sprintf("arc-%d", i)
	label := EscapeXML(c.Label)

	fmt.Fprintf(buf, `  <g transform="translate(%.2f, %.2f)" font-size="%d" pointer-events="none">`+"\n", c.X, c.Y, fontSize)
	fmt.Fprintf(buf, `    <path id="%s" d="%s" fill="none"/>`+"\n", id, arcPath(rr))
	fmt.Fprintf(buf, `    <text fill="%s" stroke="white" stroke-width="6"><textPath href="#%s" startOffset="25%%" text-anchor="middle">%s</textPath></text>`+"\n",
		labelColor, id, label)
	fmt.Fprintf(buf, `    <text fill="%s"><textPath href="#%s" startOffset="25%%" text-anchor="middle">%s</textPath></text>`+"\n",
		labelColor, id, label)
	buf.WriteString("  </g>\n")
}

// arcPath traces a full circle of radius r clockwise from its leftmost
// point, so a quarter of the way along the path is the top of the circle.
func arcPath(r float64) string {
	return fmt.Sprintf("M %.2f,0 A %.2f,%.2f 0 0,1 %.2f,0 A %.2f,%.2f 0 0,1 %.2f,0", -r, r, r, r, r, r, -r)
}

func renderLegend(buf *bytes.Buffer, l diagram.Layout) {
	if len(l.Legend) == 0 {
		return
	}
	top := l.Height - float64(len(l.Legend)*legendRow) - 20
	fmt.Fprintf(buf, `  <g class="legend" transform="translate(%.0f, %.0f)">`+"\n", l.Width-legendInset, top)
	for i, e := range l.Legend {
		fmt.Fprintf(buf, `    <g transform="translate(0, %d)"><circle r="5" fill="%s"/><text x="10" font-size="%d" font-weight="300" dominant-baseline="middle">.%s</text></g>`+"\n",
			i*legendRow, EscapeXML(e.Color), fontSize, EscapeXML(e.Extension))
	}
	fmt.Fprintf(buf, `    <text y="%d" font-size="12" font-style="italic" font-weight="300" fill="#6B7280">%s</text>`+"\n",
		len(l.Legend)*legendRow, Caption)
	buf.WriteString("  </g>\n")
}

// EscapeXML escapes s for use in text nodes and attribute values.
func EscapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
