package svg

import (
	"strings"
	"testing"

	"github.com/matzehuels/repobubbles/pkg/diagram"
)

func sample() diagram.Layout {
	return diagram.Layout{
		VizType: diagram.VizTypeBubbles,
		Width:   1000,
		Height:  1000,
		Circles: []diagram.Circle{
			{Path: "src", Label: "src", Color: "#00ADD8", X: 500, Y: 500, R: 300, Depth: 1, Container: true},
			{Path: "src/big.go", Label: "big.go", Extension: "go", Color: "#00ADD8", X: 450, Y: 500, R: 60, Depth: 2, Parent: "src"},
			{Path: "src/tiny.go", Label: "tiny.go", Extension: "go", Color: "#00ADD8", X: 600, Y: 500, R: 12, Depth: 2, Parent: "src"},
			{Path: "src/pkg", Label: "pkg", X: 500, Y: 650, R: 8, Depth: 2, Parent: "src", Container: true},
		},
		Legend: []diagram.LegendEntry{{Extension: "go", Color: "#00ADD8"}},
	}
}

func TestRender(t *testing.T) {
	out := string(Render(sample()))

	if !strings.HasPrefix(out, "<svg ") || !strings.HasSuffix(out, "</svg>\n") {
		t.Fatal("output is not a complete svg document")
	}
	if got := strings.Count(out, `class="container"`); got != 2 {
		t.Errorf("container circles = %d, want 2", got)
	}
	if got := strings.Count(out, `class="leaf"`); got != 2 {
		t.Errorf("leaf circles = %d, want 2", got)
	}
	if !strings.Contains(out, `stroke="#290819"`) {
		t.Error("containers should use the outline stroke")
	}
}

func TestLabelThresholds(t *testing.T) {
	out := string(Render(sample()))

	// Leaf labels: three text layers, only for r > 30.
	if got := strings.Count(out, ">big.go</text>"); got != 3 {
		t.Errorf("big.go label layers = %d, want 3", got)
	}
	if strings.Contains(out, "tiny.go</text>") {
		t.Error("small leaf should not be labeled")
	}

	// Curved labels: outline plus text, only for r >= 10.
	if got := strings.Count(out, ">src</textPath>"); got != 2 {
		t.Errorf("src curved label layers = %d, want 2", got)
	}
	if strings.Contains(out, ">pkg</textPath>") {
		t.Error("small container should not be labeled")
	}
	// The arc radius is r-3.
	if !strings.Contains(out, "M -297.00,0 A 297.00,297.00") {
		t.Error("curved label should follow a circle of radius r-3")
	}
}

func TestLegend(t *testing.T) {
	out := string(Render(sample()))
	if !strings.Contains(out, ">.go</text>") || !strings.Contains(out, Caption) {
		t.Error("legend missing")
	}
	if !strings.Contains(out, `translate(920, 965)`) {
		t.Error("legend should sit in the bottom-right corner")
	}

	out = string(Render(sample(), WithLegend(false)))
	if strings.Contains(out, Caption) {
		t.Error("WithLegend(false) should drop the legend")
	}
}

func TestGlow(t *testing.T) {
	if strings.Contains(string(Render(sample())), `filter="url(#glow)"`) {
		t.Error("glow should be off by default")
	}
	if !strings.Contains(string(Render(sample(), WithGlow(true))), `filter="url(#glow)"`) {
		t.Error("WithGlow(true) should apply the filter")
	}
}

func TestEscapesLabels(t *testing.T) {
	l := sample()
	l.Circles[1].Label = "a<b>&c"
	out := string(Render(l))
	if strings.Contains(out, "a<b>") {
		t.Error("label was not escaped")
	}
	if !strings.Contains(out, "a&lt;b&gt;&amp;c") {
		t.Error("escaped label missing")
	}
}

func TestEscapeXML(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain", "plain"},
		{`"q"`, "&#34;q&#34;"},
		{"<&>", "&lt;&amp;&gt;"},
	}
	for _, tt := range tests {
		if got := EscapeXML(tt.in); got != tt.want {
			t.Errorf("EscapeXML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
