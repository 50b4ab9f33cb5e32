// Package nodelink renders the normalized hierarchy as a node-link diagram.
//
// The bubble view hides structure behind area. This view shows it directly:
// every folder and file after chain collapsing and loose-file bucketing is a
// Graphviz node, connected left to right from the root.
//
//	h := hierarchy.Normalize(root, hierarchy.Options{Colors: colors.Linguist()})
//	dot := nodelink.ToDOT(h, nodelink.Options{MaxDepth: 3})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// SVG rendering runs in-process through [github.com/goccy/go-graphviz].
// PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
