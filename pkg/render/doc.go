// Package render converts rendered diagrams between output formats.
//
// Bubble diagrams are drawn by the [svg] subpackage and node-link views of
// the hierarchy by [nodelink]. Both produce SVG, which [ToPNG] and [ToPDF]
// convert with the external rsvg-convert tool (from librsvg):
//
//	out := svg.Render(l)
//	pdf, err := render.ToPDF(ctx, out)
//	png, err := render.ToPNG(ctx, out, 2.0) // 2x scale
//
// [svg]: github.com/matzehuels/repobubbles/pkg/render/svg
// [nodelink]: github.com/matzehuels/repobubbles/pkg/render/nodelink
package render
