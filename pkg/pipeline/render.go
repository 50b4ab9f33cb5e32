package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/repobubbles/pkg/diagram"
	errs "github.com/matzehuels/repobubbles/pkg/errors"
	"github.com/matzehuels/repobubbles/pkg/render"
	"github.com/matzehuels/repobubbles/pkg/render/nodelink"
	"github.com/matzehuels/repobubbles/pkg/render/svg"
)

// Render generates output artifacts in the requested formats.
func Render(ctx context.Context, l diagram.Layout, opts Options) (map[string][]byte, error) {
	if l.IsNodelink() {
		return renderNodelink(ctx, l, opts)
	}
	return renderBubbles(ctx, l, opts)
}

// renderBubbles draws the SVG once and converts it for raster and PDF output.
func renderBubbles(ctx context.Context, l diagram.Layout, opts Options) (map[string][]byte, error) {
	var doc []byte
	drawn := func() []byte {
		if doc == nil {
			doc = svg.Render(l, svg.WithLegend(opts.Legend), svg.WithGlow(opts.Glow))
		}
		return doc
	}

	artifacts := make(map[string][]byte)
	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data = drawn()
		case FormatPNG:
			data, err = render.ToPNG(ctx, drawn(), opts.Scale)
		case FormatPDF:
			data, err = render.ToPDF(ctx, drawn())
		case FormatJSON:
			data, err = diagram.Marshal(l)
		default:
			return nil, errs.New(errs.ErrCodeInvalidFormat, "unsupported bubbles format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}

// renderNodelink generates node-link outputs from a layout carrying DOT.
func renderNodelink(ctx context.Context, l diagram.Layout, opts Options) (map[string][]byte, error) {
	if l.DOT == "" {
		return nil, errs.New(errs.ErrCodeInvalidLayout, "nodelink layout missing DOT string")
	}

	artifacts := make(map[string][]byte)
	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data, err = nodelink.RenderSVG(ctx, l.DOT)
		case FormatPNG:
			data, err = nodelink.RenderPNG(ctx, l.DOT, opts.Scale)
		case FormatPDF:
			data, err = nodelink.RenderPDF(ctx, l.DOT)
		case FormatJSON:
			data, err = diagram.Marshal(l)
		default:
			return nil, errs.New(errs.ErrCodeInvalidFormat, "unsupported nodelink format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}
