package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/repobubbles/pkg/diagram"
	errs "github.com/matzehuels/repobubbles/pkg/errors"
	"github.com/matzehuels/repobubbles/pkg/pipeline"
)

// visualizeCommand creates the visualize command for rendering from a layout.
func (c *CLI) visualizeCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		noCache    bool
	)
	opts := c.canvasOpts()

	cmd := &cobra.Command{
		Use:   "visualize <layout.json>",
		Short: "Render a computed layout",
		Long: `Render a computed layout.

The visualize command takes a layout.json file (produced by 'layout') and
draws it as SVG, PNG, PDF or JSON. The layout holds every position, so no
tree is read and no saved positions change.

Use 'render' as a shortcut to go directly from a codebase to a picture.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Logger = c.Logger
			opts.Formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}
			return c.runVisualize(cmd.Context(), args[0], opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, pdf, json (comma-separated)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	registerDrawFlags(cmd, &opts)

	return cmd
}

// runVisualize loads the layout and renders it.
func (c *CLI) runVisualize(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
	if output == pipeline.StdinPath && len(opts.Formats) > 1 {
		return errs.New(errs.ErrCodeInvalidInput, "cannot write %d formats to stdout", len(opts.Formats))
	}

	l, err := diagram.ReadFile(input)
	if err != nil {
		return fmt.Errorf("load layout %s: %w", input, err)
	}

	// The layout decides what is drawn; the canvas follows it.
	opts.VizType = l.VizType
	if opts.VizType == "" {
		opts.VizType = diagram.VizTypeBubbles
	}
	opts.Width, opts.Height = l.Width, l.Height
	if l.MaxDepth > 0 {
		opts.MaxDepth = l.MaxDepth
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", opts.VizType))
	spinner.Start()

	artifacts, cacheHit, err := runner.RenderWithCacheInfo(ctx, l, opts)
	if err != nil {
		spinner.StopWithError("Visualization failed")
		return fmt.Errorf("visualize: %w", err)
	}
	spinner.Stop()

	paths, err := writeArtifacts(artifacts, opts.Formats, basePath(output, input), output)
	if err != nil {
		return err
	}
	if output == pipeline.StdinPath {
		return nil
	}

	printSuccess("Visualization complete")
	for _, p := range paths {
		printFile(p)
	}
	printStats(0, len(l.Circles), false, cacheHit)
	return nil
}
