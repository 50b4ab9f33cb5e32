package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/repobubbles/pkg/diagram"
	errs "github.com/matzehuels/repobubbles/pkg/errors"
	"github.com/matzehuels/repobubbles/pkg/pipeline"
	"github.com/matzehuels/repobubbles/pkg/tree"
)

// defaultBase names output files when the input has no usable name.
const defaultBase = "diagram"

// renderCommand creates the render command: load, lay out and draw in one step.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		noCache    bool
		nodelink   bool
		in         inputFlags
	)
	opts := c.canvasOpts()

	cmd := &cobra.Command{
		Use:   "render <dir|tree.json|->",
		Short: "Draw a codebase as nested circles",
		Long: `Draw a codebase as nested circles.

The render command combines 'layout' and 'visualize': it reads a directory,
a tree.json file, or stdin ('-'), lays it out against the project's saved
positions, and writes one file per requested format.

Use --nodelink for a Graphviz tree of the same hierarchy.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.applyConfig(cmd, &opts)
			opts.Formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}
			if nodelink {
				opts.VizType = diagram.VizTypeNodelink
			}
			return c.runRender(cmd.Context(), in.source(args[0]), opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, pdf, json (comma-separated)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching and saved positions")
	cmd.Flags().BoolVar(&nodelink, "nodelink", false, "draw a Graphviz node-link tree instead of circles")
	registerCanvasFlags(cmd, &opts)
	registerDrawFlags(cmd, &opts)
	in.register(cmd)

	return cmd
}

// registerDrawFlags adds the flags that only affect drawing.
func registerDrawFlags(cmd *cobra.Command, opts *pipeline.Options) {
	cmd.Flags().BoolVar(&opts.Legend, "legend", opts.Legend, "draw the extension color legend")
	cmd.Flags().BoolVar(&opts.Glow, "glow", opts.Glow, "add a glow filter behind file circles")
	cmd.Flags().Float64Var(&opts.Scale, "scale", opts.Scale, "PNG scale factor")
	cmd.Flags().BoolVar(&opts.Detailed, "detailed", opts.Detailed, "show file weights in node-link diagrams")
}

// runRender loads the tree and runs the full pipeline.
func (c *CLI) runRender(ctx context.Context, src pipeline.Source, opts pipeline.Options, output string, noCache bool) error {
	if output == pipeline.StdinPath && len(opts.Formats) > 1 {
		return errs.New(errs.ErrCodeInvalidInput, "cannot write %d formats to stdout", len(opts.Formats))
	}

	prog := newProgress(c.Logger)
	root, err := pipeline.LoadTree(ctx, src)
	if err != nil {
		return fmt.Errorf("load tree %s: %w", src, err)
	}
	prog.done("loaded tree", "nodes", tree.Count(root))

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Drawing %s...", vizName(opts)))
	spinner.Start()

	result, err := runner.Execute(ctx, root, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	paths, err := writeArtifacts(result.Artifacts, opts.Formats, basePath(output, src.Path), output)
	if err != nil {
		return err
	}
	if output == pipeline.StdinPath {
		return nil
	}

	printSuccess("Render complete")
	for _, p := range paths {
		printFile(p)
	}
	info := result.CacheInfo
	printStats(result.Stats.NodeCount, result.Stats.CircleCount, info.SnapshotHit, info.LayoutHit && info.RenderHit)
	if opts.Legend {
		printLegend(result.Layout.Legend)
	}
	return nil
}

// writeArtifacts writes each rendered format and returns the written paths.
// A single format goes to output verbatim when one was given; otherwise each
// format is written to base.<format>.
func writeArtifacts(artifacts map[string][]byte, formats []string, base, output string) ([]string, error) {
	var paths []string
	for _, format := range formats {
		data, ok := artifacts[format]
		if !ok {
			return nil, errs.New(errs.ErrCodeInternal, "missing %s output", format)
		}
		path := base + "." + format
		if len(formats) == 1 && output != "" {
			path = output
		}
		if err := writeTo(path, data); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

// basePath derives the output base path. An output with a format extension
// loses it. Without an output, files take the input's name without its
// extension; directories use their own name and stdin uses defaultBase.
func basePath(output, input string) string {
	if output != "" {
		ext := filepath.Ext(output)
		if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
			return strings.TrimSuffix(output, ext)
		}
		return output
	}
	if input == "" || input == pipeline.StdinPath {
		return defaultBase
	}
	if info, err := os.Stat(input); err == nil && info.IsDir() {
		abs, err := filepath.Abs(input)
		if err != nil {
			return defaultBase
		}
		name := filepath.Base(abs)
		if name == string(filepath.Separator) || name == "." {
			return defaultBase
		}
		return name
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return strings.TrimSuffix(base, ".layout")
}
