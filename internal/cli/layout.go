package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/repobubbles/pkg/diagram"
	"github.com/matzehuels/repobubbles/pkg/pipeline"
	"github.com/matzehuels/repobubbles/pkg/tree"
)

// inputFlags select how the positional argument is read.
type inputFlags struct {
	lines   bool
	exclude []string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.lines, "stdin-lines", false, "read 'path:count' lines instead of tree JSON")
	cmd.Flags().StringSliceVar(&f.exclude, "exclude", nil, "file or directory name to skip when walking a directory (repeatable)")
}

func (f *inputFlags) source(input string) pipeline.Source {
	return pipeline.Source{Path: input, Lines: f.lines, Stdin: os.Stdin, Exclude: f.exclude}
}

// registerCanvasFlags adds the flags shared by every command that lays out a tree.
func registerCanvasFlags(cmd *cobra.Command, opts *pipeline.Options) {
	cmd.Flags().StringVarP(&opts.Project, "project", "p", opts.Project, "project id; each project keeps its own circle positions")
	cmd.Flags().Float64Var(&opts.Width, "width", opts.Width, "canvas width")
	cmd.Flags().Float64Var(&opts.Height, "height", opts.Height, "canvas height")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", opts.MaxDepth, "deepest level drawn")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore the saved positions and pack from scratch")
}

// layoutCommand creates the layout command for computing circle positions.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output   string
		noCache  bool
		nodelink bool
		in       inputFlags
	)
	opts := c.canvasOpts()

	cmd := &cobra.Command{
		Use:   "layout <dir|tree.json|->",
		Short: "Compute circle positions for a codebase",
		Long: `Compute circle positions for a codebase.

The input is a directory to walk, a tree.json file, or '-' for stdin. The
output is a layout.json file (same format as 'render -f json') that can be
drawn later with 'visualize'.

Positions are saved per project, so the next run over a changed tree moves
circles as little as possible. Use --refresh to start over.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.applyConfig(cmd, &opts)
			if nodelink {
				opts.VizType = diagram.VizTypeNodelink
			}
			return c.runLayout(cmd.Context(), in.source(args[0]), opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, '-' for stdout (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching and saved positions")
	cmd.Flags().BoolVar(&nodelink, "nodelink", false, "compute a Graphviz node-link layout instead of circles")
	registerCanvasFlags(cmd, &opts)
	in.register(cmd)

	return cmd
}

// runLayout loads the tree, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, src pipeline.Source, opts pipeline.Options, output string, noCache bool) error {
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

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Computing %s layout...", vizName(opts)))
	spinner.Start()

	l, info, err := runner.LayoutWithCacheInfo(ctx, root, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	outputPath := output
	if outputPath == "" {
		outputPath = basePath("", src.Path) + ".layout.json"
	}
	if err := writeLayout(l, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}
	if outputPath == pipeline.StdinPath {
		return nil
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(tree.Count(root), len(l.Circles), info.SnapshotHit, info.LayoutHit)
	printNewline()
	printNextStep("Render", appName+" visualize "+outputPath)

	return nil
}

// writeLayout writes l as JSON to path, or to stdout for "-".
func writeLayout(l diagram.Layout, path string) error {
	if path != pipeline.StdinPath {
		return diagram.WriteFile(l, path)
	}
	data, err := diagram.Marshal(l)
	if err != nil {
		return err
	}
	return writeTo(path, data)
}

// writeTo writes data to path, or to stdout for "-".
func writeTo(path string, data []byte) error {
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// openOutput opens path for writing. "-" is stdout, which is never closed.
func openOutput(path string) (io.WriteCloser, error) {
	if path == pipeline.StdinPath {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func vizName(opts pipeline.Options) string {
	if opts.IsNodelink() {
		return diagram.VizTypeNodelink
	}
	return diagram.VizTypeBubbles
}
