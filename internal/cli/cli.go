// Package cli implements the repobubbles command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/repobubbles/pkg/buildinfo"
	"github.com/matzehuels/repobubbles/pkg/cache"
	"github.com/matzehuels/repobubbles/pkg/config"
	"github.com/matzehuels/repobubbles/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "repobubbles"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath is the --config flag. Empty means config.DefaultPath.
	ConfigPath string
	// Config is loaded before any subcommand runs.
	Config config.Config
}

// New creates a new CLI instance with a default logger and built-in
// settings.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Repobubbles draws codebases as nested circles",
		Long: `Repobubbles draws a codebase as nested circles: one circle per file, sized by
its weight, inside one circle per folder. Successive runs over a changing
codebase keep circles close to where they were, so diagrams can be compared
release over release.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default: $XDG_CONFIG_HOME/repobubbles/config.toml)")

	// Register all subcommands
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.visualizeCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())

	return root
}

// loadConfig reads the config file and environment overrides.
func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return err
	}
	c.Config = cfg
	c.Logger.Debug("loaded config", "path", c.ConfigPath, "cache", cfg.Cache.Backend)
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	store, err := c.openCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(store, nil, c.Logger)
	runner.Engine = c.Config.Engine()
	runner.SnapshotTTL = c.Config.Cache.TTL.Duration
	return runner, nil
}

// openCache opens the configured backend. The file backend falls back to
// the XDG cache directory when no directory is configured.
func (c *CLI) openCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	opts := c.Config.CacheOptions()
	if opts.Backend == cache.BackendFile && opts.Dir == "" {
		dir, err := cacheDir()
		if err != nil {
			c.Logger.Warn("no cache directory, caching disabled", "error", err)
			return cache.NewNullCache(), nil
		}
		opts.Dir = dir
	}
	return cache.Open(ctx, opts)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/repobubbles/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// canvasOpts returns pipeline options for registering flags. Commands are
// built before the config file is read, so RunE calls applyConfig.
func (c *CLI) canvasOpts() pipeline.Options {
	return pipeline.Options{
		Project:  pipeline.DefaultProject,
		Width:    c.Config.Canvas.Width,
		Height:   c.Config.Canvas.Height,
		MaxDepth: c.Config.Canvas.MaxDepth,
		Legend:   true,
		Scale:    pipeline.DefaultScale,
		Logger:   c.Logger,
	}
}

// applyConfig copies config values into opts for every canvas flag the user
// did not set explicitly.
func (c *CLI) applyConfig(cmd *cobra.Command, opts *pipeline.Options) {
	flags := cmd.Flags()
	if !flags.Changed("width") {
		opts.Width = c.Config.Canvas.Width
	}
	if !flags.Changed("height") {
		opts.Height = c.Config.Canvas.Height
	}
	if !flags.Changed("max-depth") {
		opts.MaxDepth = c.Config.Canvas.MaxDepth
	}
	opts.Logger = c.Logger
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if f := pipeline.ParseFormats(s); len(f) > 0 {
		return f
	}
	return []string{pipeline.FormatSVG}
}
