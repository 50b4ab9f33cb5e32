package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/repobubbles/pkg/cache"
	"github.com/matzehuels/repobubbles/pkg/pipeline"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached layouts, renders and saved positions",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheForgetCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear every cached entry, including saved positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := c.openCache(ctx, false)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer store.Close()

			if err := cache.Clear(ctx, store); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}

			printSuccess("Cleared %s cache", c.backendName())
			if fc, ok := store.(*cache.FileCache); ok {
				printDetail("Directory: %s", fc.Dir())
			}
			return nil
		},
	}
}

// cacheForgetCommand creates the "cache forget" subcommand.
func (c *CLI) cacheForgetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "forget [project]",
		Short: "Drop a project's saved positions",
		Long: `Drop a project's saved positions.

The next layout of the project packs its circles from scratch. Cached
renders are left alone.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project := pipeline.DefaultProject
			if len(args) == 1 {
				project = args[0]
			}
			ctx := cmd.Context()
			runner, err := c.newRunner(ctx, false)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			if err := runner.DeleteSnapshot(ctx, project); err != nil {
				return err
			}
			printSuccess("Forgot positions of %s", project)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where the cache is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := c.Config.CacheOptions()
			switch opts.Backend {
			case "", cache.BackendFile:
				dir := opts.Dir
				if dir == "" {
					d, err := cacheDir()
					if err != nil {
						return fmt.Errorf("get cache dir: %w", err)
					}
					dir = d
				}
				fmt.Println(dir)
			case cache.BackendRedis:
				fmt.Println("redis://" + opts.Redis.Addr)
			case cache.BackendMongo:
				fmt.Println("mongodb database " + opts.Mongo.Database)
			default:
				printInfo("Caching is disabled (backend %q)", opts.Backend)
			}
			return nil
		},
	}
}

// cacheLabel names the backend in use without exposing credentials.
func (c *CLI) cacheLabel(noCache bool) string {
	if noCache {
		return cache.BackendNone
	}
	return c.backendName()
}

func (c *CLI) backendName() string {
	if c.Config.Cache.Backend == "" {
		return cache.BackendFile
	}
	return c.Config.Cache.Backend
}
