package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/matzehuels/repobubbles/pkg/config"
)

// configCommand creates the config command for inspecting settings.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the merged settings as TOML (secrets redacted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Print(redacted(c.Config).String())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.ConfigPath != "" {
				fmt.Fprintln(cmd.OutOrStdout(), c.ConfigPath)
				return nil
			}
			p, err := config.DefaultPath()
			if err != nil {
				return fmt.Errorf("get config path: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	})

	return cmd
}

// redacted hides credentials in cfg.
func redacted(cfg config.Config) config.Config {
	if cfg.Cache.RedisPassword != "" {
		cfg.Cache.RedisPassword = "xxxxx"
	}
	if u, err := url.Parse(cfg.Cache.MongoURI); err == nil && cfg.Cache.MongoURI != "" {
		cfg.Cache.MongoURI = u.Redacted()
	}
	return cfg
}
