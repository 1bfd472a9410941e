// Package cmd defines the botlog CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/botlog/internal/config"
)

type rootOptions struct {
	configPath string
}

// loadConfig is a variable so tests can inject configuration.
var loadConfig = config.Load

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "botlog",
		Short: "Ingest web server access logs and keep the crawler hits.",
		Long: `botlog imports access logs uploaded by clients, classifies each request
by user agent, and stores the hits made by known crawlers and AI agents.
It runs as an HTTP service with a background worker pool, or imports a
single file from the command line.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newImportCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	return cmd
}

func (o *rootOptions) load() (config.Config, error) {
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
