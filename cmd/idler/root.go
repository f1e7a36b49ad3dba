package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yairfalse/idler/internal/config"
	"github.com/yairfalse/idler/internal/telemetry"
)

var (
	version = "0.1.0"

	configPath string
	debug      bool
	apiURL     string

	// Replaced by setup; defaults cover commands that skip it.
	cfg = config.Default()

	rootCmd = &cobra.Command{
		Use:   "idler",
		Short: "Find idle cloud resources",
		Long: `Idler - idle cloud resource inventory

Idler lists stopped instances, stopped databases, unattached volumes and
owned snapshots in one account and region, shows them in a dashboard and
lets you delete what you no longer need.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`Idler {{.Version}} - idle cloud resource inventory
`)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (TOML or YAML)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Aggregator base URL (overrides dashboard.api_url)")
}

// setup loads .env and config, then configures logging.
func setup(_ *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	c, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiURL != "" {
		c.Dashboard.APIURL = apiURL
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	cfg = c

	telemetry.SetupLogging(cfg.Log.Level, debug)
	log.Debug().Str("config", configPath).Str("region", cfg.AWS.Region).Msg("configuration loaded")
	return nil
}
