package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yairfalse/idler/internal/client"
	"github.com/yairfalse/idler/internal/dashboard"
	"github.com/yairfalse/idler/internal/filter"
)

var (
	dashboardType   string
	dashboardExport string
	dashboardBanner bool
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show idle resources from a running aggregator",
	Example: `  idler dashboard                           # All types
  idler dashboard --type volume             # Only unattached volumes
  idler dashboard --export idle.csv         # Also write a CSV export
  idler dashboard --export -                # CSV export named after today`,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.Flags().StringVar(&dashboardType, "type", "all", "Resource type to show (all, compute, managed_db, volume, snapshot)")
	dashboardCmd.Flags().StringVar(&dashboardExport, "export", "", "Write every loaded resource to a CSV file (\"-\" for the default name)")
	dashboardCmd.Flags().BoolVar(&dashboardBanner, "banner", true, "Print the banner")
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	sel, err := filter.Parse(dashboardType)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if dashboardBanner {
		dashboard.DrawBanner(out)
	}

	d := dashboard.New(client.New(cfg.Dashboard.APIURL, cfg.Dashboard.Timeout))
	d.Select(sel)

	spin := dashboard.StartSpinner(os.Stderr, "Loading idle resources...")
	loadErr := d.Load(cmd.Context())
	spin.Stop()

	d.Render(out)
	if loadErr != nil {
		log.Debug().Err(loadErr).Msg("load failed")
		return loadErr
	}

	if dashboardExport == "" {
		return nil
	}
	path := dashboardExport
	if path == "-" {
		path = dashboard.ExportFileName(time.Now())
	}
	if err := d.ExportFile(path); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	fmt.Fprintf(out, "Exported %d resources to %s\n", len(d.Resources()), path)
	return nil
}
