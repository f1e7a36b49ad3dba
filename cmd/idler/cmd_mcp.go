package main

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/yairfalse/idler/internal/client"
	"github.com/yairfalse/idler/internal/mcptools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve idler tools over the Model Context Protocol (stdio)",
	RunE: func(_ *cobra.Command, _ []string) error {
		api := client.New(cfg.Dashboard.APIURL, cfg.Dashboard.Timeout)
		if err := server.ServeStdio(mcptools.NewServer(version, api)); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
