// Package mcptools exposes the idle inventory as Model Context Protocol tools.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/yairfalse/idler/internal/dashboard"
	"github.com/yairfalse/idler/internal/filter"
	"github.com/yairfalse/idler/pkg/resource"
)

// Register adds the idler tools to s.
func Register(s *server.MCPServer, api dashboard.API) {
	s.AddTool(
		mcp.NewTool("list_idle_resources",
			mcp.WithDescription("List idle cloud resources (stopped instances and databases, unattached volumes, owned snapshots). Optionally filter by type."),
			mcp.WithString("type",
				mcp.Description("One of COMPUTE, MANAGED_DB, VOLUME, SNAPSHOT or all"),
			),
		),
		makeListHandler(api),
	)

	s.AddTool(
		mcp.NewTool("summarize_idle_resources",
			mcp.WithDescription("Count idle cloud resources per type with their total cost."),
		),
		makeSummaryHandler(api),
	)
}

// NewServer builds an MCP server with the idler tools registered.
func NewServer(version string, api dashboard.API) *server.MCPServer {
	s := server.NewMCPServer(
		"idler-mcp",
		version,
		server.WithToolCapabilities(true),
	)
	Register(s, api)
	return s
}

type listResponse struct {
	Resources []resource.Resource `json:"resources"`
	Warnings  []resource.Warning  `json:"warnings,omitempty"`
}

type tileResponse struct {
	Type      resource.Type `json:"type"`
	Count     int           `json:"count"`
	TotalCost float64       `json:"totalCost"`
}

func makeListHandler(api dashboard.API) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sel, err := filter.Parse(request.GetString("type", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		d := dashboard.New(api)
		if err := d.Load(ctx); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list resources: %v", err)), nil
		}
		d.Select(sel)

		data, _ := json.MarshalIndent(listResponse{Resources: d.Filter(), Warnings: d.Warnings()}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	}
}

func makeSummaryHandler(api dashboard.API) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		d := dashboard.New(api)
		if err := d.Load(ctx); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list resources: %v", err)), nil
		}

		tiles := d.Summarize()
		resp := make([]tileResponse, 0, len(tiles))
		for _, t := range tiles {
			resp = append(resp, tileResponse{Type: t.Type, Count: t.Count, TotalCost: t.TotalCost})
		}

		data, _ := json.MarshalIndent(resp, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	}
}
