// Package mcpserver exposes a built sitemap to MCP clients over stdio.
package mcpserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/agentic-research/keeper/internal/graph"
	"github.com/agentic-research/keeper/internal/render"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
)

var jsonOptions = &ojg.Options{Indent: 2, Sort: true}

// Server answers sitemap queries against a graph. Pass a
// *graph.HotSwapGraph to serve rebuilds without restarting.
type Server struct {
	graph  graph.Graph
	mcp    *server.MCPServer
	logger *slog.Logger
}

func New(g graph.Graph, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		graph: g,
		mcp: server.NewMCPServer(
			"keeper",
			version,
			server.WithToolCapabilities(false),
		),
		logger: logger,
	}
	s.registerTools()
	return s
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio blocks serving MCP over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("sitemap_tree",
		mcp.WithDescription("Render the whole sitemap"),
		mcp.WithString("format",
			mcp.Description("Output format: tree (default), table or json"),
		),
	), s.handleTree)

	s.mcp.AddTool(mcp.NewTool("sitemap_node",
		mcp.WithDescription("Describe one sitemap node and its children"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Node name: a segment or group name, or a route"),
		),
	), s.handleNode)

	s.mcp.AddTool(mcp.NewTool("sitemap_permission",
		mcp.WithDescription("List the sitemap nodes guarded by a permission"),
		mcp.WithString("permission",
			mcp.Required(),
			mcp.Description("Permission name"),
		),
	), s.handlePermission)

	s.mcp.AddTool(mcp.NewTool("sitemap_permissions",
		mcp.WithDescription("List every permission used in the sitemap"),
	), s.handlePermissions)
}

func (s *Server) handleTree(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := render.FormatTree
	if raw, ok := request.GetArguments()["format"].(string); ok && raw != "" {
		f, err := render.ParseFormat(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		format = f
	}
	var buf bytes.Buffer
	if err := render.Sitemap(&buf, s.graph, format); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to render sitemap: %v", err)), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (s *Server) handleNode(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name argument is required"), nil
	}
	n, err := s.graph.GetNode(name)
	if errors.Is(err, graph.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("Node not found: %s", name)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := map[string]any{
		"name":     n.ID,
		"kind":     string(n.Kind),
		"children": append([]string{}, n.Children...),
	}
	if n.Title != "" {
		out["title"] = n.Title
	}
	if len(n.Options) > 0 {
		out["options"] = n.Options
	}
	return mcp.NewToolResultText(oj.JSON(out, jsonOptions)), nil
}

func (s *Server) handlePermission(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	permission, err := request.RequireString("permission")
	if err != nil {
		return mcp.NewToolResultError("permission argument is required"), nil
	}
	nodes := s.graph.NodesWithPermission(permission)
	s.logger.Debug("permission lookup", "permission", permission, "nodes", len(nodes))
	if nodes == nil {
		nodes = []string{}
	}
	return mcp.NewToolResultText(oj.JSON(nodes, jsonOptions)), nil
}

func (s *Server) handlePermissions(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var buf bytes.Buffer
	if err := render.Permissions(&buf, s.graph); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}
