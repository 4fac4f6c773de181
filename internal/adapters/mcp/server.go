// Package mcp exposes the resolved inventory as a Model Context
// Protocol server so agents can query nodes and the global indexes as
// tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/strataconf/stratum"
	"github.com/strataconf/stratum/pkg/inventory"
	"github.com/strataconf/stratum/pkg/paramtree"
)

// Resolver is the inventory surface served over MCP.
type Resolver interface {
	NodeInfo(name string) (*inventory.NodeInfo, error)
	Inventory() (*inventory.Inventory, error)
}

// Server wraps a resolver and exposes it as an MCP server.
type Server struct {
	resolver  Resolver
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance.
func NewServer(resolver Resolver) *Server {
	s := &Server{
		resolver:  resolver,
		mcpServer: server.NewMCPServer("stratum-mcp", strings.TrimSpace(stratum.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	// TOOL: get_node
	s.mcpServer.AddTool(mcp.NewTool("get_node",
		mcp.WithDescription("Resolve one node and return its classes, applications, environment, and merged parameters."),
		mcp.WithString("name", mcp.Required(), mcp.Description("The full node name")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		info, err := s.resolver.NodeInfo(name)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("resolve failed: %v", err)), nil
		}
		return treeResult(info.FlatMap())
	})

	// TOOL: list_nodes
	s.mcpServer.AddTool(mcp.NewTool("list_nodes",
		mcp.WithDescription("List the full names of every node in the inventory."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		inv, err := s.resolver.Inventory()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("inventory build failed: %v", err)), nil
		}
		names := make([]string, 0, len(inv.Nodes))
		for name := range inv.Nodes {
			names = append(names, name)
		}
		sort.Strings(names)
		jsonBytes, _ := json.Marshal(names)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: get_inventory
	s.mcpServer.AddTool(mcp.NewTool("get_inventory",
		mcp.WithDescription("Resolve every node and return the full inventory with its class and application indexes."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		inv, err := s.resolver.Inventory()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("inventory build failed: %v", err)), nil
		}
		return treeResult(inv.FlatMap())
	})
}

func (s *Server) registerResources() {
	// EXPOSE: stratum://inventory
	s.mcpServer.AddResource(mcp.NewResource("stratum://inventory", "Resolved Inventory",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		inv, err := s.resolver.Inventory()
		if err != nil {
			return nil, fmt.Errorf("inventory build failed: %w", err)
		}
		jsonBytes, err := json.Marshal(paramtree.Map(inv.FlatMap()).AsAny())
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "stratum://inventory",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func treeResult(tree *paramtree.Mapping) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(paramtree.Map(tree).AsAny())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
