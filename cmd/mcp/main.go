// dabench MCP server.
// Exposes harness inspection tools over MCP stdio transport.
package main

import (
	"fmt"
	"os"

	mcptools "github.com/gateway-fm/dabench/internal/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	dabenchURL := os.Getenv("DABENCH_URL")
	if dabenchURL == "" {
		dabenchURL = "http://localhost:9148"
	}

	s := server.NewMCPServer(
		"dabench",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	client := mcptools.NewClient(dabenchURL)
	mcptools.RegisterTools(s, client)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
