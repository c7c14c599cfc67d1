package main

import (
	"log"

	"oracle-mcp/mcp"

	_ "github.com/godror/godror"
)

func main() {
	cfg, err := mcp.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
		return
	}

	// Define MCP Server
	mcpServer, err := mcp.NewMcpServer(cfg)
	if err != nil {
		log.Fatalf("Error setting up MCP server: %v", err)
		return
	}

	// Start server in stdio
	defer mcpServer.Close()
	if err = mcpServer.Start(); err != nil {
		log.Fatalf("Error starting server: %v", err)
		return
	}
}
