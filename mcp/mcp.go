package mcp

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMcpServer wires configuration, logging, the connection registry
// and the tool surface into one stdio MCP server.
func NewMcpServer(cfg *Config) (*OracleMCP, error) {
	logger := newLogger(cfg.Global)

	s := &OracleMCP{
		server: server.NewMCPServer(
			"Oracle Database Manager",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		cfg:      cfg,
		registry: NewRegistry(cfg, logger),
		logger:   logger,
		queryLog: NewQueryLog(logger, QueryLogCapacity),
	}

	// Register tools
	s.registerTools()

	return s, nil
}

// Start starts the MCP server in stdio mode
func (s *OracleMCP) Start() error {
	s.logger.Info("starting Oracle MCP server")
	return server.ServeStdio(s.server)
}

// Close releases all cached pools and flushes the log.
func (s *OracleMCP) Close() error {
	err := s.registry.Close()
	_ = s.logger.Sync()
	return err
}
