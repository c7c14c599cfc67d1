package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

type OracleMCP struct {
	server   *server.MCPServer
	cfg      *Config
	registry *Registry
	logger   *zap.Logger
	queryLog *QueryLog
}
