// Package tools exposes the analytics reports as MCP tools.
package tools

import (
	"context"
	"errors"
	"fmt"

	"summoner-insights/internal/analytics"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

const (
	// serverName identifies this MCP server to clients.
	serverName = "summoner-insights"
	// serverVersion identifies the MCP server version.
	serverVersion = "1.0.0"
)

// Server hosts the report tools.
type Server struct {
	mcpServer *mcp.Server
	engine    *analytics.Engine
	logger    *zap.Logger
}

// New creates an MCP server with every report tool registered.
func New(engine *analytics.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil),
		engine:    engine,
		logger:    logger.Named("tools"),
	}
	registerTools(s.mcpServer, s)
	return s
}

// RunStdio serves over stdin/stdout until the client disconnects or ctx ends.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.Serve(ctx, &mcp.StdioTransport{})
}

// Serve runs the server on transport until ctx ends.
func (s *Server) Serve(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

func (s *Server) result(tool, text string, err error) *mcp.CallToolResult {
	if err != nil {
		s.logger.Warn("tool failed", zap.String("tool", tool), zap.Error(err))
	}
	return textResult(text, err)
}
