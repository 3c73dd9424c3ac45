// Package mcp exposes the storage engine as MCP tools. The tool layer owns
// the chunk-aware write and read paths; everything else is a thin dispatch
// to the storage adapter.
package mcp

import (
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/calder/mnemo/internal/storage"
)

// Config contains server configuration.
type Config struct {
	Adapter       storage.Adapter
	AuthEnabled   bool
	AuthToken     string
	TransportMode string // "stdio" or "http"
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "mnemo",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Stdio serves one local client; bearer auth only applies over HTTP.
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.AuthToken))
	}
	server.AddReceivingMiddleware(loggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(loggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Adapter)

	return server
}
