// Package mcp exposes the audit service as MCP tools over stdio:
// document scans, token usage searches, index lookups, token listing and
// cache control.
package mcp

import (
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/tokenlens/tokenlens/pkg/audit"
	"github.com/tokenlens/tokenlens/pkg/mcplog"
	"github.com/tokenlens/tokenlens/pkg/token"
)

const serverVersion = "0.1.0-dev"

// Config configures the MCP surface.
type Config struct {
	// CallLogPath is the JSONL tool-call log. Empty disables call
	// logging; the middleware still counts calls in the metrics.
	CallLogPath string

	Logger *slog.Logger
}

// Server serves the tokenlens tools over the MCP stdio transport.
type Server struct {
	mcpServer *server.MCPServer
	service   *audit.Service
	logger    *slog.Logger
	calls     *mcplog.Logger

	// tokens is swapped wholesale when watch mode reloads the sources.
	tokenMu sync.RWMutex
	tokens  *token.Set
}

// NewServer wires the MCP server over an audit service and the loaded
// token set. tokens may be nil when no sources are configured; the
// token tools then answer with an explanatory error result.
func NewServer(service *audit.Service, tokens *token.Set, cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	calls, err := mcplog.NewLogger(cfg.CallLogPath)
	if err != nil {
		return nil, err
	}

	s := &Server{service: service, logger: logger, calls: calls, tokens: tokens}

	s.mcpServer = server.NewMCPServer(
		"tokenlens",
		serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(s.loggingMiddleware()),
	)

	s.mcpServer.AddTools(
		server.ServerTool{Tool: scanDocumentTool(), Handler: s.handleScanDocument},
		server.ServerTool{Tool: findTokenUsagesTool(), Handler: s.handleFindTokenUsages},
		server.ServerTool{Tool: lookupTokenPathTool(), Handler: s.handleLookupTokenPath},
		server.ServerTool{Tool: lookupTokenValueTool(), Handler: s.handleLookupTokenValue},
		server.ServerTool{Tool: listTokensTool(), Handler: s.handleListTokens},
		server.ServerTool{Tool: invalidateCacheTool(), Handler: s.handleInvalidateCache},
		server.ServerTool{Tool: clearCacheTool(), Handler: s.handleClearCache},
		server.ServerTool{Tool: scanStatusTool(), Handler: s.handleScanStatus},
	)
	return s, nil
}

// UpdateTokens swaps the token set served by the token tools. Watch
// mode calls this after reloading changed token files.
func (s *Server) UpdateTokens(set *token.Set) {
	s.tokenMu.Lock()
	s.tokens = set
	s.tokenMu.Unlock()
}

func (s *Server) tokenSet() *token.Set {
	s.tokenMu.RLock()
	defer s.tokenMu.RUnlock()
	return s.tokens
}

// ServeStdio runs the server on stdin/stdout until the client hangs up.
func (s *Server) ServeStdio() error {
	s.logger.Info("mcp server starting",
		"transport", "stdio",
		"document", s.service.Stats().Document)
	return server.ServeStdio(s.mcpServer)
}

// Close releases the call log.
func (s *Server) Close() error {
	return s.calls.Close()
}
