package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tokenlens/tokenlens/pkg/mcplog"
	"github.com/tokenlens/tokenlens/pkg/observability"
)

// loggingMiddleware returns a ToolHandlerMiddleware that counts every tool
// call and, when a call log is configured, records it as a JSONL entry.
// It is registered unconditionally; a nil call log turns the write into a
// no-op.
func (s *Server) loggingMiddleware() server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			start := mcplog.Now()
			result, err := next(ctx, req)
			elapsed := time.Since(start).Milliseconds()

			observability.ToolCallsTotal.WithLabelValues(req.Params.Name).Inc()

			rb := mcplog.ResponseBytes(result)
			var errStr *string
			if err != nil {
				msg := err.Error()
				errStr = &msg
			}

			entry := mcplog.LogEntry{
				Ts:            start.UTC().Format(time.RFC3339),
				Tool:          req.Params.Name,
				Params:        mcplog.SanitizeParams(req.GetArguments()),
				DurationMs:    elapsed,
				ResponseBytes: rb,
				TokensEst:     rb / 4,
				Error:         errStr,
			}
			if werr := s.calls.Write(entry); werr != nil {
				s.logger.Warn("tool call log write failed", "error", werr)
			}

			return result, err
		}
	}
}
