package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tokenlens/tokenlens/pkg/audit"
	"github.com/tokenlens/tokenlens/pkg/extract"
	"github.com/tokenlens/tokenlens/pkg/token"
)

const (
	maxSuggestions   = 5
	defaultListLimit = 200
)

// --- argument helpers ---

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func boolArg(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

func intArg(args map[string]any, key string, def int) int {
	if f, ok := args[key].(float64); ok {
		return int(f)
	}
	return def
}

// listArg splits a comma-separated string argument into trimmed parts.
func listArg(args map[string]any, key string) []string {
	raw := strings.TrimSpace(stringArg(args, key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func scanOptions(args map[string]any) audit.Options {
	return audit.Options{
		Scope: extract.Scope{
			TokenCategory: token.Category(strings.TrimSpace(stringArg(args, "category"))),
			PageFilter:    listArg(args, "pages"),
			SkipChildren:  boolArg(args, "skip_children"),
		},
		ForceRescan: boolArg(args, "force_rescan"),
	}
}

// jsonResult marshals v into a text result. Views are kept compact;
// tool output is paid for in context tokens.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// --- scan_document ---

func (s *Server) handleScanDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.service.Scan(ctx, scanOptions(req.GetArguments()))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
	}
	view := map[string]any{
		"pages":       res.Pages,
		"category":    res.Category,
		"components":  len(res.Records),
		"from_cache":  res.FromCache,
		"fingerprint": res.Fingerprint,
	}
	if res.Report != nil {
		view["report"] = res.Report
	}
	return jsonResult(view)
}

// --- find_token_usages ---

func (s *Server) handleFindTokenUsages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path := strings.TrimSpace(stringArg(args, "token_path"))
	if path == "" {
		return mcp.NewToolResultError("token_path is required"), nil
	}
	set := s.tokenSet()
	if set == nil {
		return mcp.NewToolResultError("no token sources are configured; pass --tokens or add sources to .tokenlens/config.yaml"), nil
	}
	tok, ok := set.Find(path)
	if !ok {
		if near := set.FindPrefix(path); len(near) > 0 {
			names := make([]string, 0, maxSuggestions)
			for _, t := range near {
				if len(names) == maxSuggestions {
					break
				}
				names = append(names, t.Name())
			}
			return mcp.NewToolResultError(fmt.Sprintf("token %q not found; close matches: %s", path, strings.Join(names, ", "))), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("token %q not found", path)), nil
	}

	opts := scanOptions(args)
	if strings.TrimSpace(stringArg(args, "category")) == "" {
		opts.Scope.TokenCategory = tok.Category()
	}

	res, err := s.service.FindUsages(ctx, tok, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("usage search failed: %v", err)), nil
	}
	return jsonResult(usageView(res))
}

func usageView(res *audit.UsageResult) map[string]any {
	matches := make([]map[string]any, 0, len(res.Matches))
	for _, m := range res.Matches {
		details := make([]map[string]any, 0, len(m.Matches))
		for _, d := range m.Matches {
			details = append(details, map[string]any{
				"property":      d.PropertyLabel,
				"matched_value": d.MatchedValue,
				"token_value":   d.TokenValue,
				"confidence":    d.Confidence,
			})
		}
		matches = append(matches, map[string]any{
			"component_id":   m.Component.ID,
			"component_name": m.Component.Name,
			"kind":           m.Component.Kind,
			"page":           m.Component.Page,
			"confidence":     m.Confidence,
			"details":        details,
		})
	}
	return map[string]any{
		"token":      res.Token.Name(),
		"token_type": res.Token.Type,
		"value":      res.Token.Value,
		"matches":    matches,
		"from_cache": res.FromCache,
	}
}

// --- lookup_token_path / lookup_token_value ---

func (s *Server) handleLookupTokenPath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := strings.TrimSpace(stringArg(req.GetArguments(), "token_path"))
	if path == "" {
		return mcp.NewToolResultError("token_path is required"), nil
	}
	ids := s.service.LookupByPath(path)
	if ids == nil {
		ids = []string{}
	}
	return jsonResult(map[string]any{
		"token_path":    path,
		"component_ids": ids,
		"count":         len(ids),
	})
}

func (s *Server) handleLookupTokenValue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	value := strings.TrimSpace(stringArg(req.GetArguments(), "value"))
	if value == "" {
		return mcp.NewToolResultError("value is required"), nil
	}
	ids := s.service.LookupByValue(value)
	if ids == nil {
		ids = []string{}
	}
	return jsonResult(map[string]any{
		"value":         value,
		"component_ids": ids,
		"count":         len(ids),
	})
}

// --- list_tokens ---

func (s *Server) handleListTokens(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	set := s.tokenSet()
	if set == nil {
		return mcp.NewToolResultError("no token sources are configured"), nil
	}
	args := req.GetArguments()
	prefix := strings.TrimSpace(stringArg(args, "prefix"))
	typeFilter := token.TokenType(strings.TrimSpace(stringArg(args, "type")))
	limit := intArg(args, "limit", defaultListLimit)

	total := 0
	views := make([]map[string]any, 0)
	for _, tk := range set.FindPrefix(prefix) {
		if typeFilter != "" && tk.Type != typeFilter {
			continue
		}
		total++
		if limit > 0 && len(views) >= limit {
			continue
		}
		view := map[string]any{
			"path":  tk.Name(),
			"type":  tk.Type,
			"value": tk.Value,
		}
		if tk.Source != "" {
			view["source"] = tk.Source
		}
		if tk.Description != "" {
			view["description"] = tk.Description
		}
		views = append(views, view)
	}
	return jsonResult(map[string]any{
		"tokens":   views,
		"total":    total,
		"returned": len(views),
	})
}

// --- cache control ---

func (s *Server) handleInvalidateCache(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pages := listArg(req.GetArguments(), "pages")
	if len(pages) == 0 {
		return mcp.NewToolResultError("pages is required"), nil
	}
	n := s.service.Invalidate(ctx, pages)
	return jsonResult(map[string]any{"invalidated": n, "pages": pages})
}

func (s *Server) handleClearCache(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n := s.service.ClearCache(ctx)
	return jsonResult(map[string]any{"cleared": n})
}

// --- scan_status ---

func (s *Server) handleScanStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := s.service.Stats()
	view := map[string]any{
		"document":        stats.Document,
		"scans":           stats.Scans,
		"coalesced_scans": stats.Coalesced,
		"cache":           stats.Cache,
		"index":           stats.Index,
	}
	if set := s.tokenSet(); set != nil {
		view["tokens_loaded"] = set.Len()
	}
	return jsonResult(view)
}
