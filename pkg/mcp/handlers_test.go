package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenlens/tokenlens/pkg/audit"
	"github.com/tokenlens/tokenlens/pkg/mcplog"
	"github.com/tokenlens/tokenlens/pkg/scene"
	"github.com/tokenlens/tokenlens/pkg/token"
)

// --- helpers ---

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func solid(r, g, b, a float64) scene.Paint {
	return scene.Paint{Type: scene.PaintSolid, Color: &scene.ColorValue{R: r, G: g, B: b, A: a}}
}

// testDocument builds two pages: Components with an annotated button and a
// plain card, Archive with a frame holding one swatch.
func testDocument() *scene.Document {
	button := &scene.Node{
		ID:    "c:button",
		Name:  "Button/Primary",
		Type:  scene.NodeComponent,
		Fills: []scene.Paint{solid(0.2314, 0.5098, 0.9647, 1)},
		SharedPluginData: map[string]map[string]string{
			scene.AnnotationNamespace: {"fill.0": "color.primary.500"},
		},
	}
	card := &scene.Node{
		ID:    "c:card",
		Name:  "Card",
		Type:  scene.NodeComponent,
		Fills: []scene.Paint{solid(1, 1, 1, 1)},
	}
	archived := &scene.Node{
		ID:   "f:old",
		Name: "Old",
		Type: scene.NodeFrame,
		Children: []*scene.Node{
			{ID: "r:1", Name: "Swatch", Type: scene.NodeRectangle, Fills: []scene.Paint{solid(0, 0, 0, 1)}},
		},
	}
	return &scene.Document{
		Name: "design-system",
		Pages: []*scene.Node{
			{ID: "1:1", Name: "Components", Type: scene.NodeCanvas, Children: []*scene.Node{button, card}},
			{ID: "1:2", Name: "Archive", Type: scene.NodeCanvas, Children: []*scene.Node{archived}},
		},
	}
}

func testTokens() *token.Set {
	return token.NewSet([]token.DesignToken{
		{Path: []string{"color", "primary", "500"}, Type: token.TypeColor, Value: "#3B82F6", RawValue: "#3B82F6"},
		{Path: []string{"color", "primary", "600"}, Type: token.TypeColor, Value: "#2563EB", RawValue: "#2563EB"},
		{Path: []string{"spacing", "md"}, Type: token.TypeDimension, Value: "16px", RawValue: "16px"},
	})
}

func testServer(t *testing.T) *Server {
	t.Helper()
	service := audit.NewService(scene.NewMemoryAdapter(testDocument()), audit.Config{Logger: quietLogger()})
	t.Cleanup(func() { service.Close() })
	s, err := NewServer(service, testTokens(), Config{Logger: quietLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testServerNoTokens(t *testing.T) *Server {
	t.Helper()
	service := audit.NewService(scene.NewMemoryAdapter(testDocument()), audit.Config{Logger: quietLogger()})
	t.Cleanup(func() { service.Close() })
	s, err := NewServer(service, nil, Config{Logger: quietLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func callTool(t *testing.T, s *Server, req mcp.CallToolRequest) *mcp.CallToolResult {
	t.Helper()
	var handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

	switch req.Params.Name {
	case "scan_document":
		handler = s.handleScanDocument
	case "find_token_usages":
		handler = s.handleFindTokenUsages
	case "lookup_token_path":
		handler = s.handleLookupTokenPath
	case "lookup_token_value":
		handler = s.handleLookupTokenValue
	case "list_tokens":
		handler = s.handleListTokens
	case "invalidate_cache":
		handler = s.handleInvalidateCache
	case "clear_cache":
		handler = s.handleClearCache
	case "scan_status":
		handler = s.handleScanStatus
	default:
		t.Fatalf("unknown tool: %s", req.Params.Name)
	}

	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func makeRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	var arguments any
	if args != nil {
		arguments = args
	}
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: arguments,
		},
	}
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	textContent, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return textContent.Text
}

// --- scan_document ---

func TestHandleScanDocument(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("scan_document", nil))
	assert.False(t, result.IsError)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &view))
	assert.Equal(t, []any{"Components", "Archive"}, view["pages"])
	assert.Equal(t, "all", view["category"])
	assert.Equal(t, float64(3), view["components"])
	assert.Equal(t, false, view["from_cache"])
	assert.NotEmpty(t, view["fingerprint"])

	report, ok := view["report"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), report["pages_scanned"])
}

func TestHandleScanDocument_CachedSecondCall(t *testing.T) {
	s := testServer(t)
	callTool(t, s, makeRequest("scan_document", nil))
	result := callTool(t, s, makeRequest("scan_document", nil))

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &view))
	assert.Equal(t, true, view["from_cache"])
	_, hasReport := view["report"]
	assert.False(t, hasReport, "cached results carry no extraction report")
}

func TestHandleScanDocument_PageFilter(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("scan_document", map[string]any{"pages": "Archive"}))
	assert.False(t, result.IsError)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &view))
	assert.Equal(t, []any{"Archive"}, view["pages"])
	assert.Equal(t, float64(1), view["components"])
}

func TestHandleScanDocument_BadCategory(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("scan_document", map[string]any{"category": "bogus"}))
	assert.True(t, result.IsError)
	assert.Contains(t, resultJSON(t, result), "scan failed")
}

// --- find_token_usages ---

func TestHandleFindTokenUsages(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("find_token_usages", map[string]any{
		"token_path": "color.primary.500",
	}))
	assert.False(t, result.IsError)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &view))
	assert.Equal(t, "color.primary.500", view["token"])
	assert.Equal(t, "color", view["token_type"])
	assert.Equal(t, "#3B82F6", view["value"])
	assert.Equal(t, false, view["from_cache"])

	matches, ok := view["matches"].([]any)
	require.True(t, ok)
	require.Len(t, matches, 1)
	top, ok := matches[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "c:button", top["component_id"])
	assert.Equal(t, "Button/Primary", top["component_name"])
	assert.Equal(t, "Components", top["page"])
	assert.Equal(t, float64(1), top["confidence"])

	details, ok := top["details"].([]any)
	require.True(t, ok)
	require.Len(t, details, 1)
	detail := details[0].(map[string]any)
	assert.Equal(t, "fill color (token ref)", detail["property"])
}

func TestHandleFindTokenUsages_MissingPath(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("find_token_usages", nil))
	assert.True(t, result.IsError)
	assert.Contains(t, resultJSON(t, result), "token_path is required")
}

func TestHandleFindTokenUsages_NoTokenSources(t *testing.T) {
	s := testServerNoTokens(t)
	result := callTool(t, s, makeRequest("find_token_usages", map[string]any{
		"token_path": "color.primary.500",
	}))
	assert.True(t, result.IsError)
	assert.Contains(t, resultJSON(t, result), "no token sources are configured")
}

func TestHandleFindTokenUsages_SuggestsCloseMatches(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("find_token_usages", map[string]any{
		"token_path": "color.primary",
	}))
	assert.True(t, result.IsError)

	text := resultJSON(t, result)
	assert.Contains(t, text, "close matches")
	assert.Contains(t, text, "color.primary.500")
	assert.Contains(t, text, "color.primary.600")
}

func TestHandleFindTokenUsages_NotFound(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("find_token_usages", map[string]any{
		"token_path": "zzz.missing",
	}))
	assert.True(t, result.IsError)
	assert.Contains(t, resultJSON(t, result), `"zzz.missing" not found`)
}

// --- lookup_token_path ---

func TestHandleLookupTokenPath(t *testing.T) {
	s := testServer(t)
	callTool(t, s, makeRequest("scan_document", nil))

	result := callTool(t, s, makeRequest("lookup_token_path", map[string]any{
		"token_path": "color.primary.500",
	}))
	assert.False(t, result.IsError)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &view))
	assert.Equal(t, []any{"c:button"}, view["component_ids"])
	assert.Equal(t, float64(1), view["count"])
}

func TestHandleLookupTokenPath_BeforeScan(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("lookup_token_path", map[string]any{
		"token_path": "color.primary.500",
	}))
	assert.False(t, result.IsError)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &view))
	ids, ok := view["component_ids"].([]any)
	require.True(t, ok, "empty lookups return an empty list, not null")
	assert.Empty(t, ids)
	assert.Equal(t, float64(0), view["count"])
}

func TestHandleLookupTokenPath_MissingArg(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("lookup_token_path", nil))
	assert.True(t, result.IsError)
	assert.Contains(t, resultJSON(t, result), "token_path is required")
}

// --- lookup_token_value ---

func TestHandleLookupTokenValue(t *testing.T) {
	s := testServer(t)
	callTool(t, s, makeRequest("scan_document", nil))

	result := callTool(t, s, makeRequest("lookup_token_value", map[string]any{
		"value": "#3B82F6",
	}))
	assert.False(t, result.IsError)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &view))
	assert.Equal(t, []any{"c:button"}, view["component_ids"])

	result = callTool(t, s, makeRequest("lookup_token_value", map[string]any{
		"value": "#000000",
	}))
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &view))
	assert.Equal(t, []any{"r:1"}, view["component_ids"], "child records are indexed under their own id")
}

func TestHandleLookupTokenValue_MissingArg(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("lookup_token_value", nil))
	assert.True(t, result.IsError)
	assert.Contains(t, resultJSON(t, result), "value is required")
}

// --- list_tokens ---

func TestHandleListTokens_All(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("list_tokens", nil))
	assert.False(t, result.IsError)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &view))
	assert.Equal(t, float64(3), view["total"])
	assert.Equal(t, float64(3), view["returned"])

	tokens, ok := view["tokens"].([]any)
	require.True(t, ok)
	require.Len(t, tokens, 3)
	first := tokens[0].(map[string]any)
	assert.Equal(t, "color.primary.500", first["path"])
	assert.Equal(t, "color", first["type"])
	assert.Equal(t, "#3B82F6", first["value"])
}

func TestHandleListTokens_PrefixFilter(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("list_tokens", map[string]any{"prefix": "color.primary"}))

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &view))
	assert.Equal(t, float64(2), view["total"])
}

func TestHandleListTokens_TypeFilter(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("list_tokens", map[string]any{"type": "dimension"}))

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &view))
	assert.Equal(t, float64(1), view["total"])
	tokens := view["tokens"].([]any)
	require.Len(t, tokens, 1)
	assert.Equal(t, "spacing.md", tokens[0].(map[string]any)["path"])
}

func TestHandleListTokens_Limit(t *testing.T) {
	s := testServer(t)
	// JSON numbers arrive as float64.
	result := callTool(t, s, makeRequest("list_tokens", map[string]any{"limit": float64(1)}))

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &view))
	assert.Equal(t, float64(3), view["total"])
	assert.Equal(t, float64(1), view["returned"])
}

func TestHandleListTokens_NoSources(t *testing.T) {
	s := testServerNoTokens(t)
	result := callTool(t, s, makeRequest("list_tokens", nil))
	assert.True(t, result.IsError)
	assert.Contains(t, resultJSON(t, result), "no token sources are configured")
}

// --- invalidate_cache / clear_cache ---

func TestHandleInvalidateCache(t *testing.T) {
	s := testServer(t)
	callTool(t, s, makeRequest("scan_document", nil))

	result := callTool(t, s, makeRequest("invalidate_cache", map[string]any{"pages": "Components"}))
	assert.False(t, result.IsError)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &view))
	assert.Greater(t, view["invalidated"], float64(0))
	assert.Equal(t, []any{"Components"}, view["pages"])
}

func TestHandleInvalidateCache_MissingPages(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("invalidate_cache", nil))
	assert.True(t, result.IsError)
	assert.Contains(t, resultJSON(t, result), "pages is required")
}

func TestHandleClearCache(t *testing.T) {
	s := testServer(t)
	callTool(t, s, makeRequest("scan_document", nil))

	result := callTool(t, s, makeRequest("clear_cache", nil))
	assert.False(t, result.IsError)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &view))
	assert.Greater(t, view["cleared"], float64(0))
}

// --- scan_status ---

func TestHandleScanStatus(t *testing.T) {
	s := testServer(t)
	callTool(t, s, makeRequest("scan_document", nil))

	result := callTool(t, s, makeRequest("scan_status", nil))
	assert.False(t, result.IsError)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &view))
	assert.Equal(t, "design-system", view["document"])
	assert.Equal(t, float64(1), view["scans"])
	assert.Equal(t, float64(3), view["tokens_loaded"])

	index, ok := view["index"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(4), index["components"])

	cacheStats, ok := view["cache"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), cacheStats["misses"])
}

func TestHandleScanStatus_NoTokens(t *testing.T) {
	s := testServerNoTokens(t)
	result := callTool(t, s, makeRequest("scan_status", nil))
	assert.False(t, result.IsError)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &view))
	_, ok := view["tokens_loaded"]
	assert.False(t, ok)
}

// --- token set swapping ---

func TestUpdateTokensSwapsSet(t *testing.T) {
	s := testServerNoTokens(t)
	result := callTool(t, s, makeRequest("list_tokens", nil))
	assert.True(t, result.IsError)

	s.UpdateTokens(testTokens())

	result = callTool(t, s, makeRequest("list_tokens", nil))
	assert.False(t, result.IsError)
	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &view))
	assert.Equal(t, float64(3), view["total"])
}

// --- middleware ---

func TestLoggingMiddlewareWritesCallLog(t *testing.T) {
	service := audit.NewService(scene.NewMemoryAdapter(testDocument()), audit.Config{Logger: quietLogger()})
	defer service.Close()

	logPath := filepath.Join(t.TempDir(), "calls.jsonl")
	s, err := NewServer(service, testTokens(), Config{CallLogPath: logPath, Logger: quietLogger()})
	require.NoError(t, err)

	wrapped := s.loggingMiddleware()(s.handleScanStatus)
	result, err := wrapped(context.Background(), makeRequest("scan_status", nil))
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NoError(t, s.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry mcplog.LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "scan_status", entry.Tool)
	assert.Greater(t, entry.ResponseBytes, 0)
	assert.Nil(t, entry.Error)
}
