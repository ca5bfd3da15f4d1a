package mcp

import "github.com/mark3labs/mcp-go/mcp"

func scanDocumentTool() mcp.Tool {
	return mcp.NewTool("scan_document",
		mcp.WithDescription("Scan the design document and extract component records with their color, typography, spacing and effect properties. Results are cached per scope."),
		mcp.WithString("category",
			mcp.Description("Token category to extract. Defaults to all."),
			mcp.Enum("color", "typography", "spacing", "effect", "all"),
		),
		mcp.WithString("pages",
			mcp.Description("Comma-separated page names or doublestar globs, e.g. 'Components,Design */Mobile'. Empty scans every page."),
		),
		mcp.WithBoolean("force_rescan",
			mcp.Description("Skip the cache and extract fresh records."),
		),
		mcp.WithBoolean("skip_children",
			mcp.Description("Suppress child records below each component."),
		),
	)
}

func findTokenUsagesTool() mcp.Tool {
	return mcp.NewTool("find_token_usages",
		mcp.WithDescription("Find components that use a design token, by provenance annotation or by value similarity. Matches are ordered strongest first."),
		mcp.WithString("token_path",
			mcp.Required(),
			mcp.Description("Dot-joined token path, e.g. color.primary.500."),
		),
		mcp.WithString("category",
			mcp.Description("Restrict extraction to one property family. Defaults to the token's own category."),
			mcp.Enum("color", "typography", "spacing", "effect", "all"),
		),
		mcp.WithString("pages",
			mcp.Description("Comma-separated page names or globs to search. Empty searches every page."),
		),
		mcp.WithBoolean("force_rescan",
			mcp.Description("Skip the cache and extract fresh records."),
		),
	)
}

func lookupTokenPathTool() mcp.Tool {
	return mcp.NewTool("lookup_token_path",
		mcp.WithDescription("Look up component ids whose provenance annotations reference a token path, from the index built by the latest scan. Run scan_document first."),
		mcp.WithString("token_path",
			mcp.Required(),
			mcp.Description("Dot-joined token path. Substring fallback applies on an exact miss."),
		),
	)
}

func lookupTokenValueTool() mcp.Tool {
	return mcp.NewTool("lookup_token_value",
		mcp.WithDescription("Look up component ids carrying a literal value (a hex color like #3B82F6 or a dimension like 16px), from the index built by the latest scan."),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("Literal value to look up."),
		),
	)
}

func listTokensTool() mcp.Tool {
	return mcp.NewTool("list_tokens",
		mcp.WithDescription("List the loaded design tokens, optionally filtered by path prefix and type."),
		mcp.WithString("prefix",
			mcp.Description("Dot-joined path prefix, e.g. 'color'. Empty lists everything."),
		),
		mcp.WithString("type",
			mcp.Description("Token type filter, e.g. color, dimension, typography."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum tokens returned. Defaults to 200; 0 means no limit."),
		),
	)
}

func invalidateCacheTool() mcp.Tool {
	return mcp.NewTool("invalidate_cache",
		mcp.WithDescription("Drop cached scan results whose scope touches the given pages."),
		mcp.WithString("pages",
			mcp.Required(),
			mcp.Description("Comma-separated page names."),
		),
	)
}

func clearCacheTool() mcp.Tool {
	return mcp.NewTool("clear_cache",
		mcp.WithDescription("Drop every cached scan result for the document."),
	)
}

func scanStatusTool() mcp.Tool {
	return mcp.NewTool("scan_status",
		mcp.WithDescription("Report service counters: scans run, cache hits and misses, index sizes and loaded token count."),
	)
}
