package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tokenlens/tokenlens/pkg/audit"
	"github.com/tokenlens/tokenlens/pkg/cache"
	"github.com/tokenlens/tokenlens/pkg/extract"
	"github.com/tokenlens/tokenlens/pkg/scene/docfile"
	"github.com/tokenlens/tokenlens/pkg/token"
	"github.com/tokenlens/tokenlens/pkg/tokensource"
	"github.com/tokenlens/tokenlens/pkg/util"
)

// Scope flags shared by scan and find.
var (
	flagPages    string
	flagCategory string
	flagMaxNodes int
	flagMaxDepth int
	flagForce    bool
)

// Token source flags shared by find, tokens, serve and watch.
var (
	flagTokens   string
	flagDiscover bool
)

func addScopeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagPages, "pages", "", "comma-separated page names to scan (default all)")
	cmd.Flags().StringVar(&flagCategory, "category", "", "token category: color, typography, spacing, effect or all")
	cmd.Flags().IntVar(&flagMaxNodes, "max-nodes-per-page", 0, "cap nodes visited per page (0 = library default)")
	cmd.Flags().IntVar(&flagMaxDepth, "max-depth", 0, "cap tree descent depth (0 = library default)")
	cmd.Flags().BoolVar(&flagForce, "force", false, "rescan even when a cached result is valid")
}

func addTokenFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagTokens, "tokens", "", "comma-separated token files or URLs")
	cmd.Flags().BoolVar(&flagDiscover, "discover", false, "auto-discover token files under the working directory")
}

func newLogger(cfg *ProjectConfig) *slog.Logger {
	level := flagLogLevel
	format := flagLogFormat
	if cfg != nil {
		if level == "" {
			level = cfg.LogLevel
		}
		if format == "" {
			format = cfg.LogFormat
		}
	}
	return util.NewLogger(util.LoggerConfig{
		Level:  util.LogLevel(level),
		Format: util.LogFormat(format),
	})
}

// openService opens the document and assembles the audit service over
// it. The cleanup closes the service, the document and the cache store.
func openService(cfg *ProjectConfig, logger *slog.Logger) (*audit.Service, func(), error) {
	docPath, err := resolveDocument(cfg)
	if err != nil {
		return nil, nil, err
	}

	dcfg := docfile.DefaultConfig()
	dcfg.Logger = logger
	doc, err := docfile.Open(docPath, dcfg)
	if err != nil {
		return nil, nil, err
	}

	manager, closeStore, err := newCacheManager(cfg, docPath, logger)
	if err != nil {
		doc.Close()
		return nil, nil, err
	}

	service := audit.NewService(doc, audit.Config{
		Cache:  manager,
		Logger: logger,
		Engine: extract.Config{Logger: logger},
	})
	cleanup := func() {
		service.Close()
		doc.Close()
		closeStore()
	}
	return service, cleanup, nil
}

// newCacheManager builds the cache layer. Without a cache_path scans
// live in process memory only; with one they survive restarts in
// SQLite, scoped to a session derived from the document path so
// separate invocations over the same document share entries.
func newCacheManager(cfg *ProjectConfig, docPath string, logger *slog.Logger) (*cache.Manager, func(), error) {
	mcfg := cache.Config{Logger: logger}
	closeStore := func() {}

	if cfg != nil && cfg.CachePath != "" {
		store, err := cache.OpenSQLite(cfg.CachePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open cache store: %w", err)
		}
		mcfg.Store = store
		closeStore = func() { store.Close() }
	}
	if cfg != nil && cfg.CacheTTLMinutes > 0 {
		mcfg.TTL = time.Duration(cfg.CacheTTLMinutes) * time.Minute
	}

	mcfg.SessionID = stableSession(cfg, docPath)
	return cache.NewManager(mcfg), closeStore, nil
}

func stableSession(cfg *ProjectConfig, docPath string) string {
	if cfg != nil && cfg.Session != "" {
		return cfg.Session
	}
	abs, err := filepath.Abs(docPath)
	if err != nil {
		abs = docPath
	}
	return "cli:" + abs
}

// scanScope builds the extraction scope from flags, with config values
// filling the limits the flags left at zero.
func scanScope(cfg *ProjectConfig) extract.Scope {
	scope := extract.Scope{
		TokenCategory:   token.Category(strings.TrimSpace(flagCategory)),
		PageFilter:      splitList(flagPages),
		MaxNodesPerPage: flagMaxNodes,
		MaxDepth:        flagMaxDepth,
	}
	if cfg != nil {
		if scope.MaxNodesPerPage == 0 {
			scope.MaxNodesPerPage = cfg.MaxNodesPerPage
		}
		if scope.MaxDepth == 0 {
			scope.MaxDepth = cfg.MaxDepth
		}
	}
	return scope
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// tokenSources resolves the source list: --tokens beats config, config
// beats discovery. Discovery runs only when asked for.
func tokenSources(cfg *ProjectConfig) ([]tokensource.Source, error) {
	if flagTokens != "" {
		var out []tokensource.Source
		for _, p := range splitList(flagTokens) {
			out = append(out, tokensource.Source{Path: p})
		}
		return out, nil
	}
	if cfg != nil && len(cfg.Tokens) > 0 {
		return cfg.Tokens, nil
	}
	if flagDiscover || (cfg != nil && cfg.Discover) {
		var patterns, excludes []string
		if cfg != nil {
			patterns = cfg.DiscoverPatterns
			excludes = cfg.DiscoverExcludes
		}
		return tokensource.Discover(".", patterns, excludes)
	}
	return nil, nil
}

// loadTokenSet parses the configured sources into a token set. A nil
// set with a nil error means no sources are configured.
func loadTokenSet(ctx context.Context, cfg *ProjectConfig, logger *slog.Logger) (*token.Set, *tokensource.LoadResult, error) {
	sources, err := tokenSources(cfg)
	if err != nil {
		return nil, nil, err
	}
	if len(sources) == 0 {
		return nil, nil, nil
	}

	loader := tokensource.NewLoader(tokensource.Config{Logger: logger})
	defer loader.Close()

	res, err := loader.Load(ctx, sources...)
	if err != nil {
		return nil, nil, err
	}
	for _, fr := range res.Failed() {
		logger.Warn("token source failed",
			"source", fr.Source.Path,
			"error", fr.Err)
	}
	return res.Set, res, nil
}

func errNoTokenSources() error {
	return fmt.Errorf("no token sources configured: pass --tokens or --discover, or list sources in %s", defaultConfigPath)
}

// startWatcher wires the file watcher over the service. onTokens runs
// after any token source file changes; onDocument after the document
// itself changed and the cache was adjusted.
func startWatcher(ctx context.Context, service *audit.Service, cfg *ProjectConfig, onTokens func(), onDocument func(), logger *slog.Logger) (*audit.Watcher, error) {
	docPath, err := resolveDocument(cfg)
	if err != nil {
		return nil, err
	}

	sources, err := tokenSources(cfg)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, src := range sources {
		if !src.Remote() {
			paths = append(paths, src.Path)
		}
	}

	watcher, err := audit.NewWatcher(service, audit.WatchConfig{
		DocumentPath: docPath,
		TokenPaths:   paths,
		OnTokensChanged: func(string) {
			if onTokens != nil {
				onTokens()
			}
		},
		OnDocumentChanged: onDocument,
		Logger:            logger,
	})
	if err != nil {
		return nil, err
	}
	if err := watcher.Start(ctx); err != nil {
		watcher.Stop()
		return nil, err
	}
	return watcher, nil
}
