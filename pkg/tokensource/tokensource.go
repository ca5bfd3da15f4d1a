// Package tokensource loads design tokens from the places teams actually
// keep them: DTCG JSON and YAML token files, CSS custom-property sheets,
// and JS/TS theme modules. Files are parsed in parallel, alias references
// are resolved before anything leaves the package, and per-file failures
// are collected instead of aborting the load.
//
// The output is the resolved token model of pkg/token. By the time a
// DesignToken appears in a LoadResult its Value is concrete: unresolvable
// aliases are reported as UnresolvedAliasError metadata and the affected
// tokens are dropped.
package tokensource

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/tokenlens/tokenlens/pkg/observability"
	"github.com/tokenlens/tokenlens/pkg/token"
	"github.com/tokenlens/tokenlens/pkg/util"
)

// Format identifies how a source file is parsed.
type Format string

const (
	FormatDTCG  Format = "dtcg-json"
	FormatYAML  Format = "yaml"
	FormatCSS   Format = "css"
	FormatTheme Format = "theme-module"
)

// DefaultGroupMarkers are leaf keys that name a group's own value rather
// than a child token: color.primary._ resolves to the path color.primary.
var DefaultGroupMarkers = []string{"_", "@", "DEFAULT"}

// Source describes one token file or URL to load.
type Source struct {
	// Path is a filesystem path or an http(s) URL.
	Path string `json:"path" yaml:"path"`

	// Format overrides extension-based detection when set.
	Format Format `json:"format,omitempty" yaml:"format,omitempty"`

	// Prefix is a dot-joined path prepended to every token from this
	// source, e.g. "brand" turns color.primary into brand.color.primary.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// Remote reports whether the source is fetched over HTTP rather than
// read from disk.
func (s Source) Remote() bool {
	return strings.HasPrefix(s.Path, "http://") || strings.HasPrefix(s.Path, "https://")
}

// DetectFormat maps a path or URL to its parse format by extension.
// Unrecognized extensions fall back to DTCG JSON, the most common
// interchange form.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(strippedQuery(path))) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".css":
		return FormatCSS
	case ".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx":
		return FormatTheme
	default:
		return FormatDTCG
	}
}

func strippedQuery(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		return path[:i]
	}
	return path
}

// UnresolvedAliasError records one alias reference that could not be
// substituted. The owning token is dropped from the result; the error is
// metadata, not a load failure.
type UnresolvedAliasError struct {
	TokenPath []string `json:"token_path"`
	Ref       string   `json:"ref"`
	File      string   `json:"file,omitempty"`
	Reason    string   `json:"reason"`
}

func (e UnresolvedAliasError) Error() string {
	return fmt.Sprintf("unresolved alias %s in token %s: %s", e.Ref, strings.Join(e.TokenPath, "."), e.Reason)
}

// FileResult is the outcome of parsing one source.
type FileResult struct {
	Source     Source
	Format     Format
	Tokens     []token.DesignToken
	Unresolved []UnresolvedAliasError

	// Err is set when the whole file failed to load or parse. A file
	// error never fails the surrounding Load call.
	Err error
}

// LoadResult aggregates every source of one Load call.
type LoadResult struct {
	// Set holds all tokens in source order: files in the order they
	// were passed, tokens in document order within each file.
	Set *token.Set

	// Files holds one entry per requested source, in request order.
	Files []FileResult

	// Unresolved concatenates the alias failures of all files.
	Unresolved []UnresolvedAliasError

	// Issues are advisory value-shape findings for the loaded tokens.
	Issues []token.Issue
}

// Failed returns the sources that produced no tokens because of a file
// level error.
func (r *LoadResult) Failed() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Config configures a Loader. The zero value works.
type Config struct {
	// GroupMarkers replaces DefaultGroupMarkers when non-nil.
	GroupMarkers []string

	// HTTPClient serves remote sources. Defaults to a retrying client
	// with the loader's logger attached.
	HTTPClient *retryablehttp.Client

	// Workers bounds parallel file parsing. Defaults to the optimal
	// pool size for the machine.
	Workers int

	Logger *slog.Logger
}

// Loader parses token sources into the resolved token model. A Loader is
// safe for concurrent use; Close releases its parser pools.
type Loader struct {
	markers []string
	http    *retryablehttp.Client
	workers int
	logger  *slog.Logger
	parsers *parserManager
}

// NewLoader builds a Loader from cfg.
func NewLoader(cfg Config) *Loader {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	markers := cfg.GroupMarkers
	if markers == nil {
		markers = DefaultGroupMarkers
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = retryablehttp.NewClient()
		hc.RetryMax = 3
		hc.Logger = logger
	}
	workers := util.OptimalPoolSize(cfg.Workers)
	return &Loader{
		markers: markers,
		http:    hc,
		workers: workers,
		logger:  logger,
		parsers: newParserManager(workers, logger),
	}
}

// Close releases the tree-sitter parsers held by the loader.
func (l *Loader) Close() {
	l.parsers.close()
}

// Load parses all sources and returns the merged result. Sources are
// parsed in parallel but tokens keep source order. File failures land in
// FileResult.Err; Load itself fails only on context cancellation.
func (l *Loader) Load(ctx context.Context, sources ...Source) (*LoadResult, error) {
	results := make([]FileResult, len(sources))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < l.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					results[i] = FileResult{Source: sources[i], Err: ctx.Err()}
					continue
				}
				results[i] = l.loadOne(ctx, sources[i])
			}
		}()
	}
	for i := range sources {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &LoadResult{Files: results}
	var tokens []token.DesignToken
	for _, fr := range results {
		if fr.Err != nil {
			l.logger.Warn("token source failed",
				"path", fr.Source.Path,
				"error", fr.Err)
			continue
		}
		tokens = append(tokens, fr.Tokens...)
		out.Unresolved = append(out.Unresolved, fr.Unresolved...)
	}
	out.Set = token.NewSet(tokens)
	out.Issues = token.ValidateAll(tokens)

	l.logger.Info("token sources loaded",
		"sources", len(sources),
		"tokens", out.Set.Len(),
		"unresolved_aliases", len(out.Unresolved),
		"issues", len(out.Issues))
	return out, nil
}

// LoadFile parses a single source.
func (l *Loader) LoadFile(ctx context.Context, src Source) FileResult {
	return l.loadOne(ctx, src)
}

func (l *Loader) loadOne(ctx context.Context, src Source) FileResult {
	fr := FileResult{Source: src, Format: src.Format}
	if fr.Format == "" {
		fr.Format = DetectFormat(src.Path)
	}

	var data []byte
	var err error
	if src.Remote() {
		data, err = l.fetch(ctx, src.Path)
	} else {
		data, err = os.ReadFile(src.Path)
	}
	if err != nil {
		fr.Err = fmt.Errorf("read token source %s: %w", src.Path, err)
		return fr
	}

	var raw []rawToken
	switch fr.Format {
	case FormatDTCG:
		raw, err = parseDTCG(data)
	case FormatYAML:
		raw, err = parseYAMLTokens(data)
	case FormatCSS:
		raw, err = l.parseCSS(data)
	case FormatTheme:
		raw, err = l.parseTheme(data, src.Path)
	default:
		err = fmt.Errorf("unknown token source format %q", fr.Format)
	}
	if err != nil {
		fr.Err = fmt.Errorf("parse %s: %w", src.Path, err)
		return fr
	}

	fr.Tokens, fr.Unresolved = resolve(raw, src, l.markers)
	observability.TokenFilesLoadedTotal.Inc()

	l.logger.Debug("token source parsed",
		"path", src.Path,
		"format", fr.Format,
		"tokens", len(fr.Tokens),
		"unresolved", len(fr.Unresolved))
	return fr
}
