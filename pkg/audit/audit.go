// Package audit wires the extraction engine, the scan cache, the usage
// index and the matcher into one service. It is the layer the MCP tools
// and the CLI talk to: every public operation here backs a tool or a
// command.
//
// Scans are single-flighted per scope key. Concurrent calls for the
// same category and page set coalesce onto one extraction; scans for
// different keys proceed independently.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tokenlens/tokenlens/pkg/cache"
	"github.com/tokenlens/tokenlens/pkg/extract"
	"github.com/tokenlens/tokenlens/pkg/index"
	"github.com/tokenlens/tokenlens/pkg/match"
	"github.com/tokenlens/tokenlens/pkg/observability"
	"github.com/tokenlens/tokenlens/pkg/scene"
	"github.com/tokenlens/tokenlens/pkg/token"
)

// Config wires a Service to its collaborators. Zero values are filled
// with working defaults on construction.
type Config struct {
	// Annotations reads token-provenance entries. Nil uses the adapter
	// when it implements scene.AnnotationStore.
	Annotations scene.AnnotationStore

	// Variables resolves bound variables. Nil uses the adapter when it
	// implements scene.VariableResolver.
	Variables scene.VariableResolver

	// Cache keeps scan results between calls. Nil builds an in-memory
	// manager with the default TTL.
	Cache *cache.Manager

	// Logger for service lifecycle events. Nil uses slog.Default().
	Logger *slog.Logger

	// Engine tunes extraction. Its Logger field is filled from Logger
	// when unset.
	Engine extract.Config
}

// Options bounds one scan or usage search.
type Options struct {
	// Scope selects pages and the token category to extract. The zero
	// value scans every page for every category.
	Scope extract.Scope

	// ForceRescan skips the cache consult. A forced call that arrives
	// while a scan for the same key is in flight waits for it to
	// finish, then runs its own extraction.
	ForceRescan bool

	// OnProgress receives page and batch updates. Coalesced callers
	// receive only the terminal update; intermediate progress goes to
	// the call that ran the extraction.
	OnProgress extract.ProgressFunc
}

// ScanResult is one scan outcome. Records are shared between coalesced
// callers and must be treated as read-only.
type ScanResult struct {
	Records  []*extract.ComponentRecord `json:"records"`
	Pages    []string                   `json:"pages"`
	Category token.Category             `json:"category"`

	// Report is nil when the result was served from cache.
	Report *extract.Report `json:"report,omitempty"`

	Fingerprint string `json:"fingerprint"`
	FromCache   bool   `json:"from_cache"`
}

// UsageResult is one token usage search outcome. Matches are ordered by
// confidence, strongest first.
type UsageResult struct {
	Token     token.DesignToken      `json:"token"`
	Matches   []match.ComponentMatch `json:"matches"`
	FromCache bool                   `json:"from_cache"`
	Report    *extract.Report        `json:"report,omitempty"`
}

// Stats reports service counters for the status surfaces.
type Stats struct {
	Document  string      `json:"document"`
	Scans     int64       `json:"scans"`
	Coalesced int64       `json:"coalesced_scans"`
	Cache     cache.Stats `json:"cache"`
	Index     index.Stats `json:"index"`
}

// flight is one in-progress scan that later callers can wait on. result
// and err are written once, before done is closed.
type flight struct {
	done   chan struct{}
	result *ScanResult
	err    error
}

// Service orchestrates scans over one document.
type Service struct {
	adapter scene.Adapter
	engine  *extract.Engine
	cache   *cache.Manager
	logger  *slog.Logger

	// At most one in-flight extraction per scope key.
	flightMu sync.Mutex
	flights  map[string]*flight

	// Usage index over the latest completed scan, rebuilt wholesale.
	idxMu   sync.RWMutex
	idx     *index.Index
	records []*extract.ComponentRecord

	scans     atomic.Int64
	coalesced atomic.Int64
}

// NewService wires a service to its document.
func NewService(adapter scene.Adapter, cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	annotations := cfg.Annotations
	if annotations == nil {
		if a, ok := adapter.(scene.AnnotationStore); ok {
			annotations = a
		} else {
			annotations = noAnnotations{}
		}
	}
	variables := cfg.Variables
	if variables == nil {
		if v, ok := adapter.(scene.VariableResolver); ok {
			variables = v
		}
	}
	manager := cfg.Cache
	if manager == nil {
		manager = cache.NewManager(cache.Config{Logger: logger})
	}
	engineCfg := cfg.Engine
	if engineCfg.Logger == nil {
		engineCfg.Logger = logger
	}
	return &Service{
		adapter: adapter,
		engine:  extract.NewEngine(adapter, annotations, variables, engineCfg),
		cache:   manager,
		logger:  logger,
		flights: make(map[string]*flight),
	}
}

// noAnnotations serves documents that carry no provenance store.
type noAnnotations struct{}

func (noAnnotations) Annotations(context.Context, string) (map[string]string, error) {
	return map[string]string{}, nil
}

// Scan extracts component records for the scope. The cache is consulted
// first unless the call forces a rescan; fresh results are saved back.
// The usage index is rebuilt from the returned records either way.
func (s *Service) Scan(ctx context.Context, opts Options) (*ScanResult, error) {
	result, err := s.scan(ctx, opts)
	if err != nil {
		return nil, err
	}
	emit(opts.OnProgress, completeProgress(result))
	return result, nil
}

// FindUsages scans the scope and matches every returned record against
// the token.
func (s *Service) FindUsages(ctx context.Context, tok token.DesignToken, opts Options) (*UsageResult, error) {
	result, err := s.scan(ctx, opts)
	if err != nil {
		return nil, err
	}

	progress := completeProgress(result)
	progress.Phase = extract.PhaseMatching
	emit(opts.OnProgress, progress)

	started := time.Now()
	matches := match.Match(tok, result.Records)
	observability.MatchDuration.Observe(time.Since(started).Seconds())

	progress.Phase = extract.PhaseComplete
	emit(opts.OnProgress, progress)

	s.logger.Info("token usage search finished",
		"token", tok.PathKey(),
		"matches", len(matches),
		"components", len(result.Records),
		"fromCache", result.FromCache)
	return &UsageResult{
		Token:     tok,
		Matches:   matches,
		FromCache: result.FromCache,
		Report:    result.Report,
	}, nil
}

// MatchAgainst matches a token against caller-supplied records without
// touching the cache or the index.
func (s *Service) MatchAgainst(tok token.DesignToken, records []*extract.ComponentRecord) []match.ComponentMatch {
	return match.Match(tok, records)
}

// LookupByPath returns ids of components whose provenance matches a
// token path, from the index built by the latest scan. Before the first
// scan the result is empty.
func (s *Service) LookupByPath(path string) []string {
	s.idxMu.RLock()
	defer s.idxMu.RUnlock()
	if s.idx == nil {
		return nil
	}
	return s.idx.LookupByPath(path)
}

// LookupByValue returns ids of components carrying a literal value,
// from the index built by the latest scan.
func (s *Service) LookupByValue(value string) []string {
	s.idxMu.RLock()
	defer s.idxMu.RUnlock()
	if s.idx == nil {
		return nil
	}
	return s.idx.LookupByValue(value)
}

// Invalidate drops cached entries whose scope intersects the given page
// names and reports how many were removed.
func (s *Service) Invalidate(ctx context.Context, pages []string) int {
	return s.cache.Invalidate(ctx, pages)
}

// ClearCache drops every cached entry and reports how many were
// removed.
func (s *Service) ClearCache(ctx context.Context) int {
	return s.cache.Clear(ctx)
}

// Stats returns service counters.
func (s *Service) Stats() Stats {
	s.idxMu.RLock()
	var idxStats index.Stats
	if s.idx != nil {
		idxStats = s.idx.Stats()
	}
	s.idxMu.RUnlock()
	return Stats{
		Document:  s.adapter.DocumentName(),
		Scans:     s.scans.Load(),
		Coalesced: s.coalesced.Load(),
		Cache:     s.cache.Stats(),
		Index:     idxStats,
	}
}

// Check reports service health for the observability endpoint.
func (s *Service) Check(ctx context.Context) observability.HealthStatus {
	stats := s.Stats()
	return observability.HealthStatus{
		Status:   "up",
		Document: stats.Document,
		Details: map[string]any{
			"scans":            stats.Scans,
			"coalesced_scans":  stats.Coalesced,
			"cache_hits":       stats.Cache.Hits,
			"cache_misses":     stats.Cache.Misses,
			"index_components": stats.Index.Components,
		},
	}
}

// Close releases the cache store.
func (s *Service) Close() error {
	return s.cache.Close()
}

// scan validates the scope, derives the scope key and coalesces onto an
// in-flight scan for the same key when one exists.
func (s *Service) scan(ctx context.Context, opts Options) (*ScanResult, error) {
	scope := opts.Scope.WithDefaults()
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	all, err := s.adapter.Pages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	fingerprint := scene.Fingerprint(all)
	selected := extract.FilterPages(all, scope.PageFilter)
	if len(selected) == 0 {
		return nil, fmt.Errorf("page filter %v: %w", scope.PageFilter, extract.ErrEmptyPageScope)
	}
	pages := make([]string, len(selected))
	for i, p := range selected {
		pages[i] = p.Name
	}
	key := cache.Key(scope.TokenCategory, pages)

	for {
		s.flightMu.Lock()
		if f, ok := s.flights[key]; ok {
			s.flightMu.Unlock()
			s.coalesced.Add(1)
			observability.CoalescedScansTotal.Inc()
			select {
			case <-f.done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if !opts.ForceRescan {
				return f.result, f.err
			}
			// A forced call never settles for a shared result; go
			// around and run its own extraction.
			continue
		}
		f := &flight{done: make(chan struct{})}
		s.flights[key] = f
		s.flightMu.Unlock()

		result, err := s.runScan(ctx, scope, pages, fingerprint, opts)
		f.result, f.err = result, err
		s.flightMu.Lock()
		delete(s.flights, key)
		s.flightMu.Unlock()
		close(f.done)
		return result, err
	}
}

// runScan is the flight leader: cache consult, extraction, save, index
// rebuild.
func (s *Service) runScan(ctx context.Context, scope extract.Scope, pages []string, fingerprint string, opts Options) (*ScanResult, error) {
	if !opts.ForceRescan {
		if records, ok := s.cache.TryGet(ctx, scope.TokenCategory, pages, fingerprint); ok {
			observability.CacheHitsTotal.Inc()
			s.swapIndex(records)
			s.logger.Debug("scan served from cache",
				"category", scope.TokenCategory,
				"pages", len(pages),
				"components", len(records))
			return &ScanResult{
				Records:     records,
				Pages:       pages,
				Category:    scope.TokenCategory,
				Fingerprint: fingerprint,
				FromCache:   true,
			}, nil
		}
	}
	observability.CacheMissesTotal.Inc()

	started := time.Now()
	records, report, err := s.engine.Extract(ctx, scope, opts.OnProgress)
	if err != nil {
		// Cancelled and failed scans are never cached.
		return nil, err
	}
	observability.ScanDuration.WithLabelValues(string(scope.TokenCategory)).Observe(time.Since(started).Seconds())
	observability.NodesScannedTotal.Add(float64(report.NodesScanned))
	observability.ComponentsExtractedTotal.Add(float64(report.ComponentsFound))

	s.cache.Save(ctx, scope.TokenCategory, pages, fingerprint, records)
	s.swapIndex(records)
	s.scans.Add(1)
	return &ScanResult{
		Records:     records,
		Pages:       pages,
		Category:    scope.TokenCategory,
		Report:      report,
		Fingerprint: fingerprint,
		FromCache:   false,
	}, nil
}

// swapIndex rebuilds the usage index from records and publishes it.
func (s *Service) swapIndex(records []*extract.ComponentRecord) {
	idx := index.Build(records)
	s.idxMu.Lock()
	s.idx = idx
	s.records = records
	s.idxMu.Unlock()

	stats := idx.Stats()
	observability.IndexPaths.Set(float64(stats.Paths))
	observability.IndexComponents.Set(float64(stats.Components))
}

// completeProgress is the terminal update every caller receives, cache
// hit or not.
func completeProgress(result *ScanResult) extract.Progress {
	p := extract.Progress{
		CurrentPage:     len(result.Pages),
		TotalPages:      len(result.Pages),
		ComponentsFound: len(result.Records),
		Phase:           extract.PhaseComplete,
	}
	if result.Report != nil {
		p.NodesScanned = result.Report.NodesScanned
	}
	return p
}

func emit(fn extract.ProgressFunc, p extract.Progress) {
	if fn != nil {
		fn(p)
	}
}
