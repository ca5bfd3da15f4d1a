package extract

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/time/rate"

	"github.com/tokenlens/tokenlens/pkg/scene"
)

// Config controls an Engine.
type Config struct {
	// Logger for scan lifecycle events. Nil uses slog.Default().
	Logger *slog.Logger

	// Limiter, when set, bounds node throughput at yield boundaries.
	// Its burst must be at least the scope batch size or WaitN fails.
	Limiter *rate.Limiter

	// SampleSize bounds the pre-scan sample per page. 0 uses the default.
	SampleSize int

	// CappedPassLimit is the traversal budget for pages that fail the
	// pre-scan sample. 0 uses the default.
	CappedPassLimit int
}

// Engine extracts ComponentRecord trees from a scene adapter.
//
// Extraction is single-flighted by the caller per scope key; the engine
// itself runs one scan per call and holds no cross-scan state except the
// injected collaborators.
type Engine struct {
	adapter     scene.Adapter
	annotations scene.AnnotationStore
	variables   scene.VariableResolver
	logger      *slog.Logger
	limiter     *rate.Limiter
	sampleSize  int
	cappedLimit int
}

// NewEngine wires an engine to its document collaborators. variables may
// be nil when the document carries no bound-variable table.
func NewEngine(adapter scene.Adapter, annotations scene.AnnotationStore, variables scene.VariableResolver, config Config) *Engine {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sampleSize := config.SampleSize
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	cappedLimit := config.CappedPassLimit
	if cappedLimit <= 0 {
		cappedLimit = DefaultCappedPassLimit
	}
	return &Engine{
		adapter:     adapter,
		annotations: annotations,
		variables:   variables,
		logger:      logger,
		limiter:     config.Limiter,
		sampleSize:  sampleSize,
		cappedLimit: cappedLimit,
	}
}

// Extract scans the pages the scope selects and returns fresh records in
// page order, candidates in discovery order within each page.
//
// Cancellation is cooperative: the context is checked only between
// batches and between pages, so records are always fully formed. On
// cancellation the partial record set is discarded and ctx.Err() is
// returned alongside the report accumulated so far.
func (e *Engine) Extract(ctx context.Context, scope Scope, onProgress ProgressFunc) ([]*ComponentRecord, *Report, error) {
	scope = scope.WithDefaults()
	if err := scope.Validate(); err != nil {
		return nil, nil, err
	}

	start := time.Now()
	report := &Report{}

	pages, err := e.adapter.Pages(ctx)
	if err != nil {
		return nil, report, fmt.Errorf("failed to list pages: %w", err)
	}
	selected := FilterPages(pages, scope.PageFilter)
	if len(selected) == 0 {
		return nil, report, ErrEmptyPageScope
	}

	e.logger.Info("extraction started",
		"document", e.adapter.DocumentName(),
		"pages", len(selected),
		"category", scope.TokenCategory)

	prov := newProvenanceReader(e.annotations, e.variables)
	prov.onError = func(nodeID string, err error) {
		report.Errors = append(report.Errors, NodeError{
			ComponentID: nodeID,
			Message:     fmt.Sprintf("annotation read failed: %v", err),
		})
	}

	var records []*ComponentRecord
	for i, page := range selected {
		emit(onProgress, Progress{
			CurrentPage:     i + 1,
			TotalPages:      len(selected),
			CurrentPageName: page.Name,
			ComponentsFound: report.ComponentsFound,
			NodesScanned:    report.NodesScanned,
			Phase:           PhaseLoading,
		})
		if err := e.yieldPoint(ctx, 1); err != nil {
			report.DurationMs = time.Since(start).Milliseconds()
			return nil, report, err
		}

		root, err := e.adapter.LoadPage(ctx, page.ID)
		if err != nil {
			// A page that fails to load is skipped, not fatal.
			report.Errors = append(report.Errors, NodeError{
				ComponentID:   page.ID,
				ComponentName: page.Name,
				Message:       fmt.Sprintf("page load failed: %v", err),
			})
			continue
		}

		budget := scope.MaxNodesPerPage
		if !pageLikelyHasComponents(root, e.sampleSize) {
			budget = min(budget, e.cappedLimit)
			report.CappedPages++
			e.logger.Debug("page failed component sample, capping traversal",
				"page", page.Name, "budget", budget)
		}

		candidates, visited := collectCandidates(root, budget)
		report.NodesScanned += visited

		for batchStart := 0; batchStart < len(candidates); batchStart += scope.BatchSize {
			batchEnd := min(batchStart+scope.BatchSize, len(candidates))
			for _, cand := range candidates[batchStart:batchEnd] {
				rec := e.extractCandidate(ctx, prov, cand, page.Name, scope, report)
				if rec != nil {
					records = append(records, rec)
					report.ComponentsFound++
				}
			}
			emit(onProgress, Progress{
				CurrentPage:     i + 1,
				TotalPages:      len(selected),
				CurrentPageName: page.Name,
				ComponentsFound: report.ComponentsFound,
				NodesScanned:    report.NodesScanned,
				Phase:           PhaseScanning,
			})
			if err := e.yieldPoint(ctx, batchEnd-batchStart); err != nil {
				report.DurationMs = time.Since(start).Milliseconds()
				return nil, report, err
			}
		}
		report.PagesScanned++
	}

	report.DurationMs = time.Since(start).Milliseconds()
	e.logger.Info("extraction complete",
		"pages", report.PagesScanned,
		"components", report.ComponentsFound,
		"nodes", report.NodesScanned,
		"cappedPages", report.CappedPages,
		"errors", len(report.Errors),
		"ms", report.DurationMs)
	return records, report, nil
}

// extractCandidate builds one record tree. Failures, including panics
// from malformed trees, become NodeError entries and never abort the
// scan.
func (e *Engine) extractCandidate(ctx context.Context, prov *provenanceReader, cand candidate, pageName string, scope Scope, report *Report) (rec *ComponentRecord) {
	defer func() {
		if r := recover(); r != nil {
			report.Errors = append(report.Errors, NodeError{
				ComponentID:   cand.node.ID,
				ComponentName: cand.node.Name,
				Message:       fmt.Sprintf("extraction failed: %v", r),
			})
			rec = nil
		}
	}()

	rec = &ComponentRecord{
		ID:       cand.node.ID,
		Name:     cand.node.Name,
		Kind:     cand.kind,
		GroupKey: cand.groupKey,
		Page:     pageName,
	}
	fillProperties(ctx, prov, cand.node, scope.TokenCategory, rec)

	if !scope.SkipChildren {
		// Container and variant-set subtrees exclude component-type
		// children: those are candidates in their own right.
		skipComponents := cand.kind == KindContainer || cand.kind == KindVariantSet
		rec.Children = e.extractChildren(ctx, prov, cand.node, pageName, scope, 1, skipComponents, report)
	}
	return rec
}

// extractChildren recursively builds child records up to MaxDepth,
// dropping dead branches that carry no properties and no children.
func (e *Engine) extractChildren(ctx context.Context, prov *provenanceReader, parent *scene.Node, pageName string, scope Scope, depth int, skipComponents bool, report *Report) []*ComponentRecord {
	if depth > scope.MaxDepth {
		return nil
	}
	var out []*ComponentRecord
	for _, child := range parent.Children {
		if !child.IsVisible() {
			continue
		}
		if skipComponents && isComponentType(child.Type) {
			continue
		}
		report.NodesScanned++

		childRec := &ComponentRecord{
			ID:   child.ID,
			Name: child.Name,
			Kind: childKind(child.Type),
			Page: pageName,
		}
		fillProperties(ctx, prov, child, scope.TokenCategory, childRec)
		childRec.Children = e.extractChildren(ctx, prov, child, pageName, scope, depth+1, skipComponents, report)

		if !childRec.HasProperties() && len(childRec.Children) == 0 {
			continue
		}
		out = append(out, childRec)
	}
	return out
}

func childKind(nodeType string) RecordKind {
	switch nodeType {
	case scene.NodeComponent:
		return KindDefinition
	case scene.NodeComponentSet:
		return KindVariantSet
	case scene.NodeInstance:
		return KindInstance
	default:
		return KindContainer
	}
}

// yieldPoint is the cooperative suspension between batches and pages:
// cancellation is honored here and nowhere else, and the optional rate
// limit charges the n nodes just processed.
func (e *Engine) yieldPoint(ctx context.Context, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.limiter != nil {
		return e.limiter.WaitN(ctx, n)
	}
	runtime.Gosched()
	return nil
}

func emit(onProgress ProgressFunc, p Progress) {
	if onProgress != nil {
		onProgress(p)
	}
}
