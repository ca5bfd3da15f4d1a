package extract

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tokenlens/tokenlens/pkg/scene"
)

// annotationMemoSize caps the per-scan annotation memo. A scan touching
// more nodes than this re-reads the oldest ones; correctness is
// unaffected, only the batching win.
const annotationMemoSize = 8192

// Annotation keys, one per property slot. Indexed slots append ".N".
const (
	provFillPrefix   = "fill."
	provStrokePrefix = "stroke."
	provFontFamily   = "fontFamily"
	provWidth        = "width"
	provHeight       = "height"
	provPadding      = "padding"
	provGap          = "gap"
	provBorderRadius = "borderRadius"
	provBorderWidth  = "borderWidth"
	provEffectPrefix = "effect."
)

// provenanceReader batches all annotation reads for a node into one
// enumeration and memoizes the result for the remainder of the scan.
// A bound-variable lookup backstops slots with no annotation.
type provenanceReader struct {
	store   scene.AnnotationStore
	vars    scene.VariableResolver
	memo    *lru.Cache[string, map[string]string]
	onError func(nodeID string, err error)
	reads   int64
}

func newProvenanceReader(store scene.AnnotationStore, vars scene.VariableResolver) *provenanceReader {
	memo, _ := lru.New[string, map[string]string](annotationMemoSize)
	return &provenanceReader{store: store, vars: vars, memo: memo}
}

// annotations returns the node's full provenance map. Read failures
// degrade to an empty map; provenance is best-effort.
func (p *provenanceReader) annotations(ctx context.Context, nodeID string) map[string]string {
	if cached, ok := p.memo.Get(nodeID); ok {
		return cached
	}
	anns, err := p.store.Annotations(ctx, nodeID)
	if err != nil {
		if p.onError != nil {
			p.onError(nodeID, err)
		}
		anns = map[string]string{}
	}
	if anns == nil {
		anns = map[string]string{}
	}
	p.memo.Add(nodeID, anns)
	p.reads++
	return anns
}

// lookup resolves one property slot: annotation first, bound variable
// second. Empty string means no provenance.
func (p *provenanceReader) lookup(ctx context.Context, nodeID, key, boundProperty string) string {
	if v := p.annotations(ctx, nodeID)[key]; v != "" {
		return v
	}
	if p.vars != nil && boundProperty != "" {
		if name, ok := p.vars.ResolveVariable(nodeID, boundProperty); ok {
			return name
		}
	}
	return ""
}
