// Package scene defines the read-only view of a design document that the
// extraction pipeline consumes: the typed node model, the narrow
// capability interfaces the host document is accessed through, and the
// structural document fingerprint used for cache invalidation.
//
// The interfaces are deliberately small so the pipeline can run against
// an in-memory document in tests and against a memory-mapped document
// file in production without either side knowing the difference.
package scene

import "context"

// AnnotationNamespace is the single shared-data namespace token
// provenance annotations are recorded under.
const AnnotationNamespace = "tokens"

// PageInfo identifies one page of the document, in document order.
type PageInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Adapter exposes a read-only design document as an ordered page list
// with lazily loadable page subtrees.
type Adapter interface {
	// DocumentName returns the document's display name.
	DocumentName() string

	// Pages returns the document's pages in document order.
	Pages(ctx context.Context) ([]PageInfo, error)

	// LoadPage materializes the full node tree for one page. The returned
	// tree is owned by the adapter and must be treated as read-only.
	LoadPage(ctx context.Context, pageID string) (*Node, error)
}

// AnnotationStore reads per-node token-provenance annotations. One call
// returns every key/value pair in the provenance namespace for the node,
// so callers never probe keys individually.
type AnnotationStore interface {
	// Annotations returns the provenance entries recorded on a node,
	// keyed by property slot (fill.0, stroke.0, fontFamily, padding,
	// effect.0, ...). A node without annotations returns an empty map.
	Annotations(ctx context.Context, nodeID string) (map[string]string, error)
}

// VariableResolver resolves a node property to the named value bound to
// it, when the document binds one. Absent bindings return ok=false.
type VariableResolver interface {
	ResolveVariable(nodeID, property string) (name string, ok bool)
}
