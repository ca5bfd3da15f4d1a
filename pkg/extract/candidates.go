package extract

import "github.com/tokenlens/tokenlens/pkg/scene"

// Node types that never contain component definitions. Candidate
// collection prunes these without descending; their properties are still
// read later when they appear inside a candidate's subtree.
var leafTypes = map[string]bool{
	scene.NodeText:      true,
	scene.NodeRectangle: true,
	scene.NodeVector:    true,
	scene.NodeBooleanOp: true,
	scene.NodeStar:      true,
	scene.NodeLine:      true,
	scene.NodeEllipse:   true,
	scene.NodePolygon:   true,
	scene.NodeSlice:     true,
	scene.NodeMedia:     true,
}

// Structural containers stay traversable even when invisible; everything
// else invisible is pruned.
var structuralTypes = map[string]bool{
	scene.NodeFrame:        true,
	scene.NodeGroup:        true,
	scene.NodeSection:      true,
	scene.NodeComponentSet: true,
}

func isComponentType(t string) bool {
	return t == scene.NodeComponent || t == scene.NodeComponentSet || t == scene.NodeInstance
}

// candidate pairs a node selected for extraction with its record kind
// and display group key.
type candidate struct {
	node     *scene.Node
	kind     RecordKind
	groupKey string
}

// collectCandidates walks one page pre-order and returns the nodes worth
// extracting, in discovery order. budget caps the number of nodes
// visited; the visited count is returned for scan accounting.
//
// Selection rules:
//   - component sets become VariantSet candidates and each variant
//     inside becomes a Definition grouped under the set;
//   - standalone components and instances become candidates wherever
//     they appear, with no descent past them (their subtrees belong to
//     per-candidate child extraction);
//   - top-level frames/groups/sections with children become Container
//     candidates and are still descended, so components nested anywhere
//     inside them are collected in their own right. Child extraction for
//     container records skips component subtrees to keep the two
//     disjoint.
func collectCandidates(page *scene.Node, budget int) (candidates []candidate, visited int) {
	var walk func(n *scene.Node, depth int)
	walk = func(n *scene.Node, depth int) {
		if n == nil || visited >= budget {
			return
		}
		visited++

		if !n.IsVisible() && !structuralTypes[n.Type] {
			return
		}
		if leafTypes[n.Type] {
			return
		}

		switch n.Type {
		case scene.NodeComponentSet:
			candidates = append(candidates, candidate{node: n, kind: KindVariantSet, groupKey: n.ID})
			for _, child := range n.Children {
				if visited >= budget {
					return
				}
				visited++
				if child.Type == scene.NodeComponent && child.IsVisible() {
					candidates = append(candidates, candidate{node: child, kind: KindDefinition, groupKey: n.ID})
				}
			}
			return

		case scene.NodeComponent:
			candidates = append(candidates, candidate{node: n, kind: KindDefinition, groupKey: n.ID})
			return

		case scene.NodeInstance:
			groupKey := n.ComponentID
			if groupKey == "" {
				groupKey = n.ID
			}
			candidates = append(candidates, candidate{node: n, kind: KindInstance, groupKey: groupKey})
			return
		}

		// Plain containers. Empty ones are pruned outright; top-level
		// ones are candidates in their own right.
		if len(n.Children) == 0 {
			return
		}
		if depth == 1 {
			candidates = append(candidates, candidate{node: n, kind: KindContainer, groupKey: n.ID})
		}
		for _, child := range n.Children {
			walk(child, depth+1)
		}
	}

	for _, child := range page.Children {
		if visited >= budget {
			break
		}
		walk(child, 1)
	}
	return candidates, visited
}

// pageLikelyHasComponents samples up to sampleSize nodes from the top of
// a page looking for any component-type node. Pages that fail the sample
// get a capped traversal instead of a full one; the false-negative risk
// is bounded by the capped second pass.
func pageLikelyHasComponents(page *scene.Node, sampleSize int) bool {
	visited := 0
	var walk func(n *scene.Node) bool
	walk = func(n *scene.Node) bool {
		if n == nil || visited >= sampleSize {
			return false
		}
		visited++
		if isComponentType(n.Type) {
			return true
		}
		if leafTypes[n.Type] {
			return false
		}
		for _, child := range n.Children {
			if walk(child) {
				return true
			}
		}
		return false
	}
	for _, child := range page.Children {
		if visited >= sampleSize {
			break
		}
		if walk(child) {
			return true
		}
	}
	return false
}
