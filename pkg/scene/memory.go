package scene

import (
	"context"
	"fmt"
)

// Variable is one entry of the document-level named-value table.
type Variable struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Document is a fully materialized design document: the page forest in
// document order plus the named-value table bound variables refer to.
type Document struct {
	Name      string              `json:"name"`
	Pages     []*Node             `json:"pages"`
	Variables map[string]Variable `json:"variables,omitempty"`
}

// MemoryAdapter serves a Document that is already decoded in memory. It
// implements Adapter, AnnotationStore and VariableResolver, backing both
// production use of pre-parsed documents and in-memory test documents.
type MemoryAdapter struct {
	doc    *Document
	byID   map[string]*Node
	pageID map[string]*Node
}

// NewMemoryAdapter indexes the document's nodes for id lookup. The
// document must not be mutated afterwards.
func NewMemoryAdapter(doc *Document) *MemoryAdapter {
	a := &MemoryAdapter{
		doc:    doc,
		byID:   make(map[string]*Node),
		pageID: make(map[string]*Node, len(doc.Pages)),
	}
	for _, page := range doc.Pages {
		a.pageID[page.ID] = page
		a.indexNode(page)
	}
	return a
}

func (a *MemoryAdapter) indexNode(n *Node) {
	if n == nil {
		return
	}
	a.byID[n.ID] = n
	for _, c := range n.Children {
		a.indexNode(c)
	}
}

// DocumentName returns the document's display name.
func (a *MemoryAdapter) DocumentName() string {
	return a.doc.Name
}

// Pages returns the page list in document order.
func (a *MemoryAdapter) Pages(_ context.Context) ([]PageInfo, error) {
	infos := make([]PageInfo, 0, len(a.doc.Pages))
	for _, p := range a.doc.Pages {
		infos = append(infos, PageInfo{ID: p.ID, Name: p.Name})
	}
	return infos, nil
}

// LoadPage returns the already materialized page subtree.
func (a *MemoryAdapter) LoadPage(_ context.Context, pageID string) (*Node, error) {
	page, ok := a.pageID[pageID]
	if !ok {
		return nil, fmt.Errorf("page %q not found", pageID)
	}
	return page, nil
}

// Annotations returns the node's provenance entries from its inline
// shared data.
func (a *MemoryAdapter) Annotations(_ context.Context, nodeID string) (map[string]string, error) {
	n, ok := a.byID[nodeID]
	if !ok {
		return nil, fmt.Errorf("node %q not found", nodeID)
	}
	anns := n.Annotations()
	if anns == nil {
		return map[string]string{}, nil
	}
	return anns, nil
}

// ResolveVariable resolves a bound variable to its name, consulting the
// document variable table when the reference is by id.
func (a *MemoryAdapter) ResolveVariable(nodeID, property string) (string, bool) {
	n, ok := a.byID[nodeID]
	if !ok || n.BoundVariables == nil {
		return "", false
	}
	ref, ok := n.BoundVariables[property]
	if !ok {
		return "", false
	}
	if ref.Name != "" {
		return ref.Name, true
	}
	if v, ok := a.doc.Variables[ref.ID]; ok && v.Name != "" {
		return v.Name, true
	}
	return "", false
}
