package extract

import (
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tokenlens/tokenlens/pkg/scene"
	"github.com/tokenlens/tokenlens/pkg/token"
)

// Default scope limits. Chosen for large documents: deep enough to reach
// nested text and shape children, small enough batches that a yield
// boundary is never far away.
const (
	DefaultMaxNodesPerPage = 2000
	DefaultMaxDepth        = 4
	DefaultBatchSize       = 20
	DefaultSampleSize      = 40
	DefaultCappedPassLimit = 200
)

// ErrEmptyPageScope is returned when a page filter selects no pages.
var ErrEmptyPageScope = errors.New("scan scope selects no pages")

// Scope bounds one extraction pass.
type Scope struct {
	// TokenCategory gates which property families are read per node.
	// Empty means CategoryAll.
	TokenCategory token.Category `json:"token_category"`

	// PageFilter selects pages by name with doublestar globs. Empty
	// selects every page. A literal name matches itself.
	PageFilter []string `json:"page_filter,omitempty"`

	// MaxNodesPerPage caps candidate-collection traversal per page.
	MaxNodesPerPage int `json:"max_nodes_per_page"`

	// MaxDepth bounds child-record recursion below each candidate.
	MaxDepth int `json:"max_depth"`

	// SkipChildren suppresses child records below candidates. The zero
	// value extracts them.
	SkipChildren bool `json:"skip_children,omitempty"`

	// BatchSize is the number of candidates processed between yields.
	BatchSize int `json:"batch_size"`
}

// DefaultScope scans every page for every category with child records.
func DefaultScope() Scope {
	return Scope{}.WithDefaults()
}

// WithDefaults fills zero limits so a zero-value Scope is usable.
func (s Scope) WithDefaults() Scope {
	if s.TokenCategory == "" {
		s.TokenCategory = token.CategoryAll
	}
	if s.MaxNodesPerPage <= 0 {
		s.MaxNodesPerPage = DefaultMaxNodesPerPage
	}
	if s.MaxDepth <= 0 {
		s.MaxDepth = DefaultMaxDepth
	}
	if s.BatchSize <= 0 {
		s.BatchSize = DefaultBatchSize
	}
	return s
}

// Validate rejects malformed scopes with a typed error rather than
// panicking; the pipeline must stay recoverable for callers.
func (s Scope) Validate() error {
	switch s.TokenCategory {
	case token.CategoryColor, token.CategoryTypography, token.CategorySpacing,
		token.CategoryEffect, token.CategoryAll:
	default:
		return fmt.Errorf("unknown token category %q", s.TokenCategory)
	}
	for _, pattern := range s.PageFilter {
		if _, err := doublestar.Match(pattern, ""); err != nil {
			return fmt.Errorf("bad page filter pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// FilterPages selects the pages a filter covers, preserving document
// order. Patterns are doublestar globs matched against page names; a
// pattern with no glob metacharacters behaves as an exact name.
func FilterPages(all []scene.PageInfo, filter []string) []scene.PageInfo {
	if len(filter) == 0 {
		return all
	}
	var out []scene.PageInfo
	for _, page := range all {
		for _, pattern := range filter {
			if ok, err := doublestar.Match(pattern, page.Name); err == nil && ok {
				out = append(out, page)
				break
			}
		}
	}
	return out
}

// Category gating: which property families a scope reads.

func needsColors(c token.Category) bool {
	return c == token.CategoryColor || c == token.CategoryAll
}

func needsTypography(c token.Category) bool {
	return c == token.CategoryTypography || c == token.CategoryAll
}

func needsSpacing(c token.Category) bool {
	return c == token.CategorySpacing || c == token.CategoryAll
}

func needsEffects(c token.Category) bool {
	return c == token.CategoryEffect || c == token.CategoryAll
}
