// Package index builds the reverse index from token paths and
// normalized literal values to component ids. The index is derived and
// disposable: it is rebuilt wholesale from the latest ComponentRecord
// collection after every scan and never patched incrementally, so at
// any time it reflects exactly the most recent extraction, nothing
// older and nothing partial.
package index

import (
	"slices"
	"strconv"
	"strings"

	"github.com/tokenlens/tokenlens/pkg/extract"
	"github.com/tokenlens/tokenlens/pkg/token"
)

// Stats describes the size of a built index.
type Stats struct {
	// Paths is the number of distinct provenance path keys.
	Paths int `json:"paths"`

	// Values is the number of distinct normalized value keys.
	Values int `json:"values"`

	// Components is the number of records walked, children included.
	Components int `json:"components"`

	// Properties is the number of typed properties visited.
	Properties int `json:"properties"`
}

// Index maps normalized provenance paths and literal values to the ids
// of components carrying them. Immutable once built.
type Index struct {
	// Paths maps a normalized provenance path -> component ids, in
	// discovery order, deduplicated.
	Paths map[string][]string

	// Values maps a normalized literal value (colors and spacing) ->
	// component ids.
	Values map[string][]string

	// pathKeys holds the sorted path keys so the substring fallback
	// scans in a deterministic order.
	pathKeys []string

	stats Stats
}

// Build walks records depth-first and indexes every property's
// provenance string plus, for colors and spacing, the normalized
// literal value as a secondary key.
func Build(records []*extract.ComponentRecord) *Index {
	idx := &Index{
		Paths:  make(map[string][]string),
		Values: make(map[string][]string),
	}
	for _, rec := range records {
		idx.addRecord(rec)
	}
	idx.pathKeys = make([]string, 0, len(idx.Paths))
	for key := range idx.Paths {
		idx.pathKeys = append(idx.pathKeys, key)
	}
	slices.Sort(idx.pathKeys)
	idx.stats.Paths = len(idx.Paths)
	idx.stats.Values = len(idx.Values)
	return idx
}

func (idx *Index) addRecord(rec *extract.ComponentRecord) {
	if rec == nil {
		return
	}
	idx.stats.Components++

	for _, p := range rec.Colors {
		idx.stats.Properties++
		idx.addPath(p.TokenProvenance, rec.ID)
		idx.addValue(ColorKey(p.Hex), rec.ID)
	}
	for _, p := range rec.Typography {
		idx.stats.Properties++
		idx.addPath(p.TokenProvenance, rec.ID)
	}
	for _, p := range rec.Spacing {
		idx.stats.Properties++
		idx.addPath(p.TokenProvenance, rec.ID)
		idx.addValue(DimensionKey(p.Value, p.Unit), rec.ID)
	}
	for _, p := range rec.Effects {
		idx.stats.Properties++
		idx.addPath(p.TokenProvenance, rec.ID)
	}

	for _, child := range rec.Children {
		idx.addRecord(child)
	}
}

func (idx *Index) addPath(raw, id string) {
	key := token.NormalizeProvenance(raw)
	if key == "" {
		return
	}
	idx.Paths[key] = appendRef(idx.Paths[key], id)
}

func (idx *Index) addValue(key, id string) {
	if key == "" {
		return
	}
	idx.Values[key] = appendRef(idx.Values[key], id)
}

// LookupByPath returns ids of components whose provenance matches the
// dot-delimited token path. An exact key match is tried first; on a
// miss the lookup falls back to a bidirectional substring scan over all
// indexed paths. The fallback costs O(index size) and exists to serve
// partial path queries.
func (idx *Index) LookupByPath(path string) []string {
	query := token.NormalizeProvenance(path)
	if query == "" {
		return nil
	}
	if refs, ok := idx.Paths[query]; ok {
		return slices.Clone(refs)
	}

	var ids []string
	for _, stored := range idx.pathKeys {
		if strings.Contains(stored, query) || strings.Contains(query, stored) {
			for _, id := range idx.Paths[stored] {
				ids = appendRef(ids, id)
			}
		}
	}
	return ids
}

// LookupByValue returns ids of components carrying the literal value.
// The query is normalized with NormalizeValue before the exact lookup.
func (idx *Index) LookupByValue(value string) []string {
	key := NormalizeValue(value)
	if key == "" {
		return nil
	}
	return slices.Clone(idx.Values[key])
}

// Stats returns the index size counters.
func (idx *Index) Stats() Stats { return idx.stats }

func appendRef(refs []string, id string) []string {
	if slices.Contains(refs, id) {
		return refs
	}
	return append(refs, id)
}

// ColorKey returns the value-index key for a hex color string.
func ColorKey(hex string) string {
	return strings.ToLower(strings.TrimSpace(hex))
}

// DimensionKey returns the value-index key for a numeric value with a
// unit, e.g. "16px" or "7.5px".
func DimensionKey(value float64, unit string) string {
	return strconv.FormatFloat(value, 'f', -1, 64) + strings.ToLower(strings.TrimSpace(unit))
}

// NormalizeValue maps raw query input to the canonical value-key form:
// color literals become lower-case #rrggbb hex, dimensioned numbers
// collapse to value+unit (bare numbers default to px, the document
// unit), anything else is lower-cased and trimmed.
func NormalizeValue(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if c, ok := token.ParseColor(s); ok {
		return ColorKey(c.Hex())
	}
	if v, unit, ok := token.ParseDimension(s); ok {
		if unit == "" {
			unit = "px"
		}
		return DimensionKey(v, unit)
	}
	return strings.ToLower(s)
}
