// Package match scores extracted component records against one design
// token. Matching is a pure function over its inputs: no I/O, no
// mutation, and identical inputs always produce the identical ranked
// result.
//
// Every category follows the same two-phase strategy. The provenance
// phase compares cleaned annotation strings against the token path;
// any hit, on the component or any descendant, suppresses the value
// phase for that component and category entirely, so a provenance
// match is never diluted by coincidental value collisions. The value
// phase compares literal values with per-category tolerances and is
// capped below every provenance confidence.
package match

import (
	"sort"
	"strings"

	"github.com/tokenlens/tokenlens/pkg/extract"
	"github.com/tokenlens/tokenlens/pkg/token"
)

// Match returns components with at least one match detail, from the
// record itself or any descendant, ranked by descending confidence.
// The sort is stable, so equal confidences keep extraction order. A
// token whose type and value rule out every category yields nil.
func Match(tok token.DesignToken, records []*extract.ComponentRecord) []ComponentMatch {
	categories := candidateCategories(tok)
	if len(categories) == 0 {
		return nil
	}

	var matches []ComponentMatch
	for _, rec := range records {
		if rec == nil {
			continue
		}
		var details []MatchDetail
		for _, cat := range categories {
			details = append(details, matchCategory(tok, cat, rec)...)
		}
		if len(details) == 0 {
			continue
		}
		matches = append(matches, ComponentMatch{
			Component:  rec,
			Matches:    details,
			Confidence: meanConfidence(details),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches
}

// matchCategory runs both phases for one component and category. The
// provenance scan covers the whole subtree before the value phase is
// considered.
func matchCategory(tok token.DesignToken, cat token.Category, rec *extract.ComponentRecord) []MatchDetail {
	if details := collectProvenance(tok, cat, rec, ""); len(details) > 0 {
		return details
	}
	return collectValue(tok, cat, rec, "")
}

func collectProvenance(tok token.DesignToken, cat token.Category, rec *extract.ComponentRecord, prefix string) []MatchDetail {
	key := tok.PathKey()
	if key == "" {
		return nil
	}

	var details []MatchDetail
	emit := func(raw, label string) {
		conf, ok := provenanceConfidence(key, raw)
		if !ok {
			return
		}
		details = append(details, MatchDetail{
			PropertyLabel: prefixed(prefix, label+tokenRefSuffix),
			Category:      cat,
			MatchedValue:  token.NormalizeProvenance(raw),
			TokenValue:    tok.Name(),
			Confidence:    conf,
		})
	}

	switch cat {
	case token.CategoryColor:
		for _, p := range rec.Colors {
			emit(p.TokenProvenance, colorLabel(p.Role))
		}
	case token.CategoryTypography:
		for _, p := range rec.Typography {
			emit(p.TokenProvenance, "typography")
		}
	case token.CategorySpacing:
		for _, p := range rec.Spacing {
			emit(p.TokenProvenance, spacingLabel(p.Kind))
		}
	case token.CategoryEffect:
		for _, p := range rec.Effects {
			emit(p.TokenProvenance, effectLabel(p.Kind))
		}
	}

	for _, child := range rec.Children {
		details = append(details, collectProvenance(tok, cat, child, childPrefix(prefix, child.Name))...)
	}
	return details
}

// provenanceConfidence compares a cleaned provenance string against the
// token path key: exact equality is certain, containment either way is
// a partial reference.
func provenanceConfidence(key, raw string) (float64, bool) {
	prov := token.NormalizeProvenance(raw)
	if prov == "" {
		return 0, false
	}
	if prov == key {
		return confidenceExactRef, true
	}
	if strings.Contains(prov, key) || strings.Contains(key, prov) {
		return confidencePartialRef, true
	}
	return 0, false
}

func collectValue(tok token.DesignToken, cat token.Category, rec *extract.ComponentRecord, prefix string) []MatchDetail {
	var details []MatchDetail
	switch cat {
	case token.CategoryColor:
		details = colorValueMatches(tok, rec, prefix)
	case token.CategoryTypography:
		details = typographyValueMatches(tok, rec, prefix)
	case token.CategorySpacing:
		details = spacingValueMatches(tok, rec, prefix)
	case token.CategoryEffect:
		details = effectValueMatches(tok, rec, prefix)
	}

	for _, child := range rec.Children {
		details = append(details, collectValue(tok, cat, child, childPrefix(prefix, child.Name))...)
	}
	return details
}
