package match

import (
	"strings"

	"github.com/tokenlens/tokenlens/pkg/token"
)

// Path vocabularies for inferring a category when the token's declared
// type is generic. Matched as substrings of the lower-cased dot-joined
// path.
var (
	spacingKeywords     = []string{"spacing", "space", "gap", "padding", "inset", "size"}
	radiusKeywords      = []string{"radius", "corner", "rounded"}
	borderWidthKeywords = []string{"border-width", "borderwidth", "border.width", "stroke-width", "strokewidth", "stroke.width"}
	shadowKeywords      = []string{"shadow", "elevation"}
)

// candidateCategories decides which property families the token is
// compared against. A declared specific type decides alone; generic or
// absent types fall back to inference from the path vocabulary and the
// literal value's shape, attempting every plausible category rather
// than picking one.
func candidateCategories(tok token.DesignToken) []token.Category {
	if cat := tok.Category(); cat != "" && cat != token.CategoryAll {
		return []token.Category{cat}
	}
	return inferCategories(tok)
}

func inferCategories(tok token.DesignToken) []token.Category {
	var out []token.Category
	seen := make(map[token.Category]bool)
	add := func(cat token.Category) {
		if !seen[cat] {
			seen[cat] = true
			out = append(out, cat)
		}
	}

	path := tok.PathKey()
	if containsAny(path, spacingKeywords) || containsAny(path, radiusKeywords) || containsAny(path, borderWidthKeywords) {
		add(token.CategorySpacing)
	}
	if containsAny(path, shadowKeywords) {
		add(token.CategoryEffect)
	}

	if s, ok := tok.Value.(string); ok {
		if token.LooksLikeColor(s) {
			add(token.CategoryColor)
		} else if _, _, ok := token.ParseDimension(s); ok {
			add(token.CategorySpacing)
		}
	}

	return out
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
