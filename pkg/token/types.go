// Package token defines the resolved design-token model consumed by the
// matching engine, plus the value parsing and shape validation that go
// with it. Alias resolution happens upstream in tokensource: by the time
// a DesignToken reaches this package its Value is a concrete primitive or
// composite, never an unresolved alias reference.
package token

import "strings"

// TokenType is the declared kind of a design token.
type TokenType string

const (
	TypeColor         TokenType = "color"
	TypeDimension     TokenType = "dimension"
	TypeFontFamily    TokenType = "fontFamily"
	TypeFontWeight    TokenType = "fontWeight"
	TypeTypography    TokenType = "typography"
	TypeShadow        TokenType = "shadow"
	TypeBorder        TokenType = "border"
	TypeBorderRadius  TokenType = "borderRadius"
	TypeBorderWidth   TokenType = "borderWidth"
	TypeDuration      TokenType = "duration"
	TypeNumber        TokenType = "number"
	TypeBoolean       TokenType = "boolean"
	TypeString        TokenType = "string"
)

// Category groups token types by the scene property family they affect.
// Extraction scopes and per-category matchers are keyed by Category.
type Category string

const (
	CategoryColor      Category = "color"
	CategoryTypography Category = "typography"
	CategorySpacing    Category = "spacing"
	CategoryEffect     Category = "effect"
	// CategoryAll requests every property family during extraction.
	CategoryAll Category = "all"
)

// CategoryForType maps a declared token type to the property family its
// values live in. Generic types (number, boolean, string, duration,
// border) return an empty Category; the matching engine infers candidate
// categories for those from the token's path and value shape.
func CategoryForType(t TokenType) Category {
	switch t {
	case TypeColor:
		return CategoryColor
	case TypeDimension, TypeBorderRadius, TypeBorderWidth:
		return CategorySpacing
	case TypeFontFamily, TypeFontWeight, TypeTypography:
		return CategoryTypography
	case TypeShadow:
		return CategoryEffect
	default:
		return ""
	}
}

// DesignToken is a resolved design-system value.
//
// Path is the ordered list of non-empty name segments, unique within a
// token set. Value is polymorphic: string, float64, bool, or one of the
// composite records below. Aliases lists the token paths this value was
// resolved through, oldest first; they are informational only.
type DesignToken struct {
	Path        []string   `json:"path"`
	Type        TokenType  `json:"type"`
	Value       any        `json:"value"`
	RawValue    string     `json:"raw_value,omitempty"`
	Description string     `json:"description,omitempty"`
	Aliases     [][]string `json:"aliases,omitempty"`
	Source      string     `json:"source,omitempty"`
}

// Name returns the canonical dot-joined form of the token path.
func (t DesignToken) Name() string {
	return strings.Join(t.Path, ".")
}

// PathKey returns the lower-cased dot-joined path used for
// case-insensitive comparison and index keys.
func (t DesignToken) PathKey() string {
	return strings.ToLower(t.Name())
}

// Category returns the property family implied by the declared type.
func (t DesignToken) Category() Category {
	return CategoryForType(t.Type)
}

// TypographyValue is the composite value carried by typography tokens.
// FontWeight is normalized to the 100-900 numeric scale.
type TypographyValue struct {
	FontFamily    string  `json:"fontFamily,omitempty"`
	FontSize      float64 `json:"fontSize,omitempty"`
	FontWeight    float64 `json:"fontWeight,omitempty"`
	LineHeight    float64 `json:"lineHeight,omitempty"`
	LetterSpacing float64 `json:"letterSpacing,omitempty"`
}

// ShadowValue is the composite value carried by shadow tokens.
type ShadowValue struct {
	Color   string  `json:"color,omitempty"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Blur    float64 `json:"blur"`
	Spread  float64 `json:"spread,omitempty"`
}

// BorderValue is the composite value carried by border tokens.
type BorderValue struct {
	Color string  `json:"color,omitempty"`
	Width float64 `json:"width,omitempty"`
	Style string  `json:"style,omitempty"`
}

// Set is an ordered token collection with path lookup. Order follows the
// source files the tokens were parsed from.
type Set struct {
	tokens []DesignToken
	byPath map[string]int
}

// NewSet builds a Set from an ordered token slice. Later duplicates of
// the same path replace earlier ones in the lookup map but keep their
// original slice position, so iteration order stays source order.
func NewSet(tokens []DesignToken) *Set {
	s := &Set{
		tokens: tokens,
		byPath: make(map[string]int, len(tokens)),
	}
	for i, t := range tokens {
		s.byPath[t.PathKey()] = i
	}
	return s
}

// All returns the tokens in source order. Callers must not mutate the
// returned slice.
func (s *Set) All() []DesignToken {
	return s.tokens
}

// Len returns the number of tokens in the set.
func (s *Set) Len() int {
	return len(s.tokens)
}

// Find returns the token whose dot-joined path equals the query,
// case-insensitively. The second result reports whether it was found.
func (s *Set) Find(path string) (DesignToken, bool) {
	i, ok := s.byPath[strings.ToLower(strings.TrimSpace(path))]
	if !ok {
		return DesignToken{}, false
	}
	return s.tokens[i], true
}

// FindPrefix returns all tokens whose path begins with the given
// dot-joined prefix, case-insensitively, in source order.
func (s *Set) FindPrefix(prefix string) []DesignToken {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return s.tokens
	}
	var out []DesignToken
	for _, t := range s.tokens {
		key := t.PathKey()
		if key == prefix || strings.HasPrefix(key, prefix+".") {
			out = append(out, t)
		}
	}
	return out
}
