package tokensource

import (
	"regexp"
	"strings"

	"github.com/tokenlens/tokenlens/pkg/token"
)

// inferType guesses a token type when the source declares none, as CSS
// sheets and theme modules never do. Value shape decides first; path
// segments break ties for bare numbers and keyword values.
func inferType(path []string, display string, value any) token.TokenType {
	switch value.(type) {
	case bool:
		return token.TypeBoolean
	case map[string]any:
		switch {
		case pathHints(path, "typography", "text", "heading"):
			return token.TypeTypography
		case pathHints(path, "shadow", "elevation"):
			return token.TypeShadow
		case pathHints(path, "border"):
			return token.TypeBorder
		}
		return token.TypeString
	}

	raw := strings.TrimSpace(display)
	if raw == "" {
		if _, ok := value.(float64); ok {
			return token.TypeNumber
		}
		return token.TypeString
	}

	if _, ok := token.ParseColor(raw); ok {
		return token.TypeColor
	}

	if _, unit, ok := token.ParseDimension(raw); ok {
		switch {
		case unit == "ms" || unit == "s":
			return token.TypeDuration
		case pathHints(path, "weight"):
			return token.TypeFontWeight
		case pathHints(path, "radius"):
			return token.TypeBorderRadius
		case pathHints(path, "duration", "transition", "animation"):
			return token.TypeDuration
		case pathHints(path, "border") && pathHints(path, "width"):
			return token.TypeBorderWidth
		case unit != "":
			return token.TypeDimension
		case pathHints(path, "spacing", "space", "size", "gap", "inset", "width", "height"):
			return token.TypeDimension
		case pathHints(path, "opacity", "z", "scale", "line"):
			return token.TypeNumber
		default:
			return token.TypeNumber
		}
	}

	if pathHints(path, "weight") {
		if _, ok := token.NormalizeFontWeight(raw); ok {
			return token.TypeFontWeight
		}
	}
	if pathHints(path, "font", "family", "typeface") {
		return token.TypeFontFamily
	}
	if pathHints(path, "shadow", "elevation") {
		if _, ok := parseShadowShorthand(raw); ok {
			return token.TypeShadow
		}
	}
	return token.TypeString
}

// pathHints reports whether any path segment contains one of the hints,
// case-insensitively. Segments are compared whole-word against short
// hints like "z" to avoid false positives.
func pathHints(path []string, hints ...string) bool {
	for _, seg := range path {
		seg = strings.ToLower(seg)
		for _, h := range hints {
			if len(h) <= 2 {
				if seg == h {
					return true
				}
				continue
			}
			if strings.Contains(seg, h) {
				return true
			}
		}
	}
	return false
}

var shadowColorPattern = regexp.MustCompile(`(?i)(rgba?\([^)]*\)|#[0-9a-f]{3,8})`)

// parseShadowShorthand parses a CSS box-shadow layer such as
// "0 1px 2px rgba(0, 0, 0, 0.05)" into the shadow composite. Only the
// first layer of a comma-separated list is kept, matching what the
// effect matcher consumes.
func parseShadowShorthand(s string) (token.ShadowValue, bool) {
	layer := strings.TrimSpace(s)
	if layer == "" {
		return token.ShadowValue{}, false
	}

	// The color is pulled out first so rgb() commas and spaces do not
	// confuse the length split.
	var sv token.ShadowValue
	if loc := shadowColorPattern.FindStringIndex(layer); loc != nil {
		sv.Color = layer[loc[0]:loc[1]]
		layer = strings.TrimSpace(layer[:loc[0]] + layer[loc[1]:])
	}
	if i := strings.Index(layer, ","); i >= 0 {
		layer = strings.TrimSpace(layer[:i])
	}
	layer = strings.TrimPrefix(layer, "inset")

	var lengths []float64
	for _, field := range strings.Fields(layer) {
		v, _, ok := token.ParseDimension(field)
		if !ok {
			return token.ShadowValue{}, false
		}
		lengths = append(lengths, v)
	}
	if len(lengths) < 2 || len(lengths) > 4 {
		return token.ShadowValue{}, false
	}

	sv.OffsetX = lengths[0]
	sv.OffsetY = lengths[1]
	if len(lengths) > 2 {
		sv.Blur = lengths[2]
	}
	if len(lengths) > 3 {
		sv.Spread = lengths[3]
	}
	return sv, true
}
