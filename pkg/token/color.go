package token

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Color is an 8-bit RGB triple with a [0,1] alpha, the form extracted
// properties and token values are normalized to before comparison.
type Color struct {
	R int     `json:"r"`
	G int     `json:"g"`
	B int     `json:"b"`
	A float64 `json:"a"`
}

// Hex returns the lower-case #rrggbb form. Alpha is not encoded.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", clampChannel(c.R), clampChannel(c.G), clampChannel(c.B))
}

func clampChannel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

var rgbPattern = regexp.MustCompile(`(?i)^rgba?\(\s*([\d.]+)\s*,\s*([\d.]+)\s*,\s*([\d.]+)\s*(?:,\s*([\d.]+)\s*)?\)$`)

// ParseColor parses #rgb, #rrggbb, #rrggbbaa, rgb(...) and rgba(...)
// strings. The second result reports whether the string was a color.
func ParseColor(s string) (Color, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Color{}, false
	}

	if strings.HasPrefix(s, "#") {
		return parseHex(s)
	}
	if m := rgbPattern.FindStringSubmatch(s); m != nil {
		r, errR := strconv.ParseFloat(m[1], 64)
		g, errG := strconv.ParseFloat(m[2], 64)
		b, errB := strconv.ParseFloat(m[3], 64)
		if errR != nil || errG != nil || errB != nil {
			return Color{}, false
		}
		a := 1.0
		if m[4] != "" {
			parsed, err := strconv.ParseFloat(m[4], 64)
			if err != nil {
				return Color{}, false
			}
			a = parsed
		}
		return Color{R: int(r + 0.5), G: int(g + 0.5), B: int(b + 0.5), A: a}, true
	}
	return Color{}, false
}

func parseHex(s string) (Color, bool) {
	h := strings.ToLower(strings.TrimPrefix(s, "#"))
	switch len(h) {
	case 3:
		// #abc -> #aabbcc
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	case 6, 8:
	default:
		return Color{}, false
	}

	v, err := strconv.ParseUint(h[:6], 16, 32)
	if err != nil {
		return Color{}, false
	}
	c := Color{
		R: int(v >> 16 & 0xff),
		G: int(v >> 8 & 0xff),
		B: int(v & 0xff),
		A: 1.0,
	}
	if len(h) == 8 {
		a, err := strconv.ParseUint(h[6:8], 16, 16)
		if err != nil {
			return Color{}, false
		}
		c.A = float64(a) / 255.0
	}
	return c, true
}

// NormalizeHex lower-cases a hex color and expands the #rgb shorthand so
// equal colors compare equal as strings. Non-hex input is returned
// lower-cased and trimmed.
func NormalizeHex(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := parseHex(s); ok && strings.HasPrefix(s, "#") {
		return c.Hex()
	}
	return s
}

// LooksLikeColor reports whether a raw string has a color shape (hex or
// rgb/rgba function), without fully validating the channels.
func LooksLikeColor(s string) bool {
	_, ok := ParseColor(s)
	return ok
}

var dimensionPattern = regexp.MustCompile(`^(-?[\d.]+)\s*(px|pt|rem|em|%|dp|sp|ms|s)?$`)

// ParseDimension parses a numeric-with-optional-unit string such as
// "16px", "0.5rem", "200ms" or "12". The unit is returned lower-cased,
// empty when absent.
func ParseDimension(s string) (value float64, unit string, ok bool) {
	m := dimensionPattern.FindStringSubmatch(strings.TrimSpace(strings.ToLower(s)))
	if m == nil {
		return 0, "", false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", false
	}
	return v, m[2], true
}

// fontWeightNames maps the common keyword weights to the 100-900 scale.
var fontWeightNames = map[string]float64{
	"thin":       100,
	"hairline":   100,
	"extralight": 200,
	"ultralight": 200,
	"light":      300,
	"normal":     400,
	"regular":    400,
	"book":       400,
	"medium":     500,
	"semibold":   600,
	"demibold":   600,
	"bold":       700,
	"extrabold":  800,
	"ultrabold":  800,
	"black":      900,
	"heavy":      900,
}

// NormalizeFontWeight maps numeric or keyword weight values onto the
// 100-900 numeric scale. Unknown keywords return ok=false.
func NormalizeFontWeight(v any) (float64, bool) {
	switch w := v.(type) {
	case float64:
		return w, true
	case int:
		return float64(w), true
	case string:
		s := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(w), "-", ""))
		s = strings.ReplaceAll(s, " ", "")
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return n, true
		}
		if n, ok := fontWeightNames[s]; ok {
			return n, true
		}
	}
	return 0, false
}

// NormalizeFontFamily lower-cases a family name and collapses interior
// whitespace so "Inter  Display" and "inter display" compare equal.
func NormalizeFontFamily(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
