package match

import (
	"fmt"
	"math"
	"strings"

	"github.com/tokenlens/tokenlens/pkg/extract"
	"github.com/tokenlens/tokenlens/pkg/token"
)

// Value-phase tolerances. Channel and alpha tolerances absorb rounding
// between 0-1 scene color floats and 0-255 token channels; the
// dimension tolerance absorbs sub-pixel layout values.
const (
	colorChannelTolerance = 2
	alphaTolerance        = 0.01
	dimensionTolerance    = 0.5
	fontSizeTolerance     = 0.5
	shadowRadiusTolerance = 1.0
	shadowOffsetTolerance = 1.0
)

// Composite sub-field weights.
const (
	typographyFamilyWeight = 0.4
	typographySizeWeight   = 0.3
	typographyWeightWeight = 0.3
	shadowRadiusWeight     = 0.4
	shadowColorWeight      = 0.4
	shadowOffsetWeight     = 0.2
)

func colorValueMatches(tok token.DesignToken, rec *extract.ComponentRecord, prefix string) []MatchDetail {
	want, ok := colorFromValue(tok.Value)
	if !ok {
		return nil
	}
	var details []MatchDetail
	for _, p := range rec.Colors {
		if !colorsClose(p.Color, want) {
			continue
		}
		details = append(details, MatchDetail{
			PropertyLabel: prefixed(prefix, colorLabel(p.Role)),
			Category:      token.CategoryColor,
			MatchedValue:  p.Hex,
			TokenValue:    tokenValueDisplay(tok),
			Confidence:    confidenceValue,
		})
	}
	return details
}

func spacingValueMatches(tok token.DesignToken, rec *extract.ComponentRecord, prefix string) []MatchDetail {
	want, ok := numberFromValue(tok.Value)
	if !ok {
		return nil
	}
	var details []MatchDetail
	for _, p := range rec.Spacing {
		if !spacingKindAllowed(tok.Type, p.Kind) {
			continue
		}
		if math.Abs(p.Value-want) >= dimensionTolerance {
			continue
		}
		details = append(details, MatchDetail{
			PropertyLabel: prefixed(prefix, spacingLabel(p.Kind)),
			Category:      token.CategorySpacing,
			MatchedValue:  displaySpacing(p),
			TokenValue:    tokenValueDisplay(tok),
			Confidence:    confidenceValue,
		})
	}
	return details
}

// spacingKindAllowed narrows specific border token types to their own
// spacing kind; generic dimension tokens compare against every kind.
func spacingKindAllowed(t token.TokenType, kind extract.SpacingKind) bool {
	switch t {
	case token.TypeBorderRadius:
		return kind == extract.SpacingBorderRadius
	case token.TypeBorderWidth:
		return kind == extract.SpacingBorderWidth
	default:
		return true
	}
}

func typographyValueMatches(tok token.DesignToken, rec *extract.ComponentRecord, prefix string) []MatchDetail {
	switch tok.Type {
	case token.TypeFontFamily:
		raw, ok := tok.Value.(string)
		if !ok || strings.TrimSpace(raw) == "" {
			return nil
		}
		want := token.NormalizeFontFamily(raw)
		var details []MatchDetail
		for _, p := range rec.Typography {
			if token.NormalizeFontFamily(p.FontFamily) != want {
				continue
			}
			details = append(details, MatchDetail{
				PropertyLabel: prefixed(prefix, "font family"),
				Category:      token.CategoryTypography,
				MatchedValue:  p.FontFamily,
				TokenValue:    tokenValueDisplay(tok),
				Confidence:    confidenceNameField,
			})
		}
		return details

	case token.TypeFontWeight:
		want, ok := token.NormalizeFontWeight(tok.Value)
		if !ok {
			return nil
		}
		var details []MatchDetail
		for _, p := range rec.Typography {
			if p.FontWeight != want {
				continue
			}
			details = append(details, MatchDetail{
				PropertyLabel: prefixed(prefix, "font weight"),
				Category:      token.CategoryTypography,
				MatchedValue:  formatNumber(p.FontWeight),
				TokenValue:    tokenValueDisplay(tok),
				Confidence:    confidenceNameField,
			})
		}
		return details

	default:
		want, ok := typographyFromValue(tok.Value)
		if !ok {
			return nil
		}
		var details []MatchDetail
		for _, p := range rec.Typography {
			score := 0.0
			if want.FontFamily != "" && token.NormalizeFontFamily(p.FontFamily) == token.NormalizeFontFamily(want.FontFamily) {
				score += typographyFamilyWeight
			}
			if want.FontSize > 0 && math.Abs(p.FontSize-want.FontSize) < fontSizeTolerance {
				score += typographySizeWeight
			}
			if want.FontWeight > 0 && p.FontWeight == want.FontWeight {
				score += typographyWeightWeight
			}
			if score == 0 {
				continue
			}
			details = append(details, MatchDetail{
				PropertyLabel: prefixed(prefix, "typography"),
				Category:      token.CategoryTypography,
				MatchedValue:  displayTypography(p),
				TokenValue:    tokenValueDisplay(tok),
				Confidence:    math.Min(score, 1.0),
			})
		}
		return details
	}
}

func effectValueMatches(tok token.DesignToken, rec *extract.ComponentRecord, prefix string) []MatchDetail {
	want, ok := shadowFromValue(tok.Value)
	if !ok {
		return nil
	}
	wantColor, wantColorOK := token.ParseColor(want.Color)

	var details []MatchDetail
	for _, p := range rec.Effects {
		score := 0.0
		if math.Abs(p.Radius-want.Blur) < shadowRadiusTolerance {
			score += shadowRadiusWeight
		}
		if wantColorOK && p.Color != nil && colorsClose(*p.Color, wantColor) {
			score += shadowColorWeight
		}
		if p.Offset != nil &&
			math.Abs(p.Offset.X-want.OffsetX) < shadowOffsetTolerance &&
			math.Abs(p.Offset.Y-want.OffsetY) < shadowOffsetTolerance {
			score += shadowOffsetWeight
		}
		if score == 0 {
			continue
		}
		details = append(details, MatchDetail{
			PropertyLabel: prefixed(prefix, effectLabel(p.Kind)),
			Category:      token.CategoryEffect,
			MatchedValue:  displayEffect(p),
			TokenValue:    tokenValueDisplay(tok),
			// Value-only evidence, so capped below partial references.
			Confidence: math.Min(score, confidenceValue),
		})
	}
	return details
}

func colorsClose(a, b token.Color) bool {
	return intDiff(a.R, b.R) < colorChannelTolerance &&
		intDiff(a.G, b.G) < colorChannelTolerance &&
		intDiff(a.B, b.B) < colorChannelTolerance &&
		math.Abs(a.A-b.A) < alphaTolerance
}

func intDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// --- token value coercion ---

func colorFromValue(v any) (token.Color, bool) {
	switch c := v.(type) {
	case string:
		return token.ParseColor(c)
	case token.Color:
		return c, true
	case *token.Color:
		if c != nil {
			return *c, true
		}
	}
	return token.Color{}, false
}

func numberFromValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		if val, _, ok := token.ParseDimension(n); ok {
			return val, true
		}
	}
	return 0, false
}

func typographyFromValue(v any) (token.TypographyValue, bool) {
	switch t := v.(type) {
	case token.TypographyValue:
		return t, true
	case *token.TypographyValue:
		if t != nil {
			return *t, true
		}
	case map[string]any:
		var tv token.TypographyValue
		tv.FontFamily, _ = t["fontFamily"].(string)
		if n, ok := numberFromValue(t["fontSize"]); ok {
			tv.FontSize = n
		}
		if w, ok := token.NormalizeFontWeight(t["fontWeight"]); ok {
			tv.FontWeight = w
		}
		if tv != (token.TypographyValue{}) {
			return tv, true
		}
	}
	return token.TypographyValue{}, false
}

func shadowFromValue(v any) (token.ShadowValue, bool) {
	switch s := v.(type) {
	case token.ShadowValue:
		return s, true
	case *token.ShadowValue:
		if s != nil {
			return *s, true
		}
	case map[string]any:
		var sv token.ShadowValue
		sv.Color, _ = s["color"].(string)
		if n, ok := numberFromValue(firstKey(s, "offsetX", "x")); ok {
			sv.OffsetX = n
		}
		if n, ok := numberFromValue(firstKey(s, "offsetY", "y")); ok {
			sv.OffsetY = n
		}
		if n, ok := numberFromValue(firstKey(s, "blur", "radius")); ok {
			sv.Blur = n
		}
		if n, ok := numberFromValue(s["spread"]); ok {
			sv.Spread = n
		}
		if sv != (token.ShadowValue{}) {
			return sv, true
		}
	default:
		// A bare number reads as a blur radius.
		if n, ok := numberFromValue(v); ok {
			return token.ShadowValue{Blur: n}, true
		}
	}
	return token.ShadowValue{}, false
}

func firstKey(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

// --- display strings ---

func displaySpacing(p extract.SpacingProperty) string {
	return formatNumber(p.Value) + p.Unit
}

func displayTypography(p extract.TypographyProperty) string {
	return fmt.Sprintf("%s %s/%s", p.FontFamily, formatNumber(p.FontSize), formatNumber(p.FontWeight))
}

func displayEffect(p extract.EffectProperty) string {
	s := effectLabel(p.Kind) + " " + formatNumber(p.Radius)
	if p.Color != nil {
		s += " " + p.Color.Hex()
	}
	if p.Offset != nil {
		s += fmt.Sprintf(" (%s, %s)", formatNumber(p.Offset.X), formatNumber(p.Offset.Y))
	}
	return s
}

func tokenValueDisplay(tok token.DesignToken) string {
	if tok.RawValue != "" {
		return tok.RawValue
	}
	switch v := tok.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case token.Color:
		return v.Hex()
	case *token.Color:
		if v == nil {
			return ""
		}
		return v.Hex()
	case token.TypographyValue:
		return fmt.Sprintf("%s %s/%s", v.FontFamily, formatNumber(v.FontSize), formatNumber(v.FontWeight))
	case token.ShadowValue:
		s := "blur " + formatNumber(v.Blur)
		if v.Color != "" {
			s += " " + v.Color
		}
		s += fmt.Sprintf(" (%s, %s)", formatNumber(v.OffsetX), formatNumber(v.OffsetY))
		return s
	default:
		if n, ok := numberFromValue(v); ok {
			return formatNumber(n)
		}
		return fmt.Sprintf("%v", v)
	}
}
