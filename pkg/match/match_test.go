package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenlens/tokenlens/pkg/extract"
	"github.com/tokenlens/tokenlens/pkg/token"
)

func primaryToken() token.DesignToken {
	return token.DesignToken{
		Path:     []string{"color", "primary", "500"},
		Type:     token.TypeColor,
		Value:    "#3B82F6",
		RawValue: "#3B82F6",
	}
}

func fill(hex, provenance string) extract.ColorProperty {
	c, _ := token.ParseColor(hex)
	return extract.ColorProperty{
		Role:            extract.RoleFill,
		Color:           c,
		Hex:             hex,
		TokenProvenance: provenance,
	}
}

func definition(id, name string) *extract.ComponentRecord {
	return &extract.ComponentRecord{ID: id, Name: name, Kind: extract.KindDefinition, Page: "Home"}
}

// --- provenance phase ---

func TestExactProvenanceMatch(t *testing.T) {
	rec := definition("1:1", "Button")
	rec.Colors = []extract.ColorProperty{fill("#3b82f6", "color.primary.500")}

	matches := Match(primaryToken(), []*extract.ComponentRecord{rec})

	require.Len(t, matches, 1)
	assert.Equal(t, "1:1", matches[0].Component.ID)
	assert.Equal(t, 1.0, matches[0].Confidence)
	require.Len(t, matches[0].Matches, 1)
	detail := matches[0].Matches[0]
	assert.Equal(t, "fill color (token ref)", detail.PropertyLabel)
	assert.Equal(t, token.CategoryColor, detail.Category)
	assert.Equal(t, 1.0, detail.Confidence)
}

func TestPartialProvenanceMatch(t *testing.T) {
	rec := definition("1:1", "Button")
	rec.Colors = []extract.ColorProperty{fill("#3b82f6", "color.primary")}

	matches := Match(primaryToken(), []*extract.ComponentRecord{rec})

	require.Len(t, matches, 1)
	assert.Equal(t, 0.85, matches[0].Confidence)
}

func TestProvenanceIsCaseInsensitiveAndCleaned(t *testing.T) {
	for _, raw := range []string{"Color.Primary.500", "{color.primary.500}", `"COLOR.PRIMARY.500"`, "$color.primary.500"} {
		rec := definition("1:1", "Button")
		rec.Colors = []extract.ColorProperty{fill("#000000", raw)}

		matches := Match(primaryToken(), []*extract.ComponentRecord{rec})
		require.Len(t, matches, 1, "raw %q", raw)
		assert.Equal(t, 1.0, matches[0].Confidence, "raw %q", raw)
	}
}

func TestProvenanceSuppressesValuePhase(t *testing.T) {
	// One fill referencing the token, a second fill whose literal value
	// would also match: only the reference may be reported.
	rec := definition("1:1", "Button")
	rec.Colors = []extract.ColorProperty{
		fill("#000000", "color.primary.500"),
		fill("#3b82f6", ""),
	}

	matches := Match(primaryToken(), []*extract.ComponentRecord{rec})

	require.Len(t, matches, 1)
	require.Len(t, matches[0].Matches, 1)
	assert.Equal(t, "fill color (token ref)", matches[0].Matches[0].PropertyLabel)

	// Removing the value-bearing property must not change the result.
	trimmed := definition("1:1", "Button")
	trimmed.Colors = []extract.ColorProperty{fill("#000000", "color.primary.500")}
	again := Match(primaryToken(), []*extract.ComponentRecord{trimmed})
	assert.Equal(t, matches[0].Matches, again[0].Matches)
	assert.Equal(t, matches[0].Confidence, again[0].Confidence)
}

func TestChildProvenanceSuppressesParentValuePhase(t *testing.T) {
	// The provenance hit sits on a child; the parent's own fill would
	// value-match. Suppression covers the whole subtree.
	child := definition("1:2", "Label")
	child.Kind = extract.KindContainer
	child.Colors = []extract.ColorProperty{fill("#000000", "color.primary.500")}

	rec := definition("1:1", "Button")
	rec.Colors = []extract.ColorProperty{fill("#3b82f6", "")}
	rec.Children = []*extract.ComponentRecord{child}

	matches := Match(primaryToken(), []*extract.ComponentRecord{rec})

	require.Len(t, matches, 1)
	require.Len(t, matches[0].Matches, 1)
	assert.Equal(t, "Label > fill color (token ref)", matches[0].Matches[0].PropertyLabel)
}

// --- value phase ---

func TestColorValueMatch(t *testing.T) {
	rec := definition("1:1", "Button")
	rec.Colors = []extract.ColorProperty{fill("#3b82f6", "")}

	matches := Match(primaryToken(), []*extract.ComponentRecord{rec})

	require.Len(t, matches, 1)
	assert.Equal(t, 0.7, matches[0].Confidence)
	assert.Equal(t, "fill color", matches[0].Matches[0].PropertyLabel)
	assert.Equal(t, "#3b82f6", matches[0].Matches[0].MatchedValue)
	assert.Equal(t, "#3B82F6", matches[0].Matches[0].TokenValue)
}

func TestColorValueChannelTolerance(t *testing.T) {
	// #3b82f6 is (59, 130, 246); one channel off by 1 still matches,
	// off by 2 does not.
	near := definition("1:1", "Near")
	near.Colors = []extract.ColorProperty{fill("#3c82f6", "")}

	far := definition("2:1", "Far")
	far.Colors = []extract.ColorProperty{fill("#3d82f6", "")}

	matches := Match(primaryToken(), []*extract.ComponentRecord{near, far})

	require.Len(t, matches, 1)
	assert.Equal(t, "1:1", matches[0].Component.ID)
}

func TestDimensionValueMatch(t *testing.T) {
	tok := token.DesignToken{
		Path:     []string{"spacing", "4"},
		Type:     token.TypeDimension,
		Value:    "16px",
		RawValue: "16px",
	}
	rec := definition("1:1", "Card")
	rec.Spacing = []extract.SpacingProperty{{Kind: extract.SpacingPadding, Value: 16, Unit: "px"}}

	matches := Match(tok, []*extract.ComponentRecord{rec})

	require.Len(t, matches, 1)
	assert.Equal(t, 0.7, matches[0].Confidence)
	assert.Equal(t, "padding", matches[0].Matches[0].PropertyLabel)
	assert.Equal(t, "16px", matches[0].Matches[0].MatchedValue)
}

func TestDimensionTolerance(t *testing.T) {
	tok := token.DesignToken{Path: []string{"spacing", "4"}, Type: token.TypeDimension, Value: 16.0}

	within := definition("1:1", "Within")
	within.Spacing = []extract.SpacingProperty{{Kind: extract.SpacingGap, Value: 16.4, Unit: "px"}}

	outside := definition("2:1", "Outside")
	outside.Spacing = []extract.SpacingProperty{{Kind: extract.SpacingGap, Value: 16.5, Unit: "px"}}

	matches := Match(tok, []*extract.ComponentRecord{within, outside})

	require.Len(t, matches, 1)
	assert.Equal(t, "1:1", matches[0].Component.ID)
}

func TestBorderRadiusTokenOnlyMatchesRadiusProperties(t *testing.T) {
	tok := token.DesignToken{Path: []string{"radius", "md"}, Type: token.TypeBorderRadius, Value: 8.0}

	rec := definition("1:1", "Card")
	rec.Spacing = []extract.SpacingProperty{
		{Kind: extract.SpacingPadding, Value: 8, Unit: "px"},
		{Kind: extract.SpacingBorderRadius, Value: 8, Unit: "px"},
	}

	matches := Match(tok, []*extract.ComponentRecord{rec})

	require.Len(t, matches, 1)
	require.Len(t, matches[0].Matches, 1)
	assert.Equal(t, "border radius", matches[0].Matches[0].PropertyLabel)
}

func TestFontFamilyValueMatch(t *testing.T) {
	tok := token.DesignToken{Path: []string{"font", "sans"}, Type: token.TypeFontFamily, Value: "Inter"}

	rec := definition("1:1", "Label")
	rec.Typography = []extract.TypographyProperty{{FontFamily: "  inter ", FontSize: 14, FontWeight: 400}}

	matches := Match(tok, []*extract.ComponentRecord{rec})

	require.Len(t, matches, 1)
	assert.Equal(t, 0.9, matches[0].Confidence)
	assert.Equal(t, "font family", matches[0].Matches[0].PropertyLabel)
}

func TestFontWeightValueMatch(t *testing.T) {
	tok := token.DesignToken{Path: []string{"font", "weight", "semibold"}, Type: token.TypeFontWeight, Value: "600"}

	rec := definition("1:1", "Label")
	rec.Typography = []extract.TypographyProperty{{FontFamily: "Inter", FontSize: 14, FontWeight: 600}}

	matches := Match(tok, []*extract.ComponentRecord{rec})

	require.Len(t, matches, 1)
	assert.Equal(t, 0.9, matches[0].Confidence)
	assert.Equal(t, "font weight", matches[0].Matches[0].PropertyLabel)
}

func TestTypographyCompositeAccumulates(t *testing.T) {
	tok := token.DesignToken{
		Path:  []string{"typography", "body"},
		Type:  token.TypeTypography,
		Value: token.TypographyValue{FontFamily: "Inter", FontSize: 14, FontWeight: 400},
	}

	full := definition("1:1", "Body")
	full.Typography = []extract.TypographyProperty{{FontFamily: "Inter", FontSize: 14, FontWeight: 400}}

	familyOnly := definition("2:1", "Heading")
	familyOnly.Typography = []extract.TypographyProperty{{FontFamily: "Inter", FontSize: 24, FontWeight: 700}}

	matches := Match(tok, []*extract.ComponentRecord{full, familyOnly})

	require.Len(t, matches, 2)
	assert.Equal(t, "1:1", matches[0].Component.ID)
	assert.InDelta(t, 1.0, matches[0].Confidence, 1e-9, "0.4 + 0.3 + 0.3")
	assert.Equal(t, "2:1", matches[1].Component.ID)
	assert.InDelta(t, 0.4, matches[1].Confidence, 1e-9, "family only")
}

func TestShadowCompositeCappedAtValueConfidence(t *testing.T) {
	tok := token.DesignToken{
		Path:  []string{"shadow", "card"},
		Type:  token.TypeShadow,
		Value: token.ShadowValue{Color: "#000000", OffsetX: 0, OffsetY: 2, Blur: 8},
	}

	black := token.Color{R: 0, G: 0, B: 0, A: 1}
	rec := definition("1:1", "Card")
	rec.Effects = []extract.EffectProperty{{
		Kind:   extract.EffectDropShadow,
		Radius: 8,
		Color:  &black,
		Offset: &extract.Offset{X: 0, Y: 2},
	}}

	matches := Match(tok, []*extract.ComponentRecord{rec})

	require.Len(t, matches, 1)
	assert.InDelta(t, 0.7, matches[0].Confidence, 1e-9, "full composite capped at value confidence")
	assert.Equal(t, "drop shadow", matches[0].Matches[0].PropertyLabel)
}

func TestShadowRadiusOnlyScore(t *testing.T) {
	tok := token.DesignToken{
		Path:  []string{"shadow", "card"},
		Type:  token.TypeShadow,
		Value: token.ShadowValue{Color: "#000000", OffsetX: 0, OffsetY: 2, Blur: 8},
	}

	rec := definition("1:1", "Card")
	rec.Effects = []extract.EffectProperty{{Kind: extract.EffectLayerBlur, Radius: 8.5}}

	matches := Match(tok, []*extract.ComponentRecord{rec})

	require.Len(t, matches, 1)
	assert.InDelta(t, 0.4, matches[0].Confidence, 1e-9)
}

// --- aggregation and ranking ---

func TestChildMatchSurfacesOnParentWithPrefixedLabel(t *testing.T) {
	child := definition("1:2", "Label")
	child.Kind = extract.KindContainer
	child.Colors = []extract.ColorProperty{fill("#3b82f6", "color.primary.500")}

	rec := definition("1:1", "Button")
	rec.Children = []*extract.ComponentRecord{child}

	matches := Match(primaryToken(), []*extract.ComponentRecord{rec})

	require.Len(t, matches, 1, "parent appears once")
	assert.Equal(t, "1:1", matches[0].Component.ID)
	require.Len(t, matches[0].Matches, 1)
	assert.Equal(t, "Label > fill color (token ref)", matches[0].Matches[0].PropertyLabel)
}

func TestGrandchildLabelKeepsNameChain(t *testing.T) {
	grandchild := definition("1:3", "Icon")
	grandchild.Kind = extract.KindContainer
	grandchild.Colors = []extract.ColorProperty{fill("#3b82f6", "color.primary.500")}

	child := definition("1:2", "Slot")
	child.Kind = extract.KindContainer
	child.Children = []*extract.ComponentRecord{grandchild}

	rec := definition("1:1", "Button")
	rec.Children = []*extract.ComponentRecord{child}

	matches := Match(primaryToken(), []*extract.ComponentRecord{rec})

	require.Len(t, matches, 1)
	assert.Equal(t, "Slot > Icon > fill color (token ref)", matches[0].Matches[0].PropertyLabel)
}

func TestConfidenceIsMeanOfDetails(t *testing.T) {
	rec := definition("1:1", "Button")
	rec.Colors = []extract.ColorProperty{
		fill("#000000", "color.primary.500"),
		fill("#ffffff", "color.primary"),
	}

	matches := Match(primaryToken(), []*extract.ComponentRecord{rec})

	require.Len(t, matches, 1)
	require.Len(t, matches[0].Matches, 2)
	assert.InDelta(t, (1.0+0.85)/2, matches[0].Confidence, 1e-9)
}

func TestRankingExactOverPartialOverValue(t *testing.T) {
	exact := definition("1:1", "Exact")
	exact.Colors = []extract.ColorProperty{fill("#000000", "color.primary.500")}

	partial := definition("2:1", "Partial")
	partial.Colors = []extract.ColorProperty{fill("#000000", "primary.500")}

	value := definition("3:1", "Value")
	value.Colors = []extract.ColorProperty{fill("#3b82f6", "")}

	matches := Match(primaryToken(), []*extract.ComponentRecord{value, partial, exact})

	require.Len(t, matches, 3)
	assert.Equal(t, []string{"1:1", "2:1", "3:1"}, []string{
		matches[0].Component.ID, matches[1].Component.ID, matches[2].Component.ID,
	})
}

func TestRankingIsStableForEqualConfidence(t *testing.T) {
	first := definition("1:1", "First")
	first.Colors = []extract.ColorProperty{fill("#3b82f6", "")}

	second := definition("2:1", "Second")
	second.Colors = []extract.ColorProperty{fill("#3b82f6", "")}

	matches := Match(primaryToken(), []*extract.ComponentRecord{first, second})

	require.Len(t, matches, 2)
	assert.Equal(t, "1:1", matches[0].Component.ID, "extraction order preserved on tie")
	assert.Equal(t, "2:1", matches[1].Component.ID)
}

func TestMatchIsDeterministic(t *testing.T) {
	records := []*extract.ComponentRecord{
		definition("1:1", "A"),
		definition("2:1", "B"),
	}
	records[0].Colors = []extract.ColorProperty{fill("#3b82f6", "color.primary.500")}
	records[1].Colors = []extract.ColorProperty{fill("#3b82f6", "")}

	first := Match(primaryToken(), records)
	for range 3 {
		assert.Equal(t, first, Match(primaryToken(), records))
	}
}

// --- failure semantics ---

func TestNilTokenValueYieldsNoValueMatches(t *testing.T) {
	tok := token.DesignToken{Path: []string{"color", "primary", "500"}, Type: token.TypeColor}

	withValue := definition("1:1", "Value")
	withValue.Colors = []extract.ColorProperty{fill("#3b82f6", "")}

	withRef := definition("2:1", "Ref")
	withRef.Colors = []extract.ColorProperty{fill("#000000", "color.primary.500")}

	matches := Match(tok, []*extract.ComponentRecord{withValue, withRef})

	// Provenance still works without a value; the value-only record drops out.
	require.Len(t, matches, 1)
	assert.Equal(t, "2:1", matches[0].Component.ID)
}

func TestMalformedTokenValueIsNotAnError(t *testing.T) {
	tok := token.DesignToken{Path: []string{"color", "primary", "500"}, Type: token.TypeColor, Value: "definitely-not-a-color"}

	rec := definition("1:1", "Button")
	rec.Colors = []extract.ColorProperty{fill("#3b82f6", "")}

	assert.Empty(t, Match(tok, []*extract.ComponentRecord{rec}))
}

func TestNoMatchesIsEmptyNotError(t *testing.T) {
	rec := definition("1:1", "Button")
	assert.Empty(t, Match(primaryToken(), []*extract.ComponentRecord{rec}))
	assert.Empty(t, Match(primaryToken(), nil))
}

func TestEmptyTokenPathMatchesNothingByProvenance(t *testing.T) {
	tok := token.DesignToken{Type: token.TypeColor, Value: "#3b82f6"}

	rec := definition("1:1", "Button")
	rec.Colors = []extract.ColorProperty{fill("#000000", "color.primary.500")}

	assert.Empty(t, Match(tok, []*extract.ComponentRecord{rec}))
}

func TestInputsAreNotMutated(t *testing.T) {
	rec := definition("1:1", "Button")
	rec.Colors = []extract.ColorProperty{fill("#3b82f6", "color.primary.500")}
	before := *rec

	Match(primaryToken(), []*extract.ComponentRecord{rec})

	assert.Equal(t, before.Colors, rec.Colors)
	assert.Equal(t, before.ID, rec.ID)
}
