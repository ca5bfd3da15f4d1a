package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenlens/tokenlens/pkg/extract"
	"github.com/tokenlens/tokenlens/pkg/token"
)

// buttonRecord is a definition with one annotated fill, one annotated
// padding and a text child with annotated typography.
func buttonRecord() *extract.ComponentRecord {
	return &extract.ComponentRecord{
		ID:   "1:1",
		Name: "Button",
		Kind: extract.KindDefinition,
		Page: "Home",
		Colors: []extract.ColorProperty{{
			Role:            extract.RoleFill,
			Color:           token.Color{R: 59, G: 130, B: 246, A: 1},
			Hex:             "#3b82f6",
			TokenProvenance: "{Color.Primary.500}",
		}},
		Spacing: []extract.SpacingProperty{{
			Kind:            extract.SpacingPadding,
			Value:           16,
			Unit:            "px",
			TokenProvenance: "spacing.md",
		}},
		Effects: []extract.EffectProperty{{
			Kind:            extract.EffectDropShadow,
			Radius:          8,
			TokenProvenance: "shadow.card",
		}},
		Children: []*extract.ComponentRecord{{
			ID:   "1:2",
			Name: "Label",
			Kind: extract.KindContainer,
			Page: "Home",
			Typography: []extract.TypographyProperty{{
				FontFamily:      "Inter",
				FontSize:        14,
				FontWeight:      600,
				TokenProvenance: "typography.label",
			}},
		}},
	}
}

// --- building ---

func TestBuildIndexesProvenanceAcrossCategories(t *testing.T) {
	idx := Build([]*extract.ComponentRecord{buttonRecord()})

	assert.Equal(t, []string{"1:1"}, idx.LookupByPath("color.primary.500"))
	assert.Equal(t, []string{"1:1"}, idx.LookupByPath("spacing.md"))
	assert.Equal(t, []string{"1:1"}, idx.LookupByPath("shadow.card"))

	// Children are indexed under their own id.
	assert.Equal(t, []string{"1:2"}, idx.LookupByPath("typography.label"))
}

func TestBuildDeduplicatesIdsPerKey(t *testing.T) {
	rec := &extract.ComponentRecord{
		ID:   "1:1",
		Kind: extract.KindDefinition,
		Colors: []extract.ColorProperty{
			{Hex: "#ff0000", TokenProvenance: "color.danger"},
			{Hex: "#ff0000", TokenProvenance: "color.danger"},
		},
	}
	idx := Build([]*extract.ComponentRecord{rec})

	assert.Equal(t, []string{"1:1"}, idx.LookupByPath("color.danger"))
	assert.Equal(t, []string{"1:1"}, idx.LookupByValue("#ff0000"))
}

func TestBuildEmpty(t *testing.T) {
	idx := Build(nil)

	assert.Nil(t, idx.LookupByPath("color.primary.500"))
	assert.Nil(t, idx.LookupByValue("#3b82f6"))

	stats := idx.Stats()
	assert.Zero(t, stats.Paths)
	assert.Zero(t, stats.Values)
	assert.Zero(t, stats.Components)
}

func TestBuildStats(t *testing.T) {
	stats := Build([]*extract.ComponentRecord{buttonRecord()}).Stats()

	assert.Equal(t, 2, stats.Components, "parent and child")
	assert.Equal(t, 4, stats.Properties)
	assert.Equal(t, 4, stats.Paths)
	assert.Equal(t, 2, stats.Values, "one color, one spacing")
}

func TestBuildSkipsPropertiesWithoutProvenance(t *testing.T) {
	rec := &extract.ComponentRecord{
		ID:     "1:1",
		Kind:   extract.KindDefinition,
		Colors: []extract.ColorProperty{{Hex: "#ff0000"}},
	}
	idx := Build([]*extract.ComponentRecord{rec})

	assert.Zero(t, idx.Stats().Paths)
	// The literal value is still indexed.
	assert.Equal(t, []string{"1:1"}, idx.LookupByValue("#ff0000"))
}

// --- path lookup ---

func TestLookupByPathNormalizesQuery(t *testing.T) {
	idx := Build([]*extract.ComponentRecord{buttonRecord()})

	assert.Equal(t, []string{"1:1"}, idx.LookupByPath("COLOR.PRIMARY.500"))
	assert.Equal(t, []string{"1:1"}, idx.LookupByPath("{color.primary.500}"))
	assert.Equal(t, []string{"1:1"}, idx.LookupByPath(`"color.primary.500"`))
}

func TestLookupByPathSubstringFallback(t *testing.T) {
	idx := Build([]*extract.ComponentRecord{buttonRecord()})

	// Query shorter than the stored key.
	assert.Equal(t, []string{"1:1"}, idx.LookupByPath("primary.500"))

	// Query longer than the stored key.
	assert.Equal(t, []string{"1:1"}, idx.LookupByPath("spacing.md.compact"))
}

func TestLookupByPathExactMatchSkipsFallback(t *testing.T) {
	records := []*extract.ComponentRecord{
		{
			ID:   "1:1",
			Kind: extract.KindDefinition,
			Colors: []extract.ColorProperty{
				{Hex: "#111111", TokenProvenance: "color.primary"},
			},
		},
		{
			ID:   "2:1",
			Kind: extract.KindDefinition,
			Colors: []extract.ColorProperty{
				{Hex: "#222222", TokenProvenance: "color.primary.500"},
			},
		},
	}
	idx := Build(records)

	// "color.primary" has an exact key, so the substring superset
	// ("color.primary.500") must not bleed in.
	assert.Equal(t, []string{"1:1"}, idx.LookupByPath("color.primary"))
}

func TestLookupByPathFallbackOrderIsDeterministic(t *testing.T) {
	records := []*extract.ComponentRecord{
		{
			ID:   "9:1",
			Kind: extract.KindDefinition,
			Colors: []extract.ColorProperty{
				{Hex: "#222222", TokenProvenance: "color.accent.200"},
			},
		},
		{
			ID:   "3:1",
			Kind: extract.KindDefinition,
			Colors: []extract.ColorProperty{
				{Hex: "#111111", TokenProvenance: "color.accent.100"},
			},
		},
	}

	// Fallback scans stored keys in sorted order regardless of build order.
	for range 5 {
		idx := Build(records)
		assert.Equal(t, []string{"3:1", "9:1"}, idx.LookupByPath("color.accent"))
	}
}

func TestLookupByPathMiss(t *testing.T) {
	idx := Build([]*extract.ComponentRecord{buttonRecord()})

	assert.Empty(t, idx.LookupByPath("elevation.high"))
	assert.Nil(t, idx.LookupByPath(""))
}

// --- value lookup ---

func TestLookupByValueColorFormats(t *testing.T) {
	idx := Build([]*extract.ComponentRecord{buttonRecord()})

	assert.Equal(t, []string{"1:1"}, idx.LookupByValue("#3b82f6"))
	assert.Equal(t, []string{"1:1"}, idx.LookupByValue("#3B82F6"))
	assert.Equal(t, []string{"1:1"}, idx.LookupByValue("rgb(59, 130, 246)"))
}

func TestLookupByValueDimension(t *testing.T) {
	idx := Build([]*extract.ComponentRecord{buttonRecord()})

	assert.Equal(t, []string{"1:1"}, idx.LookupByValue("16px"))
	assert.Equal(t, []string{"1:1"}, idx.LookupByValue("16"), "bare numbers default to px")
	assert.Empty(t, idx.LookupByValue("17px"))
}

func TestLookupByValueIgnoresTypographyAndEffects(t *testing.T) {
	idx := Build([]*extract.ComponentRecord{buttonRecord()})

	// Only colors and spacing carry value keys.
	assert.Empty(t, idx.LookupByValue("14px"))
	assert.Empty(t, idx.LookupByValue("inter"))
}

// --- normalization helpers ---

func TestNormalizeValue(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"#3B82F6", "#3b82f6"},
		{"rgb(59,130,246)", "#3b82f6"},
		{"16px", "16px"},
		{"16 px", "16px"},
		{"16", "16px"},
		{"7.5rem", "7.5rem"},
		{"Inter", "inter"},
		{"  ", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeValue(tc.raw), "raw %q", tc.raw)
	}
}

func TestDimensionKeyTrimsTrailingZeros(t *testing.T) {
	assert.Equal(t, "16px", DimensionKey(16.0, "px"))
	assert.Equal(t, "7.5px", DimensionKey(7.5, "px"))
}

func TestIndexIsRebuiltWholesale(t *testing.T) {
	first := Build([]*extract.ComponentRecord{buttonRecord()})
	require.NotEmpty(t, first.LookupByPath("color.primary.500"))

	// A rebuild from a different collection shares nothing with the old one.
	second := Build(nil)
	assert.Empty(t, second.LookupByPath("color.primary.500"))
	assert.NotEmpty(t, first.LookupByPath("color.primary.500"), "old index still serves its own snapshot")
}
