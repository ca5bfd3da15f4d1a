package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- ParseColor ---

func TestParseColor_Hex(t *testing.T) {
	c, ok := ParseColor("#3B82F6")
	require.True(t, ok)
	assert.Equal(t, Color{R: 59, G: 130, B: 246, A: 1.0}, c)
}

func TestParseColor_HexShorthand(t *testing.T) {
	c, ok := ParseColor("#fff")
	require.True(t, ok)
	assert.Equal(t, Color{R: 255, G: 255, B: 255, A: 1.0}, c)
}

func TestParseColor_HexWithAlpha(t *testing.T) {
	c, ok := ParseColor("#3b82f680")
	require.True(t, ok)
	assert.Equal(t, 59, c.R)
	assert.InDelta(t, 0.5, c.A, 0.01)
}

func TestParseColor_RGBFunctions(t *testing.T) {
	c, ok := ParseColor("rgb(59, 130, 246)")
	require.True(t, ok)
	assert.Equal(t, Color{R: 59, G: 130, B: 246, A: 1.0}, c)

	c, ok = ParseColor("rgba(59, 130, 246, 0.5)")
	require.True(t, ok)
	assert.InDelta(t, 0.5, c.A, 0.001)
}

func TestParseColor_Rejects(t *testing.T) {
	for _, s := range []string{"", "16px", "#12", "#12345", "blue", "rgb(a,b,c)"} {
		_, ok := ParseColor(s)
		assert.False(t, ok, "input %q", s)
	}
}

func TestColorHex_Format(t *testing.T) {
	c := Color{R: 59, G: 130, B: 246, A: 1.0}
	assert.Equal(t, "#3b82f6", c.Hex())
}

// --- NormalizeHex ---

func TestNormalizeHex(t *testing.T) {
	assert.Equal(t, "#3b82f6", NormalizeHex("#3B82F6"))
	assert.Equal(t, "#ffffff", NormalizeHex("#FFF"))
	assert.Equal(t, "16px", NormalizeHex("16PX"))
}

// --- ParseDimension ---

func TestParseDimension(t *testing.T) {
	tests := []struct {
		in       string
		value    float64
		unit     string
		parsesOK bool
	}{
		{"16px", 16, "px", true},
		{"0.5rem", 0.5, "rem", true},
		{"12", 12, "", true},
		{"-4px", -4, "px", true},
		{"100%", 100, "%", true},
		{"16 px", 16, "px", true},
		{"200ms", 200, "ms", true},
		{"0.3s", 0.3, "s", true},
		{"#fff", 0, "", false},
		{"auto", 0, "", false},
	}

	for _, tt := range tests {
		v, u, ok := ParseDimension(tt.in)
		assert.Equal(t, tt.parsesOK, ok, "input %q", tt.in)
		if tt.parsesOK {
			assert.InDelta(t, tt.value, v, 0.0001, "input %q", tt.in)
			assert.Equal(t, tt.unit, u, "input %q", tt.in)
		}
	}
}

// --- font helpers ---

func TestNormalizeFontWeight(t *testing.T) {
	w, ok := NormalizeFontWeight("bold")
	require.True(t, ok)
	assert.Equal(t, 700.0, w)

	w, ok = NormalizeFontWeight("Semi-Bold")
	require.True(t, ok)
	assert.Equal(t, 600.0, w)

	w, ok = NormalizeFontWeight(400.0)
	require.True(t, ok)
	assert.Equal(t, 400.0, w)

	w, ok = NormalizeFontWeight("550")
	require.True(t, ok)
	assert.Equal(t, 550.0, w)

	_, ok = NormalizeFontWeight("chunky")
	assert.False(t, ok)
}

func TestNormalizeFontFamily(t *testing.T) {
	assert.Equal(t, "inter display", NormalizeFontFamily("  Inter   Display "))
}
