package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tokenlens/tokenlens/pkg/token"
)

func TestDeclaredTypeDecidesCategory(t *testing.T) {
	cases := []struct {
		tokenType token.TokenType
		want      token.Category
	}{
		{token.TypeColor, token.CategoryColor},
		{token.TypeDimension, token.CategorySpacing},
		{token.TypeBorderRadius, token.CategorySpacing},
		{token.TypeBorderWidth, token.CategorySpacing},
		{token.TypeFontFamily, token.CategoryTypography},
		{token.TypeFontWeight, token.CategoryTypography},
		{token.TypeTypography, token.CategoryTypography},
		{token.TypeShadow, token.CategoryEffect},
	}
	for _, tc := range cases {
		tok := token.DesignToken{Path: []string{"x"}, Type: tc.tokenType}
		assert.Equal(t, []token.Category{tc.want}, candidateCategories(tok), "type %s", tc.tokenType)
	}
}

func TestInferSpacingFromPathKeywords(t *testing.T) {
	for _, path := range [][]string{
		{"spacing", "4"},
		{"space", "lg"},
		{"layout", "gap", "sm"},
		{"button", "padding"},
		{"radius", "md"},
		{"corner", "lg"},
		{"border", "width", "thin"},
		{"stroke-width", "hairline"},
	} {
		tok := token.DesignToken{Path: path, Type: token.TypeNumber, Value: 4.0}
		assert.Equal(t, []token.Category{token.CategorySpacing}, candidateCategories(tok), "path %v", path)
	}
}

func TestInferEffectFromShadowKeywords(t *testing.T) {
	for _, path := range [][]string{
		{"shadow", "card"},
		{"elevation", "2"},
	} {
		tok := token.DesignToken{Path: path, Type: "", Value: 8.0}
		assert.Equal(t, []token.Category{token.CategoryEffect}, candidateCategories(tok), "path %v", path)
	}
}

func TestInferColorFromValueShape(t *testing.T) {
	tok := token.DesignToken{Path: []string{"brand", "primary"}, Type: token.TypeString, Value: "#3b82f6"}
	assert.Equal(t, []token.Category{token.CategoryColor}, candidateCategories(tok))

	tok.Value = "rgb(59, 130, 246)"
	assert.Equal(t, []token.Category{token.CategoryColor}, candidateCategories(tok))
}

func TestInferSpacingFromDimensionValueShape(t *testing.T) {
	tok := token.DesignToken{Path: []string{"card", "offset"}, Type: "", Value: "16px"}
	assert.Equal(t, []token.Category{token.CategorySpacing}, candidateCategories(tok))
}

func TestInferCombinesPathAndValueEvidence(t *testing.T) {
	tok := token.DesignToken{Path: []string{"shadow", "tint"}, Type: "", Value: "#00000040"}
	assert.Equal(t, []token.Category{token.CategoryEffect, token.CategoryColor}, candidateCategories(tok))
}

func TestInferDeduplicates(t *testing.T) {
	// Path keywords and value shape both point at spacing.
	tok := token.DesignToken{Path: []string{"spacing", "4"}, Type: "", Value: "16px"}
	assert.Equal(t, []token.Category{token.CategorySpacing}, candidateCategories(tok))
}

func TestNoPlausibleCategory(t *testing.T) {
	tok := token.DesignToken{Path: []string{"motion", "duration", "fast"}, Type: token.TypeDuration, Value: "200ms"}
	assert.Empty(t, candidateCategories(tok))

	unknown := token.DesignToken{Path: []string{"brand", "voice"}, Type: token.TypeString, Value: "friendly"}
	assert.Empty(t, candidateCategories(unknown))
}
