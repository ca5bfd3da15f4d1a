package extract

import (
	"context"
	"fmt"

	"github.com/tokenlens/tokenlens/pkg/scene"
	"github.com/tokenlens/tokenlens/pkg/token"
)

// documentUnit is the unit every document metric is expressed in.
const documentUnit = "px"

// sceneColor converts a [0,1]-float document color to 8-bit channels.
func sceneColor(c scene.ColorValue) token.Color {
	return token.Color{
		R: int(c.R*255 + 0.5),
		G: int(c.G*255 + 0.5),
		B: int(c.B*255 + 0.5),
		A: c.A,
	}
}

func extractColors(ctx context.Context, prov *provenanceReader, n *scene.Node) []ColorProperty {
	var out []ColorProperty
	for i, paint := range n.Fills {
		if !paint.IsVisible() || paint.Type != scene.PaintSolid || paint.Color == nil {
			continue
		}
		c := sceneColor(*paint.Color)
		out = append(out, ColorProperty{
			Role:            RoleFill,
			Color:           c,
			Hex:             c.Hex(),
			Opacity:         paint.Opacity,
			TokenProvenance: prov.lookup(ctx, n.ID, fmt.Sprintf("%s%d", provFillPrefix, i), "fills"),
		})
	}
	for i, paint := range n.Strokes {
		if !paint.IsVisible() || paint.Type != scene.PaintSolid || paint.Color == nil {
			continue
		}
		c := sceneColor(*paint.Color)
		out = append(out, ColorProperty{
			Role:            RoleStroke,
			Color:           c,
			Hex:             c.Hex(),
			Opacity:         paint.Opacity,
			TokenProvenance: prov.lookup(ctx, n.ID, fmt.Sprintf("%s%d", provStrokePrefix, i), "strokes"),
		})
	}
	return out
}

func extractTypography(ctx context.Context, prov *provenanceReader, n *scene.Node) []TypographyProperty {
	if n.Type != scene.NodeText || n.Style == nil {
		return nil
	}
	s := n.Style
	weight, ok := token.NormalizeFontWeight(s.FontWeight)
	if !ok {
		weight = s.FontWeight
	}
	return []TypographyProperty{{
		FontFamily:      s.FontFamily,
		FontSize:        s.FontSize,
		FontWeight:      weight,
		LineHeight:      s.LineHeightPx,
		LetterSpacing:   s.LetterSpacing,
		TokenProvenance: prov.lookup(ctx, n.ID, provFontFamily, "fontFamily"),
	}}
}

// sizedTypes are the node types whose width/height are design decisions
// worth matching against dimension tokens. Reading sizes off every text
// run and shape would drown the spacing lists and defeat dead-branch
// dropping.
var sizedTypes = map[string]bool{
	scene.NodeFrame:        true,
	scene.NodeGroup:        true,
	scene.NodeSection:      true,
	scene.NodeComponent:    true,
	scene.NodeComponentSet: true,
	scene.NodeInstance:     true,
}

func extractSpacing(ctx context.Context, prov *provenanceReader, n *scene.Node) []SpacingProperty {
	var out []SpacingProperty
	add := func(kind SpacingKind, value float64, key, boundProperty string) {
		out = append(out, SpacingProperty{
			Kind:            kind,
			Value:           value,
			Unit:            documentUnit,
			TokenProvenance: prov.lookup(ctx, n.ID, key, boundProperty),
		})
	}

	if sizedTypes[n.Type] {
		if w := n.Width(); w > 0 {
			add(SpacingWidth, w, provWidth, "width")
		}
		if h := n.Height(); h > 0 {
			add(SpacingHeight, h, provHeight, "height")
		}
	}

	// One padding entry per distinct non-zero side value.
	seen := map[float64]bool{}
	for _, side := range []float64{n.PaddingLeft, n.PaddingRight, n.PaddingTop, n.PaddingBottom} {
		if side > 0 && !seen[side] {
			seen[side] = true
			add(SpacingPadding, side, provPadding, "paddingLeft")
		}
	}

	if n.LayoutMode != "" && n.ItemSpacing > 0 {
		add(SpacingGap, n.ItemSpacing, provGap, "itemSpacing")
	}

	if n.CornerRadius != nil && *n.CornerRadius > 0 {
		add(SpacingBorderRadius, *n.CornerRadius, provBorderRadius, "cornerRadius")
	} else if len(n.RectangleCornerRadii) > 0 {
		radii := map[float64]bool{}
		for _, r := range n.RectangleCornerRadii {
			if r > 0 && !radii[r] {
				radii[r] = true
				add(SpacingBorderRadius, r, provBorderRadius, "cornerRadius")
			}
		}
	}

	if n.StrokeWeight != nil && *n.StrokeWeight > 0 && hasVisibleStroke(n) {
		add(SpacingBorderWidth, *n.StrokeWeight, provBorderWidth, "strokeWeight")
	}
	return out
}

func hasVisibleStroke(n *scene.Node) bool {
	for _, s := range n.Strokes {
		if s.IsVisible() {
			return true
		}
	}
	return false
}

var effectKinds = map[string]EffectKind{
	scene.EffectDropShadow:     EffectDropShadow,
	scene.EffectInnerShadow:    EffectInnerShadow,
	scene.EffectLayerBlur:      EffectLayerBlur,
	scene.EffectBackgroundBlur: EffectBackgroundBlur,
}

func extractEffects(ctx context.Context, prov *provenanceReader, n *scene.Node) []EffectProperty {
	var out []EffectProperty
	for i, eff := range n.Effects {
		kind, ok := effectKinds[eff.Type]
		if !ok || !eff.IsVisible() {
			continue
		}
		p := EffectProperty{
			Kind:            kind,
			Radius:          eff.Radius,
			TokenProvenance: prov.lookup(ctx, n.ID, fmt.Sprintf("%s%d", provEffectPrefix, i), "effects"),
		}
		if eff.Color != nil {
			c := sceneColor(*eff.Color)
			p.Color = &c
		}
		if eff.Offset != nil {
			p.Offset = &Offset{X: eff.Offset.X, Y: eff.Offset.Y}
		}
		if eff.Spread != 0 {
			spread := eff.Spread
			p.Spread = &spread
		}
		out = append(out, p)
	}
	return out
}

// fillProperties reads the property families the scope's category needs
// onto a record. Reading nothing for a gated-out family is the point:
// a single-category scan skips up to three quarters of the attribute
// reads per node.
func fillProperties(ctx context.Context, prov *provenanceReader, n *scene.Node, category token.Category, rec *ComponentRecord) {
	if needsColors(category) {
		rec.Colors = extractColors(ctx, prov, n)
	}
	if needsTypography(category) {
		rec.Typography = extractTypography(ctx, prov, n)
	}
	if needsSpacing(category) {
		rec.Spacing = extractSpacing(ctx, prov, n)
	}
	if needsEffects(category) {
		rec.Effects = extractEffects(ctx, prov, n)
	}
}
