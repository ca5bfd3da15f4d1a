package scene

// Node type tags used by the document format.
const (
	NodeDocument     = "DOCUMENT"
	NodeCanvas       = "CANVAS"
	NodeFrame        = "FRAME"
	NodeGroup        = "GROUP"
	NodeSection      = "SECTION"
	NodeComponent    = "COMPONENT"
	NodeComponentSet = "COMPONENT_SET"
	NodeInstance     = "INSTANCE"
	NodeText         = "TEXT"
	NodeRectangle    = "RECTANGLE"
	NodeVector       = "VECTOR"
	NodeBooleanOp    = "BOOLEAN_OPERATION"
	NodeStar         = "STAR"
	NodeLine         = "LINE"
	NodeEllipse      = "ELLIPSE"
	NodePolygon      = "REGULAR_POLYGON"
	NodeSlice        = "SLICE"
	NodeMedia        = "MEDIA"
)

// ColorValue is an RGBA color with float channels in [0,1], the form the
// document format stores paint and effect colors in.
type ColorValue struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

// Vector is a 2D offset.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an absolute bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Paint is one fill or stroke entry. Only solid paints carry a color;
// gradient and image paints leave Color nil.
type Paint struct {
	Type    string      `json:"type"`
	Visible *bool       `json:"visible,omitempty"`
	Opacity *float64    `json:"opacity,omitempty"`
	Color   *ColorValue `json:"color,omitempty"`
}

// IsVisible reports paint visibility; absent means visible.
func (p Paint) IsVisible() bool {
	return p.Visible == nil || *p.Visible
}

// PaintSolid is the paint type tag carrying a plain color.
const PaintSolid = "SOLID"

// TextStyle carries the text attributes of a text node.
type TextStyle struct {
	FontFamily    string  `json:"fontFamily,omitempty"`
	FontWeight    float64 `json:"fontWeight,omitempty"`
	FontSize      float64 `json:"fontSize,omitempty"`
	LineHeightPx  float64 `json:"lineHeightPx,omitempty"`
	LetterSpacing float64 `json:"letterSpacing,omitempty"`
}

// Effect type tags.
const (
	EffectDropShadow     = "DROP_SHADOW"
	EffectInnerShadow    = "INNER_SHADOW"
	EffectLayerBlur      = "LAYER_BLUR"
	EffectBackgroundBlur = "BACKGROUND_BLUR"
)

// Effect is one shadow or blur entry.
type Effect struct {
	Type    string      `json:"type"`
	Visible *bool       `json:"visible,omitempty"`
	Radius  float64     `json:"radius,omitempty"`
	Color   *ColorValue `json:"color,omitempty"`
	Offset  *Vector     `json:"offset,omitempty"`
	Spread  float64     `json:"spread,omitempty"`
}

// IsVisible reports effect visibility; absent means visible.
func (e Effect) IsVisible() bool {
	return e.Visible == nil || *e.Visible
}

// VariableRef names the value bound to a node property. Name is carried
// inline when the exporter resolved it; otherwise ID refers to the
// document-level variables table.
type VariableRef struct {
	Type string `json:"type,omitempty"`
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// Node is one scene-tree node. The tree is a strict ownership tree:
// Children are exclusively owned and never shared between parents.
type Node struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Visible  *bool   `json:"visible,omitempty"`
	Children []*Node `json:"children,omitempty"`

	// ComponentID names the definition an instance node was stamped
	// from. Empty on non-instance nodes.
	ComponentID string `json:"componentId,omitempty"`

	Fills   []Paint    `json:"fills,omitempty"`
	Strokes []Paint    `json:"strokes,omitempty"`
	Style   *TextStyle `json:"style,omitempty"`
	Effects []Effect   `json:"effects,omitempty"`

	AbsoluteBoundingBox  *Rect     `json:"absoluteBoundingBox,omitempty"`
	CornerRadius         *float64  `json:"cornerRadius,omitempty"`
	RectangleCornerRadii []float64 `json:"rectangleCornerRadii,omitempty"`
	StrokeWeight         *float64  `json:"strokeWeight,omitempty"`

	LayoutMode    string  `json:"layoutMode,omitempty"`
	PaddingLeft   float64 `json:"paddingLeft,omitempty"`
	PaddingRight  float64 `json:"paddingRight,omitempty"`
	PaddingTop    float64 `json:"paddingTop,omitempty"`
	PaddingBottom float64 `json:"paddingBottom,omitempty"`
	ItemSpacing   float64 `json:"itemSpacing,omitempty"`

	SharedPluginData map[string]map[string]string `json:"sharedPluginData,omitempty"`
	BoundVariables   map[string]VariableRef       `json:"boundVariables,omitempty"`
}

// IsVisible reports node visibility; the document format omits the field
// for visible nodes.
func (n *Node) IsVisible() bool {
	return n.Visible == nil || *n.Visible
}

// Width returns the bounding-box width, 0 when unknown.
func (n *Node) Width() float64 {
	if n.AbsoluteBoundingBox == nil {
		return 0
	}
	return n.AbsoluteBoundingBox.Width
}

// Height returns the bounding-box height, 0 when unknown.
func (n *Node) Height() float64 {
	if n.AbsoluteBoundingBox == nil {
		return 0
	}
	return n.AbsoluteBoundingBox.Height
}

// Annotations returns the node's provenance-namespace entries from the
// inline shared data, nil when absent.
func (n *Node) Annotations() map[string]string {
	if n.SharedPluginData == nil {
		return nil
	}
	return n.SharedPluginData[AnnotationNamespace]
}
