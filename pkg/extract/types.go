// Package extract walks a design document's scene tree and produces
// typed ComponentRecord trees with token provenance, under the resource
// discipline large documents demand: type-filtered pruning, per-page
// sampling, category gating, batched annotation reads and cooperative
// yielding between fixed-size batches.
package extract

import (
	"fmt"

	"github.com/tokenlens/tokenlens/pkg/token"
)

// RecordKind classifies a scanned node.
type RecordKind string

const (
	KindDefinition RecordKind = "definition"
	KindVariantSet RecordKind = "variantSet"
	KindInstance   RecordKind = "instance"
	KindContainer  RecordKind = "container"
)

// ComponentRecord is one scanned node of interest. Children are
// exclusively owned, forming a strict tree; GroupKey is a weak string
// back-reference to the variant set or definition the record groups
// under for display, never used for ownership.
//
// Records are created fresh on every extraction pass, never mutated
// afterwards, and discarded wholesale when a newer scan supersedes them.
type ComponentRecord struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Kind     RecordKind `json:"kind"`
	GroupKey string     `json:"group_key,omitempty"`
	Page     string     `json:"page"`

	Colors     []ColorProperty      `json:"colors,omitempty"`
	Typography []TypographyProperty `json:"typography,omitempty"`
	Spacing    []SpacingProperty    `json:"spacing,omitempty"`
	Effects    []EffectProperty     `json:"effects,omitempty"`

	Children []*ComponentRecord `json:"children,omitempty"`
}

// HasProperties reports whether any property list is non-empty.
func (r *ComponentRecord) HasProperties() bool {
	return len(r.Colors) > 0 || len(r.Typography) > 0 || len(r.Spacing) > 0 || len(r.Effects) > 0
}

// ColorRole says which paint list a color came from.
type ColorRole string

const (
	RoleFill   ColorRole = "fill"
	RoleStroke ColorRole = "stroke"
)

// ColorProperty is one solid paint read off a node.
type ColorProperty struct {
	Role            ColorRole   `json:"role"`
	Color           token.Color `json:"color"`
	Hex             string      `json:"hex"`
	Opacity         *float64    `json:"opacity,omitempty"`
	TokenProvenance string      `json:"token_provenance,omitempty"`
}

// TypographyProperty is the text style read off a text node. FontWeight
// is on the 100-900 scale; zero LineHeight/LetterSpacing mean absent.
type TypographyProperty struct {
	FontFamily      string  `json:"font_family"`
	FontSize        float64 `json:"font_size"`
	FontWeight      float64 `json:"font_weight"`
	LineHeight      float64 `json:"line_height,omitempty"`
	LetterSpacing   float64 `json:"letter_spacing,omitempty"`
	TokenProvenance string  `json:"token_provenance,omitempty"`
}

// SpacingKind says which metric a spacing property measures.
type SpacingKind string

const (
	SpacingWidth        SpacingKind = "width"
	SpacingHeight       SpacingKind = "height"
	SpacingPadding      SpacingKind = "padding"
	SpacingGap          SpacingKind = "gap"
	SpacingBorderRadius SpacingKind = "borderRadius"
	SpacingBorderWidth  SpacingKind = "borderWidth"
)

// SpacingProperty is one layout metric read off a node.
type SpacingProperty struct {
	Kind            SpacingKind `json:"kind"`
	Value           float64     `json:"value"`
	Unit            string      `json:"unit"`
	TokenProvenance string      `json:"token_provenance,omitempty"`
}

// EffectKind classifies an effect entry.
type EffectKind string

const (
	EffectDropShadow     EffectKind = "dropShadow"
	EffectInnerShadow    EffectKind = "innerShadow"
	EffectLayerBlur      EffectKind = "layerBlur"
	EffectBackgroundBlur EffectKind = "backgroundBlur"
)

// Offset is a shadow's 2D offset.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// EffectProperty is one shadow or blur read off a node.
type EffectProperty struct {
	Kind            EffectKind   `json:"kind"`
	Radius          float64      `json:"radius"`
	Color           *token.Color `json:"color,omitempty"`
	Offset          *Offset      `json:"offset,omitempty"`
	Spread          *float64     `json:"spread,omitempty"`
	TokenProvenance string       `json:"token_provenance,omitempty"`
}

// NodeError records one per-node extraction failure. Failures never
// abort a scan; they are collected into the Report.
type NodeError struct {
	ComponentID   string `json:"component_id"`
	ComponentName string `json:"component_name"`
	Message       string `json:"message"`
}

func (e NodeError) Error() string {
	return fmt.Sprintf("extract %s (%s): %s", e.ComponentName, e.ComponentID, e.Message)
}

// Report summarizes one extraction pass.
type Report struct {
	PagesScanned    int         `json:"pages_scanned"`
	NodesScanned    int         `json:"nodes_scanned"`
	ComponentsFound int         `json:"components_found"`
	CappedPages     int         `json:"capped_pages"`
	Errors          []NodeError `json:"errors,omitempty"`
	DurationMs      int64       `json:"duration_ms"`
}

// Phase labels the pipeline stage a progress update belongs to.
type Phase string

const (
	PhaseLoading  Phase = "loading"
	PhaseScanning Phase = "scanning"
	PhaseMatching Phase = "matching"
	PhaseComplete Phase = "complete"
)

// Progress is delivered to the progress sink at page and batch
// boundaries, never mid-node.
type Progress struct {
	CurrentPage     int    `json:"current_page"`
	TotalPages      int    `json:"total_pages"`
	CurrentPageName string `json:"current_page_name"`
	ComponentsFound int    `json:"components_found"`
	NodesScanned    int    `json:"nodes_scanned"`
	Phase           Phase  `json:"phase"`
}

// ProgressFunc receives progress updates. Implementations must be fast;
// they run on the scanning goroutine.
type ProgressFunc func(Progress)
