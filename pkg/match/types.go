package match

import (
	"fmt"
	"strings"

	"github.com/tokenlens/tokenlens/pkg/extract"
	"github.com/tokenlens/tokenlens/pkg/token"
)

// Confidence levels. Provenance always outranks value: an exact
// reference is certain, a partial reference nearly so, and a raw value
// collision is only circumstantial.
const (
	confidenceExactRef   = 1.0
	confidencePartialRef = 0.85
	confidenceValue      = 0.7
	confidenceNameField  = 0.9
)

// MatchDetail is one scored property hit. PropertyLabel carries the
// child-name chain when the property sits on a descendant of the
// matched component.
type MatchDetail struct {
	PropertyLabel string         `json:"property_label"`
	Category      token.Category `json:"category"`
	MatchedValue  string         `json:"matched_value"`
	TokenValue    string         `json:"token_value"`
	Confidence    float64        `json:"confidence"`
}

// ComponentMatch is one component with every detail that matched, from
// the component itself or any descendant. Confidence is the arithmetic
// mean of the detail confidences.
type ComponentMatch struct {
	Component  *extract.ComponentRecord `json:"component"`
	Matches    []MatchDetail            `json:"matches"`
	Confidence float64                  `json:"confidence"`
}

// tokenRefSuffix marks details produced by the provenance phase.
const tokenRefSuffix = " (token ref)"

func colorLabel(role extract.ColorRole) string {
	return string(role) + " color"
}

func spacingLabel(kind extract.SpacingKind) string {
	switch kind {
	case extract.SpacingBorderRadius:
		return "border radius"
	case extract.SpacingBorderWidth:
		return "border width"
	default:
		return string(kind)
	}
}

func effectLabel(kind extract.EffectKind) string {
	switch kind {
	case extract.EffectDropShadow:
		return "drop shadow"
	case extract.EffectInnerShadow:
		return "inner shadow"
	case extract.EffectLayerBlur:
		return "layer blur"
	case extract.EffectBackgroundBlur:
		return "background blur"
	default:
		return string(kind)
	}
}

// childPrefix extends the name chain for a child record. Unnamed
// children keep the parent's prefix.
func childPrefix(prefix, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return prefix
	}
	if prefix == "" {
		return name
	}
	return prefix + " > " + name
}

func prefixed(prefix, label string) string {
	if prefix == "" {
		return label
	}
	return prefix + " > " + label
}

func meanConfidence(details []MatchDetail) float64 {
	if len(details) == 0 {
		return 0
	}
	sum := 0.0
	for _, d := range details {
		sum += d.Confidence
	}
	return sum / float64(len(details))
}

func formatNumber(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
