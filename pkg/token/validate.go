package token

import "fmt"

// Severity classifies a validation finding.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue records a token whose path or value fails a shape check. Issues
// are advisory: a token with issues still participates in matching, its
// value phase simply produces nothing when the value is unusable.
type Issue struct {
	TokenPath string   `json:"token_path"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.TokenPath, i.Message)
}

// Validate runs the category-specific shape checks for a single token.
// An empty result means the token is well-formed.
func Validate(t DesignToken) []Issue {
	var issues []Issue

	if len(t.Path) == 0 {
		return []Issue{{TokenPath: "(empty)", Severity: SeverityError, Message: "token has an empty path"}}
	}
	for _, seg := range t.Path {
		if seg == "" {
			issues = append(issues, Issue{
				TokenPath: t.Name(),
				Severity:  SeverityError,
				Message:   "token path contains an empty segment",
			})
			break
		}
	}

	if t.Value == nil {
		issues = append(issues, Issue{
			TokenPath: t.Name(),
			Severity:  SeverityWarning,
			Message:   "token has no value; only provenance matching will apply",
		})
		return issues
	}

	if issue, ok := checkValueShape(t); !ok {
		issues = append(issues, issue)
	}
	return issues
}

// ValidateAll validates every token in order and concatenates findings.
func ValidateAll(tokens []DesignToken) []Issue {
	var issues []Issue
	for _, t := range tokens {
		issues = append(issues, Validate(t)...)
	}
	return issues
}

func checkValueShape(t DesignToken) (Issue, bool) {
	warn := func(format string, args ...any) (Issue, bool) {
		return Issue{
			TokenPath: t.Name(),
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf(format, args...),
		}, false
	}

	switch t.Type {
	case TypeColor:
		s, isStr := t.Value.(string)
		if !isStr {
			return warn("color value is %T, expected a color string", t.Value)
		}
		if !LooksLikeColor(s) {
			return warn("color value %q is not a parseable hex or rgb() color", s)
		}

	case TypeDimension, TypeBorderRadius, TypeBorderWidth:
		switch v := t.Value.(type) {
		case float64, int:
		case string:
			if _, _, ok := ParseDimension(v); !ok {
				return warn("dimension value %q is not numeric-with-unit", v)
			}
		default:
			return warn("dimension value is %T, expected number or numeric string", t.Value)
		}

	case TypeFontWeight:
		if _, ok := NormalizeFontWeight(t.Value); !ok {
			return warn("font weight value %v does not map to the 100-900 scale", t.Value)
		}

	case TypeFontFamily, TypeString:
		if _, isStr := t.Value.(string); !isStr {
			return warn("value is %T, expected string", t.Value)
		}

	case TypeTypography:
		switch t.Value.(type) {
		case TypographyValue, *TypographyValue:
		default:
			return warn("typography value is %T, expected a typography composite", t.Value)
		}

	case TypeShadow:
		switch t.Value.(type) {
		case ShadowValue, *ShadowValue:
		default:
			return warn("shadow value is %T, expected a shadow composite", t.Value)
		}

	case TypeBorder:
		switch t.Value.(type) {
		case BorderValue, *BorderValue:
		default:
			return warn("border value is %T, expected a border composite", t.Value)
		}

	case TypeNumber, TypeDuration:
		switch v := t.Value.(type) {
		case float64, int:
		case string:
			if _, _, ok := ParseDimension(v); !ok {
				return warn("value %q is not numeric", v)
			}
		default:
			return warn("value is %T, expected number", t.Value)
		}

	case TypeBoolean:
		if _, isBool := t.Value.(bool); !isBool {
			return warn("value is %T, expected bool", t.Value)
		}
	}

	return Issue{}, true
}
