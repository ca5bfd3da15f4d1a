package token

import "strings"

// Raw provenance annotations arrive as whatever the authoring tool
// wrote: bare paths, alias references in braces, quoted strings,
// Sass/Less names with a leading sigil.
var provenanceCleaner = strings.NewReplacer(`"`, "", `'`, "", "{", "", "}", "")

// NormalizeProvenance reduces a raw provenance string to the canonical
// lower-case dot-delimited form used for comparison and index keys.
// Quotes and alias braces are stripped, one leading $ or @ sigil is
// dropped. An empty result means the annotation carried no usable path.
func NormalizeProvenance(raw string) string {
	s := strings.TrimSpace(provenanceCleaner.Replace(strings.TrimSpace(raw)))
	if len(s) > 0 && (s[0] == '$' || s[0] == '@') {
		s = s[1:]
	}
	return strings.ToLower(strings.TrimSpace(s))
}
