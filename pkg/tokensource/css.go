package tokensource

import (
	"regexp"
	"strings"
)

// cssDeclarationQuery captures every declaration together with the
// selector list of its rule. Matching is depth-independent, so rules
// nested in @media blocks are included.
const cssDeclarationQuery = `
(rule_set
  (selectors) @selector
  (block
    (declaration
      (property_name) @prop) @decl))
`

var cssVarPattern = regexp.MustCompile(`^var\(\s*--([A-Za-z0-9_-]+)\s*(?:,[^)]*)?\)$`)

// parseCSS extracts custom-property declarations from theme-scoped
// rules. The property name minus its -- prefix splits on - into the
// token path; a var() value becomes an alias to the referenced
// property.
func (l *Loader) parseCSS(data []byte) ([]rawToken, error) {
	tree, err := l.parsers.parse(data, grammarCSS)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		l.logger.Debug("stylesheet has parse errors, extracting what resolves")
	}

	q, err := l.parsers.query(grammarCSS)
	if err != nil {
		return nil, err
	}

	var out []rawToken
	for _, m := range runQuery(q, root, data) {
		sel, prop, decl := m["selector"], m["prop"], m["decl"]
		if sel == nil || prop == nil || decl == nil {
			continue
		}
		if !themeSelector(sel.Utf8Text(data)) {
			continue
		}
		name := prop.Utf8Text(data)
		if !strings.HasPrefix(name, "--") {
			continue
		}
		value := declarationValue(decl.Utf8Text(data))
		if value == "" {
			continue
		}
		if ref := cssVarPattern.FindStringSubmatch(value); ref != nil {
			value = "{" + strings.Join(cssPath(ref[1]), ".") + "}"
		}
		out = append(out, rawToken{
			path:  cssPath(strings.TrimPrefix(name, "--")),
			value: value,
		})
	}
	return out, nil
}

// themeSelector reports whether a selector list scopes design-token
// declarations: :root, html, or an explicit theme hook.
func themeSelector(sel string) bool {
	s := strings.ToLower(sel)
	return strings.Contains(s, ":root") ||
		strings.Contains(s, "html") ||
		strings.Contains(s, "theme") ||
		strings.Contains(s, "[data-")
}

// declarationValue slices the value text out of a declaration node's
// source, dropping the property name and trailing semicolon.
func declarationValue(decl string) string {
	_, value, ok := strings.Cut(decl, ":")
	if !ok {
		return ""
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), ";"))
}

func cssPath(name string) []string {
	var out []string
	for _, seg := range strings.Split(name, "-") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
