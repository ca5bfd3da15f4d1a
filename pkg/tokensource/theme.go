package tokensource

import (
	"strconv"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"
)

// themeQueryJS captures exported object literals: named const/var
// exports and default exports.
const themeQueryJS = `
(export_statement
  declaration: (lexical_declaration
    (variable_declarator
      name: (identifier) @export.name
      value: (object) @export.object)))

(export_statement
  declaration: (variable_declaration
    (variable_declarator
      name: (identifier) @export.name
      value: (object) @export.object)))

(export_statement
  value: (object) @export.object)
`

// themeQueryTS adds the TypeScript-only wrappers theme files lean on,
// "as const" above all.
const themeQueryTS = themeQueryJS + `
(export_statement
  declaration: (lexical_declaration
    (variable_declarator
      name: (identifier) @export.name
      value: (as_expression (object) @export.object))))

(export_statement
  declaration: (lexical_declaration
    (variable_declarator
      name: (identifier) @export.name
      value: (satisfies_expression (object) @export.object))))

(export_statement
  value: (as_expression (object) @export.object))
`

// parseTheme extracts dot-path tokens from the exported object literals
// of a JS/TS theme module. Named exports contribute their binding name
// as the root path segment; default exports contribute none. Property
// references such as palette.blue become aliases resolved against the
// module's other tokens.
func (l *Loader) parseTheme(data []byte, path string) ([]rawToken, error) {
	g := grammarFor(path)
	tree, err := l.parsers.parse(data, g)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		l.logger.Debug("theme module has parse errors, extracting what resolves", "path", path)
	}

	q, err := l.parsers.query(g)
	if err != nil {
		return nil, err
	}

	var out []rawToken
	for _, m := range runQuery(q, root, data) {
		obj := m["export.object"]
		if obj == nil {
			continue
		}
		var base []string
		if name := m["export.name"]; name != nil {
			base = []string{name.Utf8Text(data)}
		}
		walkObjectLiteral(obj, data, base, &out)
	}
	return out, nil
}

func walkObjectLiteral(node *ts.Node, src []byte, path []string, out *[]rawToken) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		pair := node.NamedChild(i)
		if pair == nil || pair.GrammarName() != "pair" {
			continue
		}
		keyNode := pair.ChildByFieldName("key")
		valNode := pair.ChildByFieldName("value")
		if keyNode == nil || valNode == nil {
			continue
		}
		key := literalKey(keyNode, src)
		if key == "" {
			continue
		}

		childPath := append(append([]string{}, path...), key)
		valNode = unwrapValue(valNode)

		switch valNode.GrammarName() {
		case "object":
			walkObjectLiteral(valNode, src, childPath, out)
		case "string":
			*out = append(*out, rawToken{path: childPath, value: stringLiteral(valNode, src)})
		case "template_string":
			text := valNode.Utf8Text(src)
			if strings.Contains(text, "${") {
				continue
			}
			*out = append(*out, rawToken{path: childPath, value: strings.Trim(text, "`")})
		case "number", "unary_expression":
			if f, err := strconv.ParseFloat(valNode.Utf8Text(src), 64); err == nil {
				*out = append(*out, rawToken{path: childPath, value: f})
			}
		case "true":
			*out = append(*out, rawToken{path: childPath, value: true})
		case "false":
			*out = append(*out, rawToken{path: childPath, value: false})
		case "identifier", "member_expression", "subscript_expression":
			if ref := memberRef(valNode.Utf8Text(src)); ref != "" {
				*out = append(*out, rawToken{path: childPath, value: "{" + ref + "}"})
			}
		case "array":
			if items := arrayValues(valNode, src); len(items) > 0 {
				*out = append(*out, rawToken{path: childPath, value: items})
			}
		}
	}
}

// literalKey reads a pair's key. Computed keys are skipped.
func literalKey(node *ts.Node, src []byte) string {
	switch node.GrammarName() {
	case "property_identifier", "identifier", "number":
		return node.Utf8Text(src)
	case "string":
		return stringLiteral(node, src)
	default:
		return ""
	}
}

// stringLiteral returns a string node's content without quotes.
func stringLiteral(node *ts.Node, src []byte) string {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if c := node.NamedChild(i); c != nil && c.GrammarName() == "string_fragment" {
			return c.Utf8Text(src)
		}
	}
	text := node.Utf8Text(src)
	if len(text) >= 2 {
		return text[1 : len(text)-1]
	}
	return ""
}

// unwrapValue strips the expression wrappers TypeScript puts between a
// pair and its object literal.
func unwrapValue(node *ts.Node) *ts.Node {
	for {
		switch node.GrammarName() {
		case "as_expression", "satisfies_expression", "non_null_expression", "parenthesized_expression":
			child := node.NamedChild(0)
			if child == nil {
				return node
			}
			node = child
		default:
			return node
		}
	}
}

// memberRef normalizes a property reference like palette.blue[500] into
// the dot path palette.blue.500. Anything that is not a plain chain is
// rejected.
func memberRef(expr string) string {
	expr = strings.ReplaceAll(expr, "[", ".")
	expr = strings.ReplaceAll(expr, "]", "")
	expr = strings.ReplaceAll(expr, `"`, "")
	expr = strings.ReplaceAll(expr, "'", "")
	expr = strings.TrimSpace(expr)
	if expr == "" || strings.ContainsAny(expr, "()?! \t\n") {
		return ""
	}
	return strings.Trim(expr, ".")
}

// arrayValues collects the scalar elements of an array literal. Font
// stacks are the common case; nested structures are skipped.
func arrayValues(node *ts.Node, src []byte) []any {
	var out []any
	for i := uint(0); i < node.NamedChildCount(); i++ {
		c := node.NamedChild(i)
		if c == nil {
			continue
		}
		switch c.GrammarName() {
		case "string":
			out = append(out, stringLiteral(c, src))
		case "number":
			if f, err := strconv.ParseFloat(c.Utf8Text(src), 64); err == nil {
				out = append(out, f)
			}
		}
	}
	return out
}
