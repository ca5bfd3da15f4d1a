package tokensource

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tokenlens/tokenlens/pkg/token"
)

// rawToken is a parsed-but-unresolved token. Its value tree is format
// independent: string, float64, bool, []any, or map[string]any, where
// strings of the form {dot.path} are alias references. Each parser
// normalizes its own reference syntax into that canonical form.
type rawToken struct {
	path        []string
	typ         token.TokenType // empty means inherit from the alias target or infer
	value       any
	description string
}

var aliasPattern = regexp.MustCompile(`^\{([^{}]+)\}$`)

func aliasRef(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	m := aliasPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	return m[1], true
}

func refKey(ref string) string {
	segs := strings.Split(ref, ".")
	for i, s := range segs {
		segs[i] = strings.TrimSpace(s)
	}
	return strings.ToLower(strings.Join(segs, "."))
}

// resolved is the memoized outcome of resolving one raw token.
type resolved struct {
	value   any
	typ     token.TokenType
	display string
	aliases [][]string
	fail    *UnresolvedAliasError
}

// resolver substitutes alias references within one source file. Aliases
// are file-local: a reference targets another token of the same file,
// before any source prefix is applied. byKey is last-wins, so a later
// redefinition of a path (a dark-theme override, say) is what references
// resolve to; the memo is keyed by token identity because duplicated
// paths still resolve independently.
type resolver struct {
	byKey   map[string]*rawToken
	memo    map[*rawToken]*resolved
	markers []string
	file    string
}

// resolve folds group markers, substitutes aliases, coerces values into
// the shapes the token model declares, and applies the source prefix.
// Tokens whose aliases cannot be resolved are dropped and reported.
func resolve(raw []rawToken, src Source, markers []string) ([]token.DesignToken, []UnresolvedAliasError) {
	r := &resolver{
		byKey:   make(map[string]*rawToken, len(raw)),
		memo:    make(map[*rawToken]*resolved, len(raw)),
		markers: markers,
		file:    src.Path,
	}

	for i := range raw {
		raw[i].path = foldMarkers(raw[i].path, markers)
		if len(raw[i].path) == 0 {
			continue
		}
		r.byKey[pathKey(raw[i].path)] = &raw[i]
	}

	prefix := splitPrefix(src.Prefix)
	var tokens []token.DesignToken
	var unresolved []UnresolvedAliasError
	for i := range raw {
		rt := &raw[i]
		if len(rt.path) == 0 {
			continue
		}
		res := r.resolveToken(rt, map[string]bool{pathKey(rt.path): true})
		if res.fail != nil {
			unresolved = append(unresolved, *res.fail)
			continue
		}
		tokens = append(tokens, token.DesignToken{
			Path:        append(append([]string{}, prefix...), rt.path...),
			Type:        res.typ,
			Value:       res.value,
			RawValue:    res.display,
			Description: rt.description,
			Aliases:     res.aliases,
			Source:      src.Path,
		})
	}
	return tokens, unresolved
}

// resolveToken resolves one token's value tree. visiting carries the
// path keys of the current reference chain for cycle detection.
func (r *resolver) resolveToken(rt *rawToken, visiting map[string]bool) *resolved {
	if memo, ok := r.memo[rt]; ok {
		return memo
	}

	res := &resolved{typ: rt.typ}

	if ref, ok := aliasRef(rt.value); ok {
		target := r.follow(rt, ref, visiting, res)
		if res.fail == nil && target != nil {
			res.value = target.value
			res.display = target.display
			if res.typ == "" {
				res.typ = target.typ
			}
		}
	} else {
		res.value, res.display = r.resolveTree(rt, rt.value, visiting, res)
	}

	if res.fail == nil {
		if res.typ == "" {
			res.typ = inferType(rt.path, res.display, res.value)
		}
		res.value = coerceValue(res.typ, res.value)
	}

	r.memo[rt] = res
	return res
}

// follow resolves one alias hop and appends the chain to res.aliases,
// origin first.
func (r *resolver) follow(rt *rawToken, ref string, visiting map[string]bool, res *resolved) *resolved {
	refText := "{" + ref + "}"
	key := refKey(ref)

	target, ok := r.byKey[key]
	if !ok {
		res.fail = &UnresolvedAliasError{TokenPath: rt.path, Ref: refText, File: r.file, Reason: "target not found"}
		return nil
	}
	if visiting[key] {
		res.fail = &UnresolvedAliasError{TokenPath: rt.path, Ref: refText, File: r.file, Reason: "alias cycle"}
		return nil
	}
	visiting[key] = true
	resolvedTarget := r.resolveToken(target, visiting)
	delete(visiting, key)

	if resolvedTarget.fail != nil {
		res.fail = &UnresolvedAliasError{TokenPath: rt.path, Ref: refText, File: r.file, Reason: "references unresolved alias"}
		return nil
	}
	res.aliases = append(append(res.aliases, resolvedTarget.aliases...), target.path)
	return resolvedTarget
}

// resolveTree substitutes full-string aliases inside composite values.
// Strings that merely contain braces are left verbatim.
func (r *resolver) resolveTree(rt *rawToken, v any, visiting map[string]bool, res *resolved) (any, string) {
	switch tv := v.(type) {
	case string:
		if ref, ok := aliasRef(tv); ok {
			target := r.follow(rt, ref, visiting, res)
			if res.fail != nil || target == nil {
				return nil, ""
			}
			return target.value, target.display
		}
		return tv, tv
	case float64:
		return tv, strconv.FormatFloat(tv, 'f', -1, 64)
	case bool:
		return tv, strconv.FormatBool(tv)
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, field := range tv {
			rv, _ := r.resolveTree(rt, field, visiting, res)
			if res.fail != nil {
				return nil, ""
			}
			out[k] = rv
		}
		return out, ""
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			rv, _ := r.resolveTree(rt, item, visiting, res)
			if res.fail != nil {
				return nil, ""
			}
			out[i] = rv
		}
		return out, ""
	default:
		return tv, ""
	}
}

// foldMarkers drops a trailing group-marker segment so color.primary._
// names the color.primary group itself.
func foldMarkers(path []string, markers []string) []string {
	if len(path) < 2 {
		return path
	}
	leaf := path[len(path)-1]
	for _, m := range markers {
		if leaf == m {
			return path[:len(path)-1]
		}
	}
	return path
}

func pathKey(path []string) string {
	return strings.ToLower(strings.Join(path, "."))
}

func splitPrefix(prefix string) []string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil
	}
	return strings.Split(prefix, ".")
}

// coerceValue reshapes resolved values into the forms pkg/token declares
// for each type: composites become their typed structs, dimension
// objects collapse to numeric-with-unit strings.
func coerceValue(typ token.TokenType, v any) any {
	switch typ {
	case token.TypeTypography:
		if m, ok := v.(map[string]any); ok {
			tv := token.TypographyValue{
				FontFamily:    stringField(m, "fontFamily"),
				FontSize:      numberField(m, "fontSize"),
				LineHeight:    numberField(m, "lineHeight"),
				LetterSpacing: numberField(m, "letterSpacing"),
			}
			if w, ok := token.NormalizeFontWeight(m["fontWeight"]); ok {
				tv.FontWeight = w
			}
			return tv
		}
	case token.TypeShadow:
		if list, ok := v.([]any); ok && len(list) > 0 {
			// Layered shadows keep their first layer.
			v = list[0]
		}
		if m, ok := v.(map[string]any); ok {
			return token.ShadowValue{
				Color:   stringField(m, "color"),
				OffsetX: numberField(m, "offsetX"),
				OffsetY: numberField(m, "offsetY"),
				Blur:    numberField(m, "blur"),
				Spread:  numberField(m, "spread"),
			}
		}
		if s, ok := v.(string); ok {
			if sv, ok := parseShadowShorthand(s); ok {
				return sv
			}
		}
	case token.TypeBorder:
		if m, ok := v.(map[string]any); ok {
			return token.BorderValue{
				Color: stringField(m, "color"),
				Width: numberField(m, "width"),
				Style: stringField(m, "style"),
			}
		}
	case token.TypeDimension, token.TypeBorderRadius, token.TypeBorderWidth, token.TypeDuration:
		if m, ok := v.(map[string]any); ok {
			if val, ok := m["value"]; ok {
				return formatAny(val) + stringField(m, "unit")
			}
		}
	case token.TypeFontFamily:
		if list, ok := v.([]any); ok {
			// Font stacks keep every family, comma joined.
			parts := make([]string, 0, len(list))
			for _, item := range list {
				if s, ok := item.(string); ok {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, ", ")
		}
	}
	return v
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func numberField(m map[string]any, key string) float64 {
	switch n := m[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		if v, _, ok := token.ParseDimension(n); ok {
			return v
		}
	}
	return 0
}

func formatAny(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case string:
		return n
	default:
		return ""
	}
}
