package tokensource

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/tokenlens/tokenlens/pkg/token"
)

// parseDTCG walks a Design Tokens Community Group JSON document. Any
// object carrying $value is a token, every other object is a group, and
// a group's $type is inherited by everything below it. Tokens come out
// in document order.
func parseDTCG(data []byte) ([]rawToken, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("token document root is %s, expected an object", root.Type)
	}
	var out []rawToken
	walkGroup(root, nil, "", &out)
	return out, nil
}

func walkGroup(group gjson.Result, path []string, inherited string, out *[]rawToken) {
	groupType := inherited
	if t := group.Get("$type"); t.Exists() {
		groupType = t.String()
	}

	group.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if strings.HasPrefix(name, "$") || !value.IsObject() {
			return true
		}

		childPath := append(append([]string{}, path...), name)
		if value.Get("$value").Exists() {
			typ := groupType
			if t := value.Get("$type"); t.Exists() {
				typ = t.String()
			}
			*out = append(*out, rawToken{
				path:        childPath,
				typ:         token.TokenType(typ),
				value:       jsonValue(value.Get("$value")),
				description: value.Get("$description").String(),
			})
			return true
		}
		walkGroup(value, childPath, groupType, out)
		return true
	})
}

// jsonValue lowers a gjson node into the raw value tree the resolver
// consumes.
func jsonValue(v gjson.Result) any {
	switch v.Type {
	case gjson.String:
		return v.String()
	case gjson.Number:
		return v.Float()
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.Null:
		return nil
	default:
		if v.IsArray() {
			items := v.Array()
			out := make([]any, len(items))
			for i, item := range items {
				out[i] = jsonValue(item)
			}
			return out
		}
		out := make(map[string]any)
		v.ForEach(func(key, val gjson.Result) bool {
			out[key.String()] = jsonValue(val)
			return true
		})
		return out
	}
}
