package converter

import (
	"sort"
	"strings"

	"github.com/ginjaninja78/ttd-writer/internal/types"
)

// Delimiter separates nesting levels in flattened keys.
const Delimiter = "__"

// SplitKey splits key on the first Delimiter. ok is false when key has none.
func SplitKey(key string) (prefix, rest string, ok bool) {
	return strings.Cut(key, Delimiter)
}

// Nest turns a flat mapping into a document one level deep: "a__b" becomes
// {"a": {"b": v}} while "a__b__c" becomes {"a": {"b__c": v}}. Keys without
// the delimiter are copied as they are. When a plain key and a nested
// prefix collide, the nested object wins.
func Nest(flat map[string]string) types.Document {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(types.Document, len(flat))
	for _, k := range keys {
		v := flat[k]
		prefix, rest, ok := SplitKey(k)
		if !ok {
			if _, nested := out[k].(types.Document); !nested {
				out[k] = v
			}
			continue
		}
		sub, isDoc := out[prefix].(types.Document)
		if !isDoc {
			sub = types.Document{}
			out[prefix] = sub
		}
		sub[rest] = v
	}
	return out
}
