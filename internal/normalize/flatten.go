// Package normalize turns nested JSON objects into flat records whose keys
// are the underscore-joined path of each leaf, e.g. {"supplier":{"code":1}}
// becomes {"supplier_code":1}.
package normalize

import "strings"

// Separator joins the path segments of a flattened key.
const Separator = "_"

// Record is a flat field-to-value mapping. Values are JSON scalars
// (string, json.Number, float64, bool, nil) or arrays left untouched.
type Record map[string]any

// Get returns the value for key and whether the key was present.
func (r Record) Get(key string) (any, bool) {
	v, ok := r[key]
	return v, ok
}

// Flatten renders obj as a flat record. Nested objects are walked
// recursively; arrays are kept as-is; empty objects contribute no keys.
func Flatten(obj map[string]any) Record {
	out := make(Record, len(obj))
	flattenInto(out, "", obj)
	return out
}

// FlattenAll flattens a batch. Entries with different shapes simply produce
// records with different key sets.
func FlattenAll(objs []map[string]any) []Record {
	out := make([]Record, 0, len(objs))
	for _, o := range objs {
		out = append(out, Flatten(o))
	}
	return out
}

func flattenInto(out Record, prefix string, obj map[string]any) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + Separator + k
		}
		if nested, ok := v.(map[string]any); ok {
			flattenInto(out, key, nested)
			continue
		}
		out[key] = v
	}
}

// Path joins segments into a flattened key.
func Path(segments ...string) string {
	return strings.Join(segments, Separator)
}
