package format

import (
	"fmt"
	"strconv"
	"time"
)

// KeySeparator joins the path segments of nested documents.
const KeySeparator = "."

// Flatten converts a nested document into dotted keys with string values.
//
// Scalars are rendered with their natural text form. Sequences use their
// index as a path segment ("hosts.0"). A null leaf is skipped: it does not
// define the key. Empty maps and empty sequences define nothing.
func Flatten(data map[string]any) map[string]string {
	out := make(map[string]string)
	flattenInto(out, "", data)
	return out
}

func flattenInto(out map[string]string, prefix string, v any) {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			flattenInto(out, join(prefix, k), child)
		}
	case map[any]any:
		for k, child := range val {
			flattenInto(out, join(prefix, fmt.Sprint(k)), child)
		}
	case []any:
		for i, child := range val {
			flattenInto(out, join(prefix, strconv.Itoa(i)), child)
		}
	case nil:
		return
	default:
		if prefix == "" {
			return
		}
		out[prefix] = scalarString(val)
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + KeySeparator + key
}

func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}
