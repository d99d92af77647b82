package audit

import (
	"encoding/json"
	"sort"
	"strings"
)

// StableStringify renders a JSON-compatible value as a string that is
// byte-identical for semantically equal inputs: object keys are sorted
// lexicographically at every nesting level, array order is preserved.
// This is the canonical form every hash in the chain is computed over.
func StableStringify(v any) string {
	var b strings.Builder
	writeStable(&b, normalize(v))
	return b.String()
}

// normalize collapses arbitrary Go values into the generic JSON shape
// (map[string]any, []any, string, float64, bool, nil) by round-tripping
// through encoding/json. Builder and verifier both pass values through
// here, so numeric formatting stays consistent on both sides.
func normalize(v any) any {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func writeStable(b *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			key, _ := json.Marshal(k)
			b.Write(key)
			b.WriteByte(':')
			writeStable(b, val[k])
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			writeStable(b, item)
		}
		b.WriteByte(']')
	default:
		enc, err := json.Marshal(val)
		if err != nil {
			b.WriteString("null")
			return
		}
		b.Write(enc)
	}
}
