package model

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// PartFacts holds evidence extracted from geometry and drawings (volume_mm3,
// bbox_x_mm, hole_count, bends_present, material, ...). Facts may be partial.
type PartFacts map[string]any

// Has reports whether key is present with a non-nil value.
func (f PartFacts) Has(key string) bool {
	v, ok := f[key]
	return ok && v != nil
}

// Number returns the fact as a float64. Integers, json.Number and numeric
// strings are accepted; NaN and infinities are treated as absent.
func (f PartFacts) Number(key string) (float64, bool) {
	v, ok := f[key]
	if !ok || v == nil {
		return 0, false
	}
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case int32:
		n = float64(t)
	case uint64:
		n = float64(t)
	case json.Number:
		p, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = p
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		n = p
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// Bool returns the fact as a bool. "true"/"false" strings are accepted.
func (f PartFacts) Bool(key string) (bool, bool) {
	v, ok := f[key]
	if !ok || v == nil {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, false
		}
		return b, true
	}
	return false, false
}

// String returns the fact as a trimmed, non-empty string.
func (f PartFacts) String(key string) (string, bool) {
	v, ok := f[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Truthy reports whether the fact holds a "positive" value: true, a non-zero
// number or a non-empty string.
func (f PartFacts) Truthy(key string) bool {
	if b, ok := f.Bool(key); ok {
		return b
	}
	if n, ok := f.Number(key); ok {
		return n != 0
	}
	_, ok := f.String(key)
	return ok
}

// Keys returns the fact keys in sorted order.
func (f PartFacts) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of the facts.
func (f PartFacts) Clone() PartFacts {
	out := make(PartFacts, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
