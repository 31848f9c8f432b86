package model_selection

import (
	"fmt"
	"sort"
	"strings"
)

// ParamGrid maps parameter names to the values to try.
type ParamGrid map[string][]interface{}

// Candidates expands the grid into every parameter combination.
// Keys are taken in sorted order and the last key varies fastest, matching
// sklearn.model_selection.ParameterGrid. An empty grid yields a single empty
// candidate.
func (g ParamGrid) Candidates() []map[string]interface{} {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	candidates := []map[string]interface{}{{}}
	for _, key := range keys {
		values := g[key]
		next := make([]map[string]interface{}, 0, len(candidates)*len(values))
		for _, base := range candidates {
			for _, v := range values {
				c := make(map[string]interface{}, len(base)+1)
				for bk, bv := range base {
					c[bk] = bv
				}
				c[key] = v
				next = append(next, c)
			}
		}
		candidates = next
	}
	return candidates
}

// IntRange returns the values lo, lo+1, ..., hi for use in a ParamGrid.
func IntRange(lo, hi int) []interface{} {
	if hi < lo {
		return nil
	}
	values := make([]interface{}, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		values = append(values, v)
	}
	return values
}

// FormatParams renders a candidate as "{a: 1, b: x}" with sorted keys.
func FormatParams(params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %v", k, params[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
