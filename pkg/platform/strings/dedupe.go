// Package strings holds the small slice helpers shared by the analyzer and renderer.
package strings

import (
	"strings"
)

// Dedupe returns values without repeats, keeping the first occurrence of each.
// keep, when non-nil, filters elements out before they are considered.
func Dedupe[T comparable](values []T, keep func(T) bool) []T {
	if values == nil {
		return nil
	}
	seen := make(map[T]struct{}, len(values))
	out := values[:0:0]
	for _, v := range values {
		if keep != nil && !keep(v) {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// DedupeAndTrim trims every name, drops blanks and repeats, and keeps first-seen
// order. Template names such as section and snippet references go through here.
func DedupeAndTrim(values []string) []string {
	if values == nil {
		return nil
	}
	trimmed := make([]string, len(values))
	for i, v := range values {
		trimmed[i] = strings.TrimSpace(v)
	}
	return Dedupe(trimmed, func(s string) bool { return s != "" })
}
