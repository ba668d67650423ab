// Package strings holds small parsing helpers for comma separated settings.
package strings

import "strings"

// SplitList splits raw on sep, trims each element and drops empties and
// repeats. Order of first occurrence is kept. An empty input yields nil.
func SplitList(raw, sep string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, part := range strings.Split(raw, sep) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}
