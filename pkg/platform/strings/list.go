// Package strings normalizes the string lists read from tokens and
// environment variables.
package strings

import (
	"strings"
)

// DedupeAndTrim trims every element and drops empty or repeated ones,
// keeping the first occurrence. Case is significant: authorities such as
// PERFIL_ADMIN are compared exactly.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
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

// SplitList parses a comma separated setting such as
// "kafka-1:9092, kafka-2:9092". A blank setting yields nil.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return DedupeAndTrim(strings.Split(raw, ","))
}
