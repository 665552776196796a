package services

import "strings"

// Models wrap JSON in prose or markdown fences often enough that defensive
// extraction is cheaper than another round-trip. The brace slice is
// deliberately greedy: first opener to last closer.

func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// extractJSONObject slices the first {...last} region out of free text.
func extractJSONObject(raw string) (string, bool) {
	return sliceBetween(stripCodeFences(raw), '{', '}')
}

// extractJSONArray slices the first [...last] region out of free text.
func extractJSONArray(raw string) (string, bool) {
	return sliceBetween(stripCodeFences(raw), '[', ']')
}

func sliceBetween(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
