package util

import "strings"

const fence = "```"

// StripCodeFences removes markdown code fences that models like to wrap JSON in.
// A leading fence may carry a language tag ("```json"). Stripping repeats until
// no fence is left, so the result is stable under a second call.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	for {
		next := stripOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func stripOnce(s string) string {
	if strings.HasPrefix(s, fence) {
		s = s[len(fence):]
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && isFenceTag(s[:nl]) {
			s = s[nl+1:]
		}
	}
	if strings.HasSuffix(s, fence) {
		s = s[:len(s)-len(fence)]
	}
	return strings.TrimSpace(s)
}

// isFenceTag reports whether the rest of an opening fence line is a language tag.
func isFenceTag(s string) bool {
	s = strings.TrimRight(s, " \t\r")
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '+':
		default:
			return false
		}
	}
	return true
}

// Truncate cuts s to at most n bytes for log and error messages.
func Truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
