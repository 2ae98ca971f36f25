package capability

import "strings"

// cleanJSONOutput pulls the JSON object out of a model reply that may carry
// a code fence or prose around it.
func cleanJSONOutput(s string) string {
	s = strings.TrimSpace(s)
	if body, ok := stripFence(s); ok {
		return body
	}

	// Prefer `{"` so prose like "{see below}" is not taken as the start.
	start := strings.Index(s, `{"`)
	if start == -1 {
		start = strings.Index(s, "{")
	}
	end := strings.LastIndex(s, "}")
	if start != -1 && end > start {
		return s[start : end+1]
	}
	return s
}

// cleanTextOutput strips a code fence and wrapping quotes from a rewritten
// prompt.
func cleanTextOutput(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s, _ = stripFence(s)
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// stripFence returns the body of the first ``` fence in s, dropping a short
// language tag on the opening line. ok is false when s has no fence.
func stripFence(s string) (body string, ok bool) {
	idx := strings.Index(s, "```")
	if idx == -1 {
		return s, false
	}
	body = s[idx+3:]
	if nl := strings.IndexByte(body, '\n'); nl != -1 && nl < 20 && !strings.Contains(body[:nl], "{") {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end != -1 {
		body = body[:end]
	}
	return strings.TrimSpace(body), true
}
