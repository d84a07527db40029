package extraction

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Strategy is one attempt at pulling a JSON object out of raw text.
type Strategy struct {
	Name    string
	Attempt func(raw string) (map[string]any, bool)
}

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*[ \\t]*\\r?\\n?(.*?)```")

// DefaultStrategies is the ordered list used by ExtractStructured.
var DefaultStrategies = []Strategy{
	{Name: "direct", Attempt: parseDirect},
	{Name: "fenced_block", Attempt: parseFenced},
	{Name: "balanced_braces", Attempt: parseBalanced},
}

// ExtractStructured runs DefaultStrategies in order and returns the first success.
func ExtractStructured(raw string) Result {
	return ExtractWith(raw, DefaultStrategies)
}

// ExtractWith runs the given strategies in order.
func ExtractWith(raw string, strategies []Strategy) Result {
	attempts := make([]string, 0, len(strategies))
	for _, s := range strategies {
		if data, ok := s.Attempt(raw); ok {
			return Structured(data, s.Name)
		}
		attempts = append(attempts, s.Name)
	}
	return Failed(&ParseError{Raw: raw, Attempts: attempts})
}

// ParseStructured is ExtractStructured with an error return.
func ParseStructured(raw string) (map[string]any, error) {
	res := ExtractStructured(raw)
	if !res.OK() {
		return nil, res.Err()
	}
	return res.Data, nil
}

func parseDirect(raw string) (map[string]any, bool) {
	payload := strings.TrimSpace(raw)
	if payload == "" || payload[0] != '{' {
		return nil, false
	}
	return decodeObject(payload)
}

func parseFenced(raw string) (map[string]any, bool) {
	for _, m := range fencePattern.FindAllStringSubmatch(raw, -1) {
		if data, ok := parseDirect(m[1]); ok {
			return data, true
		}
	}
	return nil, false
}

// parseBalanced scans top-level brace-balanced spans and returns the first
// that decodes as an object. Braces inside JSON strings are ignored. Objects
// nested in a span that failed to decode are never considered, and an
// unterminated span ends the scan.
func parseBalanced(raw string) (map[string]any, bool) {
	for start := strings.IndexByte(raw, '{'); start >= 0; {
		end := matchingBrace(raw, start)
		if end < 0 {
			break
		}
		if data, ok := decodeObject(raw[start : end+1]); ok {
			return data, true
		}
		next := strings.IndexByte(raw[end+1:], '{')
		if next < 0 {
			break
		}
		start = end + 1 + next
	}
	return nil, false
}

func matchingBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func decodeObject(payload string) (map[string]any, bool) {
	var out map[string]any
	if err := json.Unmarshal([]byte(payload), &out); err != nil || out == nil {
		return nil, false
	}
	return out, true
}
