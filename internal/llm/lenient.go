package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSONObject is returned when no JSON object can be recovered from a model response.
var ErrNoJSONObject = errors.New("no JSON object in model response")

// StripFences removes one fenced code block wrapper, tagged (```json) or bare.
// Text without a fence is returned trimmed.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	i := strings.Index(s, "```")
	if i < 0 {
		return s
	}
	rest := s[i+3:]
	// language tag
	j := 0
	for j < len(rest) && (rest[j] >= 'a' && rest[j] <= 'z' || rest[j] >= 'A' && rest[j] <= 'Z') {
		j++
	}
	if j > 0 && (j == len(rest) || rest[j] == '\n' || rest[j] == '\r' || rest[j] == ' ' || rest[j] == '{') {
		rest = rest[j:]
	}
	if k := strings.Index(rest, "```"); k >= 0 {
		rest = rest[:k]
	}
	return strings.TrimSpace(rest)
}

// DecodeObject recovers a JSON object from a model response: fences are stripped,
// a direct parse is tried, then the first balanced {...} span that parses wins.
// Numbers are kept as json.Number.
func DecodeObject(resp string) (map[string]any, error) {
	s := StripFences(resp)
	if m, err := parseObject([]byte(s)); err == nil {
		return m, nil
	}
	for start := strings.IndexByte(s, '{'); start >= 0; {
		end := balancedEnd(s, start)
		if end < 0 {
			break
		}
		if m, err := parseObject([]byte(s[start : end+1])); err == nil {
			return m, nil
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, ErrNoJSONObject
}

func parseObject(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNoJSONObject
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON object")
	}
	return m, nil
}

// balancedEnd returns the index of the brace closing the one at start, honoring
// string literals and escapes, or -1.
func balancedEnd(s string, start int) int {
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
