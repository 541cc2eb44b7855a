// Package jsonx extracts JSON values from free-form model output. Model
// replies may wrap the payload in prose or markdown code fences; callers need
// the first well-formed object or array, or a definite "no JSON here" answer.
package jsonx

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// Extract returns the first well-formed JSON object or array in s.
// Precedence: parse the whole trimmed input, then the content of the first
// code fence, then scan for the first balanced value. ok is false when no
// well-formed object or array exists; Extract never panics on any input.
func Extract(s string) (json.RawMessage, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	if v, ok := parseWhole(s); ok {
		return v, true
	}
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		if v, ok := parseWhole(strings.TrimSpace(m[1])); ok {
			return v, true
		}
	}
	return firstBalanced(s)
}

// ExtractInto extracts the first JSON value from s and unmarshals it into v.
func ExtractInto(s string, v any) bool {
	raw, ok := Extract(s)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// parseWhole accepts s only when the entire string is one object or array.
func parseWhole(s string) (json.RawMessage, bool) {
	if len(s) == 0 || (s[0] != '{' && s[0] != '[') {
		return nil, false
	}
	var raw json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, false
	}
	return raw, true
}

// firstBalanced decodes one value starting at each candidate opener. Using a
// json.Decoder keeps braces inside string literals from confusing the scan.
func firstBalanced(s string) (json.RawMessage, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil {
			return raw, true
		}
	}
	return nil, false
}
