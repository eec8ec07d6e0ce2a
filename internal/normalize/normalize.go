// Package normalize recovers a JSON value from free-form model output.
//
// Models are asked for JSON but frequently wrap it in markdown fences or
// surround it with prose. Parse tries, in order: the whole text, the text with
// code fences stripped, and the span from the first '{' to the last '}'. The
// first attempt that decodes wins.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when no attempt yields valid JSON
var ErrNoJSON = errors.New("normalize: no JSON value found in model output")

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// Parse returns the first JSON value recoverable from text
func Parse(text string) (any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrNoJSON
	}

	var v any
	if err := UnmarshalFlex([]byte(trimmed), &v); err == nil {
		return v, nil
	}

	if unfenced, ok := stripFences(trimmed); ok {
		if err := UnmarshalFlex([]byte(unfenced), &v); err == nil {
			return v, nil
		}
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		candidate := trimmed[start : end+1]
		if err := UnmarshalFlex([]byte(candidate), &v); err == nil {
			return v, nil
		}
		repaired := trailingComma.ReplaceAllString(candidate, "$1")
		if repaired != candidate {
			if err := UnmarshalFlex([]byte(repaired), &v); err == nil {
				return v, nil
			}
		}
	}

	return nil, ErrNoJSON
}

// Extract returns the recovered JSON value re-encoded as compact JSON text
func Extract(text string) (json.RawMessage, error) {
	v, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return MarshalNoEscape(v)
}

// stripFences removes a leading ``` or ```json line and a trailing ```
func stripFences(s string) (string, bool) {
	if !strings.HasPrefix(s, "```") {
		return s, false
	}
	body := strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		tag := strings.TrimSpace(body[:nl])
		if tag == "" || strings.EqualFold(tag, "json") {
			body = body[nl+1:]
		}
	} else {
		body = strings.TrimPrefix(body, "json")
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body), true
}

// UnmarshalFlex tries a direct unmarshal and falls back to unwrapping a JSON
// payload that arrived as a quoted string or with double-escaped unicode.
func UnmarshalFlex(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err == nil {
		return nil
	}
	norm, err := normalizeUnicode(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(norm, v)
}

// MarshalNoEscape encodes v without escaping <, > and &
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func normalizeUnicode(raw []byte) ([]byte, error) {
	var anyVal any
	if err := json.Unmarshal(raw, &anyVal); err != nil {
		var s string
		if err2 := json.Unmarshal(raw, &s); err2 != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(s), &anyVal); err != nil {
			return nil, errors.New("normalize: cannot parse quoted JSON payload")
		}
	}
	if s, ok := anyVal.(string); ok {
		// a quoted document: decode one more level
		var inner any
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			anyVal = inner
		}
	}
	return MarshalNoEscape(deepUnescape(anyVal))
}

func unescapeUnicodeString(s string) (string, error) {
	esc := strings.ReplaceAll(s, `"`, `\"`)
	var out string
	if err := json.Unmarshal([]byte(`"`+esc+`"`), &out); err != nil {
		return "", err
	}
	return out, nil
}

func deepUnescape(v any) any {
	switch x := v.(type) {
	case string:
		if !strings.Contains(x, `\u`) {
			return x
		}
		if s, err := unescapeUnicodeString(x); err == nil {
			return s
		}
		return x
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = deepUnescape(x[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = deepUnescape(vv)
		}
		return out
	default:
		return v
	}
}
