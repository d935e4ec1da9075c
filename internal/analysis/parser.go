package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxRawExcerpt = 500

// FormatError reports AI output that could not be decoded into a JSON object.
type FormatError struct {
	Raw string
	Err error
}

func (e *FormatError) Error() string {
	if e.Err == nil {
		return "invalid AI response format"
	}
	return "invalid AI response format: " + e.Err.Error()
}

func (e *FormatError) Unwrap() error { return e.Err }

// Excerpt returns a bounded prefix of the raw output for logs.
func (e *FormatError) Excerpt() string {
	return excerpt(e.Raw)
}

// Parse extracts the JSON object embedded in raw model output.
//
// The candidate is the text from the first '{' to the last '}'. When no such
// span exists, markdown code fences are stripped and the whole trimmed text is
// decoded instead. Anything that does not decode to a JSON object is a
// *FormatError; partial results are never returned.
func Parse(raw string) (json.RawMessage, error) {
	candidate := ""
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		candidate = raw[start : end+1]
	} else {
		candidate = stripFences(raw)
	}

	if candidate == "" {
		return nil, &FormatError{Raw: raw, Err: fmt.Errorf("empty response")}
	}

	dec := json.NewDecoder(strings.NewReader(candidate))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, &FormatError{Raw: raw, Err: err}
	}
	if obj == nil {
		return nil, &FormatError{Raw: raw, Err: fmt.Errorf("response is not a JSON object")}
	}
	if dec.More() {
		return nil, &FormatError{Raw: raw, Err: fmt.Errorf("trailing data after JSON object")}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, []byte(candidate)); err != nil {
		return nil, &FormatError{Raw: raw, Err: err}
	}
	return json.RawMessage(compact.Bytes()), nil
}

func stripFences(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json\n", "")
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```\n", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

func excerpt(raw string) string {
	raw = strings.Join(strings.Fields(raw), " ")
	if len(raw) > maxRawExcerpt {
		cut := maxRawExcerpt
		for cut > 0 && !utf8.RuneStart(raw[cut]) {
			cut--
		}
		return raw[:cut] + "..."
	}
	return raw
}
