package analysis

import (
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "bare object", raw: `{"score":70}`, want: `{"score":70}`},
		{name: "fenced", raw: "```json\n{\"score\": 70}\n```", want: `{"score":70}`},
		{name: "surrounding prose", raw: "Here you go:\n{\"a\": {\"b\": 1}}\nGood luck!", want: `{"a":{"b":1}}`},
		{name: "no braces", raw: "I cannot help with that.", wantErr: true},
		{name: "array", raw: "```json\n[1,2]\n```", wantErr: true},
		{name: "null", raw: "null", wantErr: true},
		{name: "empty", raw: "   ", wantErr: true},
		{name: "truncated", raw: `{"score": 70, "strengths": ["a"`, wantErr: true},
		{name: "two objects", raw: `{"a":1} and {"b":2}`, wantErr: true},
		{name: "braces reversed", raw: "} {", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if tt.wantErr {
				var formatErr *FormatError
				if !errors.As(err, &formatErr) {
					t.Fatalf("expected *FormatError, got %v", err)
				}
				if formatErr.Raw != tt.raw {
					t.Fatalf("expected raw output to be preserved")
				}
				if got != nil {
					t.Fatalf("expected no partial result")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("Parse = %s, want %s", got, tt.want)
			}
		})
	}
}

// Every input either yields a JSON object or a FormatError, never anything else.
func TestParseTotal(t *testing.T) {
	alphabet := []byte(`{}[]":,abc 0123 nul` + "`\n")
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		n := rng.Intn(40)
		buf := make([]byte, n)
		for j := range buf {
			buf[j] = alphabet[rng.Intn(len(alphabet))]
		}
		raw := string(buf)

		got, err := Parse(raw)
		if err != nil {
			var formatErr *FormatError
			if !errors.As(err, &formatErr) {
				t.Fatalf("input %q: expected *FormatError, got %T", raw, err)
			}
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(got, &obj); err != nil || obj == nil {
			t.Fatalf("input %q: result %s is not an object", raw, got)
		}
	}
}

func TestFormatErrorExcerptIsBounded(t *testing.T) {
	raw := make([]byte, 2*maxRawExcerpt)
	for i := range raw {
		raw[i] = 'x'
	}
	fe := &FormatError{Raw: string(raw)}
	if len(fe.Excerpt()) > maxRawExcerpt+3 {
		t.Fatalf("excerpt too long: %d", len(fe.Excerpt()))
	}
}

func TestFormatErrorExcerptKeepsRunesWhole(t *testing.T) {
	fe := &FormatError{Raw: "x" + strings.Repeat("é", maxRawExcerpt)}
	got := fe.Excerpt()
	if !utf8.ValidString(got) {
		t.Fatalf("excerpt is not valid UTF-8: %q", got[len(got)-8:])
	}
	if !strings.HasSuffix(got, "é...") {
		t.Fatalf("expected whole rune before ellipsis, got %q", got[len(got)-8:])
	}
}
