package object

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestUploadKey(t *testing.T) {
	tests := []struct {
		in      string
		suffix  string
		wantErr bool
	}{
		{in: "resume.pdf", suffix: "_resume.pdf"},
		{in: " my/cv.pdf ", suffix: "_my_cv.pdf"},
		{in: `dir\cv.pdf`, suffix: "_dir_cv.pdf"},
		{in: "../etc/passwd", wantErr: true},
		{in: "   ", wantErr: true},
	}
	for _, tt := range tests {
		key, err := UploadKey("session-1", tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidFileName) {
				t.Fatalf("UploadKey(%q): expected ErrInvalidFileName, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("UploadKey(%q): %v", tt.in, err)
		}
		if !strings.HasPrefix(key, "uploads/"+hashKey("session-1")+"/") || !strings.HasSuffix(key, tt.suffix) {
			t.Fatalf("UploadKey(%q) = %q", tt.in, key)
		}
	}

	a, _ := UploadKey("session-1", "cv.pdf")
	b, _ := UploadKey("session-1", "cv.pdf")
	if a == b {
		t.Fatalf("expected distinct keys for repeated uploads")
	}
}

func TestProgressKeyIsStable(t *testing.T) {
	got := ProgressKey("default")
	if got != ProgressKey("default") {
		t.Fatalf("expected stable key")
	}
	if got != "progress/"+hashKey("default")+".json" || len(hashKey("default")) != 64 {
		t.Fatalf("unexpected key %s", got)
	}
	if ExtractedKey("uploads/a/b.pdf") != "uploads/a/b.pdf.extracted.txt" {
		t.Fatalf("unexpected extracted key")
	}
}

func TestCleanKey(t *testing.T) {
	for _, bad := range []string{"", ".", "..", "../x", "/etc/passwd", `..\x`} {
		if _, err := CleanKey(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	got, err := CleanKey("progress//a/./b.json")
	if err != nil || got != "progress/a/b.json" {
		t.Fatalf("CleanKey = %q, %v", got, err)
	}
}

func TestSniffReplaysHead(t *testing.T) {
	body := "%PDF-1.4\n" + strings.Repeat("x", 2000)
	mime, r, err := Sniff(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Sniff: %v", err)
	}
	if mime != "application/pdf" {
		t.Fatalf("expected application/pdf, got %s", mime)
	}
	data, _ := io.ReadAll(r)
	if string(data) != body {
		t.Fatalf("expected full body replayed, got %d bytes", len(data))
	}

	mime, r, err = Sniff(strings.NewReader("hi"))
	if err != nil {
		t.Fatalf("Sniff short: %v", err)
	}
	if data, _ := io.ReadAll(r); string(data) != "hi" || !strings.HasPrefix(mime, "text/plain") {
		t.Fatalf("unexpected short sniff %q %q", mime, data)
	}
}
