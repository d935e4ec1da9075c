package telemetry

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestWriteReservedKeysWin(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	Warn("session.persist_failed", map[string]any{"msg": "spoofed", "session_key": "default"})

	line := strings.TrimSpace(buf.String())
	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}
	if payload["msg"] != "session.persist_failed" {
		t.Fatalf("expected msg to be the event name, got %v", payload["msg"])
	}
	if payload["level"] != "warn" {
		t.Fatalf("expected level warn, got %v", payload["level"])
	}
	if payload["session_key"] != "default" {
		t.Fatalf("expected field session_key")
	}
}
