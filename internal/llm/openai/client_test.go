package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"readiness-backend/internal/llm"
)

func TestIsGPT5(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{name: "gpt5", model: "gpt-5", want: true},
		{name: "gpt5 variant", model: "gpt-5-mini", want: true},
		{name: "gpt5 uppercase", model: " GPT-5o ", want: true},
		{name: "gpt4", model: "gpt-4o", want: false},
		{name: "empty", model: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := isGPT5(tt.model); got != tt.want {
				t.Fatalf("isGPT5(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func withServer(t *testing.T, status int, response string) *map[string]any {
	t.Helper()
	oldURL := apiURL
	t.Cleanup(func() { apiURL = oldURL })

	var mu sync.Mutex
	lastBody := map[string]any{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		lastBody = payload
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	apiURL = server.URL
	return &lastBody
}

func TestGenerateSendsSamplingParams(t *testing.T) {
	body := withServer(t, http.StatusOK, `{"choices":[{"message":{"content":" {\"score\":70} "}}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`)

	client, err := NewClient("test-key", "gpt-4o-mini", time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	got, err := client.Generate(context.Background(), "prompt", llm.ReportParams)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != `{"score":70}` {
		t.Fatalf("unexpected content %q", got)
	}
	if (*body)["temperature"] == nil || (*body)["top_p"] == nil {
		t.Fatalf("expected temperature and top_p in request, got %v", *body)
	}
	if tokens, _ := (*body)["max_completion_tokens"].(float64); int(tokens) != 2048 {
		t.Fatalf("expected max_completion_tokens 2048, got %v", (*body)["max_completion_tokens"])
	}
	if _, ok := (*body)["top_k"]; ok {
		t.Fatalf("top_k must not be sent")
	}
}

func TestGenerateOmitsSamplingForGPT5(t *testing.T) {
	body := withServer(t, http.StatusOK, `{"choices":[{"message":{"content":"{}"}}]}`)

	client, err := NewClient("test-key", "gpt-5-mini", time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Generate(context.Background(), "prompt", llm.CategoryParams); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, ok := (*body)["temperature"]; ok {
		t.Fatalf("expected temperature to be omitted for gpt-5 models")
	}
}

func TestGenerateReportsHTTPStatus(t *testing.T) {
	withServer(t, http.StatusServiceUnavailable, `{"error":{"message":"overloaded","type":"server_error"}}`)

	client, err := NewClient("test-key", "gpt-4o-mini", time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.Generate(context.Background(), "prompt", llm.CategoryParams)
	if err == nil || !strings.Contains(err.Error(), "http status 503") {
		t.Fatalf("expected http status error, got %v", err)
	}
	if !llm.IsTransient(err) {
		t.Fatalf("expected 503 to be transient")
	}
}

func TestNewClientRequiresKeyAndModel(t *testing.T) {
	if _, err := NewClient("", "gpt-4o", 0); err == nil {
		t.Fatalf("expected error without api key")
	}
	if _, err := NewClient("key", " ", 0); err == nil {
		t.Fatalf("expected error without model")
	}
}
