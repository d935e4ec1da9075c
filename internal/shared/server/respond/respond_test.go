package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/assessment/next", nil)

	Error(c, http.StatusBadRequest, "step_incomplete", "answer every question first", gin.H{"step": "technical"})

	if w.Code != http.StatusBadRequest || !c.IsAborted() {
		t.Fatalf("expected aborted 400, got %d", w.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "step_incomplete" || body.Error.Message != "answer every question first" {
		t.Fatalf("unexpected body %+v", body)
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("expected no-store on errors")
	}
}

func TestOKIsNotCached(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	OK(c, gin.H{"ok": true})
	if w.Code != http.StatusOK || w.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("unexpected response %d %q", w.Code, w.Header().Get("Cache-Control"))
	}
}
