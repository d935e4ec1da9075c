package llm

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"readiness-backend/internal/shared/telemetry"
)

// DefaultRetryDelay is the pause before the single transient retry.
const DefaultRetryDelay = 300 * time.Millisecond

// Retrying wraps a client with one retry on transient provider errors.
type Retrying struct {
	Base  Client
	Delay time.Duration
}

// NewRetrying wraps base with the default retry delay.
func NewRetrying(base Client) *Retrying {
	if base == nil {
		return nil
	}
	return &Retrying{Base: base, Delay: DefaultRetryDelay}
}

// Generate calls the base client and retries once when the failure looks transient.
func (r *Retrying) Generate(ctx context.Context, prompt string, params Params) (string, error) {
	resp, err := r.Base.Generate(ctx, prompt, params)
	if err == nil || !IsTransient(err) {
		return resp, err
	}

	telemetry.Warn("llm.retry", map[string]any{
		"attempt": 1,
		"error":   SanitizeError(err),
	})
	select {
	case <-time.After(r.Delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return r.Base.Generate(ctx, prompt, params)
}

// IsTransient reports whether err is worth retrying: timeouts, 5xx, dropped connections.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "unavailable") || strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "overloaded") {
		return true
	}
	if strings.Contains(msg, "timeout") && (strings.Contains(msg, "openai") || strings.Contains(msg, "gemini") || strings.Contains(msg, "client.timeout")) {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}
	return false
}

const maxErrorLen = 300

// SanitizeError flattens an error for single-line logs.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.Join(strings.Fields(err.Error()), " ")
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen] + "..."
	}
	return msg
}
