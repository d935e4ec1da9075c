package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadline", err: fmt.Errorf("wrap: %w", context.DeadlineExceeded), want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "5xx", err: errors.New("openai http status 503: overloaded"), want: true},
		{name: "gemini unavailable", err: errors.New("Error 503, Message: The model is overloaded, Status: UNAVAILABLE"), want: true},
		{name: "reset", err: errors.New("read tcp: connection reset by peer"), want: true},
		{name: "bad request", err: errors.New("openai http status 400: invalid model"), want: false},
		{name: "not configured", err: ErrNotConfigured, want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryingRetriesOnceOnTransient(t *testing.T) {
	calls := 0
	base := ClientFunc(func(ctx context.Context, prompt string, params Params) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("connection reset by peer")
		}
		return `{"ok":true}`, nil
	})
	r := &Retrying{Base: base, Delay: time.Millisecond}

	got, err := r.Generate(context.Background(), "p", CategoryParams)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != `{"ok":true}` || calls != 2 {
		t.Fatalf("expected success on second call, got %q after %d calls", got, calls)
	}
}

func TestRetryingDoesNotRetryPermanent(t *testing.T) {
	calls := 0
	base := ClientFunc(func(ctx context.Context, prompt string, params Params) (string, error) {
		calls++
		return "", errors.New("http status 401: bad key")
	})
	r := &Retrying{Base: base, Delay: time.Millisecond}

	if _, err := r.Generate(context.Background(), "p", CategoryParams); err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestPlaceholderClientFails(t *testing.T) {
	_, err := PlaceholderClient{}.Generate(context.Background(), "p", ReportParams)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
