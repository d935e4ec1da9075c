// Package notify publishes assessment progress to observers. Delivery is
// best-effort: failures are logged and never reach the assessment flow.
package notify

import (
	"context"
	"time"

	"readiness-backend/internal/shared/telemetry"
)

// Update stages.
const (
	StageAnalysis     = "analysis"
	StageResumeUpload = "resume_upload"
	StageComplete     = "complete"
)

// Update is a single progress notification for a session.
type Update struct {
	SessionID string    `json:"sessionId"`
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier delivers updates to an observer.
type Notifier interface {
	Publish(ctx context.Context, update Update) error
}

// LogNotifier writes updates to the structured log.
type LogNotifier struct{}

func (LogNotifier) Publish(ctx context.Context, update Update) error {
	telemetry.Info("session.progress", map[string]any{
		"session_id": update.SessionID,
		"stage":      update.Stage,
		"message":    update.Message,
	})
	return nil
}

// Multi fans an update out to every notifier and returns the first error.
type Multi []Notifier

func (m Multi) Publish(ctx context.Context, update Update) error {
	var first error
	for _, n := range m {
		if err := n.Publish(ctx, update); err != nil && first == nil {
			first = err
		}
	}
	return first
}
