package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"readiness-backend/internal/shared/telemetry"
)

const publishTimeout = 5 * time.Second

// Async delivers updates from a bounded buffer on its own goroutine. When the
// buffer is full the update is dropped, so publishers never block.
type Async struct {
	next    Notifier
	updates chan Update
	done    chan struct{}
	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// NewAsync starts the delivery goroutine.
func NewAsync(next Notifier, buffer int) *Async {
	if buffer <= 0 {
		buffer = 64
	}
	a := &Async{
		next:    next,
		updates: make(chan Update, buffer),
		done:    make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *Async) loop() {
	defer close(a.done)
	for update := range a.updates {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := a.next.Publish(ctx, update); err != nil {
			telemetry.Warn("notify.publish_failed", map[string]any{
				"session_id": update.SessionID,
				"error":      err.Error(),
			})
		}
		cancel()
	}
}

// Publish enqueues the update. It never blocks and never fails.
func (a *Async) Publish(ctx context.Context, update Update) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil
	}
	select {
	case a.updates <- update:
	default:
		a.dropped.Add(1)
	}
	return nil
}

// Dropped reports how many updates were discarded because the buffer was full.
func (a *Async) Dropped() uint64 {
	return a.dropped.Load()
}

// Close stops accepting updates and waits for queued ones to be delivered.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.updates)
	}
	a.mu.Unlock()
	<-a.done
}
