// Package notify delivers user-facing notifications (toasts) raised by the
// engine. Sinks are fire-and-forget: a failing sink never blocks an alert.
package notify

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/oshokin/safeguardian/internal/logger"
)

// Severity is the visual weight of a notification.
type Severity string

const (
	SeverityInfo        Severity = "info"
	SeverityDestructive Severity = "destructive"
)

// Notification is a short title/body pair shown to the user.
type Notification struct {
	Title    string
	Body     string
	Severity Severity
}

// Sink receives notifications.
type Sink interface {
	Emit(ctx context.Context, n Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n Notification)

// Emit implements Sink.
func (f SinkFunc) Emit(ctx context.Context, n Notification) {
	f(ctx, n)
}

// Discard drops every notification.
var Discard Sink = SinkFunc(func(context.Context, Notification) {}) //nolint:gochecknoglobals // Stateless.

// LogSink writes notifications to the context logger.
type LogSink struct{}

// Emit implements Sink.
func (LogSink) Emit(ctx context.Context, n Notification) {
	logger.InfoKV(ctx, "Notification", "title", n.Title, "body", n.Body, "severity", n.Severity)
}

// Multi fans a notification out to every sink in order.
type Multi []Sink

// Emit implements Sink.
func (m Multi) Emit(ctx context.Context, n Notification) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, n)
		}
	}
}

// Toggle gates a sink behind the user's notifications setting.
type Toggle struct {
	next    Sink
	enabled atomic.Bool
}

// NewToggle wraps next; enabled is the initial setting.
func NewToggle(next Sink, enabled bool) *Toggle {
	t := &Toggle{next: next}
	t.enabled.Store(enabled)

	return t
}

// SetEnabled switches notifications on or off.
func (t *Toggle) SetEnabled(enabled bool) {
	t.enabled.Store(enabled)
}

// Enabled reports the current setting.
func (t *Toggle) Enabled() bool {
	return t.enabled.Load()
}

// Emit implements Sink.
func (t *Toggle) Emit(ctx context.Context, n Notification) {
	if !t.enabled.Load() {
		logger.DebugKV(ctx, "Notification muted", "title", n.Title)

		return
	}

	t.next.Emit(ctx, n)
}

// Recorder keeps every notification in memory. Used by tests and the
// WatchNotifications stream backlog.
type Recorder struct {
	items []Notification
	mu    sync.Mutex
}

// Emit implements Sink.
func (r *Recorder) Emit(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, n)
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Notification(nil), r.items...)
}

// Titles returns the recorded titles in order.
func (r *Recorder) Titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	titles := make([]string, 0, len(r.items))
	for _, n := range r.items {
		titles = append(titles, n.Title)
	}

	return titles
}
