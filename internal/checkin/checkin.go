// Package checkin broadcasts the user's location to family members on a
// fixed period while auto check-in is enabled.
package checkin

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/oshokin/safeguardian/internal/domain/alert"
	"github.com/oshokin/safeguardian/internal/location"
	"github.com/oshokin/safeguardian/internal/logger"
	"github.com/oshokin/safeguardian/internal/metrics"
	"github.com/oshokin/safeguardian/internal/notify"
	"github.com/oshokin/safeguardian/internal/scheduler"
)

// DefaultPeriod is the interval between automatic check-ins.
const DefaultPeriod = 5 * time.Minute

// Dispatcher sends the check-in batch.
type Dispatcher interface {
	Dispatch(ctx context.Context, trigger alert.Trigger) (*alert.Batch, error)
}

// Scheduler owns the repeating check-in timer.
type Scheduler struct {
	sched      scheduler.Scheduler
	dispatcher Dispatcher
	locations  location.Provider
	notifier   notify.Sink
	period     time.Duration
	logCtx     context.Context

	enabled bool
	timer   scheduler.Handle
	closed  bool
	mu      sync.Mutex
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPeriod overrides DefaultPeriod.
func WithPeriod(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.period = d
		}
	}
}

// WithNotifier sets the notification sink.
func WithNotifier(n notify.Sink) Option {
	return func(s *Scheduler) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogContext sets the context whose logger timer callbacks use.
func WithLogContext(ctx context.Context) Option {
	return func(s *Scheduler) {
		if ctx != nil {
			s.logCtx = ctx
		}
	}
}

// New creates a disabled check-in scheduler.
func New(sched scheduler.Scheduler, dispatcher Dispatcher, locations location.Provider, opts ...Option) *Scheduler {
	s := &Scheduler{
		sched:      sched,
		dispatcher: dispatcher,
		locations:  locations,
		notifier:   notify.Discard,
		period:     DefaultPeriod,
		logCtx:     logger.WithName(context.Background(), "checkin"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Toggle enables or disables automatic check-ins and reports whether the
// setting changed. Disabling stops the timer immediately; a check-in that is
// already dispatching completes.
func (s *Scheduler) Toggle(ctx context.Context, enabled bool) bool {
	s.mu.Lock()
	if s.closed || s.enabled == enabled {
		s.mu.Unlock()

		logger.DebugKV(ctx, "Auto check-in toggle ignored", "enabled", enabled)

		return false
	}

	s.enabled = enabled

	if enabled {
		var h scheduler.Handle

		h = s.sched.Every(s.period, func() { s.fire(h) })
		s.timer = h
	} else {
		s.sched.Cancel(s.timer)
		s.timer = 0
	}
	s.mu.Unlock()

	if enabled {
		metrics.CheckinsEnabled.Set(1)
		logger.InfoKV(ctx, "Auto check-in enabled", "period", s.period)

		s.notifier.Emit(ctx, notify.Notification{
			Title:    "Auto Alert Activated",
			Body:     "Family members will be automatically notified of your location every " + describePeriod(s.period) + ".",
			Severity: notify.SeverityDestructive,
		})

		return true
	}

	metrics.CheckinsEnabled.Set(0)
	logger.Info(ctx, "Auto check-in disabled")

	s.notifier.Emit(ctx, notify.Notification{
		Title: "Auto Alert Deactivated",
		Body:  "Automatic location sharing has been stopped.",
	})

	return true
}

// Enabled reports the current setting.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.enabled
}

// Close cancels the timer. Toggle is a no-op afterwards.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	if s.timer != 0 {
		s.sched.Cancel(s.timer)
		s.timer = 0
	}

	if s.enabled {
		s.enabled = false
		metrics.CheckinsEnabled.Set(0)
	}
}

func (s *Scheduler) fire(h scheduler.Handle) {
	s.mu.Lock()
	live := s.enabled && s.timer == h
	s.mu.Unlock()

	if !live {
		return
	}

	batch, err := s.dispatcher.Dispatch(s.logCtx, alert.Trigger{
		Urgency:  alert.UrgencyAutoCheckin,
		Location: location.Snapshot(s.locations),
	})
	if err != nil {
		logger.ErrorKV(s.logCtx, "Failed to dispatch auto check-in", "error", err)

		return
	}

	logger.DebugKV(s.logCtx, "Auto check-in sent", "batch_id", batch.ID, "messages", len(batch.Messages))

	s.notifier.Emit(s.logCtx, notify.Notification{
		Title: "Auto Update Sent",
		Body:  "Your location has been shared with your family members.",
	})
}

func describePeriod(d time.Duration) string {
	if d%time.Minute == 0 {
		if m := int(d / time.Minute); m != 1 {
			return strconv.Itoa(m) + " minutes"
		}

		return "minute"
	}

	return d.String()
}
