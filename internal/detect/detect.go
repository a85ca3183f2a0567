// Package detect consumes external danger signals (a sound classifier, a
// wearable, a broker topic) and hands dangerous events to a handler.
package detect

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/oshokin/safeguardian/internal/logger"
	"github.com/oshokin/safeguardian/internal/metrics"
)

// Event is one classified signal.
type Event struct {
	// Label names what was detected, e.g. "Scream".
	Label string
	// Source names the producer.
	Source string
}

// Signal is a stream of detection events. The channel is closed when the
// producer stops.
type Signal interface {
	Events() <-chan Event
}

// Handler reacts to a dangerous event.
type Handler func(ctx context.Context, e Event)

// DefaultDangerousLabels are the labels acted upon when no other set is given.
func DefaultDangerousLabels() []string {
	return []string{"Scream", "Gunshot"}
}

// ErrChannelClosed is returned by Channel.Publish after Close.
var ErrChannelClosed = errors.New("detection channel is closed")

// Channel is an in-process Signal fed by Publish.
type Channel struct {
	ch     chan Event
	done   chan struct{}
	once   sync.Once
	closed bool
	mu     sync.RWMutex
}

// NewChannel creates a Channel with the given buffer.
func NewChannel(buffer int) *Channel {
	return &Channel{
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}
}

// Events implements Signal.
func (c *Channel) Events() <-chan Event {
	return c.ch
}

// Publish queues e, blocking until it is accepted, ctx is done or the
// channel is closed.
func (c *Channel) Publish(ctx context.Context, e Event) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrChannelClosed
	}

	select {
	case c.ch <- e:
		return nil
	case <-c.done:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the channel. Pending publishers return ErrChannelClosed.
func (c *Channel) Close() {
	c.once.Do(func() {
		close(c.done)

		c.mu.Lock()
		defer c.mu.Unlock()

		c.closed = true
		close(c.ch)
	})
}

// Watcher reads signals and calls the handler for dangerous events.
type Watcher struct {
	signals   []Signal
	handle    Handler
	dangerous map[string]struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDangerousLabels replaces the default label set. Matching is case
// insensitive. An empty set treats every event as dangerous.
func WithDangerousLabels(labels ...string) WatcherOption {
	return func(w *Watcher) {
		w.dangerous = labelSet(labels)
	}
}

// NewWatcher creates a watcher over signals.
func NewWatcher(handle Handler, signals []Signal, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		signals:   signals,
		handle:    handle,
		dangerous: labelSet(DefaultDangerousLabels()),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Dangerous reports whether label is acted upon.
func (w *Watcher) Dangerous(label string) bool {
	if len(w.dangerous) == 0 {
		return true
	}

	_, ok := w.dangerous[normalize(label)]

	return ok
}

// Run consumes every signal until ctx is done or all signals are closed.
// Events are handled one at a time.
func (w *Watcher) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "detect")

	merged := make(chan Event)

	var wg sync.WaitGroup

	for _, s := range w.signals {
		wg.Add(1)

		go func(events <-chan Event) {
			defer wg.Done()

			forward(ctx, events, merged)
		}(s.Events())
	}

	go func() {
		wg.Wait()
		close(merged)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-merged:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}

				logger.Info(ctx, "All detection signals closed")

				return nil
			}

			w.dispatch(ctx, e)
		}
	}
}

func (w *Watcher) dispatch(ctx context.Context, e Event) {
	metrics.DetectionEvents.Inc()

	if !w.Dangerous(e.Label) {
		logger.DebugKV(ctx, "Detection event ignored", "label", e.Label, "source", e.Source)

		return
	}

	logger.WarnKV(ctx, "Dangerous event detected", "label", e.Label, "source", e.Source)
	w.handle(ctx, e)
}

func forward(ctx context.Context, in <-chan Event, out chan<- Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-in:
			if !ok {
				return
			}

			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}
}

func labelSet(labels []string) map[string]struct{} {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if n := normalize(l); n != "" {
			set[n] = struct{}{}
		}
	}

	return set
}

func normalize(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
