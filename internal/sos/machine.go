package sos

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/safeguardian/internal/domain/alert"
	"github.com/oshokin/safeguardian/internal/location"
	"github.com/oshokin/safeguardian/internal/logger"
	"github.com/oshokin/safeguardian/internal/metrics"
	"github.com/oshokin/safeguardian/internal/notify"
	"github.com/oshokin/safeguardian/internal/scheduler"
)

// Defaults for the session timing.
const (
	DefaultCountdown    = 5
	DefaultTick         = time.Second
	DefaultDispatchHold = 10 * time.Second
)

// Dispatcher sends the SOS alert batch.
type Dispatcher interface {
	Dispatch(ctx context.Context, trigger alert.Trigger) (*alert.Batch, error)
}

// Machine is the SOS state machine. All timers are owned by the machine and
// tagged with the session generation, so a callback from a cancelled session
// never acts.
type Machine struct {
	sched      scheduler.Scheduler
	dispatcher Dispatcher
	locations  location.Provider
	notifier   notify.Sink
	siren      Siren
	logCtx     context.Context

	countdownFrom int
	tickEvery     time.Duration
	hold          time.Duration

	state     State
	countdown int
	startedAt time.Time
	trigger   Trigger
	batchID   string
	sirenOn   bool
	playing   bool

	generation uint64
	tick       scheduler.Handle
	holdTimer  scheduler.Handle

	subscribers map[uint64]func(Snapshot)
	nextSub     uint64
	closed      bool
	mu          sync.Mutex
}

// Option configures a Machine.
type Option func(*Machine)

// WithNotifier sets the notification sink.
func WithNotifier(s notify.Sink) Option {
	return func(m *Machine) {
		if s != nil {
			m.notifier = s
		}
	}
}

// WithSiren sets the siren and its initial setting.
func WithSiren(s Siren, enabled bool) Option {
	return func(m *Machine) {
		if s != nil {
			m.siren = s
		}

		m.sirenOn = enabled
	}
}

// WithCountdown overrides the countdown length in ticks.
func WithCountdown(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.countdownFrom = n
		}
	}
}

// WithTiming overrides the tick period and the dispatched hold.
func WithTiming(tick, hold time.Duration) Option {
	return func(m *Machine) {
		if tick > 0 {
			m.tickEvery = tick
		}

		if hold > 0 {
			m.hold = hold
		}
	}
}

// WithLogContext sets the context whose logger timer callbacks use.
func WithLogContext(ctx context.Context) Option {
	return func(m *Machine) {
		if ctx != nil {
			m.logCtx = ctx
		}
	}
}

// New creates an idle machine.
func New(sched scheduler.Scheduler, dispatcher Dispatcher, locations location.Provider, opts ...Option) *Machine {
	m := &Machine{
		sched:         sched,
		dispatcher:    dispatcher,
		locations:     locations,
		notifier:      notify.Discard,
		siren:         LogSiren{},
		sirenOn:       true,
		logCtx:        logger.WithName(context.Background(), "sos"),
		countdownFrom: DefaultCountdown,
		tickEvery:     DefaultTick,
		hold:          DefaultDispatchHold,
		subscribers:   make(map[uint64]func(Snapshot)),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.countdown = m.countdownFrom

	return m
}

// Activate starts the countdown. It returns false when a session is already
// in progress or the machine is closed.
func (m *Machine) Activate(ctx context.Context, trigger Trigger) bool {
	if trigger.Source == "" {
		trigger.Source = SourceManual
	}

	m.mu.Lock()
	if m.closed || m.state != StateIdle {
		state := m.state
		m.mu.Unlock()

		logger.DebugKV(ctx, "SOS activation ignored", "state", state, "source", trigger.Source)

		return false
	}

	m.generation++
	gen := m.generation

	m.state = StateArming
	m.countdown = m.countdownFrom
	m.startedAt = m.sched.Now()
	m.trigger = trigger
	m.batchID = ""
	m.tick = m.sched.Every(m.tickEvery, func() { m.onTick(gen) })

	snap, subs := m.snapshotLocked(), m.subscriberList()
	m.mu.Unlock()

	metrics.SOSTransitions.WithLabelValues(StateArming.String()).Inc()
	logger.InfoKV(ctx, "SOS activating", "source", trigger.Source, "label", trigger.Label, "countdown", snap.Countdown)

	m.notifier.Emit(ctx, notify.Notification{
		Title:    "SOS Activating",
		Body:     fmt.Sprintf("Sending emergency alert in %d seconds. Tap cancel to stop.", snap.Countdown),
		Severity: notify.SeverityDestructive,
	})

	publish(subs, snap)

	return true
}

// Cancel aborts an arming session. It returns false outside Arming.
func (m *Machine) Cancel(ctx context.Context) bool {
	m.mu.Lock()
	if m.state != StateArming {
		state := m.state
		m.mu.Unlock()

		logger.DebugKV(ctx, "SOS cancel ignored", "state", state)

		return false
	}

	m.generation++
	m.sched.Cancel(m.tick)
	m.tick = 0
	m.resetLocked()

	stopSiren := m.playing
	m.playing = false

	snap, subs := m.snapshotLocked(), m.subscriberList()
	m.mu.Unlock()

	if stopSiren {
		m.siren.Stop(ctx)
	}

	metrics.SOSTransitions.WithLabelValues(StateIdle.String()).Inc()
	logger.Info(ctx, "SOS cancelled")

	m.notifier.Emit(ctx, notify.Notification{
		Title: "SOS Cancelled",
		Body:  "Emergency alert has been cancelled.",
	})

	publish(subs, snap)

	return true
}

// State returns the current snapshot.
func (m *Machine) State() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.snapshotLocked()
}

// SetSiren switches the siren setting. Turning it off silences a playing siren.
func (m *Machine) SetSiren(ctx context.Context, enabled bool) {
	m.mu.Lock()
	m.sirenOn = enabled

	stopSiren := !enabled && m.playing
	if stopSiren {
		m.playing = false
	}

	snap, subs := m.snapshotLocked(), m.subscriberList()
	m.mu.Unlock()

	if stopSiren {
		m.siren.Stop(ctx)
	}

	n := notify.Notification{
		Title: "Siren Sound Disabled",
		Body:  "The emergency siren will not play when SOS is activated.",
	}
	if enabled {
		n = notify.Notification{
			Title: "Siren Sound Enabled",
			Body:  "The emergency siren will play when SOS is activated.",
		}
	}

	m.notifier.Emit(ctx, n)
	publish(subs, snap)
}

// Subscribe registers fn for every state change. The returned function
// unsubscribes.
func (m *Machine) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSub++
	id := m.nextSub
	m.subscribers[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		delete(m.subscribers, id)
	}
}

// Close cancels the session timers and silences the siren. The machine
// rejects activations afterwards.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()

		return
	}

	m.closed = true
	m.generation++

	if m.tick != 0 {
		m.sched.Cancel(m.tick)
		m.tick = 0
	}

	if m.holdTimer != 0 {
		m.sched.Cancel(m.holdTimer)
		m.holdTimer = 0
	}

	stopSiren := m.playing
	m.playing = false
	m.resetLocked()
	m.mu.Unlock()

	if stopSiren {
		m.siren.Stop(m.logCtx)
	}
}

func (m *Machine) onTick(gen uint64) {
	m.mu.Lock()
	if gen != m.generation || m.state != StateArming {
		m.mu.Unlock()

		return
	}

	m.countdown--

	if m.countdown > 0 {
		snap, subs := m.snapshotLocked(), m.subscriberList()
		m.mu.Unlock()

		publish(subs, snap)

		return
	}

	m.sched.Cancel(m.tick)
	m.tick = 0
	m.state = StateDispatched
	m.holdTimer = m.sched.AfterFunc(m.hold, func() { m.onHoldExpired(gen) })

	trigger := m.trigger
	m.mu.Unlock()

	m.dispatch(gen, trigger)
}

// dispatch sends the SOS batch for session gen, which is already Dispatched.
func (m *Machine) dispatch(gen uint64, trigger Trigger) {
	ctx := logger.WithKV(m.logCtx, "source", trigger.Source)
	loc := location.Snapshot(m.locations)

	batch, err := m.dispatcher.Dispatch(ctx, alert.Trigger{
		Urgency:  alert.UrgencySOS,
		Location: loc,
		Label:    trigger.Label,
	})
	if err != nil {
		logger.ErrorKV(ctx, "Failed to dispatch SOS alert", "error", err)
	}

	m.mu.Lock()
	if gen != m.generation || m.state != StateDispatched {
		m.mu.Unlock()

		return
	}

	if batch != nil {
		m.batchID = batch.ID
	}

	startSiren := m.sirenOn && !m.playing
	if startSiren {
		m.playing = true
	}

	snap, subs := m.snapshotLocked(), m.subscriberList()
	m.mu.Unlock()

	if startSiren {
		m.siren.Start(ctx)
	}

	metrics.SOSTransitions.WithLabelValues(StateDispatched.String()).Inc()

	if err == nil {
		withLocation := ""
		if loc != nil {
			withLocation = " with your location"
		}

		logger.InfoKV(ctx, "SOS alert sent", "batch_id", batch.ID, "messages", len(batch.Messages))

		m.notifier.Emit(ctx, notify.Notification{
			Title:    "SOS Alert Sent!",
			Body:     "Emergency contacts have been notified of your situation" + withLocation + ".",
			Severity: notify.SeverityDestructive,
		})
	}

	publish(subs, snap)
}

func (m *Machine) onHoldExpired(gen uint64) {
	m.mu.Lock()
	if gen != m.generation || m.state != StateDispatched {
		m.mu.Unlock()

		return
	}

	m.holdTimer = 0
	m.state = StateCooldown
	cooldown := m.snapshotLocked()

	stopSiren := m.playing
	m.playing = false
	m.resetLocked()

	idle, subs := m.snapshotLocked(), m.subscriberList()
	m.mu.Unlock()

	if stopSiren {
		m.siren.Stop(m.logCtx)
	}

	metrics.SOSTransitions.WithLabelValues(StateCooldown.String()).Inc()
	metrics.SOSTransitions.WithLabelValues(StateIdle.String()).Inc()
	logger.Info(m.logCtx, "SOS session finished")

	m.notifier.Emit(m.logCtx, notify.Notification{
		Title:    "Emergency Response Activated",
		Body:     "Emergency services would be contacted in a real scenario.",
		Severity: notify.SeverityDestructive,
	})

	publish(subs, cooldown)
	publish(subs, idle)
}

// resetLocked returns the session fields to Idle. Callers hold mu.
func (m *Machine) resetLocked() {
	m.state = StateIdle
	m.countdown = m.countdownFrom
	m.startedAt = time.Time{}
	m.trigger = Trigger{}
	m.batchID = ""
}

func (m *Machine) snapshotLocked() Snapshot {
	return Snapshot{
		State:     m.state,
		Countdown: m.countdown,
		StartedAt: m.startedAt,
		Trigger:   m.trigger,
		BatchID:   m.batchID,
		Siren:     m.sirenOn,
	}
}

func (m *Machine) subscriberList() []func(Snapshot) {
	subs := make([]func(Snapshot), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}

	return subs
}

func publish(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
