package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oshokin/safeguardian/internal/checkin"
	"github.com/oshokin/safeguardian/internal/detect"
	"github.com/oshokin/safeguardian/internal/directory"
	"github.com/oshokin/safeguardian/internal/dispatch"
	"github.com/oshokin/safeguardian/internal/domain/alert"
	"github.com/oshokin/safeguardian/internal/domain/contact"
	"github.com/oshokin/safeguardian/internal/domain/geo"
	"github.com/oshokin/safeguardian/internal/location"
	"github.com/oshokin/safeguardian/internal/logger"
	"github.com/oshokin/safeguardian/internal/notify"
	repo "github.com/oshokin/safeguardian/internal/repository/contacts"
	"github.com/oshokin/safeguardian/internal/scheduler"
	"github.com/oshokin/safeguardian/internal/sos"
)

// reportBuffer is the queue length for dangers reported through the API.
const reportBuffer = 8

// ErrClosed is returned by operations on a closed engine.
var ErrClosed = errors.New("engine is closed")

// Engine is the emergency alert orchestration facade.
type Engine struct {
	sched      scheduler.Scheduler
	contacts   *directory.Directory
	dispatcher *dispatch.Dispatcher
	machine    *sos.Machine
	checkins   *checkin.Scheduler
	tracker    *location.Tracker
	toggle     *notify.Toggle
	reports    *detect.Channel
	watcher    *detect.Watcher

	notificationSubs map[uint64]func(notify.Notification)
	nextSub          uint64
	subMu            sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
	closed bool
	mu     sync.Mutex
}

// New builds the engine and loads the contact directory from repository.
func New(ctx context.Context, sched scheduler.Scheduler, repository repo.Repository, opts ...Option) (*Engine, error) {
	s := &settings{
		timing:          DefaultTiming(),
		siren:           sos.LogSiren{},
		sirenOn:         true,
		notificationsOn: true,
	}

	for _, opt := range opts {
		opt(s)
	}

	e := &Engine{
		sched:            sched,
		notificationSubs: make(map[uint64]func(notify.Notification)),
		reports:          detect.NewChannel(reportBuffer),
	}

	var dirOpts []directory.Option
	if s.newID != nil {
		dirOpts = append(dirOpts, directory.WithIDGenerator(s.newID))
	}

	if s.seed {
		dirOpts = append(dirOpts, directory.WithSeed(directory.DefaultContacts()))
	}

	e.contacts = directory.New(repository, dirOpts...)
	if err := e.contacts.Load(logger.WithName(ctx, "directory")); err != nil {
		return nil, fmt.Errorf("load directory: %w", err)
	}

	sinks := append(notify.Multi{notify.LogSink{}}, s.sinks...)
	sinks = append(sinks, notify.SinkFunc(e.broadcastNotification))
	e.toggle = notify.NewToggle(sinks, s.notificationsOn)

	e.tracker = location.NewTracker(sched.Now, s.timing.LocationMaxAge, s.fallback)

	e.dispatcher = dispatch.New(sched, e.contacts,
		dispatch.WithNotifier(e.toggle),
		dispatch.WithTransport(s.transport),
		dispatch.WithDelays(s.timing.DeliveredAfter, s.timing.ReadAfter),
		dispatch.WithIDGenerator(s.newID),
		dispatch.WithRetention(s.retention),
		dispatch.WithLogContext(logger.WithName(ctx, "dispatch")))

	e.machine = sos.New(sched, e.dispatcher, e.tracker,
		sos.WithNotifier(e.toggle),
		sos.WithSiren(s.siren, s.sirenOn),
		sos.WithCountdown(s.timing.Countdown),
		sos.WithTiming(s.timing.Tick, s.timing.DispatchHold),
		sos.WithLogContext(logger.WithName(ctx, "sos")))

	e.checkins = checkin.New(sched, e.dispatcher, e.tracker,
		checkin.WithNotifier(e.toggle),
		checkin.WithPeriod(s.timing.CheckinPeriod),
		checkin.WithLogContext(logger.WithName(ctx, "checkin")))

	var watcherOpts []detect.WatcherOption
	if s.dangerousLabels != nil {
		watcherOpts = append(watcherOpts, detect.WithDangerousLabels(s.dangerousLabels...))
	}

	signals := append([]detect.Signal{e.reports}, s.signals...)
	e.watcher = detect.NewWatcher(e.HandleDanger, signals, watcherOpts...)

	return e, nil
}

// Start runs danger detection in the background until Close.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.cancel != nil {
		return
	}

	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})

	go func() {
		defer close(e.done)

		if err := e.watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorKV(ctx, "Danger detection stopped", "error", err)
		}
	}()
}

// Close stops detection and cancels every engine-owned timer. It is safe to
// call more than once.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()

		return
	}

	e.closed = true
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	e.reports.Close()

	if cancel != nil {
		cancel()
		<-done
	}

	e.checkins.Close()
	e.machine.Close()
	e.dispatcher.Close()
}

// ActivateSOS starts the SOS countdown.
func (e *Engine) ActivateSOS(ctx context.Context) bool {
	return e.machine.Activate(ctx, sos.Trigger{Source: sos.SourceManual})
}

// CancelSOS aborts the SOS countdown.
func (e *Engine) CancelSOS(ctx context.Context) bool {
	return e.machine.Cancel(ctx)
}

// CurrentSOSState returns the SOS session snapshot.
func (e *Engine) CurrentSOSState() sos.Snapshot {
	return e.machine.State()
}

// OnSOSState subscribes to SOS state changes.
func (e *Engine) OnSOSState(fn func(sos.Snapshot)) func() {
	return e.machine.Subscribe(fn)
}

// SetSiren switches the siren setting.
func (e *Engine) SetSiren(ctx context.Context, enabled bool) {
	e.machine.SetSiren(ctx, enabled)
}

// AddContact adds a contact to the directory.
func (e *Engine) AddContact(ctx context.Context, draft contact.Draft) (*contact.Contact, error) {
	return e.contacts.Add(ctx, draft)
}

// UpdateContact merges patch into a contact.
func (e *Engine) UpdateContact(ctx context.Context, id string, patch contact.Patch) (*contact.Contact, error) {
	return e.contacts.Update(ctx, id, patch)
}

// DeleteContact removes a contact.
func (e *Engine) DeleteContact(ctx context.Context, id string) error {
	return e.contacts.Remove(ctx, id)
}

// SetPrimary makes id the primary contact.
func (e *Engine) SetPrimary(ctx context.Context, id string) error {
	return e.contacts.SetPrimary(ctx, id)
}

// ListContacts returns every contact in insertion order.
func (e *Engine) ListContacts() []*contact.Contact {
	return e.contacts.List()
}

// ListFamily returns the family members.
func (e *Engine) ListFamily() []*contact.Contact {
	return e.contacts.Family()
}

// ToggleAutoCheckin switches periodic check-ins and reports whether the
// setting changed.
func (e *Engine) ToggleAutoCheckin(ctx context.Context, enabled bool) bool {
	return e.checkins.Toggle(ctx, enabled)
}

// AutoCheckinEnabled reports the check-in setting.
func (e *Engine) AutoCheckinEnabled() bool {
	return e.checkins.Enabled()
}

// OnAlertMessage subscribes to alert message creations and status changes.
func (e *Engine) OnAlertMessage(fn func(alert.Message)) func() {
	return e.dispatcher.Subscribe(fn)
}

// Messages returns the retained alert messages, newest first.
func (e *Engine) Messages() []*alert.Message {
	return e.dispatcher.Messages()
}

// SendTestAlert sends a labelled danger-detected batch without touching the
// SOS session.
func (e *Engine) SendTestAlert(ctx context.Context) (*alert.Batch, error) {
	e.toggle.Emit(ctx, notify.Notification{
		Title:    "Sending Test Alerts",
		Body:     "Sending example emergency alerts to your family contacts.",
		Severity: notify.SeverityDestructive,
	})

	return e.dispatcher.Dispatch(ctx, alert.Trigger{
		Urgency:  alert.UrgencyDangerDetected,
		Location: location.Snapshot(e.tracker),
		Label:    TestAlertLabel,
	})
}

// ReportLocation records the device position. Invalid coordinates are
// rejected.
func (e *Engine) ReportLocation(p geo.Point) bool {
	return e.tracker.Update(p)
}

// CurrentLocation returns the position dispatches would use.
func (e *Engine) CurrentLocation() (geo.Point, bool) {
	return e.tracker.Current()
}

// ReportDanger queues a detection event as if it came from a sensor.
func (e *Engine) ReportDanger(ctx context.Context, event detect.Event) error {
	if err := e.reports.Publish(ctx, event); err != nil {
		if errors.Is(err, detect.ErrChannelClosed) {
			return ErrClosed
		}

		return fmt.Errorf("report danger: %w", err)
	}

	return nil
}

// IsDangerous reports whether label would trigger the danger protocol.
func (e *Engine) IsDangerous(label string) bool {
	return e.watcher.Dangerous(label)
}

// HandleDanger runs the danger protocol: notify, send the danger-detected
// fan-out and start an SOS session unless one is already in progress.
func (e *Engine) HandleDanger(ctx context.Context, event detect.Event) {
	e.toggle.Emit(ctx, notify.Notification{
		Title:    "Dangerous Sound Detected",
		Body:     fmt.Sprintf("Detected %s. Activating emergency protocol.", event.Label),
		Severity: notify.SeverityDestructive,
	})

	_, err := e.dispatcher.Dispatch(ctx, alert.Trigger{
		Urgency:  alert.UrgencyDangerDetected,
		Location: location.Snapshot(e.tracker),
		Label:    event.Label,
	})
	if err != nil {
		logger.ErrorKV(ctx, "Failed to dispatch danger alert", "label", event.Label, "error", err)
	}

	if !e.machine.Activate(ctx, sos.Trigger{Source: sos.SourceDetection, Label: event.Label}) {
		logger.InfoKV(ctx, "SOS already in progress, danger not re-armed", "label", event.Label)
	}
}

// SetNotifications switches user-facing notifications.
func (e *Engine) SetNotifications(enabled bool) {
	e.toggle.SetEnabled(enabled)
}

// NotificationsEnabled reports the notifications setting.
func (e *Engine) NotificationsEnabled() bool {
	return e.toggle.Enabled()
}

// OnNotification subscribes to user-facing notifications that pass the
// notifications setting.
func (e *Engine) OnNotification(fn func(notify.Notification)) func() {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	e.nextSub++
	id := e.nextSub
	e.notificationSubs[id] = fn

	return func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()

		delete(e.notificationSubs, id)
	}
}

func (e *Engine) broadcastNotification(_ context.Context, n notify.Notification) {
	e.subMu.Lock()
	subs := make([]func(notify.Notification), 0, len(e.notificationSubs))

	for _, fn := range e.notificationSubs {
		subs = append(subs, fn)
	}
	e.subMu.Unlock()

	for _, fn := range subs {
		fn(n)
	}
}
