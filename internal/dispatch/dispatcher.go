package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/safeguardian/internal/domain/alert"
	"github.com/oshokin/safeguardian/internal/domain/contact"
	"github.com/oshokin/safeguardian/internal/domain/geo"
	"github.com/oshokin/safeguardian/internal/logger"
	"github.com/oshokin/safeguardian/internal/metrics"
	"github.com/oshokin/safeguardian/internal/notify"
	"github.com/oshokin/safeguardian/internal/scheduler"
)

// Default delivery simulation delays, measured from dispatch.
const (
	DefaultDeliveredAfter = 2 * time.Second
	DefaultReadAfter      = 5 * time.Second

	// DefaultRetention is how many messages the log keeps.
	DefaultRetention = 500
)

var (
	// ErrClosed is returned by Dispatch after Close.
	ErrClosed = errors.New("dispatcher is closed")
	// ErrUnknownUrgency is returned for a trigger with an unknown urgency tier.
	ErrUnknownUrgency = errors.New("unknown urgency")
)

// Source supplies the contacts to alert. List must return a snapshot the
// dispatcher may keep.
type Source interface {
	List() []*contact.Contact
}

// Transport hands a created message to the outside world (SMS gateway,
// broker). Failures are logged and never fail the dispatch.
type Transport interface {
	Send(ctx context.Context, m *alert.Message) error
}

// Dispatcher creates alert messages and advances their delivery status.
type Dispatcher struct {
	sched     scheduler.Scheduler
	source    Source
	notifier  notify.Sink
	transport Transport
	newID     func() string
	// logCtx carries the logger used by timer callbacks.
	logCtx context.Context

	deliveredAfter time.Duration
	readAfter      time.Duration
	retention      int

	// messages is the retained log, oldest first.
	messages []*alert.Message
	byID     map[string]*alert.Message
	// timers holds the live status timers.
	timers      map[scheduler.Handle]struct{}
	subscribers map[uint64]func(alert.Message)
	nextSub     uint64
	closed      bool
	mu          sync.Mutex
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithNotifier sets the sink for user-facing notifications.
func WithNotifier(s notify.Sink) Option {
	return func(d *Dispatcher) {
		if s != nil {
			d.notifier = s
		}
	}
}

// WithTransport sets the outbound transport.
func WithTransport(t Transport) Option {
	return func(d *Dispatcher) {
		d.transport = t
	}
}

// WithDelays overrides the Delivered and Read delays.
func WithDelays(delivered, read time.Duration) Option {
	return func(d *Dispatcher) {
		if delivered > 0 {
			d.deliveredAfter = delivered
		}

		if read > 0 {
			d.readAfter = read
		}
	}
}

// WithIDGenerator overrides uuid-based message and batch ids.
func WithIDGenerator(fn func() string) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.newID = fn
		}
	}
}

// WithRetention limits the message log. Non-positive values keep the default.
func WithRetention(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.retention = n
		}
	}
}

// WithLogContext sets the context whose logger timer callbacks use.
func WithLogContext(ctx context.Context) Option {
	return func(d *Dispatcher) {
		if ctx != nil {
			d.logCtx = ctx
		}
	}
}

// New creates a dispatcher reading recipients from source.
func New(sched scheduler.Scheduler, source Source, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sched:          sched,
		source:         source,
		notifier:       notify.Discard,
		newID:          uuid.NewString,
		logCtx:         logger.WithName(context.Background(), "dispatch"),
		deliveredAfter: DefaultDeliveredAfter,
		readAfter:      DefaultReadAfter,
		retention:      DefaultRetention,
		byID:           make(map[string]*alert.Message),
		timers:         make(map[scheduler.Handle]struct{}),
		subscribers:    make(map[uint64]func(alert.Message)),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// recipient is one addressee of a batch.
type recipient struct {
	contact *contact.Contact
	kind    messageKind
}

// Dispatch creates one batch of messages for trigger. A directory without
// eligible recipients yields an empty batch and no error.
func (d *Dispatcher) Dispatch(ctx context.Context, trigger alert.Trigger) (*alert.Batch, error) {
	if !trigger.Urgency.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownUrgency, trigger.Urgency)
	}

	recipients, familyCount := selectRecipients(trigger.Urgency, d.source.List())

	now := d.sched.Now()
	locationText := geo.Describe(trigger.Location)

	batch := &alert.Batch{
		ID:          d.newID(),
		Urgency:     trigger.Urgency,
		CreatedAt:   now,
		FamilyCount: familyCount,
		Messages:    make([]*alert.Message, 0, len(recipients)),
	}

	ctx = logger.WithKV(ctx, "batch_id", batch.ID)

	for _, r := range recipients {
		m := &alert.Message{
			ID:           d.newID(),
			BatchID:      batch.ID,
			ContactID:    r.contact.ID,
			ContactName:  r.contact.Name,
			Phone:        r.contact.Phone,
			Urgency:      trigger.Urgency,
			Priority:     priorityFor(trigger.Urgency),
			Text:         renderText(trigger, r.kind, locationText),
			LocationText: locationText,
			CreatedAt:    now,
			UpdatedAt:    now,
			Status:       alert.StatusSent,
		}

		if trigger.Location != nil {
			loc := *trigger.Location
			m.Location = &loc
		}

		batch.Messages = append(batch.Messages, m)
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()

		return nil, ErrClosed
	}

	for _, m := range batch.Messages {
		d.retain(m)
	}

	if len(batch.Messages) > 0 {
		ids := messageIDs(batch.Messages)
		d.scheduleStatus(ids, alert.StatusDelivered, d.deliveredAfter)
		d.scheduleStatus(ids, alert.StatusRead, d.readAfter)
	}

	subs := d.subscriberList()
	created := cloneMessages(batch.Messages)
	d.mu.Unlock()

	metrics.AlertBatches.WithLabelValues(string(trigger.Urgency)).Inc()
	metrics.AlertMessages.WithLabelValues(string(trigger.Urgency)).Add(float64(len(created)))

	logger.InfoKV(ctx, "Alert batch dispatched",
		"urgency", trigger.Urgency,
		"messages", len(created),
		"family", familyCount,
		"location", locationText)

	for _, m := range created {
		d.send(ctx, m)
		publish(subs, m)
	}

	if trigger.Urgency == alert.UrgencySOS {
		d.notifyFamily(ctx, familyCount)
	}

	return &alert.Batch{
		ID:          batch.ID,
		Urgency:     batch.Urgency,
		CreatedAt:   batch.CreatedAt,
		FamilyCount: batch.FamilyCount,
		Messages:    created,
	}, nil
}

// Subscribe registers fn for message creations and status changes. fn runs
// outside the dispatcher lock. The returned function unsubscribes.
func (d *Dispatcher) Subscribe(fn func(alert.Message)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextSub++
	id := d.nextSub
	d.subscribers[id] = fn

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		delete(d.subscribers, id)
	}
}

// Messages returns copies of the retained messages, newest first.
func (d *Dispatcher) Messages() []*alert.Message {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]*alert.Message, 0, len(d.messages))
	for i := len(d.messages) - 1; i >= 0; i-- {
		out = append(out, d.messages[i].Clone())
	}

	return out
}

// Message returns a copy of one retained message.
func (d *Dispatcher) Message(id string) (*alert.Message, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, ok := d.byID[id]
	if !ok {
		return nil, false
	}

	return m.Clone(), true
}

// Close cancels every pending status timer. No status change happens after
// Close returns.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	d.closed = true

	for h := range d.timers {
		d.sched.Cancel(h)
	}

	clear(d.timers)
}

// scheduleStatus arms a one-shot timer moving ids to status. Callers hold mu.
func (d *Dispatcher) scheduleStatus(ids []string, status alert.Status, after time.Duration) {
	var h scheduler.Handle

	h = d.sched.AfterFunc(after, func() {
		d.advance(h, ids, status)
	})

	d.timers[h] = struct{}{}
}

func (d *Dispatcher) advance(h scheduler.Handle, ids []string, status alert.Status) {
	d.mu.Lock()
	if _, live := d.timers[h]; !live || d.closed {
		d.mu.Unlock()

		return
	}

	delete(d.timers, h)

	now := d.sched.Now()
	changed := make([]*alert.Message, 0, len(ids))

	for _, id := range ids {
		m, ok := d.byID[id]
		if !ok || !m.Advance(status, now) {
			continue
		}

		changed = append(changed, m.Clone())
	}

	subs := d.subscriberList()
	d.mu.Unlock()

	if len(changed) == 0 {
		return
	}

	metrics.StatusTransitions.WithLabelValues(status.String()).Add(float64(len(changed)))
	logger.DebugKV(d.logCtx, "Alert messages advanced", "status", status, "count", len(changed))

	for _, m := range changed {
		publish(subs, m)
	}
}

// retain appends m to the log, evicting the oldest entries over retention.
// Callers hold mu.
func (d *Dispatcher) retain(m *alert.Message) {
	d.messages = append(d.messages, m)
	d.byID[m.ID] = m

	if over := len(d.messages) - d.retention; over > 0 {
		for _, old := range d.messages[:over] {
			delete(d.byID, old.ID)
		}

		d.messages = append(d.messages[:0:0], d.messages[over:]...)
	}
}

// subscriberList copies the subscriber set. Callers hold mu.
func (d *Dispatcher) subscriberList() []func(alert.Message) {
	subs := make([]func(alert.Message), 0, len(d.subscribers))
	for _, fn := range d.subscribers {
		subs = append(subs, fn)
	}

	return subs
}

func (d *Dispatcher) send(ctx context.Context, m *alert.Message) {
	if d.transport == nil {
		return
	}

	if err := d.transport.Send(ctx, m); err != nil {
		metrics.TransportFailures.Inc()
		logger.WarnKV(ctx, "Failed to hand alert message to transport", "message_id", m.ID, "error", err)
	}
}

func (d *Dispatcher) notifyFamily(ctx context.Context, familyCount int) {
	if familyCount == 0 {
		d.notifier.Emit(ctx, notify.Notification{
			Title:    "No Family Members",
			Body:     "Add family members to enable automatic alerts to them in emergencies.",
			Severity: notify.SeverityInfo,
		})

		return
	}

	d.notifier.Emit(ctx, notify.Notification{
		Title:    "Family Members Alerted",
		Body:     fmt.Sprintf("%d family members have been sent high-priority alerts.", familyCount),
		Severity: notify.SeverityDestructive,
	})
}

// selectRecipients applies the recipient policy and returns the recipients
// with the number of family members among them.
func selectRecipients(u alert.Urgency, contacts []*contact.Contact) ([]recipient, int) {
	var family []*contact.Contact

	for _, c := range contacts {
		if c.IsFamily {
			family = append(family, c)
		}
	}

	var recipients []recipient

	switch u {
	case alert.UrgencySOS:
		for _, c := range contacts {
			if c.IsPrimary {
				recipients = append(recipients, recipient{contact: c, kind: kindIndividual})

				break
			}
		}

		for _, c := range family {
			recipients = append(recipients, recipient{contact: c, kind: kindBroadcast})
		}
	default:
		pool := family
		if len(pool) == 0 {
			pool = contacts
		}

		for _, c := range pool {
			recipients = append(recipients, recipient{contact: c, kind: kindBroadcast})
		}
	}

	return recipients, len(family)
}

func publish(subs []func(alert.Message), m *alert.Message) {
	for _, fn := range subs {
		fn(*m.Clone())
	}
}

func messageIDs(messages []*alert.Message) []string {
	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
	}

	return ids
}

func cloneMessages(messages []*alert.Message) []*alert.Message {
	out := make([]*alert.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Clone())
	}

	return out
}
