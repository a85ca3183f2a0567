package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/safeguardian/internal/detect"
	"github.com/oshokin/safeguardian/internal/domain/alert"
	"github.com/oshokin/safeguardian/internal/domain/contact"
	"github.com/oshokin/safeguardian/internal/domain/geo"
	"github.com/oshokin/safeguardian/internal/notify"
	repo "github.com/oshokin/safeguardian/internal/repository/contacts"
	"github.com/oshokin/safeguardian/internal/scheduler"
	"github.com/oshokin/safeguardian/internal/sos"
)

// memoryRepository keeps the saved list in memory.
type memoryRepository struct {
	saved  []*contact.Contact
	stored bool
	mu     sync.Mutex
}

func (m *memoryRepository) Load(context.Context) ([]*contact.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.stored {
		return nil, repo.ErrNotFound
	}

	out := make([]*contact.Contact, 0, len(m.saved))
	for _, c := range m.saved {
		out = append(out, c.Clone())
	}

	return out, nil
}

func (m *memoryRepository) Save(_ context.Context, list []*contact.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saved = make([]*contact.Contact, 0, len(list))
	for _, c := range list {
		m.saved = append(m.saved, c.Clone())
	}

	m.stored = true

	return nil
}

func sequentialIDs() func() string {
	var (
		n  int
		mu sync.Mutex
	)

	return func() string {
		mu.Lock()
		defer mu.Unlock()

		n++

		return fmt.Sprintf("id-%d", n)
	}
}

// messageLog collects alert message events.
type messageLog struct {
	events []alert.Message
	mu     sync.Mutex
}

func (l *messageLog) add(m alert.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, m)
}

func (l *messageLog) count(urgency alert.Urgency, status alert.Status) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0

	for _, m := range l.events {
		if m.Urgency == urgency && m.Status == status {
			n++
		}
	}

	return n
}

func newVirtualEngine(t *testing.T, opts ...Option) (*Engine, *scheduler.Virtual, *notify.Recorder) {
	t.Helper()

	clock := scheduler.NewVirtual(time.Date(2025, 5, 5, 9, 0, 0, 0, time.UTC))
	rec := &notify.Recorder{}

	e, err := New(context.Background(), clock, &memoryRepository{},
		append([]Option{
			WithSeed(true),
			WithIDGenerator(sequentialIDs()),
			WithNotifications(true, rec),
		}, opts...)...)
	require.NoError(t, err)

	t.Cleanup(e.Close)

	return e, clock, rec
}

func TestEngine_SOSScenario(t *testing.T) {
	t.Parallel()

	e, clock, rec := newVirtualEngine(t)
	ctx := context.Background()

	log := &messageLog{}
	e.OnAlertMessage(log.add)

	require.True(t, e.ReportLocation(geo.Point{Lat: 51.5072, Lng: -0.1276}))
	require.True(t, e.ActivateSOS(ctx))

	clock.Advance(5 * time.Second)
	require.Equal(t, sos.StateDispatched, e.CurrentSOSState().State)

	// Primary plus ten family members.
	require.Equal(t, 11, log.count(alert.UrgencySOS, alert.StatusSent))

	clock.Advance(2 * time.Second)
	require.Equal(t, 11, log.count(alert.UrgencySOS, alert.StatusDelivered))

	clock.Advance(3 * time.Second)
	require.Equal(t, 11, log.count(alert.UrgencySOS, alert.StatusRead))

	clock.Advance(5 * time.Second)
	require.Equal(t, sos.StateIdle, e.CurrentSOSState().State)

	messages := e.Messages()
	require.Len(t, messages, 11)
	require.Contains(t, messages[0].Text, "https://maps.google.com/?q=51.5072,-0.1276")

	require.Equal(t, []string{
		"SOS Activating",
		"Family Members Alerted",
		"SOS Alert Sent!",
		"Emergency Response Activated",
	}, rec.Titles())
}

func TestEngine_ContactsFacade(t *testing.T) {
	t.Parallel()

	e, _, _ := newVirtualEngine(t, WithSeed(false))
	ctx := context.Background()

	require.Empty(t, e.ListContacts())

	mom, err := e.AddContact(ctx, contact.Draft{Name: "Mom", Phone: "555-123-4567", Relationship: "Family"})
	require.NoError(t, err)
	require.True(t, mom.IsPrimary)

	doc, err := e.AddContact(ctx, contact.Draft{Name: "Doc", Phone: "555-333-4444"})
	require.NoError(t, err)

	require.ErrorIs(t, e.DeleteContact(ctx, mom.ID), contact.ErrPrimaryProtected)
	require.NoError(t, e.SetPrimary(ctx, doc.ID))
	require.NoError(t, e.DeleteContact(ctx, mom.ID))
	require.Empty(t, e.ListFamily())

	family := contact.FamilyRelationship
	_, err = e.UpdateContact(ctx, doc.ID, contact.Patch{Relationship: &family})
	require.NoError(t, err)
	require.Len(t, e.ListFamily(), 1)
}

func TestEngine_AutoCheckin(t *testing.T) {
	t.Parallel()

	e, clock, rec := newVirtualEngine(t)
	ctx := context.Background()

	log := &messageLog{}
	e.OnAlertMessage(log.add)

	require.True(t, e.ToggleAutoCheckin(ctx, true))
	require.False(t, e.ToggleAutoCheckin(ctx, true))

	clock.Advance(5 * time.Minute)
	require.Equal(t, 10, log.count(alert.UrgencyAutoCheckin, alert.StatusSent))

	require.True(t, e.ToggleAutoCheckin(ctx, false))
	clock.Advance(time.Hour)
	require.Equal(t, 10, log.count(alert.UrgencyAutoCheckin, alert.StatusSent))

	require.Equal(t, []string{"Auto Alert Activated", "Auto Update Sent", "Auto Alert Deactivated"}, rec.Titles())
}

func TestEngine_DangerProtocol(t *testing.T) {
	t.Parallel()

	e, clock, rec := newVirtualEngine(t)
	ctx := context.Background()

	e.HandleDanger(ctx, detect.Event{Label: "Scream"})

	require.Equal(t, sos.StateArming, e.CurrentSOSState().State)
	require.Equal(t, sos.SourceDetection, e.CurrentSOSState().Trigger.Source)

	danger := e.Messages()
	require.Len(t, danger, 10)
	require.Equal(t, alert.UrgencyDangerDetected, danger[0].Urgency)

	// A second detection while armed only re-sends the danger fan-out.
	e.HandleDanger(ctx, detect.Event{Label: "Gunshot"})
	require.Len(t, e.Messages(), 20)

	clock.Advance(5 * time.Second)
	require.Equal(t, sos.StateDispatched, e.CurrentSOSState().State)
	require.Len(t, e.Messages(), 31)

	require.Equal(t, "Dangerous Sound Detected", rec.Titles()[0])
}

func TestEngine_DangerProtocolEmptyDirectory(t *testing.T) {
	t.Parallel()

	e, clock, rec := newVirtualEngine(t, WithSeed(false))
	ctx := context.Background()

	require.Empty(t, e.ListContacts())

	require.NotPanics(t, func() {
		e.HandleDanger(ctx, detect.Event{Label: "Scream"})
	})

	require.Empty(t, e.Messages())
	require.Equal(t, sos.StateArming, e.CurrentSOSState().State)
	require.Equal(t, sos.SourceDetection, e.CurrentSOSState().Trigger.Source)
	require.Equal(t, "Dangerous Sound Detected", rec.Titles()[0])

	// The session still runs to completion with nobody to alert.
	require.NotPanics(t, func() { clock.Advance(5 * time.Second) })
	require.Equal(t, sos.StateDispatched, e.CurrentSOSState().State)
	require.Empty(t, e.Messages())
}

func TestEngine_SendTestAlert(t *testing.T) {
	t.Parallel()

	e, _, rec := newVirtualEngine(t)

	batch, err := e.SendTestAlert(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Messages, 10)
	require.Contains(t, batch.Messages[0].Text, `"Test Emergency Sound"`)
	require.Equal(t, sos.StateIdle, e.CurrentSOSState().State)
	require.Equal(t, []string{"Sending Test Alerts"}, rec.Titles())
}

func TestEngine_NotificationsToggle(t *testing.T) {
	t.Parallel()

	e, _, rec := newVirtualEngine(t)
	ctx := context.Background()

	var seen []string

	unsubscribe := e.OnNotification(func(n notify.Notification) { seen = append(seen, n.Title) })
	defer unsubscribe()

	e.SetNotifications(false)
	require.False(t, e.NotificationsEnabled())
	require.True(t, e.ActivateSOS(ctx))
	require.Empty(t, rec.Titles())

	e.SetNotifications(true)
	require.True(t, e.CancelSOS(ctx))
	require.Equal(t, []string{"SOS Cancelled"}, rec.Titles())
	require.Equal(t, []string{"SOS Cancelled"}, seen)
}

func TestEngine_CloseStopsTimers(t *testing.T) {
	t.Parallel()

	e, clock, _ := newVirtualEngine(t)
	ctx := context.Background()

	require.True(t, e.ActivateSOS(ctx))
	require.True(t, e.ToggleAutoCheckin(ctx, true))

	_, err := e.SendTestAlert(ctx)
	require.NoError(t, err)

	e.Close()
	e.Close()
	require.Zero(t, clock.Pending())

	require.ErrorIs(t, e.ReportDanger(ctx, detect.Event{Label: "Scream"}), ErrClosed)
}

// TestEngine_ReportDangerRuntime runs the whole engine on the wall-clock
// scheduler inside a synctest bubble.
func TestEngine_ReportDangerRuntime(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		clock := scheduler.NewRuntime()
		defer clock.Stop()

		e, err := New(context.Background(), clock, &memoryRepository{}, WithSeed(true))
		require.NoError(t, err)

		defer e.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		e.Start(ctx)

		require.NoError(t, e.ReportDanger(ctx, detect.Event{Label: "Gunshot", Source: "test"}))
		synctest.Wait()
		require.Equal(t, sos.StateArming, e.CurrentSOSState().State)

		require.NoError(t, e.ReportDanger(ctx, detect.Event{Label: "Loud noise", Source: "test"}))
		synctest.Wait()
		require.Len(t, e.Messages(), 10, "non-dangerous labels are ignored")

		time.Sleep(5*time.Second + 100*time.Millisecond)
		synctest.Wait()
		require.Equal(t, sos.StateDispatched, e.CurrentSOSState().State)

		time.Sleep(10 * time.Second)
		synctest.Wait()
		require.Equal(t, sos.StateIdle, e.CurrentSOSState().State)

		for _, m := range e.Messages() {
			require.Equal(t, alert.StatusRead, m.Status)
		}
	})
}
