package client

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/safeguardian/internal/domain/contact"
	"github.com/oshokin/safeguardian/internal/domain/geo"
	"github.com/oshokin/safeguardian/internal/sos"
	"github.com/oshokin/safeguardian/internal/wire"
)

// fakeRemote implements the calls under test; the rest panic through the nil embed.
type fakeRemote struct {
	Remote

	activateErrs []error
	activations  int
	actor        wire.Actor
	contacts     []*contact.Contact
	family       []*contact.Contact
	reported     *geo.Point
}

func (f *fakeRemote) ActivateSOS(_ context.Context, actor wire.Actor) (bool, sos.Snapshot, error) {
	f.activations++
	f.actor = actor

	if len(f.activateErrs) > 0 {
		err := f.activateErrs[0]
		f.activateErrs = f.activateErrs[1:]

		return false, sos.Snapshot{}, err
	}

	return true, sos.Snapshot{State: sos.StateArming, Countdown: 5, Siren: true}, nil
}

func (f *fakeRemote) ListContacts(context.Context) ([]*contact.Contact, error) { return f.contacts, nil }

func (f *fakeRemote) ListFamily(context.Context) ([]*contact.Contact, error) { return f.family, nil }

func (f *fakeRemote) ToggleAutoCheckin(_ context.Context, enabled bool) (bool, bool, error) {
	return false, enabled, nil
}

func (f *fakeRemote) ReportLocation(_ context.Context, p geo.Point) error {
	f.reported = &p

	return nil
}

func (f *fakeRemote) Close() error { return nil }

func unavailable() error {
	return status.Error(codes.Unavailable, "connection refused")
}

// TestActivateSOS_RetriesUntilReachable verifies transient failures are retried with backoff.
func TestActivateSOS_RetriesUntilReachable(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		remote := &fakeRemote{activateErrs: []error{unavailable(), unavailable()}}
		out := new(bytes.Buffer)
		s := NewSession(remote, wire.Actor{Hostname: "phone", Username: "sam"}, out)

		require.NoError(t, s.ActivateSOS(context.Background()))
		require.Equal(t, 3, remote.activations)
		require.Equal(t, "sam", remote.actor.Username)
		require.Contains(t, out.String(), "SOS activated: state=arming countdown=5")
	})
}

// TestActivateSOS_PermanentError stops retrying on non-transient codes.
func TestActivateSOS_PermanentError(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{activateErrs: []error{status.Error(codes.Internal, "boom")}}
	s := NewSession(remote, wire.Actor{}, new(bytes.Buffer))

	err := s.ActivateSOS(context.Background())
	require.Equal(t, codes.Internal, status.Code(err))
	require.Equal(t, 1, remote.activations)
}

// TestActivateSOS_GivesUp honours the retry window.
func TestActivateSOS_GivesUp(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		errs := make([]error, 1000)
		for i := range errs {
			errs[i] = unavailable()
		}

		remote := &fakeRemote{activateErrs: errs}
		s := NewSession(remote, wire.Actor{}, new(bytes.Buffer))
		s.retryFor = 3 * time.Second

		err := s.ActivateSOS(context.Background())
		require.Equal(t, codes.Unavailable, status.Code(err))
		require.Greater(t, remote.activations, 1)
	})
}

// TestListContacts renders the directory as a table.
func TestListContacts(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{
		contacts: []*contact.Contact{
			{ID: "c1", Name: "Emergency Services", Phone: "999", IsPrimary: true},
			{ID: "c2", Name: "Alex Smith", Phone: "555", Relationship: "Family", IsFamily: true},
		},
		family: []*contact.Contact{
			{ID: "c2", Name: "Alex Smith", Phone: "555", Relationship: "Family", IsFamily: true},
		},
	}

	out := new(bytes.Buffer)
	s := NewSession(remote, wire.Actor{}, out)

	require.NoError(t, s.ListContacts(context.Background(), false))
	require.Contains(t, out.String(), "Emergency Services")
	require.Contains(t, out.String(), "Alex Smith")

	out.Reset()

	require.NoError(t, s.ListContacts(context.Background(), true))
	require.NotContains(t, out.String(), "Emergency Services")
}

// TestToggleCheckin_Unchanged reports an already-applied setting.
func TestToggleCheckin_Unchanged(t *testing.T) {
	t.Parallel()

	out := new(bytes.Buffer)
	s := NewSession(new(fakeRemote), wire.Actor{}, out)

	require.NoError(t, s.ToggleCheckin(context.Background(), true))
	require.Equal(t, "Auto check-in already enabled\n", out.String())
}

// TestReportLocation forwards the point.
func TestReportLocation(t *testing.T) {
	t.Parallel()

	remote := new(fakeRemote)
	out := new(bytes.Buffer)
	s := NewSession(remote, wire.Actor{}, out)

	require.NoError(t, s.ReportLocation(context.Background(), geo.Point{Lat: 1.5, Lng: 2.5}))
	require.Equal(t, &geo.Point{Lat: 1.5, Lng: 2.5}, remote.reported)
	require.Contains(t, out.String(), "Location reported")
}

// TestRetryable classifies errors.
func TestRetryable(t *testing.T) {
	t.Parallel()

	require.True(t, retryable(unavailable()))
	require.True(t, retryable(errors.New("plain transport error")))
	require.False(t, retryable(status.Error(codes.InvalidArgument, "bad")))
	require.False(t, retryable(context.Canceled))
}

// TestFormatSnapshot covers the optional fields.
func TestFormatSnapshot(t *testing.T) {
	t.Parallel()

	snap := sos.Snapshot{
		State:   sos.StateDispatched,
		Trigger: sos.Trigger{Source: sos.SourceDetection, Label: "Scream"},
		BatchID: "b1",
	}

	require.Equal(t, `state=dispatched source=detection label="Scream" batch=b1 siren=disabled`, formatSnapshot(snap))
}
