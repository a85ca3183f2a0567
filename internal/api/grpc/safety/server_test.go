package safety

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/safeguardian/internal/domain/alert"
	"github.com/oshokin/safeguardian/internal/domain/contact"
	"github.com/oshokin/safeguardian/internal/domain/geo"
	"github.com/oshokin/safeguardian/internal/engine"
	"github.com/oshokin/safeguardian/internal/scheduler"
	"github.com/oshokin/safeguardian/internal/wire"
)

// fakeStream captures events sent on a WatchAlerts stream.
type fakeStream struct {
	grpc.ServerStream

	ctx  context.Context
	sent chan *structpb.Struct
}

func (f *fakeStream) Context() context.Context { return f.ctx }

func (f *fakeStream) Send(s *structpb.Struct) error {
	f.sent <- s

	return nil
}

func newTestServer(t *testing.T) (*Server, *engine.Engine, *scheduler.Virtual) {
	t.Helper()

	var (
		n  int
		mu sync.Mutex
	)

	ids := func() string {
		mu.Lock()
		defer mu.Unlock()

		n++

		return fmt.Sprintf("id-%d", n)
	}

	sched := scheduler.NewVirtual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	e, err := engine.New(context.Background(), sched, nil,
		engine.WithSeed(true),
		engine.WithIDGenerator(ids))
	require.NoError(t, err)

	t.Cleanup(e.Close)

	return NewServer(e), e, sched
}

func primaryID(t *testing.T, s *Server) string {
	t.Helper()

	list, err := s.ListContacts(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)

	for _, c := range wire.ContactsFromList(list) {
		if c.IsPrimary {
			return c.ID
		}
	}

	require.Fail(t, "no primary contact")

	return ""
}

func TestServer_ContactErrors(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	ctx := context.Background()

	_, err := s.AddContact(ctx, wire.DraftToStruct(contact.Draft{Name: "  "}))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.UpdateContact(ctx, wire.PatchToStruct("missing", contact.Patch{}))
	require.Equal(t, codes.NotFound, status.Code(err))

	_, err = s.UpdateContact(ctx, &structpb.Struct{})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.DeleteContact(ctx, wrapperspb.String(primaryID(t, s)))
	require.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = s.SetPrimary(ctx, wrapperspb.String(""))
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestServer_AddAndPromote(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	ctx := context.Background()

	created, err := s.AddContact(ctx, wire.DraftToStruct(contact.Draft{
		Name:         "Casey",
		Phone:        "555-000-1111",
		Relationship: contact.FamilyRelationship,
	}))
	require.NoError(t, err)

	added := wire.ContactFromStruct(created)
	require.True(t, added.IsFamily)
	require.False(t, added.IsPrimary)

	_, err = s.SetPrimary(ctx, wrapperspb.String(added.ID))
	require.NoError(t, err)
	require.Equal(t, added.ID, primaryID(t, s))

	family, err := s.ListFamily(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	require.Len(t, family.GetValues(), 11)
}

func TestServer_SOSLifecycle(t *testing.T) {
	t.Parallel()

	s, _, sched := newTestServer(t)
	ctx := context.Background()

	resp, err := s.ActivateSOS(ctx, wire.WithActor(wire.Actor{Hostname: "phone", Username: "sam"}))
	require.NoError(t, err)
	require.True(t, resp.GetFields()["accepted"].GetBoolValue())

	snap, err := s.GetSOSState(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	require.Equal(t, "arming", snap.GetFields()["state"].GetStringValue())

	resp, err = s.ActivateSOS(ctx, nil)
	require.NoError(t, err)
	require.False(t, resp.GetFields()["accepted"].GetBoolValue())

	sched.Advance(5 * time.Second)

	messages, err := s.ListMessages(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	require.NotEmpty(t, messages.GetValues())

	resp, err = s.CancelSOS(ctx, nil)
	require.NoError(t, err)
	require.False(t, resp.GetFields()["accepted"].GetBoolValue())
}

func TestServer_Settings(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	ctx := context.Background()

	toggled, err := s.ToggleAutoCheckin(ctx, wrapperspb.Bool(true))
	require.NoError(t, err)
	require.True(t, toggled.GetFields()["changed"].GetBoolValue())
	require.True(t, toggled.GetFields()["enabled"].GetBoolValue())

	toggled, err = s.ToggleAutoCheckin(ctx, wrapperspb.Bool(true))
	require.NoError(t, err)
	require.False(t, toggled.GetFields()["changed"].GetBoolValue())

	enabled, err := s.SetNotifications(ctx, wrapperspb.Bool(false))
	require.NoError(t, err)
	require.False(t, enabled.GetValue())

	snap, err := s.SetSiren(ctx, wrapperspb.Bool(false))
	require.NoError(t, err)
	require.False(t, snap.GetFields()["siren"].GetBoolValue())

	_, err = s.SetSiren(ctx, nil)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestServer_LocationAndDanger(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	ctx := context.Background()

	_, err := s.ReportLocation(ctx, wire.PointToStruct(geo.Point{Lat: 120, Lng: 0}))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.ReportLocation(ctx, &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"lat": structpb.NewNumberValue(51.5),
			"lng": structpb.NewNumberValue(-0.12),
		},
	})
	require.NoError(t, err)

	_, err = s.ReportDanger(ctx, &structpb.Struct{})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.ReportDanger(ctx, &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"label": structpb.NewStringValue("Scream"),
		},
	})
	require.NoError(t, err)
}

func TestServer_ReportLocationIncomplete(t *testing.T) {
	t.Parallel()

	s, e, _ := newTestServer(t)
	ctx := context.Background()

	for _, req := range []*structpb.Struct{
		{},
		{Fields: map[string]*structpb.Value{"lat": structpb.NewNumberValue(51.5)}},
		{Fields: map[string]*structpb.Value{
			"lat": structpb.NewNumberValue(51.5),
			"lng": structpb.NewStringValue("-0.12"),
		}},
	} {
		_, err := s.ReportLocation(ctx, req)
		require.Equal(t, codes.InvalidArgument, status.Code(err), req.String())
	}

	_, ok := e.CurrentLocation()
	require.False(t, ok)

	batch, err := s.SendTestAlert(ctx, &emptypb.Empty{})
	require.NoError(t, err)

	for _, m := range wire.BatchFromStruct(batch).Messages {
		require.Nil(t, m.Location)
		require.Contains(t, m.Text, geo.Unavailable)
	}
}

func TestServer_ReportDangerAfterClose(t *testing.T) {
	t.Parallel()

	s, e, _ := newTestServer(t)
	e.Close()

	_, err := s.ReportDanger(context.Background(), &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"label": structpb.NewStringValue("Scream"),
		},
	})
	require.Equal(t, codes.Unavailable, status.Code(err))
}

func TestServer_SendTestAlert(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)

	batch, err := s.SendTestAlert(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)

	decoded := wire.BatchFromStruct(batch)
	require.Equal(t, alert.UrgencyDangerDetected, decoded.Urgency)
	require.Len(t, decoded.Messages, 10)
}

func TestServer_WatchAlerts(t *testing.T) {
	t.Parallel()

	s, _, sched := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	stream := &fakeStream{ctx: ctx, sent: make(chan *structpb.Struct, watchBuffer)}
	done := make(chan error, 1)

	go func() {
		done <- s.WatchAlerts(&emptypb.Empty{}, stream)
	}()

	first := <-stream.sent
	require.Equal(t, EventSOS, first.GetFields()["type"].GetStringValue())
	require.Equal(t, "idle", first.GetFields()[EventSOS].GetStructValue().GetFields()["state"].GetStringValue())

	_, err := s.ActivateSOS(context.Background(), nil)
	require.NoError(t, err)

	seen := make(map[string]bool)

	deadline := time.After(5 * time.Second)
	for !seen[EventSOS] || !seen[EventNotification] {
		select {
		case e := <-stream.sent:
			seen[e.GetFields()["type"].GetStringValue()] = true
		case <-deadline:
			require.Fail(t, "watch events not delivered", "seen: %v", seen)
		}
	}

	sched.Advance(5 * time.Second)

	for !seen[EventMessage] {
		select {
		case e := <-stream.sent:
			seen[e.GetFields()["type"].GetStringValue()] = true
		case <-deadline:
			require.Fail(t, "message event not delivered")
		}
	}

	cancel()
	require.NoError(t, <-done)
}
