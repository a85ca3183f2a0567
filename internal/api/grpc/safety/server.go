package safety

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/safeguardian/internal/detect"
	"github.com/oshokin/safeguardian/internal/domain/alert"
	"github.com/oshokin/safeguardian/internal/domain/contact"
	"github.com/oshokin/safeguardian/internal/domain/geo"
	"github.com/oshokin/safeguardian/internal/logger"
	"github.com/oshokin/safeguardian/internal/notify"
	pb "github.com/oshokin/safeguardian/internal/pb/v1"
	"github.com/oshokin/safeguardian/internal/sos"
	"github.com/oshokin/safeguardian/internal/wire"
)

// Service abstracts the engine operations the transport layer depends on.
type Service interface {
	ActivateSOS(ctx context.Context) bool
	CancelSOS(ctx context.Context) bool
	CurrentSOSState() sos.Snapshot
	SetSiren(ctx context.Context, enabled bool)
	OnSOSState(fn func(sos.Snapshot)) func()

	AddContact(ctx context.Context, draft contact.Draft) (*contact.Contact, error)
	UpdateContact(ctx context.Context, id string, patch contact.Patch) (*contact.Contact, error)
	DeleteContact(ctx context.Context, id string) error
	SetPrimary(ctx context.Context, id string) error
	ListContacts() []*contact.Contact
	ListFamily() []*contact.Contact

	ToggleAutoCheckin(ctx context.Context, enabled bool) bool
	AutoCheckinEnabled() bool
	SetNotifications(enabled bool)
	NotificationsEnabled() bool

	Messages() []*alert.Message
	OnAlertMessage(fn func(alert.Message)) func()
	OnNotification(fn func(notify.Notification)) func()
	SendTestAlert(ctx context.Context) (*alert.Batch, error)
	ReportLocation(p geo.Point) bool
	ReportDanger(ctx context.Context, event detect.Event) error
}

// Event types sent on WatchAlerts.
const (
	EventMessage      = "message"
	EventSOS          = "sos"
	EventNotification = "notification"
)

// watchBuffer is the per-stream event queue length. Events beyond it are
// dropped for that subscriber.
const watchBuffer = 64

// Server implements the SafetyService gRPC API.
type Server struct {
	pb.UnimplementedSafetyServiceServer

	// service provides the engine operations.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// ActivateSOS starts the SOS countdown.
func (s *Server) ActivateSOS(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ctx = withActor(ctx, req)
	accepted := s.service.ActivateSOS(ctx)

	return sosResponse(accepted, s.service.CurrentSOSState()), nil
}

// CancelSOS aborts the SOS countdown.
func (s *Server) CancelSOS(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ctx = withActor(ctx, req)
	accepted := s.service.CancelSOS(ctx)

	return sosResponse(accepted, s.service.CurrentSOSState()), nil
}

// GetSOSState returns the SOS snapshot.
func (s *Server) GetSOSState(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return wire.SnapshotToStruct(s.service.CurrentSOSState()), nil
}

// SetSiren switches the siren setting.
func (s *Server) SetSiren(ctx context.Context, req *wrapperspb.BoolValue) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	s.service.SetSiren(ctx, req.GetValue())

	return wire.SnapshotToStruct(s.service.CurrentSOSState()), nil
}

// AddContact creates a contact.
func (s *Server) AddContact(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	created, err := s.service.AddContact(ctx, wire.DraftFromStruct(req))
	if err != nil {
		return nil, toStatus(ctx, "add contact", err)
	}

	return wire.ContactToStruct(created), nil
}

// UpdateContact merges a patch into a contact.
func (s *Server) UpdateContact(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	id, patch := wire.PatchFromStruct(req)
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "contact id is required")
	}

	updated, err := s.service.UpdateContact(ctx, id, patch)
	if err != nil {
		return nil, toStatus(ctx, "update contact", err)
	}

	return wire.ContactToStruct(updated), nil
}

// DeleteContact removes a contact.
func (s *Server) DeleteContact(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "contact id is required")
	}

	if err := s.service.DeleteContact(ctx, req.GetValue()); err != nil {
		return nil, toStatus(ctx, "delete contact", err)
	}

	return &emptypb.Empty{}, nil
}

// SetPrimary makes a contact primary.
func (s *Server) SetPrimary(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "contact id is required")
	}

	if err := s.service.SetPrimary(ctx, req.GetValue()); err != nil {
		return nil, toStatus(ctx, "set primary contact", err)
	}

	return &emptypb.Empty{}, nil
}

// ListContacts returns every contact.
func (s *Server) ListContacts(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	return wire.ContactsToList(s.service.ListContacts()), nil
}

// ListFamily returns the family members.
func (s *Server) ListFamily(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	return wire.ContactsToList(s.service.ListFamily()), nil
}

// ToggleAutoCheckin switches periodic check-ins.
func (s *Server) ToggleAutoCheckin(ctx context.Context, req *wrapperspb.BoolValue) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	changed := s.service.ToggleAutoCheckin(ctx, req.GetValue())

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"changed": structpb.NewBoolValue(changed),
			"enabled": structpb.NewBoolValue(s.service.AutoCheckinEnabled()),
		},
	}, nil
}

// SetNotifications switches user-facing notifications.
func (s *Server) SetNotifications(ctx context.Context, req *wrapperspb.BoolValue) (*wrapperspb.BoolValue, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	s.service.SetNotifications(req.GetValue())
	logger.InfoKV(ctx, "Notifications setting changed", "enabled", req.GetValue())

	return wrapperspb.Bool(s.service.NotificationsEnabled()), nil
}

// ListMessages returns the retained alert messages, newest first.
func (s *Server) ListMessages(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	return wire.MessagesToList(s.service.Messages()), nil
}

// SendTestAlert sends a labelled danger-detected batch.
func (s *Server) SendTestAlert(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	batch, err := s.service.SendTestAlert(ctx)
	if err != nil {
		return nil, toStatus(ctx, "send test alert", err)
	}

	return wire.BatchToStruct(batch), nil
}

// ReportLocation records the device position.
func (s *Server) ReportLocation(_ context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	p, ok := wire.PointFromStruct(req)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "lat and lng are required numbers")
	}

	if !s.service.ReportLocation(p) {
		return nil, status.Error(codes.InvalidArgument, "coordinates out of range")
	}

	return &emptypb.Empty{}, nil
}

// ReportDanger queues a detection event.
func (s *Server) ReportDanger(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	event, err := wire.DetectionEventFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if event.Source == "" {
		event.Source = "api"
	}

	if err = s.service.ReportDanger(ctx, event); err != nil {
		return nil, toStatus(ctx, "report danger", err)
	}

	return &emptypb.Empty{}, nil
}

// WatchAlerts streams message, SOS and notification events until the client
// goes away. The current SOS snapshot is sent first.
func (s *Server) WatchAlerts(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := logger.WithName(stream.Context(), "watch")
	events := make(chan *structpb.Struct, watchBuffer)

	push := func(e *structpb.Struct) {
		select {
		case events <- e:
		default:
			logger.Warn(ctx, "Watch stream is too slow, event dropped")
		}
	}

	unsubscribeMessages := s.service.OnAlertMessage(func(m alert.Message) {
		push(event(EventMessage, wire.MessageToStruct(&m)))
	})
	defer unsubscribeMessages()

	unsubscribeSOS := s.service.OnSOSState(func(snap sos.Snapshot) {
		push(event(EventSOS, wire.SnapshotToStruct(snap)))
	})
	defer unsubscribeSOS()

	unsubscribeNotifications := s.service.OnNotification(func(n notify.Notification) {
		push(event(EventNotification, wire.NotificationToStruct(n)))
	})
	defer unsubscribeNotifications()

	if err := stream.Send(event(EventSOS, wire.SnapshotToStruct(s.service.CurrentSOSState()))); err != nil {
		return err
	}

	logger.Info(ctx, "Watch stream opened")

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Watch stream closed")

			return nil
		case e := <-events:
			if err := stream.Send(e); err != nil {
				return err
			}
		}
	}
}

// event wraps a record as {type, <type>: record}.
func event(kind string, payload *structpb.Struct) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"type": structpb.NewStringValue(kind),
			kind:   structpb.NewStructValue(payload),
		},
	}
}

func sosResponse(accepted bool, snap sos.Snapshot) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"accepted": structpb.NewBoolValue(accepted),
			"sos":      structpb.NewStructValue(wire.SnapshotToStruct(snap)),
		},
	}
}

// withActor annotates the logger with the requesting host and user.
func withActor(ctx context.Context, req *structpb.Struct) context.Context {
	actor := wire.ActorFromStruct(req.GetFields()["actor"].GetStructValue())
	if actor.Hostname == "" && actor.Username == "" {
		return ctx
	}

	return logger.WithFields(ctx, "actor_host", actor.Hostname, "actor_user", actor.Username)
}
