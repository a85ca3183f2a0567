package v1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "safeguardian.v1.SafetyService"

// Full method names.
const (
	SafetyService_ActivateSOS_FullMethodName       = "/" + ServiceName + "/ActivateSOS"
	SafetyService_CancelSOS_FullMethodName         = "/" + ServiceName + "/CancelSOS"
	SafetyService_GetSOSState_FullMethodName       = "/" + ServiceName + "/GetSOSState"
	SafetyService_SetSiren_FullMethodName          = "/" + ServiceName + "/SetSiren"
	SafetyService_AddContact_FullMethodName        = "/" + ServiceName + "/AddContact"
	SafetyService_UpdateContact_FullMethodName     = "/" + ServiceName + "/UpdateContact"
	SafetyService_DeleteContact_FullMethodName     = "/" + ServiceName + "/DeleteContact"
	SafetyService_SetPrimary_FullMethodName        = "/" + ServiceName + "/SetPrimary"
	SafetyService_ListContacts_FullMethodName      = "/" + ServiceName + "/ListContacts"
	SafetyService_ListFamily_FullMethodName        = "/" + ServiceName + "/ListFamily"
	SafetyService_ToggleAutoCheckin_FullMethodName = "/" + ServiceName + "/ToggleAutoCheckin"
	SafetyService_SetNotifications_FullMethodName  = "/" + ServiceName + "/SetNotifications"
	SafetyService_ListMessages_FullMethodName      = "/" + ServiceName + "/ListMessages"
	SafetyService_SendTestAlert_FullMethodName     = "/" + ServiceName + "/SendTestAlert"
	SafetyService_ReportLocation_FullMethodName    = "/" + ServiceName + "/ReportLocation"
	SafetyService_ReportDanger_FullMethodName      = "/" + ServiceName + "/ReportDanger"
	SafetyService_WatchAlerts_FullMethodName       = "/" + ServiceName + "/WatchAlerts"
)

// SafetyServiceServer is the server API for SafetyService.
type SafetyServiceServer interface {
	// ActivateSOS starts the SOS countdown. Request: {actor}. Response: {accepted, sos}.
	ActivateSOS(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// CancelSOS aborts the countdown. Request: {actor}. Response: {accepted, sos}.
	CancelSOS(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// GetSOSState returns the SOS snapshot.
	GetSOSState(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// SetSiren switches the siren setting and returns the SOS snapshot.
	SetSiren(context.Context, *wrapperspb.BoolValue) (*structpb.Struct, error)
	// AddContact creates a contact from a draft record.
	AddContact(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// UpdateContact applies a patch record carrying the contact id.
	UpdateContact(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// DeleteContact removes the contact with the given id.
	DeleteContact(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	// SetPrimary makes the contact with the given id primary.
	SetPrimary(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	// ListContacts returns every contact in insertion order.
	ListContacts(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	// ListFamily returns the family members.
	ListFamily(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	// ToggleAutoCheckin switches check-ins. Response: {changed, enabled}.
	ToggleAutoCheckin(context.Context, *wrapperspb.BoolValue) (*structpb.Struct, error)
	// SetNotifications switches notifications and echoes the setting.
	SetNotifications(context.Context, *wrapperspb.BoolValue) (*wrapperspb.BoolValue, error)
	// ListMessages returns the retained alert messages, newest first.
	ListMessages(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	// SendTestAlert sends a labelled danger-detected batch.
	SendTestAlert(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// ReportLocation records a {lat, lng} fix.
	ReportLocation(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	// ReportDanger queues a {label, source} detection event.
	ReportDanger(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	// WatchAlerts streams {type, ...} events: message, sos and notification.
	WatchAlerts(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
	mustEmbedUnimplementedSafetyServiceServer()
}

// UnimplementedSafetyServiceServer must be embedded to have forward compatible implementations.
type UnimplementedSafetyServiceServer struct{}

func (UnimplementedSafetyServiceServer) ActivateSOS(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ActivateSOS not implemented")
}

func (UnimplementedSafetyServiceServer) CancelSOS(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method CancelSOS not implemented")
}

func (UnimplementedSafetyServiceServer) GetSOSState(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSOSState not implemented")
}

func (UnimplementedSafetyServiceServer) SetSiren(context.Context, *wrapperspb.BoolValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SetSiren not implemented")
}

func (UnimplementedSafetyServiceServer) AddContact(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method AddContact not implemented")
}

func (UnimplementedSafetyServiceServer) UpdateContact(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateContact not implemented")
}

func (UnimplementedSafetyServiceServer) DeleteContact(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteContact not implemented")
}

func (UnimplementedSafetyServiceServer) SetPrimary(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method SetPrimary not implemented")
}

func (UnimplementedSafetyServiceServer) ListContacts(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	return nil, status.Error(codes.Unimplemented, "method ListContacts not implemented")
}

func (UnimplementedSafetyServiceServer) ListFamily(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	return nil, status.Error(codes.Unimplemented, "method ListFamily not implemented")
}

func (UnimplementedSafetyServiceServer) ToggleAutoCheckin(
	context.Context,
	*wrapperspb.BoolValue,
) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ToggleAutoCheckin not implemented")
}

func (UnimplementedSafetyServiceServer) SetNotifications(
	context.Context,
	*wrapperspb.BoolValue,
) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method SetNotifications not implemented")
}

func (UnimplementedSafetyServiceServer) ListMessages(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	return nil, status.Error(codes.Unimplemented, "method ListMessages not implemented")
}

func (UnimplementedSafetyServiceServer) SendTestAlert(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SendTestAlert not implemented")
}

func (UnimplementedSafetyServiceServer) ReportLocation(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method ReportLocation not implemented")
}

func (UnimplementedSafetyServiceServer) ReportDanger(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method ReportDanger not implemented")
}

func (UnimplementedSafetyServiceServer) WatchAlerts(
	*emptypb.Empty,
	grpc.ServerStreamingServer[structpb.Struct],
) error {
	return status.Error(codes.Unimplemented, "method WatchAlerts not implemented")
}

func (UnimplementedSafetyServiceServer) mustEmbedUnimplementedSafetyServiceServer() {}

// RegisterSafetyServiceServer registers srv on s.
func RegisterSafetyServiceServer(s grpc.ServiceRegistrar, srv SafetyServiceServer) {
	s.RegisterService(&SafetyService_ServiceDesc, srv)
}

// unaryHandler adapts a typed server method to grpc.MethodHandler.
func unaryHandler[Req, Res any](
	fullMethod string,
	call func(SafetyServiceServer, context.Context, *Req) (*Res, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}

		if interceptor == nil {
			return call(srv.(SafetyServiceServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SafetyServiceServer), ctx, req.(*Req))
		}

		return interceptor(ctx, in, info, handler)
	}
}

func watchAlertsHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	return srv.(SafetyServiceServer).WatchAlerts(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{
		ServerStream: stream,
	})
}

// SafetyService_ServiceDesc is the grpc.ServiceDesc for SafetyService.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var SafetyService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SafetyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ActivateSOS",
			Handler:    unaryHandler(SafetyService_ActivateSOS_FullMethodName, SafetyServiceServer.ActivateSOS),
		},
		{
			MethodName: "CancelSOS",
			Handler:    unaryHandler(SafetyService_CancelSOS_FullMethodName, SafetyServiceServer.CancelSOS),
		},
		{
			MethodName: "GetSOSState",
			Handler:    unaryHandler(SafetyService_GetSOSState_FullMethodName, SafetyServiceServer.GetSOSState),
		},
		{
			MethodName: "SetSiren",
			Handler:    unaryHandler(SafetyService_SetSiren_FullMethodName, SafetyServiceServer.SetSiren),
		},
		{
			MethodName: "AddContact",
			Handler:    unaryHandler(SafetyService_AddContact_FullMethodName, SafetyServiceServer.AddContact),
		},
		{
			MethodName: "UpdateContact",
			Handler:    unaryHandler(SafetyService_UpdateContact_FullMethodName, SafetyServiceServer.UpdateContact),
		},
		{
			MethodName: "DeleteContact",
			Handler:    unaryHandler(SafetyService_DeleteContact_FullMethodName, SafetyServiceServer.DeleteContact),
		},
		{
			MethodName: "SetPrimary",
			Handler:    unaryHandler(SafetyService_SetPrimary_FullMethodName, SafetyServiceServer.SetPrimary),
		},
		{
			MethodName: "ListContacts",
			Handler:    unaryHandler(SafetyService_ListContacts_FullMethodName, SafetyServiceServer.ListContacts),
		},
		{
			MethodName: "ListFamily",
			Handler:    unaryHandler(SafetyService_ListFamily_FullMethodName, SafetyServiceServer.ListFamily),
		},
		{
			MethodName: "ToggleAutoCheckin",
			Handler: unaryHandler(
				SafetyService_ToggleAutoCheckin_FullMethodName,
				SafetyServiceServer.ToggleAutoCheckin,
			),
		},
		{
			MethodName: "SetNotifications",
			Handler: unaryHandler(
				SafetyService_SetNotifications_FullMethodName,
				SafetyServiceServer.SetNotifications,
			),
		},
		{
			MethodName: "ListMessages",
			Handler:    unaryHandler(SafetyService_ListMessages_FullMethodName, SafetyServiceServer.ListMessages),
		},
		{
			MethodName: "SendTestAlert",
			Handler:    unaryHandler(SafetyService_SendTestAlert_FullMethodName, SafetyServiceServer.SendTestAlert),
		},
		{
			MethodName: "ReportLocation",
			Handler:    unaryHandler(SafetyService_ReportLocation_FullMethodName, SafetyServiceServer.ReportLocation),
		},
		{
			MethodName: "ReportDanger",
			Handler:    unaryHandler(SafetyService_ReportDanger_FullMethodName, SafetyServiceServer.ReportDanger),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchAlerts",
			Handler:       watchAlertsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "safeguardian/v1/safety.proto",
}
