package wire

import (
	"google.golang.org/protobuf/types/known/structpb"
)

// Actor identifies the host and user issuing a command.
type Actor struct {
	Hostname string
	Username string
}

// ActorToStruct converts an actor into a {hostname, username} record.
func ActorToStruct(a Actor) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"hostname": structpb.NewStringValue(a.Hostname),
			"username": structpb.NewStringValue(a.Username),
		},
	}
}

// ActorFromStruct reads an actor record. A nil record yields the zero actor.
func ActorFromStruct(s *structpb.Struct) Actor {
	return Actor{
		Hostname: str(s, "hostname"),
		Username: str(s, "username"),
	}
}

// WithActor wraps an actor into a command request record.
func WithActor(a Actor) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"actor": structpb.NewStructValue(ActorToStruct(a)),
		},
	}
}
