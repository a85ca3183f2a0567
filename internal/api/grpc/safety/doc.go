// Package safety implements the gRPC transport for the safety engine.
//
// It adapts domain types to well-known protobuf records (see internal/wire),
// maps domain errors to gRPC status codes and streams engine events to
// WatchAlerts subscribers.
package safety
