// Package v1 declares the safeguardian.v1.SafetyService gRPC contract.
//
// The service is expressed over protobuf well-known types only
// (google.protobuf.Struct, ListValue, BoolValue, StringValue, Empty), so no
// generated message code is needed. The record layouts carried inside the
// Struct payloads are documented in api/safeguardian/v1/safety.proto and
// encoded by internal/wire.
package v1
