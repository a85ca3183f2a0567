// Package wire converts domain types to and from protobuf well-known types.
//
// The gRPC service, the contact stores and the MQTT publisher all speak
// google.protobuf.Struct / ListValue, encoded with protojson when bytes are
// needed. Field names follow the persisted contact layout (id, name, phone,
// email, relationship, isPrimary, isFamily).
package wire
