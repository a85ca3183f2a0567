// Package engine wires the contact directory, the alert dispatcher, the SOS
// state machine, the auto check-in scheduler and danger detection into one
// facade. Transports (gRPC, MQTT) talk to the engine only.
package engine
