// Package mqtt connects the engine to an MQTT broker: detection events are
// read from a topic, and alert messages and notifications are published.
package mqtt
