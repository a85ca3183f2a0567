// Package config defines the settings used by the safeguardian binaries and
// provides helpers to load, validate and save them in YAML format.
//
// Every field can be overridden from the environment with the SAFEGUARDIAN_
// prefix, e.g. SAFEGUARDIAN_STORE_DRIVER=sqlite or SAFEGUARDIAN_MQTT_BROKER.
package config
