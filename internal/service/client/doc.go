// Package client implements the safetyctl operations.
//
// Each operation connects to the safety server through common.Client, runs
// one request (SOS activation retries until the server answers) and prints a
// human-readable result.
package client
