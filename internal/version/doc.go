// Package version exposes the build metadata of the safeguardian binaries.
//
// Version, Commit and BuildTime are injected with -ldflags at build time.
// The values are printed by the `version` subcommand of every binary and
// logged by safety-server at startup.
package version
