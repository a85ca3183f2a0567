// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - context helpers (FromContext/WithName/WithKV/WithFields),
//   - level parsing and an optional size-rotated log file,
//   - convenience functions (Info, InfoKV, ErrorKV, etc.).
//
// All components accept a context and extract the logger from it, enabling
// scoped, structured logging throughout the codebase.
package logger
