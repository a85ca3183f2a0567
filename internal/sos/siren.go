package sos

import (
	"context"

	"github.com/oshokin/safeguardian/internal/logger"
)

// Siren plays the audible alarm.
type Siren interface {
	Start(ctx context.Context)
	Stop(ctx context.Context)
}

// LogSiren only logs. It stands in where no audio output exists.
type LogSiren struct{}

// Start implements Siren.
func (LogSiren) Start(ctx context.Context) {
	logger.Info(ctx, "Siren started")
}

// Stop implements Siren.
func (LogSiren) Stop(ctx context.Context) {
	logger.Info(ctx, "Siren stopped")
}
