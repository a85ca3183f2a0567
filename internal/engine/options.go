package engine

import (
	"time"

	"github.com/oshokin/safeguardian/internal/checkin"
	"github.com/oshokin/safeguardian/internal/detect"
	"github.com/oshokin/safeguardian/internal/dispatch"
	"github.com/oshokin/safeguardian/internal/location"
	"github.com/oshokin/safeguardian/internal/notify"
	"github.com/oshokin/safeguardian/internal/sos"
)

// Timing groups every duration the engine schedules with.
type Timing struct {
	// Countdown is the number of one-second ticks before SOS dispatch.
	Countdown      int
	Tick           time.Duration
	DispatchHold   time.Duration
	DeliveredAfter time.Duration
	ReadAfter      time.Duration
	CheckinPeriod  time.Duration
	// LocationMaxAge is how long a reported location stays usable; zero keeps it forever.
	LocationMaxAge time.Duration
}

// DefaultTiming returns the reference timing.
func DefaultTiming() Timing {
	return Timing{
		Countdown:      sos.DefaultCountdown,
		Tick:           sos.DefaultTick,
		DispatchHold:   sos.DefaultDispatchHold,
		DeliveredAfter: dispatch.DefaultDeliveredAfter,
		ReadAfter:      dispatch.DefaultReadAfter,
		CheckinPeriod:  checkin.DefaultPeriod,
		LocationMaxAge: DefaultLocationMaxAge,
	}
}

// DefaultLocationMaxAge is how long a reported fix is trusted.
const DefaultLocationMaxAge = 10 * time.Minute

// TestAlertLabel labels the danger dispatch sent by SendTestAlert.
const TestAlertLabel = "Test Emergency Sound"

type settings struct {
	timing          Timing
	siren           sos.Siren
	sirenOn         bool
	notificationsOn bool
	sinks           []notify.Sink
	transport       dispatch.Transport
	fallback        location.Provider
	seed            bool
	signals         []detect.Signal
	dangerousLabels []string
	newID           func() string
	retention       int
}

// Option configures an Engine.
type Option func(*settings)

// WithTiming overrides DefaultTiming. Zero fields keep their defaults.
func WithTiming(t Timing) Option {
	return func(s *settings) {
		d := DefaultTiming()

		if t.Countdown > 0 {
			d.Countdown = t.Countdown
		}

		if t.Tick > 0 {
			d.Tick = t.Tick
		}

		if t.DispatchHold > 0 {
			d.DispatchHold = t.DispatchHold
		}

		if t.DeliveredAfter > 0 {
			d.DeliveredAfter = t.DeliveredAfter
		}

		if t.ReadAfter > 0 {
			d.ReadAfter = t.ReadAfter
		}

		if t.CheckinPeriod > 0 {
			d.CheckinPeriod = t.CheckinPeriod
		}

		if t.LocationMaxAge > 0 {
			d.LocationMaxAge = t.LocationMaxAge
		}

		s.timing = d
	}
}

// WithSiren sets the siren output and its initial setting.
func WithSiren(siren sos.Siren, enabled bool) Option {
	return func(s *settings) {
		s.siren = siren
		s.sirenOn = enabled
	}
}

// WithNotifications sets the initial notifications setting and extra sinks
// besides the log.
func WithNotifications(enabled bool, sinks ...notify.Sink) Option {
	return func(s *settings) {
		s.notificationsOn = enabled
		s.sinks = append(s.sinks, sinks...)
	}
}

// WithTransport sets the outbound alert transport.
func WithTransport(t dispatch.Transport) Option {
	return func(s *settings) {
		s.transport = t
	}
}

// WithLocationFallback sets the provider used when no fresh fix was reported.
func WithLocationFallback(p location.Provider) Option {
	return func(s *settings) {
		s.fallback = p
	}
}

// WithSeed enables seeding the default contacts on first start.
func WithSeed(enabled bool) Option {
	return func(s *settings) {
		s.seed = enabled
	}
}

// WithSignals adds external detection signals.
func WithSignals(signals ...detect.Signal) Option {
	return func(s *settings) {
		s.signals = append(s.signals, signals...)
	}
}

// WithDangerousLabels replaces the labels that trigger the danger protocol.
func WithDangerousLabels(labels ...string) Option {
	return func(s *settings) {
		s.dangerousLabels = labels
	}
}

// WithIDGenerator overrides uuid-based ids for contacts, batches and messages.
func WithIDGenerator(fn func() string) Option {
	return func(s *settings) {
		s.newID = fn
	}
}

// WithRetention limits the alert message log.
func WithRetention(n int) Option {
	return func(s *settings) {
		s.retention = n
	}
}
