package server

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-redis/redis/v8"

	"github.com/oshokin/safeguardian/internal/config"
	"github.com/oshokin/safeguardian/internal/domain/geo"
	"github.com/oshokin/safeguardian/internal/engine"
	"github.com/oshokin/safeguardian/internal/location"
	repo "github.com/oshokin/safeguardian/internal/repository/contacts"
	"github.com/oshokin/safeguardian/internal/sos"
)

// errUnsupportedDriver is returned for a store driver the server cannot open.
var errUnsupportedDriver = errors.New("unsupported store driver")

// closerFunc adapts a function to io.Closer.
type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openStore opens the contact repository selected by settings. The closer
// releases the underlying handle and is never nil.
func openStore(ctx context.Context, settings config.Store) (repo.Repository, io.Closer, error) {
	switch settings.Driver {
	case config.DriverFile:
		return repo.NewFileRepository(settings.Path), closerFunc(func() error { return nil }), nil
	case config.DriverSQLite:
		store, err := repo.OpenSQLite(ctx, settings.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}

		return store, store, nil
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{Addr: settings.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()

			return nil, nil, fmt.Errorf("ping redis store: %w", err)
		}

		return repo.NewRedisRepository(client, settings.RedisKey), client, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", errUnsupportedDriver, settings.Driver)
	}
}

// engineOptions translates the configuration into engine options. Zero timing
// values keep the engine defaults.
func engineOptions(settings *config.Config) []engine.Option {
	timing := engine.DefaultTiming()

	if settings.Timing.Countdown > 0 {
		timing.Countdown = settings.Timing.Countdown
	}

	if settings.Timing.DispatchHold > 0 {
		timing.DispatchHold = settings.Timing.DispatchHold
	}

	if settings.Timing.DeliveredAfter > 0 {
		timing.DeliveredAfter = settings.Timing.DeliveredAfter
	}

	if settings.Timing.ReadAfter > 0 {
		timing.ReadAfter = settings.Timing.ReadAfter
	}

	if settings.Timing.CheckinPeriod > 0 {
		timing.CheckinPeriod = settings.Timing.CheckinPeriod
	}

	if settings.Timing.LocationMaxAge > 0 {
		timing.LocationMaxAge = settings.Timing.LocationMaxAge
	}

	opts := []engine.Option{
		engine.WithTiming(timing),
		engine.WithSeed(settings.SeedDefaults),
		engine.WithSiren(sos.LogSiren{}, settings.Siren),
		engine.WithNotifications(settings.Notifications),
	}

	// An empty list in YAML would otherwise turn every detection dangerous.
	if len(settings.DangerousLabels) > 0 {
		opts = append(opts, engine.WithDangerousLabels(settings.DangerousLabels...))
	}

	if settings.Location.Enabled {
		opts = append(opts, engine.WithLocationFallback(location.Fixed(geo.Point{
			Lat: settings.Location.Lat,
			Lng: settings.Location.Lng,
		})))
	}

	return opts
}
