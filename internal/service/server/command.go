package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"google.golang.org/grpc"

	api "github.com/oshokin/safeguardian/internal/api/grpc/safety"
	"github.com/oshokin/safeguardian/internal/config"
	"github.com/oshokin/safeguardian/internal/engine"
	"github.com/oshokin/safeguardian/internal/logger"
	"github.com/oshokin/safeguardian/internal/mqtt"
	pb "github.com/oshokin/safeguardian/internal/pb/v1"
	"github.com/oshokin/safeguardian/internal/scheduler"
	"github.com/oshokin/safeguardian/internal/version"
)

// Options controls the safety-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// MetricsAddress overrides the /metrics and /healthz listen address.
	MetricsAddress string
	// StorePath overrides the file or sqlite store path.
	StorePath string
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the gRPC server and blocks until context is canceled or server stops.
// Loads configuration first, then determines listen address from config or override.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "safety-server")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.StorePath != "" {
		settings.Store.Path = opts.StorePath
	}

	if opts.MetricsAddress != "" {
		settings.MetricsAddress = opts.MetricsAddress
	}

	closeLog := setupLogger(settings.Log)
	defer closeLog()

	logger.InfoKV(ctx, "Starting safety server", version.Fields()...)

	// CLI argument overrides config port extraction.
	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	store, storeCloser, err := openStore(ctx, settings.Store)
	if err != nil {
		return err
	}

	defer closeQuietly(ctx, "contact store", storeCloser)

	engineOpts := engineOptions(settings)

	if settings.MQTT.Broker != "" {
		mqttOpts, closeMQTT, mqttErr := connectMQTT(ctx, settings)
		if mqttErr != nil {
			return mqttErr
		}

		defer closeMQTT()

		engineOpts = append(engineOpts, mqttOpts...)
	}

	sched := scheduler.NewRuntime()
	defer sched.Stop()

	safety, err := engine.New(ctx, sched, store, engineOpts...)
	if err != nil {
		return fmt.Errorf("initialise engine: %w", err)
	}

	defer safety.Close()

	safety.Start(ctx)

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer()
	pb.RegisterSafetyServiceServer(grpcServer, api.NewServer(safety))

	logger.InfoKV(ctx, "Safety server listening",
		"listen_address", listenAddress,
		"store_driver", settings.Store.Driver,
		"contacts", len(safety.ListContacts()))

	httpErrs := make(chan error, 1)

	if settings.MetricsAddress != "" {
		go func() {
			httpErrs <- serveHTTP(ctx, settings.MetricsAddress, settings.Timeout)
		}()
	} else {
		close(httpErrs)
	}

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	if err := <-httpErrs; err != nil {
		return err
	}

	return nil
}

// setupLogger installs the process logger. The returned function flushes it
// and closes the log file, if any.
func setupLogger(settings config.Log) func() {
	level, _ := logger.ParseLogLevel(settings.Level)
	logger.SetLevel(level)

	if settings.File == "" {
		return func() {
			_ = logger.Logger().Sync()
		}
	}

	l, closer := logger.NewWithFile(settings.File, logger.AtomicLevel())
	logger.SetLogger(l)

	return func() {
		_ = l.Sync()
		_ = closer.Close()
	}
}

// connectMQTT connects to the broker and returns the engine options that
// publish alerts and notifications and consume detections.
func connectMQTT(ctx context.Context, settings *config.Config) ([]engine.Option, func(), error) {
	ctx = logger.WithName(ctx, "mqtt")

	client, err := mqtt.Connect(ctx, mqtt.Config{
		Broker:         settings.MQTT.Broker,
		ClientID:       settings.MQTT.ClientID,
		Username:       settings.MQTT.Username,
		Password:       settings.MQTT.Password,
		ConnectTimeout: settings.Timeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to MQTT broker: %w", err)
	}

	publisher := mqtt.NewPublisher(client, settings.MQTT.AlertTopic, settings.MQTT.NotificationTopic)

	opts := []engine.Option{
		engine.WithTransport(publisher),
		engine.WithNotifications(settings.Notifications, publisher),
	}

	var detections *mqtt.DetectionSignal

	if settings.MQTT.DetectionTopic != "" {
		detections, err = mqtt.SubscribeDetections(ctx, client, settings.MQTT.DetectionTopic)
		if err != nil {
			client.Close()

			return nil, nil, fmt.Errorf("subscribe to detections: %w", err)
		}

		opts = append(opts, engine.WithSignals(detections))
	}

	logger.InfoKV(ctx, "Connected to MQTT broker",
		"broker", settings.MQTT.Broker,
		"detection_topic", settings.MQTT.DetectionTopic,
		"alert_topic", settings.MQTT.AlertTopic)

	return opts, func() {
		if detections != nil {
			detections.Close()
		}

		client.Close()
	}, nil
}

func closeQuietly(ctx context.Context, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.WarnKV(ctx, "Failed to close resource", "resource", name, "error", err)
	}
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Port-only listen address binds on all interfaces.
	return ":" + port, nil
}
