package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/safeguardian/internal/logger"
)

// Config holds the settings shared by the safeguardian binaries.
type Config struct {
	// ServerAddress is the gRPC address of the safety server.
	ServerAddress string `split_words:"true" yaml:"server_addr"`
	// MetricsAddress is the listen address of the /metrics and /healthz
	// endpoints. Empty disables them.
	MetricsAddress string `split_words:"true" yaml:"metrics_addr"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`

	Log      Log      `yaml:"log"`
	Store    Store    `yaml:"store"`
	Timing   Timing   `yaml:"timing"`
	Location Location `yaml:"location"`
	MQTT     MQTT     `yaml:"mqtt"`

	// Siren is the initial siren setting.
	Siren bool `yaml:"siren"`
	// Notifications is the initial notifications setting.
	Notifications bool `yaml:"notifications"`
	// SeedDefaults seeds the reference contacts into a store that was never saved.
	SeedDefaults bool `split_words:"true" yaml:"seed_defaults"`
	// DangerousLabels are the detection labels that trigger the danger protocol.
	DangerousLabels []string `split_words:"true" yaml:"dangerous_labels"`
}

// Log configures logging.
type Log struct {
	Level string `yaml:"level"`
	// File enables a size-rotated log file next to stdout.
	File string `yaml:"file"`
}

// Store selects the contact store.
type Store struct {
	// Driver is one of file, sqlite or redis.
	Driver string `yaml:"driver"`
	// Path is the file or sqlite database path.
	Path      string `yaml:"path"`
	RedisAddr string `split_words:"true" yaml:"redis_addr"`
	RedisKey  string `split_words:"true" yaml:"redis_key"`
}

// Timing overrides the engine timing. Zero values keep the defaults.
type Timing struct {
	Countdown      int           `yaml:"countdown"`
	DispatchHold   time.Duration `split_words:"true" yaml:"dispatch_hold"`
	DeliveredAfter time.Duration `split_words:"true" yaml:"delivered_after"`
	ReadAfter      time.Duration `split_words:"true" yaml:"read_after"`
	CheckinPeriod  time.Duration `split_words:"true" yaml:"checkin_period"`
	LocationMaxAge time.Duration `split_words:"true" yaml:"location_max_age"`
}

// Location is an optional fixed fallback position.
type Location struct {
	Enabled bool    `yaml:"enabled"`
	Lat     float64 `yaml:"lat"`
	Lng     float64 `yaml:"lng"`
}

// MQTT configures the broker connection. An empty Broker disables MQTT.
type MQTT struct {
	Broker            string `yaml:"broker"`
	ClientID          string `split_words:"true" yaml:"client_id"`
	Username          string `yaml:"username"`
	Password          string `yaml:"password,omitempty"`
	DetectionTopic    string `split_words:"true" yaml:"detection_topic"`
	AlertTopic        string `split_words:"true" yaml:"alert_topic"`
	NotificationTopic string `split_words:"true" yaml:"notification_topic"`
}

// Store drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "safeguardian.yaml"

	// EnvPrefix prefixes every environment override, e.g. SAFEGUARDIAN_STORE_DRIVER.
	EnvPrefix = "SAFEGUARDIAN"

	// DefaultContactsFilename is the default file store path.
	DefaultContactsFilename = "safeguardian-contacts.json"

	// DefaultSQLiteFilename is the default sqlite store path.
	DefaultSQLiteFilename = "safeguardian.db"

	// DefaultRedisKey is the default redis key of the contact list.
	DefaultRedisKey = "safeguardian:contacts"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultMQTTClientID is used when no client id is configured.
	DefaultMQTTClientID = "safeguardian-server"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
	// errUnknownDriver is returned for an unsupported store driver.
	errUnknownDriver = errors.New("unknown store driver")
	// errRedisAddrRequired is returned when the redis driver has no address.
	errRedisAddrRequired = errors.New("redis address must be provided")
	// errUnknownLogLevel is returned for an unparsable log level.
	errUnknownLogLevel = errors.New("unknown log level")
)

// Default returns a configuration with every default filled in, except
// ServerAddress.
func Default() *Config {
	return &Config{
		Timeout:       DefaultTimeout,
		Siren:         true,
		Notifications: true,
		SeedDefaults:  true,
		Log:           Log{Level: "info"},
		Store: Store{
			Driver: DriverFile,
			Path:   DefaultContactsFilename,
		},
	}
}

// Load reads configuration from the provided path, applies SAFEGUARDIAN_*
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("process environment overrides: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills in defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if settings.MetricsAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", settings.MetricsAddress); err != nil {
			return fmt.Errorf("invalid metrics socket: %w", err)
		}
	}

	// Set default timeout if not specified
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if _, ok := logger.ParseLogLevel(settings.Log.Level); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, settings.Log.Level)
	}

	if err := validateStore(&settings.Store); err != nil {
		return err
	}

	if settings.Location.Enabled && !validCoordinates(settings.Location.Lat, settings.Location.Lng) {
		return fmt.Errorf("invalid fallback location %v,%v", settings.Location.Lat, settings.Location.Lng)
	}

	if settings.MQTT.Broker != "" && settings.MQTT.ClientID == "" {
		settings.MQTT.ClientID = DefaultMQTTClientID
	}

	return nil
}

func validateStore(store *Store) error {
	store.Driver = strings.ToLower(strings.TrimSpace(store.Driver))

	switch store.Driver {
	case "", DriverFile:
		store.Driver = DriverFile
		if store.Path == "" {
			store.Path = DefaultContactsFilename
		}
	case DriverSQLite:
		if store.Path == "" || store.Path == DefaultContactsFilename {
			store.Path = DefaultSQLiteFilename
		}
	case DriverRedis:
		if store.RedisAddr == "" {
			return errRedisAddrRequired
		}

		if store.RedisKey == "" {
			store.RedisKey = DefaultRedisKey
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownDriver, store.Driver)
	}

	return nil
}

func validCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
