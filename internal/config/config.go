package config

import (
	"time"

	"github.com/radio-control/bandlock/internal/adapter"
	"github.com/radio-control/bandlock/internal/adapter/hilink"
	"github.com/radio-control/bandlock/internal/audit"
	"github.com/radio-control/bandlock/internal/band"
	"github.com/radio-control/bandlock/internal/enforce"
	"github.com/radio-control/bandlock/internal/telemetry"
)

// Config holds all enforcer settings.
type Config struct {
	Router  RouterConfig  `yaml:"router" toml:"router"`
	Bands   BandsConfig   `yaml:"bands" toml:"bands"`
	Timing  TimingConfig  `yaml:"timing" toml:"timing"`
	Retry   RetryConfig   `yaml:"retry" toml:"retry"`
	Log     LogConfig     `yaml:"log" toml:"log"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
	MQTT    MQTTConfig    `yaml:"mqtt" toml:"mqtt"`
}

// RouterConfig identifies the router and its web interface account.
type RouterConfig struct {
	Name     string `yaml:"name" toml:"name"`
	Address  string `yaml:"address" toml:"address"`
	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`

	RequestTimeoutSec int     `yaml:"requestTimeoutSec" toml:"requestTimeoutSec"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond" toml:"requestsPerSecond"`
	Burst             int     `yaml:"burst" toml:"burst"`
}

// BandsConfig lists the desired bands. Entries may be written "B28" or "28".
type BandsConfig struct {
	Upload   []string `yaml:"upload" toml:"upload"`
	Download []string `yaml:"download" toml:"download"`
}

// TimingConfig holds the connectivity waits.
type TimingConfig struct {
	ConnectionTimeoutSec int `yaml:"connectionTimeoutSec" toml:"connectionTimeoutSec"`
	InitialProbeSec      int `yaml:"initialProbeSec" toml:"initialProbeSec"`
}

// RetryConfig bounds the outer enforcement loop. Zero values retry forever.
type RetryConfig struct {
	MaxAttempts       int     `yaml:"maxAttempts" toml:"maxAttempts"`
	InitialIntervalMs int     `yaml:"initialIntervalMs" toml:"initialIntervalMs"`
	MaxIntervalMs     int     `yaml:"maxIntervalMs" toml:"maxIntervalMs"`
	Multiplier        float64 `yaml:"multiplier" toml:"multiplier"`
	MaxElapsedSec     int     `yaml:"maxElapsedSec" toml:"maxElapsedSec"`
}

// LogConfig configures the operator log. Rotation is off while MaxSizeMB is 0.
type LogConfig struct {
	Path       string `yaml:"path" toml:"path"`
	MaxSizeMB  int    `yaml:"maxSizeMB" toml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups" toml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays" toml:"maxAgeDays"`
	Compress   bool   `yaml:"compress" toml:"compress"`
}

// MetricsConfig enables the Prometheus textfile export when Textfile is set.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" toml:"textfile"`
}

// MQTTConfig enables event publishing when Broker is set.
type MQTTConfig struct {
	Broker            string `yaml:"broker" toml:"broker"`
	ClientID          string `yaml:"clientId" toml:"clientId"`
	Username          string `yaml:"username" toml:"username"`
	Password          string `yaml:"password" toml:"password"`
	TopicPrefix       string `yaml:"topicPrefix" toml:"topicPrefix"`
	QoS               int    `yaml:"qos" toml:"qos"`
	Retained          bool   `yaml:"retained" toml:"retained"`
	ConnectTimeoutSec int    `yaml:"connectTimeoutSec" toml:"connectTimeoutSec"`
}

// Default returns the built-in configuration: a router at the usual HiLink
// address moved onto B28 with B3 and B7 as fallbacks.
func Default() *Config {
	return &Config{
		Router: RouterConfig{
			Name:              "default",
			Address:           "192.168.8.1",
			Username:          "admin",
			RequestTimeoutSec: 10,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Bands: BandsConfig{
			Upload:   []string{"B28"},
			Download: []string{"B28", "B3", "B7"},
		},
		Timing: TimingConfig{
			ConnectionTimeoutSec: 20,
			InitialProbeSec:      1,
		},
		Log: LogConfig{
			Path:       "log/router.log",
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		MQTT: MQTTConfig{
			TopicPrefix:       "bandlock",
			QoS:               1,
			ConnectTimeoutSec: 10,
		},
	}
}

// Settings converts the configuration into enforcement settings.
func (c *Config) Settings() (enforce.Settings, error) {
	upload, err := band.ParseSet(c.Bands.Upload)
	if err != nil {
		return enforce.Settings{}, configError("bands.upload: %v", err)
	}
	download, err := band.ParseSet(c.Bands.Download)
	if err != nil {
		return enforce.Settings{}, configError("bands.download: %v", err)
	}

	return enforce.Settings{
		RouterName:          c.Router.Name,
		Credentials:         adapter.Credentials{Username: c.Router.Username, Password: c.Router.Password},
		Upload:              upload,
		Download:            download,
		ConnectionTimeout:   seconds(c.Timing.ConnectionTimeoutSec),
		InitialProbeTimeout: seconds(c.Timing.InitialProbeSec),
		Retry: enforce.RetryPolicy{
			MaxAttempts:     c.Retry.MaxAttempts,
			InitialInterval: time.Duration(c.Retry.InitialIntervalMs) * time.Millisecond,
			MaxInterval:     time.Duration(c.Retry.MaxIntervalMs) * time.Millisecond,
			Multiplier:      c.Retry.Multiplier,
			MaxElapsed:      seconds(c.Retry.MaxElapsedSec),
		},
	}, nil
}

// HiLinkOptions returns the transport options for the router client.
func (c *Config) HiLinkOptions() hilink.Options {
	opts := hilink.DefaultOptions()
	if c.Router.RequestTimeoutSec > 0 {
		opts.Timeout = seconds(c.Router.RequestTimeoutSec)
	}
	if c.Router.RequestsPerSecond > 0 {
		opts.RequestsPerSecond = c.Router.RequestsPerSecond
	}
	if c.Router.Burst > 0 {
		opts.Burst = c.Router.Burst
	}
	return opts
}

// AuditOptions returns the operator log settings.
func (c *Config) AuditOptions() audit.Options {
	return audit.Options{
		Path:       c.Log.Path,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}

// MQTTEnabled reports whether event publishing is configured.
func (c *Config) MQTTEnabled() bool {
	return c.MQTT.Broker != ""
}

// TelemetryMQTT returns the MQTT sink settings. runID seeds the client ID
// when none is configured.
func (c *Config) TelemetryMQTT(runID string) telemetry.MQTTConfig {
	clientID := c.MQTT.ClientID
	if clientID == "" {
		clientID = "bandlock-" + c.Router.Name + "-" + runID
	}
	return telemetry.MQTTConfig{
		Broker:         c.MQTT.Broker,
		ClientID:       clientID,
		Username:       c.MQTT.Username,
		Password:       c.MQTT.Password,
		TopicPrefix:    c.MQTT.TopicPrefix,
		QoS:            byte(c.MQTT.QoS),
		Retained:       c.MQTT.Retained,
		ConnectTimeout: seconds(c.MQTT.ConnectTimeoutSec),
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
