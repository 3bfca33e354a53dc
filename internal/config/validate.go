package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/radio-control/bandlock/internal/band"
	"github.com/radio-control/bandlock/internal/enforce"
)

// Validate checks cfg and returns the first problem found, wrapping
// enforce.ErrConfig.
func Validate(cfg *Config) error {
	if cfg == nil {
		return configError("config cannot be nil")
	}

	checks := []struct {
		section string
		check   func(*Config) error
	}{
		{"router", validateRouter},
		{"bands", validateBands},
		{"timing", validateTiming},
		{"retry", validateRetry},
		{"log", validateLog},
		{"mqtt", validateMQTT},
	}
	for _, c := range checks {
		if err := c.check(cfg); err != nil {
			return configError("%s validation failed: %v", c.section, err)
		}
	}
	return nil
}

func validateRouter(cfg *Config) error {
	if strings.TrimSpace(cfg.Router.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(cfg.Router.Address) == "" {
		return fmt.Errorf("address is required")
	}
	if cfg.Router.RequestTimeoutSec < 0 {
		return fmt.Errorf("request timeout must not be negative, got %d", cfg.Router.RequestTimeoutSec)
	}
	if cfg.Router.RequestsPerSecond < 0 || cfg.Router.Burst < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	return nil
}

func validateBands(cfg *Config) error {
	upload, err := band.ParseSet(cfg.Bands.Upload)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if len(upload) != 1 {
		return fmt.Errorf("exactly one upload band is supported, got %d", len(upload))
	}

	download, err := band.ParseSet(cfg.Bands.Download)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if len(download) == 0 {
		return fmt.Errorf("download bands must not be empty")
	}
	if !download.Contains(upload.Primary()) {
		return fmt.Errorf("download bands %s must include the upload band %s", download, upload.Primary())
	}
	if _, err := download.MaskHex(); err != nil {
		return fmt.Errorf("download: %w", err)
	}
	return nil
}

func validateTiming(cfg *Config) error {
	maxSec := int(enforce.MaxWaitTimeout.Seconds())
	if cfg.Timing.ConnectionTimeoutSec < 1 || cfg.Timing.ConnectionTimeoutSec > maxSec {
		return fmt.Errorf("connection timeout %d seconds is outside range [1, %d]", cfg.Timing.ConnectionTimeoutSec, maxSec)
	}
	if cfg.Timing.InitialProbeSec < 1 || cfg.Timing.InitialProbeSec > maxSec {
		return fmt.Errorf("initial probe %d seconds is outside range [1, %d]", cfg.Timing.InitialProbeSec, maxSec)
	}
	return nil
}

func validateRetry(cfg *Config) error {
	r := cfg.Retry
	if r.MaxAttempts < 0 || r.InitialIntervalMs < 0 || r.MaxIntervalMs < 0 || r.MaxElapsedSec < 0 {
		return fmt.Errorf("retry values must not be negative")
	}
	if r.Multiplier != 0 && r.Multiplier < 1 {
		return fmt.Errorf("multiplier must be >= 1, got %v", r.Multiplier)
	}
	return nil
}

func validateLog(cfg *Config) error {
	if strings.TrimSpace(cfg.Log.Path) == "" {
		return fmt.Errorf("path is required")
	}
	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0 {
		return fmt.Errorf("rotation values must not be negative")
	}
	return nil
}

func validateMQTT(cfg *Config) error {
	if cfg.MQTT.Broker == "" {
		return nil
	}
	u, err := url.Parse(cfg.MQTT.Broker)
	if err != nil {
		return fmt.Errorf("broker: %w", err)
	}
	switch u.Scheme {
	case "tcp", "ssl", "tls", "ws", "wss", "mqtt", "mqtts":
	default:
		return fmt.Errorf("broker %q: unsupported scheme %q", cfg.MQTT.Broker, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("broker %q: missing host", cfg.MQTT.Broker)
	}
	if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2, got %d", cfg.MQTT.QoS)
	}
	return nil
}
