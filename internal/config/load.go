package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"

	"github.com/radio-control/bandlock/internal/enforce"
)

// EnvConfigFile names the config file when Load is given no path.
const EnvConfigFile = "BANDLOCK_CONFIG"

// Load merges Default() with the optional file at path (or $BANDLOCK_CONFIG),
// then BANDLOCK_* environment overrides, and validates the result.
// Errors wrap enforce.ErrConfig.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, configError("failed to load %s: %v", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, configError("failed to apply environment overrides: %v", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile decodes a YAML or TOML file over cfg, chosen by extension.
func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return yaml.UnmarshalStrict(data, cfg)
	case ".toml":
		meta, err := toml.Decode(string(data), cfg)
		if err != nil {
			return err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown keys %v", undecoded)
		}
		return nil
	default:
		return fmt.Errorf("unsupported config format %q (want .yaml, .yml or .toml)", filepath.Ext(filename))
	}
}

// applyEnvOverrides applies BANDLOCK_* environment variables to cfg.
func applyEnvOverrides(cfg *Config) error {
	cfg.Router.Name = GetEnvVar("BANDLOCK_ROUTER_NAME", cfg.Router.Name)
	cfg.Router.Address = GetEnvVar("BANDLOCK_ROUTER_ADDRESS", cfg.Router.Address)
	cfg.Router.Username = GetEnvVar("BANDLOCK_ROUTER_USERNAME", cfg.Router.Username)
	cfg.Router.Password = GetEnvVar("BANDLOCK_ROUTER_PASSWORD", cfg.Router.Password)

	if val := os.Getenv("BANDLOCK_UPLOAD_BANDS"); val != "" {
		cfg.Bands.Upload = splitList(val)
	}
	if val := os.Getenv("BANDLOCK_DOWNLOAD_BANDS"); val != "" {
		cfg.Bands.Download = splitList(val)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"BANDLOCK_CONNECTION_TIMEOUT_SEC", &cfg.Timing.ConnectionTimeoutSec},
		{"BANDLOCK_INITIAL_PROBE_SEC", &cfg.Timing.InitialProbeSec},
		{"BANDLOCK_RETRY_MAX_ATTEMPTS", &cfg.Retry.MaxAttempts},
		{"BANDLOCK_RETRY_INITIAL_INTERVAL_MS", &cfg.Retry.InitialIntervalMs},
		{"BANDLOCK_RETRY_MAX_INTERVAL_MS", &cfg.Retry.MaxIntervalMs},
		{"BANDLOCK_RETRY_MAX_ELAPSED_SEC", &cfg.Retry.MaxElapsedSec},
		{"BANDLOCK_LOG_MAX_SIZE_MB", &cfg.Log.MaxSizeMB},
	}
	for _, entry := range ints {
		if val := os.Getenv(entry.key); val != "" {
			n, err := strconv.Atoi(strings.TrimSpace(val))
			if err != nil {
				return fmt.Errorf("%s: %q is not an integer", entry.key, val)
			}
			*entry.dst = n
		}
	}

	cfg.Log.Path = GetEnvVar("BANDLOCK_LOG_PATH", cfg.Log.Path)
	cfg.Metrics.Textfile = GetEnvVar("BANDLOCK_METRICS_TEXTFILE", cfg.Metrics.Textfile)
	cfg.MQTT.Broker = GetEnvVar("BANDLOCK_MQTT_BROKER", cfg.MQTT.Broker)
	cfg.MQTT.Username = GetEnvVar("BANDLOCK_MQTT_USERNAME", cfg.MQTT.Username)
	cfg.MQTT.Password = GetEnvVar("BANDLOCK_MQTT_PASSWORD", cfg.MQTT.Password)
	return nil
}

func splitList(val string) []string {
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// GetEnvVar returns the value of an environment variable with a default.
func GetEnvVar(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func configError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", enforce.ErrConfig, fmt.Sprintf(format, args...))
}
