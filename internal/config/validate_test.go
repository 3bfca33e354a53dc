package config

import (
	"errors"
	"testing"

	"github.com/radio-control/bandlock/internal/enforce"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"numeric bands", func(c *Config) { c.Bands.Upload = []string{"28"}; c.Bands.Download = []string{"28", "3"} }, false},
		{"empty name", func(c *Config) { c.Router.Name = " " }, true},
		{"empty address", func(c *Config) { c.Router.Address = "" }, true},
		{"negative request timeout", func(c *Config) { c.Router.RequestTimeoutSec = -1 }, true},
		{"no upload band", func(c *Config) { c.Bands.Upload = nil }, true},
		{"two upload bands", func(c *Config) { c.Bands.Upload = []string{"B28", "B3"} }, true},
		{"invalid upload band", func(c *Config) { c.Bands.Upload = []string{"LTE"} }, true},
		{"empty download", func(c *Config) { c.Bands.Download = nil }, true},
		{"download misses upload", func(c *Config) { c.Bands.Download = []string{"B3", "B7"} }, true},
		{"duplicate download", func(c *Config) { c.Bands.Download = []string{"B28", "B3", "28"} }, true},
		{"download outside mask", func(c *Config) { c.Bands.Upload = []string{"B66"}; c.Bands.Download = []string{"B66"} }, true},
		{"timeout zero", func(c *Config) { c.Timing.ConnectionTimeoutSec = 0 }, true},
		{"timeout max", func(c *Config) { c.Timing.ConnectionTimeoutSec = 120 }, false},
		{"timeout above max", func(c *Config) { c.Timing.ConnectionTimeoutSec = 121 }, true},
		{"probe zero", func(c *Config) { c.Timing.InitialProbeSec = 0 }, true},
		{"negative attempts", func(c *Config) { c.Retry.MaxAttempts = -1 }, true},
		{"multiplier below one", func(c *Config) { c.Retry.Multiplier = 0.5 }, true},
		{"bounded retry", func(c *Config) { c.Retry.MaxAttempts = 3; c.Retry.Multiplier = 1.5 }, false},
		{"empty log path", func(c *Config) { c.Log.Path = "" }, true},
		{"negative rotation", func(c *Config) { c.Log.MaxBackups = -1 }, true},
		{"mqtt broker", func(c *Config) { c.MQTT.Broker = "ssl://broker.example:8883" }, false},
		{"mqtt bad scheme", func(c *Config) { c.MQTT.Broker = "http://broker:1883" }, true},
		{"mqtt no host", func(c *Config) { c.MQTT.Broker = "tcp://" }, true},
		{"mqtt bad qos", func(c *Config) { c.MQTT.Broker = "tcp://broker:1883"; c.MQTT.QoS = 3 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, enforce.ErrConfig) {
				t.Errorf("Validate() error %v does not wrap CONFIG_ERROR", err)
			}
		})
	}
}

func TestValidateNil(t *testing.T) {
	if err := Validate(nil); !errors.Is(err, enforce.ErrConfig) {
		t.Errorf("Validate(nil) = %v, want CONFIG_ERROR", err)
	}
}
