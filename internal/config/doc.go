// Package config loads the band enforcer configuration.
//
// Values are resolved in order: built-in defaults, an optional YAML or TOML
// file, BANDLOCK_* environment variables, then validation. The result is
// loaded once at startup and converted into enforce.Settings.
package config
