// Package telemetry publishes enforcement events.
//
// The hub numbers every event of a run and fans it out to the configured
// sinks (MQTT).
package telemetry
