// Package enforce implements the band-enforcement control loop.
//
// The Monitor reads the attached band from the router's signal telemetry, the
// Enforcer runs the corrective sequence (mode reset, data switch cycle,
// order-sensitive band list writes) and the Driver repeats enforcement under
// an explicit retry policy until the router sits on the desired band.
package enforce
