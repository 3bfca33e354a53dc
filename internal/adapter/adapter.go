package adapter

import (
	"context"
	"errors"

	"github.com/radio-control/bandlock/internal/band"
)

// NetworkMode selects the radio access technologies the router may use.
// Values are the router's wire codes.
type NetworkMode string

const (
	ModeAuto NetworkMode = "00"
	Mode2G   NetworkMode = "01"
	Mode3G   NetworkMode = "02"
	Mode4G   NetworkMode = "03"
)

// String returns a human readable mode name.
func (m NetworkMode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case Mode2G:
		return "2G"
	case Mode3G:
		return "3G"
	case Mode4G:
		return "4G"
	default:
		return "mode(" + string(m) + ")"
	}
}

// Credentials authenticate a router session.
type Credentials struct {
	Username string
	Password string
}

// RouterControl is the capability set the enforcement core depends on.
type RouterControl interface {
	// Login opens an authenticated session.
	Login(ctx context.Context, creds Credentials) error

	// Logout releases the session.
	Logout(ctx context.Context) error

	// SignalTelemetry returns the raw live signal document (XML).
	SignalTelemetry(ctx context.Context) ([]byte, error)

	// SetNetworkMode forces the access technology.
	SetNetworkMode(ctx context.Context, mode NetworkMode) error

	// SetDataSwitch enables or disables the cellular data path.
	SetDataSwitch(ctx context.Context, on bool) error

	// SetLTEBandList replaces the LTE band list.
	// The call is order-sensitive on some firmware: the first band is the
	// preferred candidate.
	SetLTEBandList(ctx context.Context, bands band.Set) error
}

// DownlinkBandReader is an optional capability: reading back the aggregated
// downlink bands. No shipped adapter implements it yet.
type DownlinkBandReader interface {
	DownlinkBands(ctx context.Context) (band.Set, error)
}

// ErrCapabilityUnsupported is returned when an optional capability is absent.
var ErrCapabilityUnsupported = errors.New("CAPABILITY_UNSUPPORTED")

// SupportsDownlinkReadback reports whether r can read back downlink bands.
// It never issues a router call.
func SupportsDownlinkReadback(r RouterControl) bool {
	_, ok := r.(DownlinkBandReader)
	return ok
}

// DownlinkBands reads the downlink bands when r supports it.
func DownlinkBands(ctx context.Context, r RouterControl) (band.Set, error) {
	reader, ok := r.(DownlinkBandReader)
	if !ok {
		return nil, ErrCapabilityUnsupported
	}
	return reader.DownlinkBands(ctx)
}

// AdapterBase provides common identity fields for adapter implementations.
type AdapterBase struct {
	// RouterID identifies the router this adapter controls
	RouterID string

	// Model identifies the router model
	Model string
}

// GetRouterID returns the router identifier.
func (a *AdapterBase) GetRouterID() string {
	return a.RouterID
}

// GetModel returns the router model.
func (a *AdapterBase) GetModel() string {
	return a.Model
}
