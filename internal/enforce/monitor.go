package enforce

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/radio-control/bandlock/internal/adapter"
	"github.com/radio-control/bandlock/internal/band"
)

const (
	// PollInterval is the fixed cadence of connectivity polling.
	PollInterval = time.Second

	// MaxWaitTimeout bounds a single WaitForConnection call.
	MaxWaitTimeout = 120 * time.Second
)

// Signal is the decoded signal telemetry document.
type Signal struct {
	// Band is the attached band; band.None when the element is empty.
	Band band.ID

	RSRP   string
	RSRQ   string
	SINR   string
	RSSI   string
	PCI    string
	CellID string
	Mode   string
}

// Attached reports whether the router is on a band.
func (s Signal) Attached() bool {
	return !s.Band.IsNone()
}

// SINRdB parses the SINR figure ("12dB").
func (s Signal) SINRdB() (float64, bool) {
	return parseQuantity(s.SINR, "dB")
}

// RSRPdBm parses the RSRP figure ("-97dBm").
func (s Signal) RSRPdBm() (float64, bool) {
	return parseQuantity(s.RSRP, "dBm")
}

func parseQuantity(raw, unit string) (float64, bool) {
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), unit))
	if raw == "" {
		return 0, false
	}
	// Some firmware prefixes comparisons, e.g. ">=-44dBm".
	raw = strings.TrimLeft(raw, "<>=")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

type signalDocument struct {
	XMLName xml.Name `xml:"response"`
	Band    *string  `xml:"band"`
	RSRP    string   `xml:"rsrp"`
	RSRQ    string   `xml:"rsrq"`
	SINR    string   `xml:"sinr"`
	RSSI    string   `xml:"rssi"`
	PCI     string   `xml:"pci"`
	CellID  string   `xml:"cell_id"`
	Mode    string   `xml:"mode"`
}

// ParseSignal decodes a signal telemetry document. A document without a
// band element is a contract violation and fails with ErrParse; an empty
// band element means not attached.
func ParseSignal(raw []byte) (Signal, error) {
	var doc signalDocument
	if err := xml.NewDecoder(bytes.NewReader(raw)).Decode(&doc); err != nil {
		return Signal{}, &Error{Code: ErrParse, Action: "parse signal", Err: err}
	}
	if doc.Band == nil {
		return Signal{}, &Error{Code: ErrParse, Action: "parse signal", Err: errors.New("no band entry in device signal")}
	}

	sig := Signal{
		RSRP:   strings.TrimSpace(doc.RSRP),
		RSRQ:   strings.TrimSpace(doc.RSRQ),
		SINR:   strings.TrimSpace(doc.SINR),
		RSSI:   strings.TrimSpace(doc.RSSI),
		PCI:    strings.TrimSpace(doc.PCI),
		CellID: strings.TrimSpace(doc.CellID),
		Mode:   strings.TrimSpace(doc.Mode),
	}
	if value := strings.TrimSpace(*doc.Band); value != "" {
		id, err := band.Parse(value)
		if err != nil {
			return Signal{}, &Error{Code: ErrParse, Action: "parse signal", Err: fmt.Errorf("band entry %q: %w", value, err)}
		}
		sig.Band = id
	}
	return sig, nil
}

// Monitor reports the router's attachment state. It never caches: every
// call reads fresh telemetry.
type Monitor struct {
	router adapter.RouterControl
	name   string
	deps   Deps
}

// NewMonitor creates a monitor for the named router.
func NewMonitor(router adapter.RouterControl, name string, deps Deps) *Monitor {
	return &Monitor{
		router: router,
		name:   name,
		deps:   deps.withDefaults(),
	}
}

// ReadSignal reads and decodes the live signal telemetry.
func (m *Monitor) ReadSignal(ctx context.Context) (Signal, error) {
	raw, err := m.router.SignalTelemetry(ctx)
	if err != nil {
		return Signal{}, fmt.Errorf("read signal: %w", adapter.NormalizeVendorError(err, nil))
	}
	sig, err := ParseSignal(raw)
	if err != nil {
		var parseErr *Error
		if errors.As(err, &parseErr) {
			parseErr.Router = m.name
		}
		return Signal{}, err
	}

	m.deps.Metrics.SetAttachedBand(sig.Band)
	if sinr, ok := sig.SINRdB(); ok {
		rsrp, _ := sig.RSRPdBm()
		m.deps.Metrics.SetSignalQuality(sinr, rsrp)
	}
	return sig, nil
}

// CurrentBand returns the attached band, or false when the router is not
// attached to any band.
func (m *Monitor) CurrentBand(ctx context.Context) (band.ID, bool, error) {
	sig, err := m.ReadSignal(ctx)
	if err != nil {
		return band.None, false, err
	}
	return sig.Band, sig.Attached(), nil
}

// WaitForConnection polls once per PollInterval until the router attaches
// to any band or timeout elapses. The timeout must lie in (0, MaxWaitTimeout].
func (m *Monitor) WaitForConnection(ctx context.Context, timeout time.Duration) (bool, error) {
	if timeout <= 0 || timeout > MaxWaitTimeout {
		return false, &Error{
			Code:   ErrConfig,
			Router: m.name,
			Action: "wait for connection",
			Err:    fmt.Errorf("timeout %v outside (0, %v]", timeout, MaxWaitTimeout),
		}
	}

	clock := m.deps.Clock
	deadline := clock.Now().Add(timeout)
	for {
		_, attached, err := m.CurrentBand(ctx)
		if err != nil {
			return false, err
		}
		if attached {
			return true, nil
		}

		remaining := deadline.Sub(clock.Now())
		if remaining <= 0 {
			m.deps.Log.Logf("%s was unable to connect to an antenna.", m.name)
			return false, nil
		}
		if err := clock.Sleep(ctx, min(PollInterval, remaining)); err != nil {
			return false, err
		}
	}
}
