package fake

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/radio-control/bandlock/internal/adapter"
	"github.com/radio-control/bandlock/internal/adaptertest"
	"github.com/radio-control/bandlock/internal/band"
)

// TestFakeRouterConformance runs the complete conformance test suite on the fake router.
func TestFakeRouterConformance(t *testing.T) {
	capabilities := adaptertest.Capabilities{
		Credentials:    adapter.Credentials{Username: "admin", Password: "admin"},
		BadCredentials: adapter.Credentials{Username: "admin", Password: "wrong"},
		Bands:          []band.Set{{"B28"}, {"B28", "B3", "B7"}},
		MaxLatency:     100 * time.Millisecond,
	}

	adaptertest.RunConformance(t, "fake", func() adapter.RouterControl {
		return New("fake-router-01", "B3")
	}, capabilities)
}

func TestSignalTelemetryReflectsAttachment(t *testing.T) {
	router := New("test", "B3")
	ctx := context.Background()

	raw, err := router.SignalTelemetry(ctx)
	if err != nil {
		t.Fatalf("SignalTelemetry failed: %v", err)
	}
	if !strings.Contains(string(raw), "<band>3</band>") {
		t.Errorf("Expected band 3, got %s", raw)
	}

	router.SetAttached(band.None)
	raw, _ = router.SignalTelemetry(ctx)
	if !strings.Contains(string(raw), "<band></band>") {
		t.Errorf("Expected empty band element, got %s", raw)
	}

	router.SetOmitBand(true)
	raw, _ = router.SignalTelemetry(ctx)
	if strings.Contains(string(raw), "<band>") {
		t.Errorf("Expected no band element, got %s", raw)
	}
}

func TestScriptedAttachment(t *testing.T) {
	router := New("test", band.None)
	router.Script(band.None, "B3", "B28")
	ctx := context.Background()

	want := []string{"<band></band>", "<band>3</band>", "<band>28</band>", "<band>28</band>"}
	for i, w := range want {
		raw, err := router.SignalTelemetry(ctx)
		if err != nil {
			t.Fatalf("Read %d failed: %v", i, err)
		}
		if !strings.Contains(string(raw), w) {
			t.Errorf("Read %d: expected %s, got %s", i, w, raw)
		}
	}
}

func TestHooksAndState(t *testing.T) {
	router := New("test", "B3")
	router.OnSetLTEBandList = func(r *Router, bands band.Set) {
		r.SetAttached(bands.Primary())
	}
	ctx := context.Background()

	if err := router.SetNetworkMode(ctx, adapter.Mode4G); err != nil {
		t.Fatalf("SetNetworkMode failed: %v", err)
	}
	if err := router.SetDataSwitch(ctx, false); err != nil {
		t.Fatalf("SetDataSwitch failed: %v", err)
	}
	if err := router.SetLTEBandList(ctx, band.Set{"B28"}); err != nil {
		t.Fatalf("SetLTEBandList failed: %v", err)
	}

	if router.Mode() != adapter.Mode4G {
		t.Errorf("Expected mode 4G, got %s", router.Mode())
	}
	if router.DataOn() {
		t.Error("Expected data off")
	}
	if router.Attached() != "B28" {
		t.Errorf("Expected hook to attach B28, got %s", router.Attached())
	}
	if got := router.BandList().String(); got != "[B28]" {
		t.Errorf("Expected band list [B28], got %s", got)
	}

	calls := router.Calls()
	want := []string{"SetNetworkMode(03)", "SetDataSwitch(false)", "SetLTEBandList(B28)"}
	if len(calls) != len(want) {
		t.Fatalf("Expected %d calls, got %v", len(want), calls)
	}
	for i := range want {
		if calls[i].String() != want[i] {
			t.Errorf("Call %d: expected %s, got %s", i, want[i], calls[i])
		}
	}
	if router.Count(OpSetLTEBandList) != 1 {
		t.Errorf("Expected 1 band write, got %d", router.Count(OpSetLTEBandList))
	}

	router.ResetCalls()
	if len(router.Calls()) != 0 {
		t.Error("Expected empty call log after reset")
	}
}

func TestFailOn(t *testing.T) {
	router := New("test", "B3")
	ctx := context.Background()
	busy := &adapter.VendorError{Code: adapter.ErrBusy, VendorCode: 100004, Original: errors.New("system busy")}

	router.FailOn(OpSignalTelemetry, busy)
	if _, err := router.SignalTelemetry(ctx); !errors.Is(err, adapter.ErrBusy) {
		t.Errorf("Expected BUSY, got %v", err)
	}

	router.FailOn(OpSignalTelemetry, nil)
	if _, err := router.SignalTelemetry(ctx); err != nil {
		t.Errorf("Expected failure cleared, got %v", err)
	}
}

func TestFailAfter(t *testing.T) {
	router := New("test", "B3")
	ctx := context.Background()
	unavailable := &adapter.VendorError{Code: adapter.ErrUnavailable, Original: errors.New("modem restarting")}

	router.FailAfter(OpSignalTelemetry, 2, unavailable)
	for i := 0; i < 2; i++ {
		if _, err := router.SignalTelemetry(ctx); err != nil {
			t.Fatalf("Read %d: expected success, got %v", i+1, err)
		}
	}
	for i := 0; i < 2; i++ {
		if _, err := router.SignalTelemetry(ctx); !errors.Is(err, adapter.ErrUnavailable) {
			t.Errorf("Expected UNAVAILABLE, got %v", err)
		}
	}
	if router.Count(OpSignalTelemetry) != 4 {
		t.Errorf("Expected 4 recorded reads, got %d", router.Count(OpSignalTelemetry))
	}
}

func TestLoginState(t *testing.T) {
	router := New("test", "B3")
	ctx := context.Background()

	if err := router.Login(ctx, adapter.Credentials{Username: "admin", Password: "admin"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !router.LoggedIn() {
		t.Error("Expected session open")
	}
	if err := router.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if router.LoggedIn() {
		t.Error("Expected session closed")
	}

	router.SetCredentials(adapter.Credentials{Username: "user", Password: "secret"})
	if err := router.Login(ctx, adapter.Credentials{Username: "admin", Password: "admin"}); !errors.Is(err, adapter.ErrUnauthorized) {
		t.Errorf("Expected UNAUTHORIZED, got %v", err)
	}
}
