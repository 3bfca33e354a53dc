package hilink

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/radio-control/bandlock/internal/adapter"
	"github.com/radio-control/bandlock/internal/adaptertest"
	"github.com/radio-control/bandlock/internal/band"
	"github.com/radio-control/bandlock/internal/routermock"
)

func newTestClient(t *testing.T, cfg routermock.Config) (*Client, *routermock.Router) {
	t.Helper()
	router := routermock.New(cfg)
	server := httptest.NewServer(router.Handler())
	t.Cleanup(server.Close)

	opts := DefaultOptions()
	opts.RequestsPerSecond = 1000
	opts.Burst = 100
	client, err := NewClient("test", server.URL, opts)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client, router
}

func TestNewClientAddress(t *testing.T) {
	client, err := NewClient("home", "192.168.8.1", DefaultOptions())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if got := client.baseURL.String(); got != "http://192.168.8.1" {
		t.Errorf("Expected http://192.168.8.1, got %s", got)
	}
	if client.GetRouterID() != "home" {
		t.Errorf("Expected router ID home, got %s", client.GetRouterID())
	}

	if _, err := NewClient("home", "  ", DefaultOptions()); err == nil {
		t.Error("Expected error for empty address")
	}
}

func TestLoginLogout(t *testing.T) {
	client, router := newTestClient(t, routermock.DefaultConfig())
	ctx := context.Background()

	if err := client.Login(ctx, adapter.Credentials{Username: "admin", Password: "admin"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !router.LoggedIn() {
		t.Fatal("Expected router session after login")
	}

	if err := client.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if router.LoggedIn() {
		t.Error("Expected session closed after logout")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	client, _ := newTestClient(t, routermock.DefaultConfig())

	err := client.Login(context.Background(), adapter.Credentials{Username: "admin", Password: "nope"})
	if !errors.Is(err, adapter.ErrUnauthorized) {
		t.Fatalf("Expected ErrUnauthorized, got %v", err)
	}

	var vendorErr *adapter.VendorError
	if !errors.As(err, &vendorErr) || vendorErr.VendorCode != 108006 {
		t.Errorf("Expected vendor code 108006, got %v", err)
	}
}

func TestSignalTelemetry(t *testing.T) {
	client, _ := newTestClient(t, routermock.DefaultConfig())

	raw, err := client.SignalTelemetry(context.Background())
	if err != nil {
		t.Fatalf("SignalTelemetry failed: %v", err)
	}
	if !strings.Contains(string(raw), "<band>3</band>") {
		t.Errorf("Expected band 3 in telemetry, got %s", raw)
	}
}

func TestConfigurationWrites(t *testing.T) {
	client, router := newTestClient(t, routermock.DefaultConfig())
	ctx := context.Background()

	if err := client.Login(ctx, adapter.Credentials{Username: "admin", Password: "admin"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := client.SetNetworkMode(ctx, adapter.Mode4G); err != nil {
		t.Fatalf("SetNetworkMode failed: %v", err)
	}
	if router.Mode() != "03" {
		t.Errorf("Expected mode 03, got %s", router.Mode())
	}

	if err := client.SetLTEBandList(ctx, band.Set{"B28"}); err != nil {
		t.Fatalf("SetLTEBandList failed: %v", err)
	}
	if err := client.SetLTEBandList(ctx, band.Set{"B28", "B3", "B7"}); err != nil {
		t.Fatalf("SetLTEBandList failed: %v", err)
	}
	if got := router.AllowedBands().String(); got != "[B3 B7 B28]" {
		t.Errorf("Expected allowed [B3 B7 B28], got %s", got)
	}
	if got := router.Attached(); got != "B28" {
		t.Errorf("Expected attachment B28, got %s", got)
	}
	// Mode survives the band write.
	if router.Mode() != "03" {
		t.Errorf("Expected mode 03 after band write, got %s", router.Mode())
	}

	if err := client.SetDataSwitch(ctx, false); err != nil {
		t.Fatalf("SetDataSwitch failed: %v", err)
	}
	if router.DataOn() {
		t.Error("Expected data switch off")
	}
	if err := client.SetDataSwitch(ctx, true); err != nil {
		t.Fatalf("SetDataSwitch failed: %v", err)
	}
	if !router.DataOn() {
		t.Error("Expected data switch on")
	}
}

func TestWriteWithoutLogin(t *testing.T) {
	client, _ := newTestClient(t, routermock.DefaultConfig())

	err := client.SetDataSwitch(context.Background(), false)
	if !errors.Is(err, adapter.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestBandOutOfMaskRange(t *testing.T) {
	client, router := newTestClient(t, routermock.DefaultConfig())

	err := client.SetLTEBandList(context.Background(), band.Set{"B66"})
	if !errors.Is(err, adapter.ErrInvalidRange) {
		t.Errorf("Expected ErrInvalidRange, got %v", err)
	}
	if len(router.Calls()) != 0 {
		t.Errorf("Expected no router calls, got %v", router.Calls())
	}
}

func TestVendorFaultMapping(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{100004, adapter.ErrBusy},
		{100002, adapter.ErrNotSupported},
		{113055, adapter.ErrUnavailable},
		{125003, adapter.ErrUnauthorized},
	}

	for _, tt := range tests {
		client, router := newTestClient(t, routermock.DefaultConfig())
		router.SetFaultCode(tt.code)

		_, err := client.SignalTelemetry(context.Background())
		if !errors.Is(err, tt.want) {
			t.Errorf("Code %d: expected %v, got %v", tt.code, tt.want, err)
		}
	}
}

func TestCollectTokens(t *testing.T) {
	client, err := NewClient("test", "127.0.0.1", DefaultOptions())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	header := http.Header{}
	header.Set(TokenHeader, "a#b# ")
	client.collectTokens(header)
	if len(client.tokens) != 2 || client.tokens[0] != "a" || client.tokens[1] != "b" {
		t.Errorf("Expected [a b], got %v", client.tokens)
	}
}

func TestEncodePassword(t *testing.T) {
	got := encodePassword("admin", "admin", "token")
	want := "OTYxMzMzMjZkNWFkZmY0YmM4MWVhYzNkMjEyNjliOWExZWFmOGQwZjJjMjAwMzMzY2M0ZWEwZjIyZGU2M2NhMg=="
	if got != want {
		t.Fatalf("Expected %s, got %s", want, got)
	}
	if got == encodePassword("admin", "admin", "other") {
		t.Error("Expected token to salt the password")
	}
}

func TestIndentXML(t *testing.T) {
	raw := []byte("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<response>\n<band>3</band><sinr>6dB</sinr></response>")

	got, err := IndentXML(raw)
	if err != nil {
		t.Fatalf("IndentXML failed: %v", err)
	}
	want := "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<response>\n  <band>3</band>\n  <sinr>6dB</sinr>\n</response>\n"
	if string(got) != want {
		t.Errorf("Unexpected output:\n%s\nwant:\n%s", got, want)
	}

	if _, err := IndentXML([]byte("<response><band>")); err == nil {
		t.Error("Expected error for truncated document")
	}
}

// TestHiLinkConformance runs the conformance suite against the client and the router emulator.
func TestHiLinkConformance(t *testing.T) {
	capabilities := adaptertest.Capabilities{
		Credentials:    adapter.Credentials{Username: "admin", Password: "admin"},
		BadCredentials: adapter.Credentials{Username: "admin", Password: "wrong"},
		Bands:          []band.Set{{"B28"}, {"B28", "B3", "B7"}},
		MaxLatency:     2 * time.Second,
	}

	adaptertest.RunConformance(t, "hilink", func() adapter.RouterControl {
		client, _ := newTestClient(t, routermock.DefaultConfig())
		return client
	}, capabilities)
}
