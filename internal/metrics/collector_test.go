package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/radio-control/bandlock/internal/band"
	"github.com/radio-control/bandlock/internal/enforce"
)

var _ enforce.Recorder = (*Collector)(nil)

func TestCollectorRecordsActions(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg, "home")
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	collector.ObserveAction("setLTEBandList", "SUCCESS", 120*time.Millisecond)
	collector.ObserveAction("setLTEBandList", "SUCCESS", 80*time.Millisecond)
	collector.ObserveAction("setNetworkMode", "BUSY", time.Second)
	collector.ObserveAttempt("band_mismatch")
	collector.ObserveAttempt("success")

	if got := testutil.ToFloat64(collector.Actions.WithLabelValues("setLTEBandList", "SUCCESS")); got != 2 {
		t.Fatalf("bandlock_router_actions_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.Actions.WithLabelValues("setNetworkMode", "BUSY")); got != 1 {
		t.Fatalf("bandlock_router_actions_total BUSY = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.Attempts.WithLabelValues("success")); got != 1 {
		t.Fatalf("bandlock_enforcement_attempts_total = %v, want 1", got)
	}
	if count := testutil.CollectAndCount(collector.ActionDuration); count != 2 {
		t.Fatalf("duration series = %d, want 2", count)
	}
}

func TestCollectorGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg, "home")
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	collector.SetAttachedBand(band.ID("B28"))
	collector.SetSignalQuality(12, -97)
	if got := testutil.ToFloat64(collector.AttachedBand); got != 28 {
		t.Errorf("bandlock_attached_band = %v, want 28", got)
	}
	if got := testutil.ToFloat64(collector.SINR); got != 12 {
		t.Errorf("bandlock_signal_sinr_db = %v, want 12", got)
	}
	if got := testutil.ToFloat64(collector.RSRP); got != -97 {
		t.Errorf("bandlock_signal_rsrp_dbm = %v, want -97", got)
	}

	collector.SetAttachedBand(band.None)
	if got := testutil.ToFloat64(collector.AttachedBand); got != 0 {
		t.Errorf("detached band = %v, want 0", got)
	}
}

func TestCollectorReRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg, "home")
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	second, err := NewCollector(reg, "home")
	if err != nil {
		t.Fatalf("second NewCollector: %v", err)
	}

	first.ObserveAttempt("success")
	if got := testutil.ToFloat64(second.Attempts.WithLabelValues("success")); got != 1 {
		t.Errorf("re-registered collector does not share state: %v", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var collector *Collector
	collector.ObserveAction("setNetworkMode", "SUCCESS", time.Millisecond)
	collector.ObserveAttempt("success")
	collector.SetAttachedBand("B3")
	collector.SetSignalQuality(1, 2)
	collector.MarkRun(time.Now())
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg, "home")
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	collector.SetAttachedBand("B28")
	collector.ObserveAttempt("success")
	collector.MarkRun(time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "bandlock.prom")
	if err := collector.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	body := string(data)
	for _, want := range []string{
		`bandlock_attached_band{router="home"} 28`,
		`bandlock_enforcement_attempts_total{outcome="success",router="home"} 1`,
		`bandlock_last_run_timestamp_seconds{router="home"} 1.7e+09`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("textfile missing %q:\n%s", want, body)
		}
	}

	if err := collector.WriteTextfile(filepath.Join(t.TempDir(), "missing", "bandlock.prom")); err == nil {
		t.Error("expected error for missing directory")
	}
}
