// Package adaptertest provides vendor-agnostic conformance testing for router adapters.
//
// Every adapter must answer with well-formed signal documents, accept the
// configuration writes the enforcer issues and report failures through the
// normalized error vocabulary (INVALID_RANGE, BUSY, UNAVAILABLE, UNAUTHORIZED,
// NOT_SUPPORTED, INTERNAL).
package adaptertest

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/radio-control/bandlock/internal/adapter"
	"github.com/radio-control/bandlock/internal/band"
)

// Capabilities defines what the adapter under test is expected to accept.
type Capabilities struct {
	Credentials    adapter.Credentials
	BadCredentials adapter.Credentials
	// Bands are band lists the router must accept, in write order.
	Bands []band.Set
	// MaxLatency bounds a single call.
	MaxLatency time.Duration
}

// ConformanceResult represents the result of a conformance test.
type ConformanceResult struct {
	TestName string
	Passed   bool
	Error    string
	Duration time.Duration
	Details  map[string]interface{}
}

// ConformanceReport represents the complete conformance test report.
type ConformanceReport struct {
	AdapterName   string
	TotalTests    int
	PassedTests   int
	FailedTests   int
	Results       []ConformanceResult
	OverallPassed bool
	Duration      time.Duration
}

var normalizedCodes = map[string]bool{
	adapter.ErrInvalidRange.Error(): true,
	adapter.ErrBusy.Error():         true,
	adapter.ErrUnavailable.Error():  true,
	adapter.ErrUnauthorized.Error(): true,
	adapter.ErrNotSupported.Error(): true,
	adapter.ErrInternal.Error():     true,
}

// RunConformance runs the complete conformance test suite for an adapter.
// newAdapter must return a fresh router for every call.
func RunConformance(t *testing.T, name string, newAdapter func() adapter.RouterControl, caps Capabilities) {
	startTime := time.Now()

	report := &ConformanceReport{
		AdapterName:   name,
		Results:       []ConformanceResult{},
		OverallPassed: true,
	}

	runSignalTests(newAdapter, report)
	runLoginTests(newAdapter, caps, report)
	runConfigurationTests(newAdapter, caps, report)
	runFailureMappingTests(newAdapter, caps, report)
	runIdempotencyTests(newAdapter, caps, report)
	runCancellationTests(newAdapter, report)
	runCapabilityTests(newAdapter, report)
	runTimingTests(newAdapter, caps, report)

	report.Duration = time.Since(startTime)

	printConformanceReport(t, report)

	if !report.OverallPassed {
		t.Fatalf("Adapter conformance test failed: %d/%d tests passed", report.PassedTests, report.TotalTests)
	}
}

// run times fn and records its outcome under name.
func (r *ConformanceReport) run(name string, fn func(details map[string]interface{}) error) {
	result := ConformanceResult{
		TestName: name,
		Details:  make(map[string]interface{}),
	}
	start := time.Now()
	err := fn(result.Details)
	result.Duration = time.Since(start)

	if err != nil {
		result.Error = err.Error()
	} else {
		result.Passed = true
	}
	r.addResult(result)
}

func runSignalTests(newAdapter func() adapter.RouterControl, report *ConformanceReport) {
	report.run("Signal_WellFormed", func(details map[string]interface{}) error {
		raw, err := newAdapter().SignalTelemetry(context.Background())
		if err != nil {
			return fmt.Errorf("SignalTelemetry failed: %w", err)
		}
		var doc struct {
			XMLName xml.Name
			Band    *string `xml:"band"`
		}
		if err := xml.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("signal document is not well-formed: %w", err)
		}
		if doc.XMLName.Local != "response" {
			return fmt.Errorf("expected <response> root, got <%s>", doc.XMLName.Local)
		}
		if doc.Band == nil {
			return fmt.Errorf("signal document has no band element")
		}
		details["band"] = *doc.Band
		return nil
	})
}

func runLoginTests(newAdapter func() adapter.RouterControl, caps Capabilities, report *ConformanceReport) {
	report.run("Login_Valid", func(details map[string]interface{}) error {
		router := newAdapter()
		ctx := context.Background()
		if err := router.Login(ctx, caps.Credentials); err != nil {
			return fmt.Errorf("Login failed: %w", err)
		}
		if err := router.Logout(ctx); err != nil {
			return fmt.Errorf("Logout failed: %w", err)
		}
		return nil
	})

	report.run("Login_Invalid", func(details map[string]interface{}) error {
		err := newAdapter().Login(context.Background(), caps.BadCredentials)
		if err == nil {
			return fmt.Errorf("expected login with bad credentials to fail")
		}
		if !errors.Is(err, adapter.ErrUnauthorized) {
			return fmt.Errorf("expected UNAUTHORIZED, got %v", err)
		}
		details["code"] = adapter.Code(err)
		return nil
	})
}

func runConfigurationTests(newAdapter func() adapter.RouterControl, caps Capabilities, report *ConformanceReport) {
	router := newAdapter()
	ctx := context.Background()
	loginErr := router.Login(ctx, caps.Credentials)

	report.run("SetNetworkMode_4G", func(details map[string]interface{}) error {
		if loginErr != nil {
			return fmt.Errorf("Login failed: %w", loginErr)
		}
		return router.SetNetworkMode(ctx, adapter.Mode4G)
	})

	report.run("SetDataSwitch_Cycle", func(details map[string]interface{}) error {
		if err := router.SetDataSwitch(ctx, false); err != nil {
			return fmt.Errorf("SetDataSwitch(false) failed: %w", err)
		}
		if err := router.SetDataSwitch(ctx, true); err != nil {
			return fmt.Errorf("SetDataSwitch(true) failed: %w", err)
		}
		return nil
	})

	for i, bands := range caps.Bands {
		bands := bands
		report.run(fmt.Sprintf("SetLTEBandList_Valid_%d", i), func(details map[string]interface{}) error {
			details["bands"] = bands.String()
			return router.SetLTEBandList(ctx, bands)
		})
	}
}

func runFailureMappingTests(newAdapter func() adapter.RouterControl, caps Capabilities, report *ConformanceReport) {
	router := newAdapter()
	ctx := context.Background()
	_ = router.Login(ctx, caps.Credentials)

	report.run("SetLTEBandList_OutOfMask", func(details map[string]interface{}) error {
		err := router.SetLTEBandList(ctx, band.Set{"B66"})
		if err == nil {
			return fmt.Errorf("expected band outside the LTE mask to fail")
		}
		if !errors.Is(err, adapter.ErrInvalidRange) {
			return fmt.Errorf("expected INVALID_RANGE, got %v", err)
		}
		return nil
	})

	report.run("Errors_Normalized", func(details map[string]interface{}) error {
		err := newAdapter().Login(ctx, caps.BadCredentials)
		if code := adapter.Code(err); !normalizedCodes[code] {
			return fmt.Errorf("error %v is not normalized (code %q)", err, code)
		}
		return nil
	})
}

func runIdempotencyTests(newAdapter func() adapter.RouterControl, caps Capabilities, report *ConformanceReport) {
	if len(caps.Bands) == 0 {
		return
	}
	router := newAdapter()
	ctx := context.Background()
	_ = router.Login(ctx, caps.Credentials)

	report.run("SetLTEBandList_Idempotent", func(details map[string]interface{}) error {
		bands := caps.Bands[len(caps.Bands)-1]
		for i := 0; i < 2; i++ {
			if err := router.SetLTEBandList(ctx, bands); err != nil {
				return fmt.Errorf("write %d failed: %w", i+1, err)
			}
		}
		return nil
	})

	report.run("Signal_Idempotent", func(details map[string]interface{}) error {
		first, err := router.SignalTelemetry(ctx)
		if err != nil {
			return err
		}
		second, err := router.SignalTelemetry(ctx)
		if err != nil {
			return err
		}
		if bandElement(first) != bandElement(second) {
			return fmt.Errorf("band changed between reads: %q vs %q", bandElement(first), bandElement(second))
		}
		return nil
	})
}

func runCancellationTests(newAdapter func() adapter.RouterControl, report *ConformanceReport) {
	report.run("Signal_CancelledContext", func(details map[string]interface{}) error {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := newAdapter().SignalTelemetry(ctx); !errors.Is(err, context.Canceled) {
			return fmt.Errorf("expected context.Canceled, got %v", err)
		}
		return nil
	})
}

func runCapabilityTests(newAdapter func() adapter.RouterControl, report *ConformanceReport) {
	report.run("DownlinkReadback_Detectable", func(details map[string]interface{}) error {
		router := newAdapter()
		supported := adapter.SupportsDownlinkReadback(router)
		details["supported"] = supported
		if supported {
			return nil
		}
		if _, err := adapter.DownlinkBands(context.Background(), router); !errors.Is(err, adapter.ErrCapabilityUnsupported) {
			return fmt.Errorf("expected CAPABILITY_UNSUPPORTED, got %v", err)
		}
		return nil
	})
}

func runTimingTests(newAdapter func() adapter.RouterControl, caps Capabilities, report *ConformanceReport) {
	if caps.MaxLatency <= 0 {
		return
	}
	router := newAdapter()

	report.run("Signal_Latency", func(details map[string]interface{}) error {
		start := time.Now()
		if _, err := router.SignalTelemetry(context.Background()); err != nil {
			return err
		}
		elapsed := time.Since(start)
		details["latency"] = elapsed
		if elapsed > caps.MaxLatency {
			return fmt.Errorf("signal read took %v, limit %v", elapsed, caps.MaxLatency)
		}
		return nil
	})
}

func bandElement(raw []byte) string {
	var doc struct {
		Band string `xml:"band"`
	}
	_ = xml.Unmarshal(raw, &doc)
	return doc.Band
}

func (r *ConformanceReport) addResult(result ConformanceResult) {
	r.TotalTests++
	if result.Passed {
		r.PassedTests++
	} else {
		r.FailedTests++
		r.OverallPassed = false
	}
	r.Results = append(r.Results, result)
}

func printConformanceReport(t *testing.T, report *ConformanceReport) {
	t.Logf("\n%s", strings.Repeat("=", 80))
	t.Logf("ADAPTER CONFORMANCE REPORT")
	t.Logf("%s", strings.Repeat("=", 80))
	t.Logf("Adapter: %s", report.AdapterName)
	t.Logf("Total Tests: %d", report.TotalTests)
	t.Logf("Passed: %d", report.PassedTests)
	t.Logf("Failed: %d", report.FailedTests)
	t.Logf("Overall: %s", map[bool]string{true: "PASS", false: "FAIL"}[report.OverallPassed])
	t.Logf("Duration: %v", report.Duration)
	t.Logf("%s", strings.Repeat("-", 80))

	t.Logf("%-30s %-8s %-12s %-s", "TEST NAME", "RESULT", "DURATION", "DETAILS")
	t.Logf("%s", strings.Repeat("-", 80))

	for _, result := range report.Results {
		status := "PASS"
		if !result.Passed {
			status = "FAIL"
		}

		details := ""
		if result.Error != "" {
			details = result.Error
		} else if len(result.Details) > 0 {
			var detailParts []string
			for k, v := range result.Details {
				detailParts = append(detailParts, fmt.Sprintf("%s=%v", k, v))
			}
			details = strings.Join(detailParts, ", ")
		}

		t.Logf("%-30s %-8s %-12s %-s",
			result.TestName,
			status,
			result.Duration.String(),
			details)
	}

	t.Logf("%s", strings.Repeat("=", 80))
}
