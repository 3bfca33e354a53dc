// Package metrics exposes enforcement metrics through Prometheus.
//
// A single enforcement run is short-lived, so metrics are exported with
// WriteTextfile for node_exporter's textfile collector rather than served.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/radio-control/bandlock/internal/band"
)

// Collector bundles the enforcement metrics of one router. It implements
// enforce.Recorder.
type Collector struct {
	gatherer prometheus.Gatherer

	Actions        *prometheus.CounterVec
	ActionDuration *prometheus.HistogramVec
	Attempts       *prometheus.CounterVec

	AttachedBand prometheus.Gauge
	SINR         prometheus.Gauge
	RSRP         prometheus.Gauge
	LastRun      prometheus.Gauge
}

// NewCollector registers the metrics against reg, labeled with the router
// name. A nil reg selects the global Prometheus registry.
func NewCollector(reg prometheus.Registerer, router string) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	reg = prometheus.WrapRegistererWith(prometheus.Labels{"router": router}, reg)

	actions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bandlock_router_actions_total",
		Help: "Router configuration commands, labeled by action and normalized result.",
	}, []string{"action", "result"}), "bandlock_router_actions_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bandlock_router_action_duration_seconds",
		Help:    "Router command latency in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"action"}), "bandlock_router_action_duration_seconds")
	if err != nil {
		return nil, err
	}

	attempts, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bandlock_enforcement_attempts_total",
		Help: "Enforcement attempts, labeled by outcome.",
	}, []string{"outcome"}), "bandlock_enforcement_attempts_total")
	if err != nil {
		return nil, err
	}

	c := &Collector{
		gatherer:       gatherer,
		Actions:        actions,
		ActionDuration: durations,
		Attempts:       attempts,
	}
	for _, g := range []struct {
		dst  *prometheus.Gauge
		name string
		help string
	}{
		{&c.AttachedBand, "bandlock_attached_band", "Band number the router is attached to, 0 when detached."},
		{&c.SINR, "bandlock_signal_sinr_db", "Last reported SINR in dB."},
		{&c.RSRP, "bandlock_signal_rsrp_dbm", "Last reported RSRP in dBm."},
		{&c.LastRun, "bandlock_last_run_timestamp_seconds", "Unix time of the last completed run."},
	} {
		gauge, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: g.name, Help: g.help}), g.name)
		if err != nil {
			return nil, err
		}
		*g.dst = gauge
	}
	return c, nil
}

// ObserveAction records one router command.
func (c *Collector) ObserveAction(action, result string, latency time.Duration) {
	if c == nil {
		return
	}
	c.Actions.WithLabelValues(action, result).Inc()
	c.ActionDuration.WithLabelValues(action).Observe(latency.Seconds())
}

// ObserveAttempt counts one enforcement attempt.
func (c *Collector) ObserveAttempt(outcome string) {
	if c == nil {
		return
	}
	c.Attempts.WithLabelValues(outcome).Inc()
}

// SetAttachedBand records the band in use.
func (c *Collector) SetAttachedBand(id band.ID) {
	if c == nil {
		return
	}
	c.AttachedBand.Set(float64(id.Number()))
}

// SetSignalQuality records the last signal figures.
func (c *Collector) SetSignalQuality(sinrDB, rsrpDBm float64) {
	if c == nil {
		return
	}
	c.SINR.Set(sinrDB)
	c.RSRP.Set(rsrpDBm)
}

// MarkRun stamps the completion time of a run.
func (c *Collector) MarkRun(t time.Time) {
	if c == nil {
		return
	}
	c.LastRun.Set(float64(t.Unix()))
}

// WriteTextfile writes every gathered metric to filename atomically.
func (c *Collector) WriteTextfile(filename string) error {
	if err := prometheus.WriteToTextfile(filename, c.gatherer); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", filename, err)
	}
	return nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
