// Package metrics exposes watcher counters over Prometheus.
//
// Hot-path code updates plain atomics; the Prometheus collectors read them
// lazily on scrape, so a tick never blocks on the metrics registry.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics aggregates monitor loop counters.
type Metrics struct {
	Ticks            atomic.Uint64
	FramesSkipped    atomic.Uint64
	CaptureErrors    atomic.Uint64
	PreprocessErrors atomic.Uint64
	RecognizeErrors  atomic.Uint64
	EventsEmitted    atomic.Uint64
	EventsDropped    atomic.Uint64

	lastRoundMs atomic.Uint64

	registry *prometheus.Registry
}

// New creates a Metrics with its own Prometheus registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	gauges := []struct {
		name string
		help string
		read func() float64
	}{
		{"screenwatch_ticks_total", "Monitor loop ticks executed.",
			func() float64 { return float64(m.Ticks.Load()) }},
		{"screenwatch_frames_skipped_total", "Frames skipped as visually unchanged.",
			func() float64 { return float64(m.FramesSkipped.Load()) }},
		{"screenwatch_capture_errors_total", "Screen capture failures.",
			func() float64 { return float64(m.CaptureErrors.Load()) }},
		{"screenwatch_preprocess_errors_total", "Image preprocessing failures.",
			func() float64 { return float64(m.PreprocessErrors.Load()) }},
		{"screenwatch_ocr_errors_total", "Recognition rounds with no usable result.",
			func() float64 { return float64(m.RecognizeErrors.Load()) }},
		{"screenwatch_events_emitted_total", "Change events delivered to the channel.",
			func() float64 { return float64(m.EventsEmitted.Load()) }},
		{"screenwatch_events_dropped_total", "Change events dropped on a full channel.",
			func() float64 { return float64(m.EventsDropped.Load()) }},
		{"screenwatch_last_round_duration_ms", "Duration of the most recent recognition round.",
			func() float64 { return float64(m.lastRoundMs.Load()) }},
	}
	for _, g := range gauges {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help}, g.read))
	}
	return m
}

// ObserveRound records the duration of a completed recognition round.
func (m *Metrics) ObserveRound(d time.Duration) {
	m.lastRoundMs.Store(uint64(d.Milliseconds()))
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
