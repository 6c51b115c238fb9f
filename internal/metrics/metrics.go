// Package metrics collects Prometheus metrics for the frame loop and the
// bridge. A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Frame metrics
	FramesTotal   prometheus.Counter
	FrameDuration prometheus.Histogram

	// Bridge metrics
	GuestFaults *prometheus.CounterVec
	LiveHandles prometheus.Gauge

	// Input metrics
	ControllersActive prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a collector on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		FramesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wasmplay_frames_total",
				Help: "Total number of frames simulated",
			},
		),
		FrameDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wasmplay_frame_duration_seconds",
				Help:    "Time spent in one poll, update and render cycle",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .0166, .025, .05, .1},
			},
		),
		GuestFaults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wasmplay_guest_faults_total",
				Help: "Host exceptions reported to the guest through an exception slot",
			},
			[]string{"capability"},
		),
		LiveHandles: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wasmplay_live_handles",
				Help: "Number of host objects referenced by the guest",
			},
		),
		ControllersActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wasmplay_controllers_active",
				Help: "Number of connected game controllers",
			},
		),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordFrame records one completed frame.
func (m *Metrics) RecordFrame(d time.Duration) {
	if m == nil {
		return
	}
	m.FramesTotal.Inc()
	m.FrameDuration.Observe(d.Seconds())
}

// RecordFault records a host exception reported to the guest.
func (m *Metrics) RecordFault(capability string) {
	if m == nil {
		return
	}
	m.GuestFaults.WithLabelValues(capability).Inc()
}

// SetLiveHandles sets the number of live handles
func (m *Metrics) SetLiveHandles(n int) {
	if m == nil {
		return
	}
	m.LiveHandles.Set(float64(n))
}

// SetControllersActive sets the number of connected controllers
func (m *Metrics) SetControllersActive(n int) {
	if m == nil {
		return
	}
	m.ControllersActive.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
