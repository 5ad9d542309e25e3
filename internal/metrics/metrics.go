// Package metrics exposes overlay health counters for Prometheus.
package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the overlay counters. A nil *Metrics is valid and records
// nothing, so callers never need to check.
type Metrics struct {
	registry *prometheus.Registry

	FramesPresented prometheus.Counter
	PresentErrors   prometheus.Counter
	Rebuilds        prometheus.Counter
	SurfaceFailures prometheus.Counter
	ImageFailures   prometheus.Counter
	SpuriousQuits   prometheus.Counter
	Surfaces        prometheus.Gauge
	RenderDuration  prometheus.Histogram
}

// New creates the counters on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FramesPresented: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "watermark",
			Name:      "frames_presented_total",
			Help:      "Frames successfully pushed to overlay surfaces.",
		}),
		PresentErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "watermark",
			Name:      "present_errors_total",
			Help:      "Frames dropped because presenting failed.",
		}),
		Rebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "watermark",
			Name:      "rebuilds_total",
			Help:      "Surface rebuilds triggered by display topology changes.",
		}),
		SurfaceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "watermark",
			Name:      "surface_create_failures_total",
			Help:      "Monitors skipped because their surface could not be created.",
		}),
		ImageFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "watermark",
			Name:      "image_decode_failures_total",
			Help:      "Surfaces left without an image stamp after decoding failed.",
		}),
		SpuriousQuits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "watermark",
			Name:      "spurious_quit_total",
			Help:      "OS quit notifications discarded by the event loop.",
		}),
		Surfaces: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "watermark",
			Name:      "surfaces",
			Help:      "Live overlay surfaces.",
		}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "watermark",
			Name:      "refresh_duration_seconds",
			Help:      "Time to render and present all surfaces once.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}

	m.registry.MustRegister(
		m.FramesPresented,
		m.PresentErrors,
		m.Rebuilds,
		m.SurfaceFailures,
		m.ImageFailures,
		m.SpuriousQuits,
		m.Surfaces,
		m.RenderDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// FramePresented records a successful present.
func (m *Metrics) FramePresented() {
	if m != nil {
		m.FramesPresented.Inc()
	}
}

// PresentFailed records a dropped frame.
func (m *Metrics) PresentFailed() {
	if m != nil {
		m.PresentErrors.Inc()
	}
}

// Rebuilt records a topology rebuild.
func (m *Metrics) Rebuilt() {
	if m != nil {
		m.Rebuilds.Inc()
	}
}

// SurfaceFailed records a skipped monitor.
func (m *Metrics) SurfaceFailed() {
	if m != nil {
		m.SurfaceFailures.Inc()
	}
}

// ImageFailed records a surface left without its image stamp.
func (m *Metrics) ImageFailed() {
	if m != nil {
		m.ImageFailures.Inc()
	}
}

// SpuriousQuit records a discarded quit notification.
func (m *Metrics) SpuriousQuit() {
	if m != nil {
		m.SpuriousQuits.Inc()
	}
}

// SetSurfaces records the live surface count.
func (m *Metrics) SetSurfaces(n int) {
	if m != nil {
		m.Surfaces.Set(float64(n))
	}
}

// ObserveRefresh records how long a full refresh pass took.
func (m *Metrics) ObserveRefresh(d time.Duration) {
	if m != nil {
		m.RenderDuration.Observe(d.Seconds())
	}
}
