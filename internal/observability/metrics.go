package observability

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/csvshare-backend/internal/platform/logger"
)

// Metrics is nil-safe: every method is a no-op on a nil receiver so callers never
// need to check whether metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	rtConnections   prometheus.Gauge
	rtOpened        prometheus.Counter
	rtDeliveries    *prometheus.CounterVec
	rtEvictions     *prometheus.CounterVec
	rtBroadcastTime prometheus.Histogram
	rtDropped       prometheus.Counter

	cacheLookups *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "csvshare_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "csvshare_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "route"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "csvshare_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		rtConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "csvshare_realtime_connections",
			Help: "Currently registered notification connections.",
		}),
		rtOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "csvshare_realtime_connections_opened_total",
			Help: "Notification connections accepted since start.",
		}),
		rtDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "csvshare_realtime_deliveries_total",
			Help: "Per-connection delivery attempts by result.",
		}, []string{"result"}),
		rtEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "csvshare_realtime_evictions_total",
			Help: "Connections evicted after a failed delivery, by reason.",
		}, []string{"reason"}),
		rtBroadcastTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "csvshare_realtime_broadcast_duration_seconds",
			Help:    "Wall time of one broadcast across all connections.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		rtDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "csvshare_realtime_events_dropped_total",
			Help: "Events dropped because the publish queue was full.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "csvshare_csv_cache_lookups_total",
			Help: "CSV content cache lookups by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.rtConnections, m.rtOpened, m.rtDeliveries, m.rtEvictions, m.rtBroadcastTime, m.rtDropped,
		m.cacheLookups,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server returns the standalone metrics HTTP server, or nil when addr is empty.
func (m *Metrics) Server(addr string) *http.Server {
	addr = strings.TrimSpace(addr)
	if m == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Serve runs the metrics server until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, log *logger.Logger, addr string) error {
	srv := m.Server(addr)
	if srv == nil {
		return nil
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) SetConnections(n int) {
	if m == nil {
		return
	}
	m.rtConnections.Set(float64(n))
}

func (m *Metrics) IncConnectionsOpened() {
	if m == nil {
		return
	}
	m.rtOpened.Inc()
}

func (m *Metrics) ObserveBroadcast(dur time.Duration, delivered, failed int) {
	if m == nil {
		return
	}
	m.rtBroadcastTime.Observe(dur.Seconds())
	m.rtDeliveries.WithLabelValues("ok").Add(float64(delivered))
	m.rtDeliveries.WithLabelValues("error").Add(float64(failed))
}

func (m *Metrics) IncEviction(reason string) {
	if m == nil {
		return
	}
	m.rtEvictions.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncEventDropped() {
	if m == nil {
		return
	}
	m.rtDropped.Inc()
}

func (m *Metrics) IncCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
