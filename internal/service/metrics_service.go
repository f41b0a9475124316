package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the portal.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	attemptsStarted prometheus.Counter
	attemptsScored  prometheus.Counter
	attemptsSwept   prometheus.Counter
	exportsRendered *prometheus.CounterVec
	clockEvents     *prometheus.CounterVec
}

// NewMetricsService registers the portal's Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	attemptsStarted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cbt_attempts_started_total",
		Help: "Total CBT attempts started via code redemption",
	})

	attemptsScored := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cbt_attempts_scored_total",
		Help: "Total CBT attempts auto-scored on submission",
	})

	attemptsSwept := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cbt_attempts_swept_total",
		Help: "Total CBT attempts force-submitted by the deadline sweeper",
	})

	exportsRendered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "exports_rendered_total",
		Help: "Total export documents rendered, by type",
	}, []string{"type"})

	clockEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_clock_events_total",
		Help: "Total attendance clock events, by direction",
	}, []string{"direction"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, attemptsStarted, attemptsScored,
		attemptsSwept, exportsRendered, clockEvents, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		attemptsStarted: attemptsStarted,
		attemptsScored:  attemptsScored,
		attemptsSwept:   attemptsSwept,
		exportsRendered: exportsRendered,
		clockEvents:     clockEvents,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one handled request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := []string{method, path, fmt.Sprintf("%d", status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// CountAttemptStarted records a redeemed exam code.
func (m *MetricsService) CountAttemptStarted() {
	if m != nil {
		m.attemptsStarted.Inc()
	}
}

// CountAttemptScored records an auto-scored submission.
func (m *MetricsService) CountAttemptScored() {
	if m != nil {
		m.attemptsScored.Inc()
	}
}

// CountAttemptsSwept records force-submitted attempts.
func (m *MetricsService) CountAttemptsSwept(n int) {
	if m != nil && n > 0 {
		m.attemptsSwept.Add(float64(n))
	}
}

// CountExportRendered records a completed export render.
func (m *MetricsService) CountExportRendered(exportType string) {
	if m != nil {
		m.exportsRendered.WithLabelValues(exportType).Inc()
	}
}

// CountClockEvent records an attendance clock-in or clock-out.
func (m *MetricsService) CountClockEvent(direction string) {
	if m != nil {
		m.clockEvents.WithLabelValues(direction).Inc()
	}
}
