package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	posCreated      prometheus.Counter
	payments        prometheus.Counter
	paymentAmount   prometheus.Histogram
	exports         *prometheus.CounterVec
}

// NewMetrics initialises the registry with HTTP and purchase order collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orders_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_po_created_total",
		Help: "Purchase orders created.",
	})
	payments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_po_payments_total",
		Help: "Payments recorded against purchase orders.",
	})
	amount := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orders_po_payment_amount",
		Help:    "Recorded payment amounts.",
		Buckets: prometheus.ExponentialBuckets(10, 4, 8),
	})
	exports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_po_exports_total",
		Help: "Workbook exports by source.",
	}, []string{"source"})
	registry.MustRegister(requests, duration, created, payments, amount, exports)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		posCreated:      created,
		payments:        payments,
		paymentAmount:   amount,
		exports:         exports,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// POCreated implements purchasing.Recorder.
func (m *Metrics) POCreated() {
	if m == nil {
		return
	}
	m.posCreated.Inc()
}

// PaymentRecorded implements purchasing.Recorder.
func (m *Metrics) PaymentRecorded(amount float64) {
	if m == nil {
		return
	}
	m.payments.Inc()
	m.paymentAmount.Observe(amount)
}

// RecordExport implements export.Recorder.
func (m *Metrics) RecordExport(source string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(source).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
