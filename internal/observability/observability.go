// Package observability exposes Prometheus metrics for HTTP traffic and
// imports. A nil *Provider is valid and records nothing.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "holdfolio"

type Provider struct {
	registry *prometheus.Registry
	handler  http.Handler

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	imports      *prometheus.CounterVec
	importUses   prometheus.Counter
}

// New creates a provider with its own registry, including Go runtime and
// process collectors.
func New() (*Provider, error) {
	registry := prometheus.NewRegistry()

	p := &Provider{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed.",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route", "status"},
		),
		imports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "imports_total",
				Help:      "Imports attempted, by mode and result.",
			},
			[]string{"mode", "result"},
		),
		importUses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "import_uses_inserted_total",
				Help:      "Usage rows written by imports.",
			},
		),
	}

	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.httpRequests,
		p.httpLatency,
		p.imports,
		p.importUses,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	p.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
	return p, nil
}

// Handler serves the metrics endpoint. It returns nil for a nil provider.
func (p *Provider) Handler() http.Handler {
	if p == nil {
		return nil
	}
	return p.handler
}

// Registry returns the underlying registry.
func (p *Provider) Registry() *prometheus.Registry {
	if p == nil {
		return nil
	}
	return p.registry
}

// RecordHTTPRequest counts one finished request.
func (p *Provider) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if p == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	statusLabel := strconv.Itoa(status)
	p.httpRequests.WithLabelValues(method, route, statusLabel).Inc()
	p.httpLatency.WithLabelValues(method, route, statusLabel).Observe(duration.Seconds())
}

// RecordImport counts one import attempt. result is "ok", "invalid" or "error".
func (p *Provider) RecordImport(mode, result string, uses int) {
	if p == nil {
		return
	}
	if mode == "" {
		mode = "unknown"
	}
	p.imports.WithLabelValues(mode, result).Inc()
	if uses > 0 {
		p.importUses.Add(float64(uses))
	}
}

// Middleware records every request passing through next.
func (p *Provider) Middleware(next http.Handler) http.Handler {
	if p == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		p.RecordHTTPRequest(r.Method, r.Pattern, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
