// Package metrics holds the Prometheus instruments for ephemeris queries,
// eclipse searches and the HTTP API.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/litescript/ls-eclipse/internal/astro"
	"github.com/litescript/ls-eclipse/internal/ephem"
)

const namespace = "ls_eclipse"

// Metrics holds the Prometheus counters and histograms.
type Metrics struct {
	PositionQueries *prometheus.CounterVec   // labels: body={Sun,Moon}, outcome={ok,error}
	Searches        *prometheus.CounterVec   // labels: outcome={found,exhausted,error}
	SearchDuration  prometheus.Histogram     // seconds per local eclipse search
	HTTPRequests    *prometheus.CounterVec   // labels: route, code
	HTTPDuration    *prometheus.HistogramVec // labels: route
}

func newMetrics() *Metrics {
	return &Metrics{
		PositionQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "position_queries_total",
			Help:      "Topocentric body position lookups by body and outcome.",
		}, []string{"body", "outcome"}),
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eclipse_searches_total",
			Help:      "Local solar eclipse searches by outcome.",
		}, []string{"outcome"}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "eclipse_search_duration_seconds",
			Help:      "Duration of a local solar eclipse search.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by route template and status code.",
		}, []string{"route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency in seconds.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.2, 0.4, 0.8, 1.0, 2.0, 4.0, 8.0},
		}, []string{"route"}),
	}
}

// NewMetrics creates the metrics and registers them with reg, or with the
// default registry when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := newMetrics()
	reg.MustRegister(
		m.PositionQueries,
		m.Searches,
		m.SearchDuration,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered metrics so tests can build as
// many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// instrumented wraps a Provider and records every call.
type instrumented struct {
	ephem.Provider
	m   *Metrics
	now func() time.Time
}

// InstrumentProvider returns p with position and search metrics recorded.
func InstrumentProvider(p ephem.Provider, m *Metrics) ephem.Provider {
	return &instrumented{Provider: p, m: m, now: time.Now}
}

func (i *instrumented) EquatorialPosition(body ephem.Body, t time.Time, obs astro.Observer) (ephem.Equatorial, error) {
	eq, err := i.Provider.EquatorialPosition(body, t, obs)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	i.m.PositionQueries.WithLabelValues(body.String(), outcome).Inc()
	return eq, err
}

func (i *instrumented) SearchLocalSolarEclipse(start time.Time, obs astro.Observer) (ephem.LocalSolarEclipse, error) {
	began := i.now()
	ev, err := i.Provider.SearchLocalSolarEclipse(start, obs)
	i.m.SearchDuration.Observe(i.now().Sub(began).Seconds())

	switch {
	case err == nil:
		i.m.Searches.WithLabelValues("found").Inc()
	case errors.Is(err, ephem.ErrSearchExhausted):
		i.m.Searches.WithLabelValues("exhausted").Inc()
	default:
		i.m.Searches.WithLabelValues("error").Inc()
	}
	return ev, err
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency per route template. Panics
// are counted as 500s and re-thrown.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := routeOf(r)
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

		defer func() {
			code := rec.code
			if err := recover(); err != nil {
				m.observe(route, http.StatusInternalServerError, start)
				panic(err)
			}
			m.observe(route, code, start)
		}()

		next.ServeHTTP(rec, r)
	})
}

func (m *Metrics) observe(route string, code int, start time.Time) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}

// routeOf returns the matched mux route template, falling back to the raw
// path for unmatched requests.
func routeOf(r *http.Request) string {
	if cur := mux.CurrentRoute(r); cur != nil {
		if tpl, err := cur.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	if r.URL != nil {
		return r.URL.Path
	}
	return ""
}
