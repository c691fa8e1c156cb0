// Package api serves eclipse geometry over HTTP as JSON for renderers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/litescript/ls-eclipse/internal/astro"
	"github.com/litescript/ls-eclipse/internal/config"
	"github.com/litescript/ls-eclipse/internal/eclipse"
	"github.com/litescript/ls-eclipse/internal/logging"
	"github.com/litescript/ls-eclipse/internal/metrics"
	"github.com/litescript/ls-eclipse/internal/state"
	"github.com/litescript/ls-eclipse/internal/timeline"
)

// Calculator evaluates coverage and the Sun's direction.
type Calculator interface {
	timeline.Sampler
	Coverage(t time.Time, obs astro.Observer) (float64, error)
	SunHorizontal(t time.Time, obs astro.Observer) (eclipse.SunDirection, error)
}

// Options configures a Server. Calculator, Resolver and State are required.
type Options struct {
	Calculator Calculator
	Resolver   state.Resolver
	State      *state.Manager
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
	Logger     *logging.Logger
	Clock      clockwork.Clock
	Samples    int
}

// Server exposes the eclipse API plus /healthz and /metrics.
type Server struct {
	calc     Calculator
	resolver state.Resolver
	state    *state.Manager
	logger   *logging.Logger
	clock    clockwork.Clock
	samples  int
	router   *mux.Router
}

// NewServer builds the router.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Samples <= 0 {
		opts.Samples = timeline.DefaultSamples
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		calc:     opts.Calculator,
		resolver: opts.Resolver,
		state:    opts.State,
		logger:   opts.Logger.Component("api"),
		clock:    opts.Clock,
		samples:  opts.Samples,
		router:   mux.NewRouter().StrictSlash(true),
	}

	if opts.Metrics != nil {
		s.router.Use(opts.Metrics.Middleware)
	}

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/timing", s.handleTiming).Methods(http.MethodGet)
	v1.HandleFunc("/coverage", s.handleCoverage).Methods(http.MethodGet)
	v1.HandleFunc("/curve", s.handleCurve).Methods(http.MethodGet)
	v1.HandleFunc("/sun", s.handleSun).Methods(http.MethodGet)
	v1.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)

	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return s
}

// ServeHTTP delegates to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// connections for up to five seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

type timingResponse struct {
	Observer        astro.Observer       `json:"observer"`
	Eclipse         eclipse.Timing       `json:"eclipse"`
	DurationSeconds float64              `json:"duration_seconds"`
	PeakSun         eclipse.SunDirection `json:"peak_sun"`
	Sun             timeline.SunEvents   `json:"sun"`
}

type coverageResponse struct {
	Time     time.Time `json:"time"`
	Coverage float64   `json:"coverage"`
}

type curveResponse struct {
	Eclipse eclipse.Timing           `json:"eclipse"`
	Samples []eclipse.CoverageSample `json:"samples"`
	Max     eclipse.CoverageSample   `json:"max"`
}

type sunResponse struct {
	Time time.Time `json:"time"`
	eclipse.SunDirection
}

type eventsResponse struct {
	Events []state.Event `json:"events"`
	Hits   int           `json:"hits"`
	Misses int           `json:"misses"`
}

// defaultEvents is how many session events /events returns without a limit.
const defaultEvents = 20

func (s *Server) handleTiming(w http.ResponseWriter, r *http.Request) {
	obs, start, err := s.observerAndTime(r, "start")
	if err != nil {
		s.writeError(w, err)
		return
	}

	timing, err := s.state.Timing(s.resolver, obs, start)
	if err != nil {
		s.writeError(w, err)
		return
	}
	peakSun, err := s.calc.SunHorizontal(timing.Peak, obs)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, timingResponse{
		Observer:        obs,
		Eclipse:         timing,
		DurationSeconds: timing.Duration().Seconds(),
		PeakSun:         peakSun,
		Sun:             timeline.SunEventsFor(obs, timing),
	})
}

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	obs, t, err := s.observerAndTime(r, "t")
	if err != nil {
		s.writeError(w, err)
		return
	}
	cov, err := s.calc.Coverage(t, obs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, coverageResponse{Time: t, Coverage: cov})
}

func (s *Server) handleCurve(w http.ResponseWriter, r *http.Request) {
	obs, start, err := s.observerAndTime(r, "start")
	if err != nil {
		s.writeError(w, err)
		return
	}
	n := s.samples
	if v := r.URL.Query().Get("samples"); v != "" {
		n, err = strconv.Atoi(v)
		if err != nil || n < config.MinSamples || n > config.MaxSamples {
			s.writeError(w, badRequest("samples must be an integer in [%d, %d]", config.MinSamples, config.MaxSamples))
			return
		}
	}

	timing, err := s.state.Timing(s.resolver, obs, start)
	if err != nil {
		s.writeError(w, err)
		return
	}
	curve, err := s.state.Curve(r.Context(), s.calc, obs, start, timing, n)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, curveResponse{Eclipse: timing, Samples: curve.Samples, Max: curve.Max()})
}

func (s *Server) handleSun(w http.ResponseWriter, r *http.Request) {
	obs, t, err := s.observerAndTime(r, "t")
	if err != nil {
		s.writeError(w, err)
		return
	}
	dir, err := s.calc.SunHorizontal(t, obs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sunResponse{Time: t, SunDirection: dir})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEvents
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, badRequest("limit must be a positive integer"))
			return
		}
		limit = n
	}

	snap := s.state.Snapshot()
	events := s.state.RecentEvents(limit)
	if events == nil {
		events = []state.Event{}
	}
	s.writeJSON(w, http.StatusOK, eventsResponse{Events: events, Hits: snap.Hits, Misses: snap.Misses})
}

// observerAndTime parses lat, lon, elev and the named time parameter, which
// defaults to now.
func (s *Server) observerAndTime(r *http.Request, timeParam string) (astro.Observer, time.Time, error) {
	q := r.URL.Query()

	var obs astro.Observer
	var err error
	if obs.LatDeg, err = floatParam(q.Get("lat"), true); err != nil {
		return obs, time.Time{}, badRequest("lat: %v", err)
	}
	if obs.LonDeg, err = floatParam(q.Get("lon"), true); err != nil {
		return obs, time.Time{}, badRequest("lon: %v", err)
	}
	if obs.ElevationM, err = floatParam(q.Get("elev"), false); err != nil {
		return obs, time.Time{}, badRequest("elev: %v", err)
	}
	obs.Name = q.Get("name")
	if err := obs.Validate(); err != nil {
		return obs, time.Time{}, badRequest("%v", err)
	}

	t := s.clock.Now().UTC()
	if v := q.Get(timeParam); v != "" {
		t, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return obs, time.Time{}, badRequest("%s: want RFC 3339, got %q", timeParam, v)
		}
		t = t.UTC()
	}
	return obs, t, nil
}

func floatParam(v string, required bool) (float64, error) {
	if v == "" {
		if required {
			return 0, errors.New("required")
		}
		return 0, nil
	}
	return strconv.ParseFloat(v, 64)
}

// requestError is a client error reported as 400.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...interface{}) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var reqErr *requestError
	var upErr *eclipse.UpstreamError
	switch {
	case errors.As(err, &reqErr), errors.Is(err, astro.ErrInvalidObserver),
		errors.Is(err, astro.ErrTimeOutOfRange), errors.Is(err, timeline.ErrEmptyRange):
		return http.StatusBadRequest
	case errors.Is(err, eclipse.ErrNoEclipseFound):
		return http.StatusNotFound
	case errors.As(err, &upErr):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusNotFound {
		msg = eclipse.ErrNoEclipseFound.Error()
	}
	logger := s.logger.With("status", code)
	if code >= http.StatusInternalServerError {
		logger.Error("%v", err)
	} else {
		logger.Debug("%v", err)
	}
	s.writeJSON(w, code, errorResponse{Error: msg})
}

// writeJSON encodes v before committing the status, so a value that cannot
// be encoded turns into a 500 instead of an empty 2xx body.
func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.logger.With("status", http.StatusInternalServerError).Error("encode response: %v", err)
		buf.Reset()
		code = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(errorResponse{Error: "encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Warn("write response: %v", err)
	}
}
