// Command ls-eclipse finds the next solar eclipse visible from an observer
// and lets you scrub through it in the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/term"

	"github.com/litescript/ls-eclipse/internal/api"
	"github.com/litescript/ls-eclipse/internal/astro"
	"github.com/litescript/ls-eclipse/internal/config"
	"github.com/litescript/ls-eclipse/internal/eclipse"
	"github.com/litescript/ls-eclipse/internal/ephem"
	"github.com/litescript/ls-eclipse/internal/logging"
	"github.com/litescript/ls-eclipse/internal/metrics"
	"github.com/litescript/ls-eclipse/internal/report"
	"github.com/litescript/ls-eclipse/internal/state"
	"github.com/litescript/ls-eclipse/internal/timeline"
	"github.com/litescript/ls-eclipse/internal/ui"
	"github.com/litescript/ls-eclipse/internal/version"
)

// CLI flags for headless mode
var (
	summaryMode   bool
	jsonPath      string
	nowMode       bool
	watchInterval time.Duration
	eventsMode    bool
	serveMode     bool
	showVersion   bool
)

const (
	minWatch = time.Second

	// traceStep spaces the Sun elevation samples shown under the curve.
	traceStep = time.Minute
)

// app bundles the components shared by every mode.
type app struct {
	cfg      config.Config
	obs      astro.Observer
	start    time.Time
	provider ephem.Provider
	calc     *eclipse.Calculator
	resolver *eclipse.Resolver
	state    *state.Manager
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	clock    clockwork.Clock
	logger   *logging.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg.RegisterFlags(flag.CommandLine)
	flag.BoolVar(&summaryMode, "summary", false, "Print text summary instead of TUI")
	flag.StringVar(&jsonPath, "json", "", "Export eclipse JSON to file (use - for stdout)")
	flag.BoolVar(&nowMode, "now", false, "Single-line status for the current moment")
	flag.DurationVar(&watchInterval, "watch", 0, "Repeat -now at interval (e.g., 30s)")
	flag.BoolVar(&eventsMode, "events", false, "Show session event log")
	flag.BoolVar(&serveMode, "serve", false, "Serve the HTTP API instead of the TUI")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("ls-eclipse", version.Version)
		return
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if watchInterval > 0 && watchInterval < minWatch {
		watchInterval = minWatch
	}

	// Set up logging
	logger := logging.New(logging.ParseLevel(cfg.LogLevel))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	a, err := newApp(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	switch {
	case serveMode:
		err = a.serve(ctx)
	case summaryMode || jsonPath != "" || nowMode || eventsMode:
		err = a.runHeadless(ctx)
	default:
		err = a.runTUI(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(cfg config.Config, logger *logging.Logger) (*app, error) {
	clock := clockwork.NewRealClock()

	mode, err := cfg.EphemMode()
	if err != nil {
		return nil, err
	}
	start, err := cfg.StartTime(clock.Now())
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	provider, err := ephem.NewProvider(mode, ephem.Options{
		HorizonsURL:  cfg.HorizonsURL,
		MaxLunations: cfg.MaxLunations,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	provider = metrics.InstrumentProvider(provider, m)

	stateCfg := state.DefaultConfig()
	stateCfg.TTL = cfg.CacheTTL

	return &app{
		cfg:      cfg,
		obs:      cfg.Observer(),
		start:    start,
		provider: provider,
		calc:     eclipse.NewCalculator(provider),
		resolver: eclipse.NewResolver(provider),
		state:    state.NewManager(stateCfg, clock),
		metrics:  m,
		registry: registry,
		clock:    clock,
		logger:   logger.Component("main"),
	}, nil
}

func (a *app) serve(ctx context.Context) error {
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := api.NewServer(api.Options{
		Calculator: a.calc,
		Resolver:   a.resolver,
		State:      a.state,
		Metrics:    a.metrics,
		Gatherer:   a.registry,
		Logger:     a.logger,
		Clock:      a.clock,
		Samples:    a.cfg.Samples,
	})
	return srv.ListenAndServe(ctx, a.cfg.Listen)
}

// resolveAndSelect finds the eclipse, samples its curve and selects it in
// the state manager.
func (a *app) resolveAndSelect(ctx context.Context) (eclipse.Timing, timeline.Curve, timeline.SunEvents, error) {
	a.logger.Debug("searching from %s for %s", a.start.Format(time.RFC3339), a.obs)

	timing, err := a.state.Timing(a.resolver, a.obs, a.start)
	if err != nil {
		return eclipse.Timing{}, timeline.Curve{}, timeline.SunEvents{}, err
	}
	curve, err := a.state.Curve(ctx, a.calc, a.obs, a.start, timing, a.cfg.Samples)
	if err != nil {
		return eclipse.Timing{}, timeline.Curve{}, timeline.SunEvents{}, err
	}
	sun := timeline.SunEventsFor(a.obs, timing)

	a.state.Select(a.obs, timing, curve)
	a.logger.Info("%s eclipse peaks at %s (%.1f%%)", timing.Kind, timing.Peak.Format(time.RFC3339), timing.Obscuration*100)
	return timing, curve, sun, nil
}

func (a *app) runTUI(ctx context.Context) error {
	// Log lines would tear the alternate screen
	if !a.logger.Enabled(logging.LevelDebug) {
		a.logger.SetOutput(io.Discard)
	}

	model := ui.New(a.state, a.calc, a.provider.Name())
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	go func() {
		timing, _, sun, err := a.resolveAndSelect(ctx)
		if err != nil {
			p.Send(ui.ErrorMsg{Error: err})
			return
		}
		trace, err := timeline.SunTrace(ctx, a.calc, a.obs, timing.Start, timing.End, traceStep)
		if err != nil {
			a.logger.Warn("sun trace: %v", err)
		}
		p.Send(ui.SelectionMsg{Sun: sun, Trace: trace})
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}

// runHeadless handles all headless modes without starting TUI.
func (a *app) runHeadless(ctx context.Context) error {
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))

	timing, curve, sun, err := a.resolveAndSelect(ctx)
	if err != nil {
		return err
	}
	peakSun, err := a.calc.SunHorizontal(timing.Peak, a.obs)
	if err != nil {
		return err
	}
	export := report.NewExport(report.Input{
		Provider: a.provider.Name(),
		Observer: a.obs,
		Timing:   timing,
		PeakSun:  peakSun,
		Sun:      sun,
		Curve:    curve,
	}, a.clock.Now())

	// Export JSON if requested
	if jsonPath != "" {
		if err := writeJSON(export, jsonPath); err != nil {
			return err
		}
	}

	// Print summary if requested
	if summaryMode {
		report.WriteSummary(os.Stdout, export, isTTY)
	}

	// Events log
	if eventsMode {
		writeEvents(os.Stdout, a.state.RecentEvents(10))
	}

	if !nowMode {
		return nil
	}

	nowOnce := func() error {
		now := a.clock.Now()
		cov, err := a.calc.Coverage(now, a.obs)
		if err != nil {
			return err
		}
		report.WriteNowLine(os.Stdout, export, cov, now)
		return nil
	}

	if err := nowOnce(); err != nil {
		return err
	}
	if watchInterval == 0 {
		return nil
	}

	ticker := a.clock.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			if err := nowOnce(); err != nil {
				a.logger.Warn("coverage: %v", err)
			}
		}
	}
}

func writeJSON(export *report.Export, path string) error {
	if path == "-" {
		if err := export.WriteJSON(os.Stdout); err != nil {
			return fmt.Errorf("write JSON to stdout: %w", err)
		}
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()
	if err := export.WriteJSON(f); err != nil {
		return fmt.Errorf("write JSON to file: %w", err)
	}
	return nil
}

func writeEvents(w io.Writer, events []state.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events")
		return
	}
	for _, e := range events {
		line := fmt.Sprintf("%s  %-14s %s", e.Timestamp.UTC().Format("15:04:05"), e.Type, e.Observer)
		if e.Detail != "" {
			line += "  " + e.Detail
		}
		fmt.Fprintln(w, line)
	}
}
