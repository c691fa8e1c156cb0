// Package state provides thread-safe session state for the application: a
// memo of resolved eclipse timings and coverage curves, the selected
// observer and the timeline cursor.
package state

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/litescript/ls-eclipse/internal/astro"
	"github.com/litescript/ls-eclipse/internal/eclipse"
	"github.com/litescript/ls-eclipse/internal/timeline"
)

// EventType represents the type of session event.
type EventType string

const (
	EventResolved      EventType = "RESOLVED"
	EventResolveFailed EventType = "RESOLVE_FAILED"
	EventCurveBuilt    EventType = "CURVE_BUILT"
	EventExpired       EventType = "EXPIRED"
)

// Event records a change in session state.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Observer  string    `json:"observer"`
	Detail    string    `json:"detail,omitempty"`
}

// Key identifies a memoized result: the observer rounded to 1e-4° and
// whole meters, and the search start truncated to the second.
type Key struct {
	LatE4  int64
	LonE4  int64
	ElevM  int64
	StartS int64
}

// KeyFor builds the memo key for an observer and search start.
func KeyFor(obs astro.Observer, start time.Time) Key {
	return Key{
		LatE4:  int64(math.Round(obs.LatDeg * 1e4)),
		LonE4:  int64(math.Round(obs.LonDeg * 1e4)),
		ElevM:  int64(math.Round(obs.ElevationM)),
		StartS: start.Unix(),
	}
}

type curveKey struct {
	Key
	samples int
}

type timingEntry struct {
	timing  eclipse.Timing
	expires time.Time
}

type curveEntry struct {
	curve   timeline.Curve
	expires time.Time
}

// Resolver finds the next eclipse for an observer.
type Resolver interface {
	Resolve(start time.Time, obs astro.Observer) (eclipse.Timing, error)
}

// Manager handles all shared session state with thread-safe access.
type Manager struct {
	mu    sync.RWMutex
	clock clockwork.Clock

	ttl        time.Duration
	maxEntries int

	timings map[Key]timingEntry
	curves  map[curveKey]curveEntry
	hits    int
	misses  int

	// Current selection
	observer  astro.Observer
	timing    *eclipse.Timing
	curve     timeline.Curve
	cursor    time.Time
	lastError error

	// Event log (ring buffer)
	events       []Event
	maxEvents    int
	eventWriteAt int
}

// Config holds configuration for the state manager.
type Config struct {
	TTL        time.Duration
	MaxEntries int
	MaxEvents  int
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		TTL:        30 * time.Minute,
		MaxEntries: 256,
		MaxEvents:  50,
	}
}

// NewManager creates a new state manager. A nil clock uses the real clock.
func NewManager(cfg Config, clock clockwork.Clock) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = def.MaxEvents
	}
	return &Manager{
		clock:      clock,
		ttl:        cfg.TTL,
		maxEntries: cfg.MaxEntries,
		maxEvents:  cfg.MaxEvents,
		timings:    make(map[Key]timingEntry),
		curves:     make(map[curveKey]curveEntry),
		events:     make([]Event, 0, cfg.MaxEvents),
	}
}

// Timing returns the memoized timing for obs and start, resolving and
// storing it on a miss. Failures are not memoized.
func (m *Manager) Timing(r Resolver, obs astro.Observer, start time.Time) (eclipse.Timing, error) {
	key := KeyFor(obs, start)
	now := m.clock.Now()

	m.mu.Lock()
	if e, ok := m.timings[key]; ok {
		if now.Before(e.expires) {
			m.hits++
			m.mu.Unlock()
			return e.timing, nil
		}
		delete(m.timings, key)
		m.addEvent(Event{Type: EventExpired, Timestamp: now, Observer: obs.String()})
	}
	m.misses++
	m.mu.Unlock()

	timing, err := r.Resolve(start, obs)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.lastError = err
		m.addEvent(Event{Type: EventResolveFailed, Timestamp: now, Observer: obs.String(), Detail: err.Error()})
		return eclipse.Timing{}, err
	}
	m.lastError = nil
	if len(m.timings) >= m.maxEntries {
		m.evictTimings(now)
	}
	m.timings[key] = timingEntry{timing: timing, expires: now.Add(m.ttl)}
	m.addEvent(Event{
		Type:      EventResolved,
		Timestamp: now,
		Observer:  obs.String(),
		Detail:    timing.Kind.String() + " peak " + timing.Peak.Format(time.RFC3339),
	})
	return timing, nil
}

// Curve returns the memoized coverage curve over the timing window,
// building it on a miss. n <= 0 selects timeline.DefaultSamples.
func (m *Manager) Curve(ctx context.Context, s timeline.Sampler, obs astro.Observer, start time.Time, timing eclipse.Timing, n int) (timeline.Curve, error) {
	if n <= 0 {
		n = timeline.DefaultSamples
	}
	key := curveKey{Key: KeyFor(obs, start), samples: n}
	now := m.clock.Now()

	m.mu.Lock()
	if e, ok := m.curves[key]; ok && now.Before(e.expires) {
		m.hits++
		m.mu.Unlock()
		return e.curve, nil
	}
	delete(m.curves, key)
	m.misses++
	m.mu.Unlock()

	curve, err := timeline.BuildCurve(ctx, s, obs, timing.Start, timing.End, n)
	if err != nil {
		return timeline.Curve{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.curves) >= m.maxEntries {
		m.evictCurves(now)
	}
	m.curves[key] = curveEntry{curve: curve, expires: now.Add(m.ttl)}
	m.addEvent(Event{Type: EventCurveBuilt, Timestamp: now, Observer: obs.String()})
	return curve, nil
}

// evictTimings drops expired entries, or everything if none had expired.
func (m *Manager) evictTimings(now time.Time) {
	before := len(m.timings)
	for k, e := range m.timings {
		if !now.Before(e.expires) {
			delete(m.timings, k)
		}
	}
	if len(m.timings) == before {
		m.timings = make(map[Key]timingEntry)
	}
}

func (m *Manager) evictCurves(now time.Time) {
	before := len(m.curves)
	for k, e := range m.curves {
		if !now.Before(e.expires) {
			delete(m.curves, k)
		}
	}
	if len(m.curves) == before {
		m.curves = make(map[curveKey]curveEntry)
	}
}

// Select makes obs and its eclipse the current selection and parks the
// cursor on the peak.
func (m *Manager) Select(obs astro.Observer, timing eclipse.Timing, curve timeline.Curve) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.observer = obs
	t := timing
	m.timing = &t
	m.curve = curve
	m.cursor = timing.Peak
}

// SetCursor moves the cursor, clamped to the selected eclipse window.
func (m *Manager) SetCursor(t time.Time) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursor = m.clamp(t)
	return m.cursor
}

// StepCursor moves the cursor by d, clamped to the eclipse window.
func (m *Manager) StepCursor(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursor = m.clamp(m.cursor.Add(d))
	return m.cursor
}

func (m *Manager) clamp(t time.Time) time.Time {
	if m.timing == nil {
		return t
	}
	if t.Before(m.timing.Start) {
		return m.timing.Start
	}
	if t.After(m.timing.End) {
		return m.timing.End
	}
	return t
}

// addEvent adds an event to the ring buffer.
func (m *Manager) addEvent(e Event) {
	if len(m.events) < m.maxEvents {
		m.events = append(m.events, e)
	} else {
		m.events[m.eventWriteAt] = e
		m.eventWriteAt = (m.eventWriteAt + 1) % m.maxEvents
	}
}

// Snapshot represents an immutable snapshot of current state.
type Snapshot struct {
	Observer  astro.Observer
	Timing    *eclipse.Timing
	Curve     timeline.Curve
	Cursor    time.Time
	LastError error
	Entries   int
	Hits      int
	Misses    int
	Events    []Event
}

// Snapshot returns a consistent snapshot of current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var timing *eclipse.Timing
	if m.timing != nil {
		t := *m.timing
		timing = &t
	}

	samples := make([]eclipse.CoverageSample, len(m.curve.Samples))
	copy(samples, m.curve.Samples)

	return Snapshot{
		Observer:  m.observer,
		Timing:    timing,
		Curve:     timeline.Curve{Samples: samples},
		Cursor:    m.cursor,
		LastError: m.lastError,
		Entries:   len(m.timings) + len(m.curves),
		Hits:      m.hits,
		Misses:    m.misses,
		Events:    m.getEventsOrdered(),
	}
}

// getEventsOrdered returns events in chronological order.
func (m *Manager) getEventsOrdered() []Event {
	if len(m.events) == 0 {
		return nil
	}

	if len(m.events) < m.maxEvents {
		result := make([]Event, len(m.events))
		copy(result, m.events)
		return result
	}

	result := make([]Event, m.maxEvents)
	for i := 0; i < m.maxEvents; i++ {
		idx := (m.eventWriteAt + i) % m.maxEvents
		result[i] = m.events[idx]
	}
	return result
}

// RecentEvents returns the last n events.
func (m *Manager) RecentEvents(n int) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.getEventsOrdered()
	if len(all) <= n {
		return all
	}
	return all[len(all)-n:]
}
